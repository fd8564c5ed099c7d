package repository

import (
	"context"
	"time"

	"github.com/sodiqbhoy1/wears/app/models"
	"gorm.io/gorm"
)

// ClaimOptions controls entry into the Attempting email state.
type ClaimOptions struct {
	MaxAttempts int
	// Lease is how long an in-flight attempt blocks other claimers.
	// A crashed sender is retried once the lease has expired.
	Lease time.Duration
}

// OrderRepository defines the order persistence operations
type OrderRepository interface {
	FindByReference(ctx context.Context, reference string) (*models.Order, error)
	FindByID(ctx context.Context, id uint) (*models.Order, error)
	// CreateIfAbsent inserts the order unless its reference already exists.
	// It returns the stored order and whether this call created it.
	CreateIfAbsent(ctx context.Context, draft *models.Order) (*models.Order, bool, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	ClaimEmailAttempt(ctx context.Context, id uint, now time.Time, opts ClaimOptions) (bool, int, error)
	BeginManualEmailAttempt(ctx context.Context, id uint, now time.Time) error
	MarkEmailSent(ctx context.Context, id uint, sentAt time.Time) error
	MarkEmailFailed(ctx context.Context, id uint, failedAt time.Time, message string) error
	FindPendingEmail(ctx context.Context, since time.Time, maxAttempts int, limit int) ([]models.Order, error)
	CountPendingEmail(ctx context.Context, since time.Time, maxAttempts int) (int64, error)
	RecordEmailAttempt(ctx context.Context, attempt *models.EmailAttempt) error
	ListEmailAttempts(ctx context.Context, orderID uint) ([]models.EmailAttempt, error)
}

// ProductRepository defines the product and stock operations
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByUUID(ctx context.Context, uuid string) (*models.Product, error)
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	// DecrementVariantStock subtracts qty only while enough stock is left.
	DecrementVariantStock(ctx context.Context, variantID uint, qty int) (bool, error)
	// DrainVariantStock sets a variant to zero and returns the quantity it held.
	DrainVariantStock(ctx context.Context, variantID uint) (int, error)
	MarkOutOfStockIfDepleted(ctx context.Context, productID uint) (bool, error)
}

// PaymentEventRepository defines the webhook audit operations
type PaymentEventRepository interface {
	CreateIfNotExists(ctx context.Context, event *models.PaymentEvent) (bool, *models.PaymentEvent, error)
	MarkProcessed(ctx context.Context, id uint, processingError string) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	Order        OrderRepository
	Product      ProductRepository
	PaymentEvent PaymentEventRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Order:        NewOrderRepository(db),
		Product:      NewProductRepository(db),
		PaymentEvent: NewPaymentEventRepository(db),
	}
}
