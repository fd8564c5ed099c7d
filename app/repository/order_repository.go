package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sodiqbhoy1/wears/app/models"
)

// orderRepository implements the OrderRepository interface
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository instance
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) FindByReference(ctx context.Context, reference string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateIfAbsent relies on the unique reference index. A conflicting insert
// (either swallowed by ON CONFLICT or surfaced as a duplicate key error) means
// another writer won, so the stored row is returned instead.
func (r *orderRepository) CreateIfAbsent(ctx context.Context, draft *models.Order) (*models.Order, bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "reference"}},
		DoNothing: true,
	}).Create(draft)
	if tx.Error != nil && !IsDuplicateKeyError(tx.Error) {
		return nil, false, tx.Error
	}
	if tx.Error == nil && tx.RowsAffected > 0 {
		return draft, true, nil
	}

	existing, err := r.FindByReference(ctx, draft.Reference)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *orderRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(fields).Error
}

// ClaimEmailAttempt moves the order into the Attempting state with a single
// conditional update, counting the attempt before anything is sent.
func (r *orderRepository) ClaimEmailAttempt(ctx context.Context, id uint, now time.Time, opts ClaimOptions) (bool, int, error) {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = models.MaxEmailAttempts
	}

	db := r.db.WithContext(ctx)
	res := db.Model(&models.Order{}).
		Where("id = ? AND confirmation_email_sent = ? AND email_attempts < ?", id, false, maxAttempts).
		Where("email_state <> ?", models.EmailStateSent).
		Where(db.Where("email_state <> ?", models.EmailStateAttempting).
			Or("last_email_attempt IS NULL").
			Or("last_email_attempt < ?", now.Add(-opts.Lease))).
		Updates(map[string]interface{}{
			"email_attempts":     gorm.Expr("email_attempts + 1"),
			"email_state":        models.EmailStateAttempting,
			"last_email_attempt": now,
		})
	if res.Error != nil {
		return false, 0, res.Error
	}
	if res.RowsAffected == 0 {
		return false, 0, nil
	}

	var attempts int
	if err := db.Model(&models.Order{}).Where("id = ?", id).Select("email_attempts").Scan(&attempts).Error; err != nil {
		return true, 0, err
	}
	return true, attempts, nil
}

// BeginManualEmailAttempt marks an operator resend as in flight without
// consuming one of the automatic attempts. Sent orders keep their state.
func (r *orderRepository) BeginManualEmailAttempt(ctx context.Context, id uint, now time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(map[string]interface{}{
		"email_state": gorm.Expr("CASE WHEN confirmation_email_sent = ? THEN email_state ELSE ? END",
			true, models.EmailStateAttempting),
		"last_email_attempt": now,
	}).Error
}

func (r *orderRepository) MarkEmailSent(ctx context.Context, id uint, sentAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(map[string]interface{}{
		"email_state":                models.EmailStateSent,
		"confirmation_email_sent":    true,
		"confirmation_email_sent_at": sentAt,
		"confirmation_email_error":   "",
	}).Error
}

// MarkEmailFailed never downgrades an order that was already sent by a
// concurrent attempt.
func (r *orderRepository) MarkEmailFailed(ctx context.Context, id uint, failedAt time.Time, message string) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND confirmation_email_sent = ?", id, false).
		Updates(map[string]interface{}{
			"email_state":              models.EmailStateFailed,
			"confirmation_email_error": message,
		}).Error
}

func (r *orderRepository) pendingEmailQuery(ctx context.Context, since time.Time, maxAttempts int) *gorm.DB {
	if maxAttempts <= 0 {
		maxAttempts = models.MaxEmailAttempts
	}
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("paid = ?", true).
		Where("customer_email IS NOT NULL AND customer_email <> ''").
		Where("confirmation_email_sent = ?", false).
		Where("created_at >= ?", since).
		Where("email_attempts < ?", maxAttempts)
}

func (r *orderRepository) FindPendingEmail(ctx context.Context, since time.Time, maxAttempts int, limit int) ([]models.Order, error) {
	var orders []models.Order
	q := r.pendingEmailQuery(ctx, since, maxAttempts).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&orders).Error
	return orders, err
}

func (r *orderRepository) CountPendingEmail(ctx context.Context, since time.Time, maxAttempts int) (int64, error) {
	var count int64
	err := r.pendingEmailQuery(ctx, since, maxAttempts).Count(&count).Error
	return count, err
}

func (r *orderRepository) RecordEmailAttempt(ctx context.Context, attempt *models.EmailAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *orderRepository) ListEmailAttempts(ctx context.Context, orderID uint) ([]models.EmailAttempt, error) {
	var attempts []models.EmailAttempt
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&attempts).Error
	return attempts, err
}

// IsDuplicateKeyError detects unique constraint violations across drivers.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
