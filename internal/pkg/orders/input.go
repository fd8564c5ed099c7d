package orders

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sodiqbhoy1/wears/app/models"
)

// ErrValidation marks a rejected draft. Nothing has been written when it is
// returned.
var ErrValidation = errors.New("invalid order")

// referenceRules keeps references printable, they end up in email headers.
const referenceRules = "required,max=100,printascii"

// ClientOrderInput is posted by the storefront once its payment SDK reported
// success.
type ClientOrderInput struct {
	Reference string        `json:"reference" validate:"required,max=100,printascii"`
	Amount    float64       `json:"amount" validate:"gte=0"`
	Currency  string        `json:"currency" validate:"omitempty,len=3"`
	Customer  CustomerInput `json:"customer"`
	Items     []ItemInput   `json:"items" validate:"omitempty,dive"`
	Paid      bool          `json:"paid"`
	Status    string        `json:"status" validate:"omitempty,oneof=pending preparing ready delivered"`
	CreatedAt *time.Time    `json:"createdAt"`
}

type CustomerInput struct {
	Name    string `json:"name" validate:"max=150"`
	Email   string `json:"email" validate:"max=200"`
	Phone   string `json:"phone" validate:"max=50"`
	Address string `json:"address"`
}

// ItemInput is one cart line. Older carts send the product reference as id.
type ItemInput struct {
	ProductRef string  `json:"productRef" validate:"max=100"`
	ID         string  `json:"id" validate:"max=100"`
	Name       string  `json:"name" validate:"required,max=200"`
	Qty        int     `json:"qty" validate:"gte=1"`
	UnitPrice  float64 `json:"unitPrice" validate:"gte=0"`
	Size       string  `json:"size" validate:"max=20"`
	Color      string  `json:"color" validate:"max=50"`
}

func (in *ClientOrderInput) normalize() {
	in.Reference = strings.TrimSpace(in.Reference)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	in.Customer.Email = strings.TrimSpace(in.Customer.Email)
	in.Customer.Name = strings.TrimSpace(in.Customer.Name)
	in.Items = append([]ItemInput(nil), in.Items...)
	for i := range in.Items {
		in.Items[i].Name = strings.TrimSpace(in.Items[i].Name)
		if in.Items[i].ProductRef == "" {
			in.Items[i].ProductRef = strings.TrimSpace(in.Items[i].ID)
		}
	}
}

func (in *ClientOrderInput) toOrder(now time.Time) *models.Order {
	order := &models.Order{
		Reference: in.Reference,
		Amount:    in.Amount,
		Currency:  in.Currency,
		Customer: models.Customer{
			Name:    in.Customer.Name,
			Email:   in.Customer.Email,
			Phone:   in.Customer.Phone,
			Address: in.Customer.Address,
		},
		Status:     in.Status,
		Paid:       in.Paid,
		Source:     models.ORDER_SOURCE_CLIENT,
		EmailState: models.EmailStateNeverAttempted,
		CreatedAt:  now,
	}
	if order.Currency == "" {
		order.Currency = models.DEFAULT_CURRENCY
	}
	if order.Status == "" {
		order.Status = models.ORDER_STATUS_PENDING
	}
	if in.CreatedAt != nil && !in.CreatedAt.IsZero() {
		order.CreatedAt = in.CreatedAt.UTC()
	}
	for _, it := range in.Items {
		order.Items = append(order.Items, models.OrderItem{
			ProductRef: it.ProductRef,
			Name:       it.Name,
			Qty:        it.Qty,
			UnitPrice:  it.UnitPrice,
			Size:       strings.TrimSpace(it.Size),
			Color:      strings.TrimSpace(it.Color),
		})
	}
	if order.Amount == 0 {
		order.Amount = order.ItemsTotal()
	}
	return order
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}
