package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

const (
	ORDER_STATUS_PENDING   = "pending"
	ORDER_STATUS_PREPARING = "preparing"
	ORDER_STATUS_READY     = "ready"
	ORDER_STATUS_DELIVERED = "delivered"

	ORDER_SOURCE_CLIENT  = "client"
	ORDER_SOURCE_WEBHOOK = "webhook"

	DEFAULT_CURRENCY = "NGN"
)

// EmailState is the confirmation email delivery state of an order.
type EmailState string

const (
	EmailStateNeverAttempted EmailState = "never_attempted"
	EmailStateAttempting     EmailState = "attempting"
	EmailStateSent           EmailState = "sent"
	EmailStateFailed         EmailState = "failed"
)

// MaxEmailAttempts bounds automatic confirmation email attempts per order.
const MaxEmailAttempts = 3

// Customer is embedded into the orders table with a customer_ prefix.
type Customer struct {
	Name    string `gorm:"type:varchar(150)" json:"name"`
	Email   string `gorm:"type:varchar(200);index" json:"email"`
	Phone   string `gorm:"type:varchar(50)" json:"phone"`
	Address string `gorm:"type:text" json:"address"`
}

// OrderItem is one line of an order. Items are stored as a JSON column and
// never change after the order was created.
type OrderItem struct {
	ProductRef string  `json:"productRef,omitempty"`
	Name       string  `json:"name"`
	Qty        int     `json:"qty"`
	UnitPrice  float64 `json:"unitPrice"`
	Size       string  `json:"size,omitempty"`
	Color      string  `json:"color,omitempty"`
}

// LineTotal returns qty * unit price.
func (i OrderItem) LineTotal() float64 {
	return float64(i.Qty) * i.UnitPrice
}

// Order is created exactly once per payment reference.
type Order struct {
	ID                      uint                           `gorm:"primaryKey" json:"id"`
	Reference               string                         `gorm:"type:varchar(100);not null;uniqueIndex:ux_orders_reference" json:"reference"`
	Amount                  float64                        `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`
	Currency                string                         `gorm:"type:varchar(10);not null;default:'NGN'" json:"currency"`
	Customer                Customer                       `gorm:"embedded;embeddedPrefix:customer_" json:"customer"`
	Items                   datatypes.JSONSlice[OrderItem] `json:"items"`
	Status                  string                         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Paid                    bool                           `gorm:"not null;default:false;index" json:"paid"`
	Source                  string                         `gorm:"type:varchar(20);not null" json:"source"`
	GatewayReference        string                         `gorm:"column:paystack_reference;type:varchar(100)" json:"paystackReference,omitempty"`
	GatewayTransactionID    string                         `gorm:"column:paystack_transaction_id;type:varchar(100)" json:"paystackTransactionId,omitempty"`
	EmailState              EmailState                     `gorm:"type:varchar(20);not null;default:'never_attempted';index" json:"emailState"`
	ConfirmationEmailSent   bool                           `gorm:"not null;default:false;index" json:"confirmationEmailSent"`
	ConfirmationEmailSentAt *time.Time                     `gorm:"type:timestamp;default:null" json:"confirmationEmailSentAt,omitempty"`
	ConfirmationEmailError  string                         `gorm:"type:text" json:"confirmationEmailError,omitempty"`
	EmailAttempts           int                            `gorm:"not null;default:0" json:"emailAttempts"`
	LastEmailAttempt        *time.Time                     `gorm:"type:timestamp;default:null" json:"lastEmailAttempt,omitempty"`
	CreatedAt               time.Time                      `gorm:"index" json:"createdAt"`
	UpdatedAt               time.Time                      `json:"updatedAt"`
}

// HasCustomerEmail reports whether a confirmation email can be addressed.
func (o *Order) HasCustomerEmail() bool {
	return strings.TrimSpace(o.Customer.Email) != ""
}

// ItemsTotal sums all line totals.
func (o *Order) ItemsTotal() float64 {
	var total float64
	for _, item := range o.Items {
		total += item.LineTotal()
	}
	return total
}

// Total prefers the paid amount and falls back to the item sum.
func (o *Order) Total() float64 {
	if o.Amount > 0 {
		return o.Amount
	}
	return o.ItemsTotal()
}

// IsEmailSent reports the terminal Sent state.
func (o *Order) IsEmailSent() bool {
	return o.ConfirmationEmailSent || o.EmailState == EmailStateSent
}

// CanAutoRetry reports whether the sweeper may still attempt delivery.
func (o *Order) CanAutoRetry() bool {
	return !o.IsEmailSent() && o.EmailAttempts < MaxEmailAttempts
}

// IsValidOrderStatus checks the fulfilment status enum.
func IsValidOrderStatus(status string) bool {
	switch status {
	case ORDER_STATUS_PENDING, ORDER_STATUS_PREPARING, ORDER_STATUS_READY, ORDER_STATUS_DELIVERED:
		return true
	}
	return false
}
