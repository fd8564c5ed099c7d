package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sodiqbhoy1/wears/app/models"
	"github.com/sodiqbhoy1/wears/internal/pkg/mail"
)

func newTestDispatcher(t *testing.T, mailer mail.Mailer, configured bool) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(mailer, Options{
		BaseURL: "https://wears.test/",
		Status:  mail.Status{Configured: configured},
	})
	require.NoError(t, err)
	return d
}

func sampleOrder() *models.Order {
	return &models.Order{
		Reference: "FJ1A2B3C",
		Amount:    2500,
		Currency:  "NGN",
		Customer:  models.Customer{Name: "Ada", Email: "a@b.com"},
		Items: []models.OrderItem{
			{Name: "Tee", Qty: 1, UnitPrice: 2500, Size: "M", Color: "black"},
		},
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestDispatcher_Compose(t *testing.T) {
	d := newTestDispatcher(t, &mail.MockMailer{}, true)

	msg, err := d.Compose(sampleOrder())
	require.NoError(t, err)

	assert.Equal(t, "a@b.com", msg.To)
	assert.Equal(t, "Order Confirmation - Tracking Code: FJ1A2B3C", msg.Subject)
	assert.Contains(t, msg.TextBody, "- Tee (Size M, black) x 1 = ₦2,500.00")
	assert.Contains(t, msg.TextBody, "Total: ₦2,500.00")
	assert.Contains(t, msg.TextBody, "https://wears.test/track-order?code=FJ1A2B3C")
	assert.Contains(t, msg.HTMLBody, "FJ1A2B3C")
	assert.Contains(t, msg.HTMLBody, "Tee")
	assert.Contains(t, msg.HTMLBody, "https://wears.test/track-order?code=FJ1A2B3C")
	assert.Contains(t, msg.TextBody, "March 1, 2026")
}

func TestDispatcher_SendSuccess(t *testing.T) {
	mailer := &mail.MockMailer{}
	d := newTestDispatcher(t, mailer, true)

	res := d.Send(context.Background(), sampleOrder())
	assert.True(t, res.Success)
	assert.Empty(t, res.Error)
	require.Len(t, mailer.Sent(), 1)
}

func TestDispatcher_SendFailures(t *testing.T) {
	t.Run("no customer email", func(t *testing.T) {
		d := newTestDispatcher(t, &mail.MockMailer{}, true)
		order := sampleOrder()
		order.Customer.Email = " "
		res := d.Send(context.Background(), order)
		assert.False(t, res.Success)
		assert.Equal(t, ErrMsgNoCustomerEmail, res.Error)
	})

	t.Run("not configured", func(t *testing.T) {
		mailer := &mail.MockMailer{}
		d := newTestDispatcher(t, mailer, false)
		res := d.Send(context.Background(), sampleOrder())
		assert.False(t, res.Success)
		assert.Equal(t, ErrMsgNotConfigured, res.Error)
		assert.Empty(t, mailer.Sent())
	})

	t.Run("transport error", func(t *testing.T) {
		d := newTestDispatcher(t, &mail.MockMailer{Err: errors.New("421 try later")}, true)
		res := d.Send(context.Background(), sampleOrder())
		assert.False(t, res.Success)
		assert.Equal(t, "421 try later", res.Error)
	})

	t.Run("transport panic", func(t *testing.T) {
		mailer := &mail.MockMailer{Hook: func(mail.Message) { panic("boom") }}
		d := newTestDispatcher(t, mailer, true)
		res := d.Send(context.Background(), sampleOrder())
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "boom")
	})

	t.Run("nil order", func(t *testing.T) {
		d := newTestDispatcher(t, &mail.MockMailer{}, true)
		res := d.Send(context.Background(), nil)
		assert.False(t, res.Success)
	})
}
