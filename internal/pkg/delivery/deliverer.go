package delivery

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/sodiqbhoy1/wears/app/models"
	"github.com/sodiqbhoy1/wears/app/repository"
	"github.com/sodiqbhoy1/wears/internal/pkg/notification"
)

// DefaultLease bounds how long an Attempting order blocks other workers.
const DefaultLease = 5 * time.Minute

// Status is the per-order delivery outcome reported to callers and sweeps.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Sender sends one confirmation email. Implementations never panic or
// return errors; see notification.Dispatcher.
type Sender interface {
	Send(ctx context.Context, order *models.Order) notification.Result
}

// Recorder counts finished sends. Errors are logged and otherwise ignored.
type Recorder interface {
	RecordOutcome(ctx context.Context, trigger string, success bool) error
}

// Outcome describes what happened to a single delivery request.
type Outcome struct {
	OrderID   uint   `json:"orderId"`
	Reference string `json:"reference"`
	Email     string `json:"email"`
	Status    Status `json:"status"`
	Attempt   int    `json:"attempt,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Deliverer drives the email bookkeeping state machine
// NeverAttempted -> Attempting -> Sent | Failed, Failed -> Attempting.
type Deliverer struct {
	orders      repository.OrderRepository
	sender      Sender
	maxAttempts int
	lease       time.Duration
	recorder    Recorder
	now         func() time.Time
}

func NewDeliverer(orders repository.OrderRepository, sender Sender) *Deliverer {
	return &Deliverer{
		orders:      orders,
		sender:      sender,
		maxAttempts: models.MaxEmailAttempts,
		lease:       DefaultLease,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithLease overrides the in-flight lease.
func (d *Deliverer) WithLease(lease time.Duration) *Deliverer {
	d.lease = lease
	return d
}

// WithRecorder reports every finished send to r.
func (d *Deliverer) WithRecorder(r Recorder) *Deliverer {
	d.recorder = r
	return d
}

// Deliver performs at most one automatic attempt for the order. The attempt
// is counted and persisted before the email is handed to the sender.
func (d *Deliverer) Deliver(ctx context.Context, orderID uint, trigger string) Outcome {
	order, err := d.orders.FindByID(ctx, orderID)
	if err != nil {
		log.Errorf("[Delivery] Failed to load order %d: %v", orderID, err)
		return Outcome{OrderID: orderID, Status: StatusError, Error: err.Error()}
	}

	out := Outcome{OrderID: order.ID, Reference: order.Reference, Email: order.Customer.Email}
	switch {
	case order.IsEmailSent():
		out.Status = StatusSkipped
		out.Error = "confirmation email already sent"
		return out
	case !order.HasCustomerEmail():
		out.Status = StatusSkipped
		out.Error = notification.ErrMsgNoCustomerEmail
		return out
	case !order.Paid:
		out.Status = StatusSkipped
		out.Error = "order is not paid"
		return out
	}

	started := d.now()
	claimed, attempt, err := d.orders.ClaimEmailAttempt(ctx, order.ID, started, repository.ClaimOptions{
		MaxAttempts: d.maxAttempts,
		Lease:       d.lease,
	})
	if err != nil {
		log.Errorf("[Delivery] Failed to record attempt for %s: %v", order.Reference, err)
		out.Status = StatusError
		out.Error = err.Error()
		return out
	}
	if !claimed {
		out.Status = StatusSkipped
		out.Error = "attempt in flight or retries exhausted"
		return out
	}
	out.Attempt = attempt

	log.Infof("[Delivery] Sending confirmation for %s (attempt %d/%d, trigger=%s)", order.Reference, attempt, d.maxAttempts, trigger)
	res := d.sender.Send(ctx, order)
	return d.finish(ctx, order, out, res, trigger, started)
}

// Resend is the operator escape hatch. It skips the attempt gate and the
// lease and leaves the automatic attempt counter untouched.
func (d *Deliverer) Resend(ctx context.Context, order *models.Order) Outcome {
	out := Outcome{OrderID: order.ID, Reference: order.Reference, Email: order.Customer.Email}
	if !order.HasCustomerEmail() {
		out.Status = StatusFailed
		out.Error = notification.ErrMsgNoCustomerEmail
		return out
	}

	started := d.now()
	if err := d.orders.BeginManualEmailAttempt(ctx, order.ID, started); err != nil {
		log.Errorf("[Delivery] Failed to mark manual resend for %s: %v", order.Reference, err)
	}

	log.Infof("[Delivery] Manual resend for %s to %s", order.Reference, order.Customer.Email)
	res := d.sender.Send(ctx, order)
	return d.finish(ctx, order, out, res, models.EMAIL_TRIGGER_MANUAL, started)
}

func (d *Deliverer) finish(ctx context.Context, order *models.Order, out Outcome, res notification.Result, trigger string, started time.Time) Outcome {
	finished := d.now()
	if res.Success {
		out.Status = StatusSuccess
		if err := d.orders.MarkEmailSent(ctx, order.ID, finished); err != nil {
			log.Errorf("[Delivery] Email for %s was sent but marking it failed: %v", order.Reference, err)
		}
	} else {
		out.Status = StatusFailed
		out.Error = res.Error
		if err := d.orders.MarkEmailFailed(ctx, order.ID, finished, res.Error); err != nil {
			log.Errorf("[Delivery] Failed to record email error for %s: %v", order.Reference, err)
		}
	}

	entry := &models.EmailAttempt{
		OrderID:    order.ID,
		Reference:  order.Reference,
		Attempt:    out.Attempt,
		Trigger:    trigger,
		Recipient:  order.Customer.Email,
		Success:    res.Success,
		Error:      res.Error,
		StartedAt:  started,
		FinishedAt: &finished,
	}
	if err := d.orders.RecordEmailAttempt(ctx, entry); err != nil {
		log.Errorf("[Delivery] Failed to append attempt log for %s: %v", order.Reference, err)
	}
	if d.recorder != nil {
		if err := d.recorder.RecordOutcome(ctx, trigger, res.Success); err != nil {
			log.Warnf("[Delivery] Failed to count outcome for %s: %v", order.Reference, err)
		}
	}
	return out
}
