package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"

	"github.com/sodiqbhoy1/wears/app/models"
	"github.com/sodiqbhoy1/wears/app/repository"
	"github.com/sodiqbhoy1/wears/internal/pkg/delivery"
	"github.com/sodiqbhoy1/wears/internal/pkg/inventory"
	"github.com/sodiqbhoy1/wears/internal/pkg/paystack"
)

const (
	MsgAlreadyExists = "Order already exists"
	MsgIgnoredEvent  = "Not a successful payment event."
)

// StockAdjuster applies an order's stock decrements.
type StockAdjuster interface {
	Apply(ctx context.Context, order *models.Order) inventory.Report
}

// IngestResult is what both entry points report back.
type IngestResult struct {
	Order         *models.Order `json:"order,omitempty"`
	Created       bool          `json:"created"`
	AlreadyExists bool          `json:"alreadyExists"`
	Ignored       bool          `json:"ignored"`
	Message       string        `json:"message,omitempty"`
}

// Service converges the client callback and the payment webhook on one
// create-or-reuse operation keyed by the order reference.
type Service struct {
	orders    repository.OrderRepository
	events    repository.PaymentEventRepository
	stock     StockAdjuster
	scheduler delivery.Scheduler
	validate  *validator.Validate
	now       func() time.Time
}

// NewService wires the ingestion service. events and stock may be nil.
func NewService(orders repository.OrderRepository, events repository.PaymentEventRepository, stock StockAdjuster, scheduler delivery.Scheduler) *Service {
	return &Service{
		orders:    orders,
		events:    events,
		stock:     stock,
		scheduler: scheduler,
		validate:  validator.New(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateFromClient persists the client submitted order unless its reference
// already exists. An existing order whose confirmation is still missing gets
// another delivery scheduled.
func (s *Service) CreateFromClient(ctx context.Context, in ClientOrderInput) (IngestResult, error) {
	in.normalize()
	if err := s.validate.Struct(in); err != nil {
		return IngestResult{}, validationError(err)
	}

	order, created, err := s.orders.CreateIfAbsent(ctx, in.toOrder(s.now()))
	if err != nil {
		return IngestResult{}, fmt.Errorf("create order %s: %w", in.Reference, err)
	}

	if !created {
		log.Infof("[Orders] Order %s already exists (source=%s)", order.Reference, order.Source)
		if order.Paid && order.HasCustomerEmail() && !order.IsEmailSent() {
			s.scheduleConfirmation(order, models.EMAIL_TRIGGER_EXISTING)
		}
		return IngestResult{Order: order, AlreadyExists: true, Message: MsgAlreadyExists}, nil
	}

	log.Infof("[Orders] Created order %s from client (amount=%.2f %s, items=%d)", order.Reference, order.Amount, order.Currency, len(order.Items))
	s.afterCreate(ctx, order)
	return IngestResult{Order: order, Created: true}, nil
}

// CreateFromWebhook creates the order for a successful charge. Redelivered
// events find the existing order and trigger nothing.
func (s *Service) CreateFromWebhook(ctx context.Context, ev *paystack.Event) (IngestResult, error) {
	if !ev.IsSuccessfulCharge() {
		log.Infof("[Orders] Ignoring webhook event %s (status=%s)", ev.Event, ev.Data.Status)
		return IngestResult{Ignored: true, Message: MsgIgnoredEvent}, nil
	}
	if ev.Data.Reference == "" {
		return IngestResult{}, fmt.Errorf("%w: webhook event has no reference", ErrValidation)
	}
	if err := s.validate.Var(ev.Data.Reference, referenceRules); err != nil {
		return IngestResult{}, fmt.Errorf("%w: webhook reference must be printable ASCII of at most 100 characters", ErrValidation)
	}

	currency := ev.Data.Currency
	if currency == "" {
		currency = models.DEFAULT_CURRENCY
	}
	draft := &models.Order{
		Reference:            ev.Data.Reference,
		Amount:               ev.MajorAmount(),
		Currency:             currency,
		Customer:             ev.Customer(),
		Items:                ev.OrderItems(),
		Status:               models.ORDER_STATUS_PENDING,
		Paid:                 true,
		Source:               models.ORDER_SOURCE_WEBHOOK,
		GatewayReference:     ev.Data.Reference,
		GatewayTransactionID: ev.Data.ID.String(),
		EmailState:           models.EmailStateNeverAttempted,
		CreatedAt:            s.now(),
	}

	order, created, err := s.orders.CreateIfAbsent(ctx, draft)
	if err != nil {
		return IngestResult{}, fmt.Errorf("create order %s: %w", draft.Reference, err)
	}
	if !created {
		log.Infof("[Orders] Webhook for %s redelivered, order already exists", order.Reference)
		return IngestResult{Order: order, AlreadyExists: true, Message: MsgAlreadyExists}, nil
	}

	log.Infof("[Orders] Created order %s from webhook (amount=%.2f %s)", order.Reference, order.Amount, order.Currency)
	s.afterCreate(ctx, order)
	return IngestResult{Order: order, Created: true}, nil
}

// RecordWebhook stores the raw delivery for auditing. It never blocks
// ingestion, a failure is only logged.
func (s *Service) RecordWebhook(ctx context.Context, ev *paystack.Event, payload []byte, signatureValid bool) *models.PaymentEvent {
	if s.events == nil || ev == nil {
		return nil
	}
	created, stored, err := s.events.CreateIfNotExists(ctx, &models.PaymentEvent{
		Provider:        models.PAYMENT_PROVIDER_PAYSTACK,
		ProviderEventID: ev.EventID(),
		EventType:       ev.Event,
		Reference:       ev.Data.Reference,
		PayloadJSON:     string(payload),
		SignatureValid:  signatureValid,
	})
	if err != nil {
		log.Warnf("[Orders] Failed to record webhook event %s: %v", ev.EventID(), err)
		return nil
	}
	if !created {
		log.Debugf("[Orders] Webhook event %s seen before", ev.EventID())
	}
	return stored
}

// FinishWebhook marks an audited delivery processed.
func (s *Service) FinishWebhook(ctx context.Context, event *models.PaymentEvent, procErr error) {
	if s.events == nil || event == nil {
		return
	}
	msg := ""
	if procErr != nil {
		msg = procErr.Error()
	}
	if err := s.events.MarkProcessed(ctx, event.ID, msg); err != nil {
		log.Warnf("[Orders] Failed to mark webhook event %d processed: %v", event.ID, err)
	}
}

// FindByReference looks up an order for tracking and resends.
func (s *Service) FindByReference(ctx context.Context, reference string) (*models.Order, error) {
	return s.orders.FindByReference(ctx, reference)
}

func (s *Service) FindByID(ctx context.Context, id uint) (*models.Order, error) {
	return s.orders.FindByID(ctx, id)
}

// afterCreate runs only on the path that inserted the order, which makes the
// stock decrement happen once per reference.
func (s *Service) afterCreate(ctx context.Context, order *models.Order) {
	if s.stock != nil && order.Paid && len(order.Items) > 0 {
		report := s.stock.Apply(ctx, order)
		if report.Failed > 0 {
			log.Warnf("[Orders] %d of %d stock updates failed for %s", report.Failed, len(report.Items), order.Reference)
		}
	}
	if order.Paid && order.HasCustomerEmail() {
		s.scheduleConfirmation(order, models.EMAIL_TRIGGER_INGEST)
	} else if !order.HasCustomerEmail() {
		log.Infof("[Orders] No customer email on %s, skipping confirmation", order.Reference)
	}
}

func (s *Service) scheduleConfirmation(order *models.Order, trigger string) {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.ScheduleConfirmation(order.ID, order.Reference, trigger); err != nil {
		// The sweeper picks the order up later.
		log.Errorf("[Orders] Failed to schedule confirmation for %s: %v", order.Reference, err)
	}
}

// IsValidation reports whether err is a rejected draft.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
