package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/sodiqbhoy1/wears/internal/pkg/delivery"
)

// confirmationJobTimeout bounds one delivery inside a worker.
const confirmationJobTimeout = 2 * time.Minute

// OrderDeliverer is the part of delivery.Deliverer the workers use.
type OrderDeliverer interface {
	Deliver(ctx context.Context, orderID uint, trigger string) delivery.Outcome
}

// EmailScheduler queues confirmation emails as jobs.
type EmailScheduler struct {
	queue *Queue
}

func NewEmailScheduler(queue *Queue) *EmailScheduler {
	return &EmailScheduler{queue: queue}
}

// ScheduleConfirmation enqueues an order_confirmation_email job.
func (s *EmailScheduler) ScheduleConfirmation(orderID uint, reference string, trigger string) error {
	payload := OrderEmailJobPayload{OrderID: orderID, Reference: reference, Trigger: trigger}
	if _, err := s.queue.EnqueueJob(JobTypeOrderConfirmationEmail, payload.ToMap()); err != nil {
		return fmt.Errorf("enqueue confirmation for %s: %w", reference, err)
	}
	return nil
}

// RegisterEmailHandlers wires the confirmation job type to the deliverer.
func RegisterEmailHandlers(q *Queue, deliverer OrderDeliverer) {
	q.Handle(JobTypeOrderConfirmationEmail, func(ctx context.Context, job *Job) error {
		return processOrderConfirmationJob(ctx, deliverer, job)
	})
}

// processOrderConfirmationJob performs one delivery. A mail failure is
// already recorded on the order and left to the sweeper, only bookkeeping
// errors make the queue retry the job.
func processOrderConfirmationJob(ctx context.Context, deliverer OrderDeliverer, job *Job) error {
	payload, err := OrderEmailJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid confirmation payload: %w", err)
	}
	if payload.OrderID == 0 {
		return fmt.Errorf("confirmation job %s has no order id", job.ID)
	}

	ctx, cancel := context.WithTimeout(ctx, confirmationJobTimeout)
	defer cancel()

	out := deliverer.Deliver(ctx, payload.OrderID, payload.Trigger)
	switch out.Status {
	case delivery.StatusError:
		return fmt.Errorf("deliver confirmation for %s: %s", payload.Reference, out.Error)
	case delivery.StatusFailed:
		log.Warnf("[JobQueue] Confirmation for %s failed on attempt %d: %s", payload.Reference, out.Attempt, out.Error)
	default:
		log.Debugf("[JobQueue] Confirmation for %s: %s", payload.Reference, out.Status)
	}
	return nil
}
