package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Scheduler hands a confirmation email off to run outside the request.
type Scheduler interface {
	ScheduleConfirmation(orderID uint, reference string, trigger string) error
}

// GoScheduler runs each delivery in its own goroutine. It is the fallback
// when the job queue is unavailable.
type GoScheduler struct {
	deliverer *Deliverer
	timeout   time.Duration
	wg        sync.WaitGroup
}

func NewGoScheduler(deliverer *Deliverer, timeout time.Duration) *GoScheduler {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &GoScheduler{deliverer: deliverer, timeout: timeout}
}

func (s *GoScheduler) ScheduleConfirmation(orderID uint, reference string, trigger string) error {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		out := s.deliverer.Deliver(ctx, orderID, trigger)
		log.Debugf("[Delivery] Background delivery for %s finished: %s", reference, out.Status)
	}()
	return nil
}

// Wait blocks until all scheduled deliveries returned.
func (s *GoScheduler) Wait() {
	s.wg.Wait()
}

// FallbackScheduler tries Primary and uses Secondary when it fails.
type FallbackScheduler struct {
	Primary   Scheduler
	Secondary Scheduler
}

func (f FallbackScheduler) ScheduleConfirmation(orderID uint, reference string, trigger string) error {
	if f.Primary != nil {
		err := f.Primary.ScheduleConfirmation(orderID, reference, trigger)
		if err == nil {
			return nil
		}
		log.Warnf("[Delivery] Queueing confirmation for %s failed, running in-process: %v", reference, err)
	}
	return f.Secondary.ScheduleConfirmation(orderID, reference, trigger)
}
