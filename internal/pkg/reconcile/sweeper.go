package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/time/rate"

	"github.com/sodiqbhoy1/wears/app/models"
	"github.com/sodiqbhoy1/wears/app/repository"
	"github.com/sodiqbhoy1/wears/internal/pkg/delivery"
)

const (
	DefaultWindow   = 24 * time.Hour
	DefaultInterval = time.Second
	lockKey         = "wears:email-sweep:lock"
	lockTTL         = 15 * time.Minute
)

// ErrSweepRunning is returned when another sweep holds the lock.
var ErrSweepRunning = errors.New("email sweep already running")

// Locker serialises sweeps across instances. A nil Locker runs unguarded.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// Deliverer performs one bookkept delivery attempt.
type Deliverer interface {
	Deliver(ctx context.Context, orderID uint, trigger string) delivery.Outcome
}

// Result is the per-order line of a sweep summary.
type Result struct {
	Reference string          `json:"reference"`
	Email     string          `json:"email"`
	Status    delivery.Status `json:"status"`
	Attempt   int             `json:"attempt,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Summary reports one sweep pass.
type Summary struct {
	Trigger   string    `json:"trigger"`
	Total     int       `json:"total"`
	Succeeded int       `json:"success"`
	Failed    int       `json:"failures"`
	Skipped   int       `json:"skipped"`
	Results   []Result  `json:"results"`
	Timestamp time.Time `json:"timestamp"`
}

// Message is the human readable one-line outcome.
func (s Summary) Message() string {
	if s.Total == 0 {
		return "No orders need confirmation emails"
	}
	return fmt.Sprintf("Processed %d orders", s.Total)
}

type Options struct {
	// Window is how far back unsent orders are still retried.
	Window time.Duration
	// Interval is the minimum gap between two sends, negative disables pacing.
	Interval    time.Duration
	MaxAttempts int
	Locker      Locker
}

// Sweeper retries confirmation emails for recent paid orders that never got
// one. Orders are processed one at a time.
type Sweeper struct {
	orders    repository.OrderRepository
	deliverer Deliverer
	opts      Options
	now       func() time.Time
}

func NewSweeper(orders repository.OrderRepository, deliverer Deliverer, opts Options) *Sweeper {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Interval < 0 {
		opts.Interval = 0
	} else if opts.Interval == 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = models.MaxEmailAttempts
	}
	return &Sweeper{
		orders:    orders,
		deliverer: deliverer,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Sweeper) since() time.Time {
	return s.now().Add(-s.opts.Window)
}

// Pending counts the orders the next sweep would pick up.
func (s *Sweeper) Pending(ctx context.Context) (int64, error) {
	return s.orders.CountPendingEmail(ctx, s.since(), s.opts.MaxAttempts)
}

// Run executes one sweep pass. Per-order failures end up in the summary,
// only selection errors, lock contention and cancellation are returned.
func (s *Sweeper) Run(ctx context.Context, trigger string) (Summary, error) {
	summary := Summary{Trigger: trigger, Results: []Result{}, Timestamp: s.now()}

	if s.opts.Locker != nil {
		ok, err := s.opts.Locker.TryLock(ctx, lockKey, lockTTL)
		if err != nil {
			// Redis trouble must not stop retries; claims still keep sends single.
			log.Warnf("[Sweeper] Lock unavailable, sweeping without it: %v", err)
		} else if !ok {
			return summary, ErrSweepRunning
		} else {
			defer func() {
				if err := s.opts.Locker.Unlock(context.Background(), lockKey); err != nil {
					log.Warnf("[Sweeper] Failed to release lock: %v", err)
				}
			}()
		}
	}

	pending, err := s.orders.FindPendingEmail(ctx, s.since(), s.opts.MaxAttempts, 0)
	if err != nil {
		return summary, fmt.Errorf("select pending orders: %w", err)
	}
	summary.Total = len(pending)
	if len(pending) == 0 {
		log.Debugf("[Sweeper] No orders need confirmation emails (trigger=%s)", trigger)
		return summary, nil
	}
	log.Infof("[Sweeper] Found %d orders needing confirmation emails (trigger=%s)", len(pending), trigger)

	var limiter *rate.Limiter
	if s.opts.Interval > 0 {
		limiter = rate.NewLimiter(rate.Every(s.opts.Interval), 1)
	}

	for i := range pending {
		order := &pending[i]
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				log.Warnf("[Sweeper] Stopped after %d of %d orders: %v", i, len(pending), err)
				return summary, err
			}
		}

		out := s.deliverer.Deliver(ctx, order.ID, trigger)
		res := Result{
			Reference: order.Reference,
			Email:     order.Customer.Email,
			Status:    out.Status,
			Attempt:   out.Attempt,
			Error:     out.Error,
		}
		switch out.Status {
		case delivery.StatusSuccess:
			summary.Succeeded++
		case delivery.StatusSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
		summary.Results = append(summary.Results, res)
	}

	log.Infof("[Sweeper] Sweep done: %d sent, %d failed, %d skipped", summary.Succeeded, summary.Failed, summary.Skipped)
	return summary, nil
}
