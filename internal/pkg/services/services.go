// Package services builds the object graph shared by the HTTP server and the
// operator CLI.
package services

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/sodiqbhoy1/wears/app/repository"
	"github.com/sodiqbhoy1/wears/internal/pkg/cache"
	"github.com/sodiqbhoy1/wears/internal/pkg/delivery"
	"github.com/sodiqbhoy1/wears/internal/pkg/env"
	"github.com/sodiqbhoy1/wears/internal/pkg/inventory"
	"github.com/sodiqbhoy1/wears/internal/pkg/jobqueue"
	"github.com/sodiqbhoy1/wears/internal/pkg/mail"
	"github.com/sodiqbhoy1/wears/internal/pkg/metrics/counter"
	"github.com/sodiqbhoy1/wears/internal/pkg/notification"
	"github.com/sodiqbhoy1/wears/internal/pkg/orders"
	"github.com/sodiqbhoy1/wears/internal/pkg/reconcile"
)

// Services is the wired application core.
type Services struct {
	Repos       *repository.Repositories
	MailConfig  mail.Config
	Dispatcher  *notification.Dispatcher
	Deliverer   *delivery.Deliverer
	GoScheduler *delivery.GoScheduler
	Scheduler   delivery.Scheduler
	Orders      *orders.Service
	Sweeper     *reconcile.Sweeper
	// Queue is nil when Redis was unreachable at startup.
	Queue   *jobqueue.Queue
	Manager *jobqueue.Manager
	// Counter is nil without Redis.
	Counter *counter.EmailCounter
}

// Options toggles the Redis backed parts.
type Options struct {
	UseRedis bool
	// SweepInterval paces sends inside one sweep. Zero uses the default.
	SweepInterval time.Duration
}

// Build wires everything on top of db.
func Build(db *gorm.DB, opts Options) (*Services, error) {
	repos := repository.NewFactory(db).GetRepositories()

	mailCfg := mail.ConfigFromEnv()
	if !mailCfg.Configured() {
		log.Warn("[Mail] SMTP credentials missing, confirmation emails will fail until SMTP_USERNAME and SMTP_PASSWORD are set")
	}
	dispatcher, err := notification.NewDispatcher(mail.NewSMTPMailer(mailCfg), notification.Options{
		StoreName: env.GetEnv("STORE_NAME", "WearHouse"),
		BaseURL:   env.GetEnv("PUBLIC_BASE_URL", "http://localhost:4000"),
		Status:    mailCfg.Status(),
	})
	if err != nil {
		return nil, fmt.Errorf("notification dispatcher: %w", err)
	}

	deliverer := delivery.NewDeliverer(repos.Order, dispatcher)
	goScheduler := delivery.NewGoScheduler(deliverer, 0)

	s := &Services{
		Repos:       repos,
		MailConfig:  mailCfg,
		Dispatcher:  dispatcher,
		Deliverer:   deliverer,
		GoScheduler: goScheduler,
		Scheduler:   goScheduler,
	}

	sweepOpts := reconcile.Options{Interval: opts.SweepInterval}
	if opts.UseRedis {
		if err := cache.Ping(2 * time.Second); err != nil {
			log.Warnf("[Services] Redis unavailable, emails run in-process and sweeps are not locked: %v", err)
		} else {
			s.Counter = counter.NewEmailCounter(cache.GetClient())
			deliverer.WithRecorder(s.Counter)
			s.Queue = jobqueue.NewQueue(cache.GetClient(), env.GetEnvInt("JOBQUEUE_WORKERS", 3))
			jobqueue.RegisterEmailHandlers(s.Queue, deliverer)
			s.Scheduler = delivery.FallbackScheduler{
				Primary:   jobqueue.NewEmailScheduler(s.Queue),
				Secondary: goScheduler,
			}
			sweepOpts.Locker = reconcile.NewCacheLocker(cache.GetClient())
		}
	}

	s.Sweeper = reconcile.NewSweeper(repos.Order, deliverer, sweepOpts)
	s.Orders = orders.NewService(repos.Order, repos.PaymentEvent, inventory.NewAdjuster(repos.Product), s.Scheduler)
	sweepEvery := time.Duration(env.GetEnvInt("EMAIL_SWEEP_INTERVAL_MINUTES", 10)) * time.Minute
	s.Manager = jobqueue.NewManager(s.Queue, s.Sweeper, sweepEvery)
	return s, nil
}

// Close waits for in-process deliveries after the manager stopped.
func (s *Services) Close() {
	s.Manager.Stop()
	s.GoScheduler.Wait()
}
