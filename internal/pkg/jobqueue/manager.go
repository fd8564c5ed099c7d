package jobqueue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/sodiqbhoy1/wears/app/models"
	"github.com/sodiqbhoy1/wears/internal/pkg/reconcile"
)

// DefaultSweepInterval is used when EMAIL_SWEEP_INTERVAL_MINUTES is unset.
const DefaultSweepInterval = 10 * time.Minute

// SweepRunner runs one reconciliation pass.
type SweepRunner interface {
	Run(ctx context.Context, trigger string) (reconcile.Summary, error)
}

// Manager manages the job queue and the periodic email sweep
type Manager struct {
	queue         *Queue
	sweeper       SweepRunner
	sweepInterval time.Duration
	sweepTicker   *time.Ticker
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool
}

// NewManager creates a manager. A nil sweeper disables the periodic sweep.
func NewManager(queue *Queue, sweeper SweepRunner, sweepInterval time.Duration) *Manager {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	return &Manager{
		queue:         queue,
		sweeper:       sweeper,
		sweepInterval: sweepInterval,
		stopCh:        make(chan struct{}),
	}
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	if m.queue != nil {
		m.queue.Start()
	}

	if m.sweeper != nil {
		m.sweepTicker = time.NewTicker(m.sweepInterval)
		m.wg.Add(1)
		go m.sweepWorker(m.stopCh, m.sweepTicker)
	}

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.sweepTicker != nil {
		m.sweepTicker.Stop()
	}

	// Signal workers to stop
	close(m.stopCh)
	m.running = false

	// Wait for background workers to finish
	m.wg.Wait()

	if m.queue != nil {
		m.queue.Stop()
	}

	log.Info("[JobQueue Manager] Stopped successfully")
}

// sweepWorker retries unsent confirmation emails on every tick
func (m *Manager) sweepWorker(stopCh <-chan struct{}, ticker *time.Ticker) {
	defer m.wg.Done()
	log.Infof("[JobQueue Manager] Started email sweep worker (interval: %s)", m.sweepInterval)

	for {
		select {
		case <-stopCh:
			log.Info("[JobQueue Manager] Email sweep worker stopping")
			return
		case <-ticker.C:
			m.runSweep(stopCh)
		}
	}
}

func (m *Manager) runSweep(stopCh <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Stop interrupts a sweep waiting on its rate limiter.
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	summary, err := m.sweeper.Run(ctx, models.EMAIL_TRIGGER_SCHEDULER)
	switch {
	case errors.Is(err, reconcile.ErrSweepRunning):
		log.Debug("[JobQueue Manager] Email sweep skipped, another instance is running it")
	case err != nil:
		log.Errorf("[JobQueue Manager] Email sweep error: %v", err)
	case summary.Total > 0:
		log.Infof("[JobQueue Manager] Email sweep: %d sent, %d failed, %d skipped", summary.Succeeded, summary.Failed, summary.Skipped)
	}
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
