package jobqueue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sodiqbhoy1/wears/app/models"
	"github.com/sodiqbhoy1/wears/internal/pkg/reconcile"
)

type countingSweeper struct {
	runs     atomic.Int32
	triggers chan string
	err      error
}

func (s *countingSweeper) Run(ctx context.Context, trigger string) (reconcile.Summary, error) {
	s.runs.Add(1)
	select {
	case s.triggers <- trigger:
	default:
	}
	return reconcile.Summary{Trigger: trigger}, s.err
}

func TestNewManager_Defaults(t *testing.T) {
	manager := NewManager(nil, nil, 0)

	assert.Equal(t, DefaultSweepInterval, manager.sweepInterval)
	assert.NotNil(t, manager.stopCh)
	assert.False(t, manager.IsRunning())
	assert.Nil(t, manager.GetQueue())
}

func TestManager_StopWithoutStart(t *testing.T) {
	manager := NewManager(nil, nil, time.Minute)

	assert.False(t, manager.IsRunning())
	manager.Stop()
	assert.False(t, manager.IsRunning())
}

func TestManager_RunsPeriodicSweep(t *testing.T) {
	sweeper := &countingSweeper{triggers: make(chan string, 1)}
	manager := NewManager(nil, sweeper, 20*time.Millisecond)

	manager.Start()
	assert.True(t, manager.IsRunning())

	select {
	case trigger := <-sweeper.triggers:
		assert.Equal(t, models.EMAIL_TRIGGER_SCHEDULER, trigger)
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not run")
	}

	manager.Stop()
	assert.False(t, manager.IsRunning())
	runs := sweeper.runs.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, runs, sweeper.runs.Load(), "no sweeps after stop")
}

func TestManager_Restart(t *testing.T) {
	sweeper := &countingSweeper{triggers: make(chan string, 1), err: reconcile.ErrSweepRunning}
	manager := NewManager(nil, sweeper, 10*time.Millisecond)

	manager.Start()
	manager.Stop()
	manager.Start()
	defer manager.Stop()

	select {
	case <-sweeper.triggers:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not run after restart")
	}
}
