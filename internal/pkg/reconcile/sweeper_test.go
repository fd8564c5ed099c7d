package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sodiqbhoy1/wears/app/models"
	"github.com/sodiqbhoy1/wears/app/repository"
	"github.com/sodiqbhoy1/wears/internal/pkg/delivery"
	"github.com/sodiqbhoy1/wears/internal/pkg/notification"
	"github.com/sodiqbhoy1/wears/internal/pkg/testutil"
)

type fakeSender struct {
	mu    sync.Mutex
	fail  map[string]string
	calls []string
}

func (f *fakeSender) Send(ctx context.Context, order *models.Order) notification.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, order.Reference)
	if msg, ok := f.fail[order.Reference]; ok {
		return notification.Result{Error: msg}
	}
	return notification.Result{Success: true}
}

func newSweeper(t *testing.T, sender *fakeSender, opts Options) (*Sweeper, repository.OrderRepository) {
	t.Helper()
	repo := repository.NewOrderRepository(testutil.NewDB(t))
	if opts.Interval == 0 {
		opts.Interval = -1
	}
	return NewSweeper(repo, delivery.NewDeliverer(repo, sender), opts), repo
}

func seed(t *testing.T, repo repository.OrderRepository, orders ...*models.Order) {
	t.Helper()
	for _, o := range orders {
		_, created, err := repo.CreateIfAbsent(context.Background(), o)
		require.NoError(t, err)
		require.True(t, created)
	}
}

func TestSweeper_SelectsOnlyEligibleOrders(t *testing.T) {
	sender := &fakeSender{}
	sweeper, repo := newSweeper(t, sender, Options{})
	now := time.Now().UTC()

	unpaid := testutil.PaidOrder("UNPAID", "a@b.com", now.Add(-time.Hour))
	unpaid.Paid = false
	sent := testutil.PaidOrder("SENT", "a@b.com", now.Add(-time.Hour))
	sent.ConfirmationEmailSent = true
	sent.EmailState = models.EmailStateSent
	seed(t, repo,
		testutil.PaidOrder("FRESH2", "b@b.com", now.Add(-time.Hour)),
		testutil.PaidOrder("FRESH1", "a@b.com", now.Add(-2*time.Hour)),
		testutil.PaidOrder("STALE", "a@b.com", now.Add(-25*time.Hour)),
		testutil.PaidOrder("NOEMAIL", "", now.Add(-time.Hour)),
		unpaid,
		sent,
	)

	pending, err := sweeper.Pending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending)

	summary, err := sweeper.Run(context.Background(), models.EMAIL_TRIGGER_SWEEP)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, []string{"FRESH1", "FRESH2"}, sender.calls, "oldest first")
	require.Len(t, summary.Results, 2)
	assert.Equal(t, "a@b.com", summary.Results[0].Email)
	assert.Equal(t, delivery.StatusSuccess, summary.Results[0].Status)

	pending, err = sweeper.Pending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestSweeper_BoundedRetry(t *testing.T) {
	sender := &fakeSender{fail: map[string]string{"BROKEN": "mailbox unavailable"}}
	sweeper, repo := newSweeper(t, sender, Options{})
	ctx := context.Background()
	seed(t, repo,
		testutil.PaidOrder("BROKEN", "x@b.com", time.Now().Add(-time.Hour)),
		testutil.PaidOrder("GOOD", "a@b.com", time.Now().Add(-30*time.Minute)),
	)

	first, err := sweeper.Run(ctx, models.EMAIL_TRIGGER_SWEEP)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Succeeded)
	assert.Equal(t, 1, first.Failed)
	assert.Equal(t, "mailbox unavailable", first.Results[0].Error)

	for i := 0; i < 5; i++ {
		_, err := sweeper.Run(ctx, models.EMAIL_TRIGGER_SWEEP)
		require.NoError(t, err)
	}

	broken, err := repo.FindByReference(ctx, "BROKEN")
	require.NoError(t, err)
	assert.Equal(t, models.MaxEmailAttempts, broken.EmailAttempts)
	assert.False(t, broken.ConfirmationEmailSent)

	pending, err := sweeper.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	brokenCalls := 0
	for _, ref := range sender.calls {
		if ref == "BROKEN" {
			brokenCalls++
		}
	}
	assert.Equal(t, models.MaxEmailAttempts, brokenCalls)
}

func TestSweeper_RespectsInterval(t *testing.T) {
	sender := &fakeSender{}
	sweeper, repo := newSweeper(t, sender, Options{Interval: 40 * time.Millisecond})
	now := time.Now().UTC()
	seed(t, repo,
		testutil.PaidOrder("P1", "a@b.com", now.Add(-3*time.Minute)),
		testutil.PaidOrder("P2", "a@b.com", now.Add(-2*time.Minute)),
		testutil.PaidOrder("P3", "a@b.com", now.Add(-time.Minute)),
	)

	start := time.Now()
	summary, err := sweeper.Run(context.Background(), models.EMAIL_TRIGGER_CRON)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Succeeded)
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestSweeper_StopsOnCancel(t *testing.T) {
	sender := &fakeSender{}
	sweeper, repo := newSweeper(t, sender, Options{Interval: time.Hour})
	now := time.Now().UTC()
	seed(t, repo,
		testutil.PaidOrder("C1", "a@b.com", now.Add(-2*time.Minute)),
		testutil.PaidOrder("C2", "a@b.com", now.Add(-time.Minute)),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	summary, err := sweeper.Run(ctx, models.EMAIL_TRIGGER_SWEEP)
	require.Error(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Len(t, summary.Results, 1)
}

type fakeLocker struct {
	held    bool
	err     error
	unlocks int
}

func (l *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *fakeLocker) Unlock(ctx context.Context, key string) error {
	l.held = false
	l.unlocks++
	return nil
}

func TestSweeper_Lock(t *testing.T) {
	locker := &fakeLocker{}
	sweeper, _ := newSweeper(t, &fakeSender{}, Options{Locker: locker})

	_, err := sweeper.Run(context.Background(), models.EMAIL_TRIGGER_SWEEP)
	require.NoError(t, err)
	assert.Equal(t, 1, locker.unlocks)
	assert.False(t, locker.held)

	locker.held = true
	_, err = sweeper.Run(context.Background(), models.EMAIL_TRIGGER_SWEEP)
	assert.ErrorIs(t, err, ErrSweepRunning)

	locker.held = false
	locker.err = errors.New("redis down")
	_, err = sweeper.Run(context.Background(), models.EMAIL_TRIGGER_SWEEP)
	assert.NoError(t, err)
}
