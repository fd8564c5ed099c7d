package counter

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sodiqbhoy1/wears/internal/pkg/env"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:     env.GetEnv("CACHE_HOST", "localhost") + ":" + env.GetEnv("CACHE_PORT", "6379"),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       13,
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestDayKey(t *testing.T) {
	day := time.Date(2026, 3, 9, 23, 59, 0, 0, time.FixedZone("WAT", 3600))
	assert.Equal(t, "wears:email:counters:2026-03-09", dayKey(day))
}

func TestEmailCounter_RecordOutcome(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	c := NewEmailCounter(client)
	fixed := time.Date(2001, 1, 2, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }
	require.NoError(t, client.Del(ctx, dayKey(fixed)).Err())
	t.Cleanup(func() { client.Del(context.Background(), dayKey(fixed)) })

	require.NoError(t, c.RecordOutcome(ctx, "ingest", true))
	require.NoError(t, c.RecordOutcome(ctx, "sweep", false))
	require.NoError(t, c.RecordOutcome(ctx, "sweep", true))

	got, err := c.Today(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{
		"sent":         2,
		"failed":       1,
		"ingest:sent":  1,
		"sweep:sent":   1,
		"sweep:failed": 1,
	}, got)

	ttl, err := client.TTL(ctx, dayKey(fixed)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 7*24*time.Hour)

	empty, err := c.Day(ctx, fixed.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Empty(t, empty)
}
