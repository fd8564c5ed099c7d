package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sodiqbhoy1/wears/internal/pkg/env"
)

func newLockTestClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:     env.GetEnv("CACHE_HOST", "localhost") + ":" + env.GetEnv("CACHE_PORT", "6379"),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       12,
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

func TestCacheLocker_Exclusive(t *testing.T) {
	client := newLockTestClient(t)
	ctx := context.Background()
	key := "wears:test:sweep-lock:exclusive"
	require.NoError(t, client.Del(ctx, key).Err())
	t.Cleanup(func() { client.Del(context.Background(), key) })

	a, b := NewCacheLocker(client), NewCacheLocker(client)

	ok, err := a.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, b.Unlock(ctx, key), "unlock without holding is a no-op")
	assert.Equal(t, int64(1), client.Exists(ctx, key).Val())

	require.NoError(t, a.Unlock(ctx, key))
	assert.Equal(t, int64(0), client.Exists(ctx, key).Val())
}

func TestCacheLocker_ExpiredHolderKeepsNewLock(t *testing.T) {
	client := newLockTestClient(t)
	ctx := context.Background()
	key := "wears:test:sweep-lock:expired"
	require.NoError(t, client.Del(ctx, key).Err())
	t.Cleanup(func() { client.Del(context.Background(), key) })

	slow, next := NewCacheLocker(client), NewCacheLocker(client)

	ok, err := slow.TryLock(ctx, key, 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	time.Sleep(150 * time.Millisecond)

	ok, err = next.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, slow.Unlock(ctx, key))
	assert.Equal(t, int64(1), client.Exists(ctx, key).Val(), "late unlock leaves the new holder's lock")

	require.NoError(t, next.Unlock(ctx, key))
	assert.Equal(t, int64(0), client.Exists(ctx, key).Val())
}
