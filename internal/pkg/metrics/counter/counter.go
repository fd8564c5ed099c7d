// Package counter keeps daily email delivery counters in Redis.
package counter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	emailCountersKey = "wears:email:counters"
	// Counters are only read for the operator status page.
	retention = 8 * 24 * time.Hour
)

// EmailCounter counts sent and failed confirmation emails per UTC day and trigger.
type EmailCounter struct {
	client *redis.Client
	now    func() time.Time
}

func NewEmailCounter(client *redis.Client) *EmailCounter {
	return &EmailCounter{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func dayKey(day time.Time) string {
	return fmt.Sprintf("%s:%s", emailCountersKey, day.UTC().Format("2006-01-02"))
}

// RecordOutcome increments the total and the per trigger field for today.
func (c *EmailCounter) RecordOutcome(ctx context.Context, trigger string, success bool) error {
	outcome := "failed"
	if success {
		outcome = "sent"
	}
	key := dayKey(c.now())

	pipe := c.client.TxPipeline()
	pipe.HIncrBy(ctx, key, outcome, 1)
	if trigger != "" {
		pipe.HIncrBy(ctx, key, trigger+":"+outcome, 1)
	}
	pipe.Expire(ctx, key, retention)
	_, err := pipe.Exec(ctx)
	return err
}

// Day returns the counters of the given day. Missing days are empty.
func (c *EmailCounter) Day(ctx context.Context, day time.Time) (map[string]int64, error) {
	data, err := c.client.HGetAll(ctx, dayKey(day)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(data))
	for field, v := range data {
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			continue
		}
		out[field] = n
	}
	return out, nil
}

// Today is Day for the current UTC day.
func (c *EmailCounter) Today(ctx context.Context) (map[string]int64, error) {
	return c.Day(ctx, c.now())
}
