package jobqueue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewQueue tests the queue constructor
func TestNewQueue(t *testing.T) {
	tests := []struct {
		name            string
		workers         int
		expectedWorkers int
	}{
		{"Valid worker count", 5, 5},
		{"Zero workers", 0, 3},
		{"Negative workers", -1, 3},
	}

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := NewQueue(client, tt.workers)

			assert.NotNil(t, queue)
			assert.Equal(t, tt.expectedWorkers, queue.workers)
			assert.Equal(t, tt.expectedWorkers, cap(queue.workerPool))
			assert.NotNil(t, queue.stopCh)
			assert.NotNil(t, queue.handlers)
			assert.Equal(t, time.Minute, queue.retryDelay)
			assert.False(t, queue.running)
		})
	}
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "wears:job:", JobKeyPrefix)
	assert.Equal(t, "wears:job_queue", JobQueueKey)
	assert.Equal(t, "wears:job_processing", JobProcessingKey)
	assert.Equal(t, "wears:job_stats", JobStatsKey)

	assert.Equal(t, 3, DefaultMaxRetries)
	assert.Equal(t, 24*time.Hour, JobTTL)
}

func TestJob_RetryLifecycle(t *testing.T) {
	job := &Job{Status: JobStatusPending, MaxRetries: 2}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)

	job.MarkAsFailed("smtp down")
	assert.True(t, job.IsRetryable())
	assert.Equal(t, "smtp down", job.ErrorMsg)

	job.MarkAsRetrying()
	job.MarkAsFailed("smtp down")
	assert.False(t, job.IsRetryable(), "retries exhausted")

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Empty(t, job.ErrorMsg)
	assert.NotNil(t, job.CompletedAt)
}

func TestQueue_ProcessesAndRetriesJobs(t *testing.T) {
	client := newIsolatedRedisClient(t, isolatedJobQueueTestRedisDB)
	queue := NewQueue(client, 2)
	queue.SetRetryDelay(10 * time.Millisecond)

	var calls atomic.Int32
	done := make(chan string, 1)
	queue.Handle(JobTypeOrderConfirmationEmail, func(ctx context.Context, job *Job) error {
		if calls.Add(1) == 1 {
			return errors.New("transient")
		}
		done <- job.Payload["reference"].(string)
		return nil
	})

	queue.Start()
	defer queue.Stop()

	payload := OrderEmailJobPayload{OrderID: 7, Reference: "FJQUEUE1", Trigger: "ingest"}
	job, err := queue.EnqueueJob(JobTypeOrderConfirmationEmail, payload.ToMap())
	require.NoError(t, err)

	select {
	case ref := <-done:
		assert.Equal(t, "FJQUEUE1", ref)
	case <-time.After(10 * time.Second):
		t.Fatal("job was not processed")
	}
	assert.Equal(t, int32(2), calls.Load())

	require.Eventually(t, func() bool {
		_, err := queue.GetJob(context.Background(), job.ID)
		return errors.Is(err, redis.Nil)
	}, 5*time.Second, 20*time.Millisecond, "completed jobs are removed")

	stats, err := queue.GetJobStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[JobStatusCompleted])
}
