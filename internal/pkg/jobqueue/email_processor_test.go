package jobqueue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sodiqbhoy1/wears/internal/pkg/delivery"
)

type stubDeliverer struct {
	out   delivery.Outcome
	calls []OrderEmailJobPayload
}

func (d *stubDeliverer) Deliver(ctx context.Context, orderID uint, trigger string) delivery.Outcome {
	d.calls = append(d.calls, OrderEmailJobPayload{OrderID: orderID, Trigger: trigger})
	return d.out
}

func confirmationJob(p OrderEmailJobPayload) *Job {
	// Payloads round-trip through JSON in Redis, numbers come back as float64.
	m := p.ToMap()
	m["order_id"] = float64(p.OrderID)
	return &Job{ID: "job-1", Type: JobTypeOrderConfirmationEmail, Payload: m}
}

func TestProcessOrderConfirmationJob(t *testing.T) {
	tests := []struct {
		name    string
		status  delivery.Status
		wantErr bool
	}{
		{"sent", delivery.StatusSuccess, false},
		{"skipped", delivery.StatusSkipped, false},
		{"mail failure is left to the sweeper", delivery.StatusFailed, false},
		{"bookkeeping error is retried", delivery.StatusError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &stubDeliverer{out: delivery.Outcome{Status: tt.status, Error: "x"}}
			job := confirmationJob(OrderEmailJobPayload{OrderID: 42, Reference: "FJ42", Trigger: "ingest"})

			err := processOrderConfirmationJob(context.Background(), d, job)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			require.Len(t, d.calls, 1)
			assert.Equal(t, uint(42), d.calls[0].OrderID)
			assert.Equal(t, "ingest", d.calls[0].Trigger)
		})
	}
}

func TestProcessOrderConfirmationJob_MissingOrderID(t *testing.T) {
	d := &stubDeliverer{}
	job := &Job{ID: "job-2", Payload: map[string]interface{}{"reference": "FJ1"}}

	assert.Error(t, processOrderConfirmationJob(context.Background(), d, job))
	assert.Empty(t, d.calls)
}
