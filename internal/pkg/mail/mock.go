package mail

import (
	"context"
	"sync"
)

// MockMailer records messages instead of sending them. Err, when set, is
// returned from every Send.
type MockMailer struct {
	mu   sync.Mutex
	sent []Message
	Err  error
	// Hook runs before a message is recorded, used to block or count sends.
	Hook func(msg Message)
}

func (m *MockMailer) Send(ctx context.Context, msg Message) error {
	if m.Hook != nil {
		m.Hook(msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *MockMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *MockMailer) SetErr(err error) {
	m.mu.Lock()
	m.Err = err
	m.mu.Unlock()
}
