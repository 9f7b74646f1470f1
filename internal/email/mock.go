package email

import (
	"context"
	"fmt"
	"sync"
)

// MockSender records sent emails instead of delivering them.
type MockSender struct {
	SendFunc func(ctx context.Context, email *Email) (string, error)

	mu   sync.Mutex
	sent []*Email
}

func (m *MockSender) Send(ctx context.Context, email *Email) (string, error) {
	if m.SendFunc != nil {
		if id, err := m.SendFunc(ctx, email); err != nil {
			return id, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, email)
	return fmt.Sprintf("mock-%d", len(m.sent)), nil
}

// Sent returns a copy of every email sent so far.
func (m *MockSender) Sent() []*Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Email(nil), m.sent...)
}
