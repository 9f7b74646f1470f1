package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	resp    *Response
	expires time.Time
}

// MemoryStore is an in-process IdempotencyStore for development and tests.
// It does not coordinate across instances.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryStore) Begin(ctx context.Context, key string) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.entries[key]; ok && now.Before(e.expires) {
		if e.resp == nil {
			return nil, ErrInFlight
		}
		resp := *e.resp
		return &resp, nil
	}
	m.entries[key] = memoryEntry{expires: now.Add(pendingTTL)}
	return nil, nil
}

func (m *MemoryStore) Complete(ctx context.Context, key string, resp Response, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{resp: &resp, expires: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
