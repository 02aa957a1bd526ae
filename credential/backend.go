package credential

import (
	"context"
	"sync"
)

// Backend is a durable key-value store for credential entries.
//
// Store applies every entry of values as one atomic write and Remove deletes every key as
// one atomic operation. Load returns only the keys that exist.
type Backend interface {
	Load(ctx context.Context, keys ...string) (map[string]string, error)
	Store(ctx context.Context, values map[string]string) error
	Remove(ctx context.Context, keys ...string) error
}

// MemoryBackend keeps entries in process memory. It is the default backend and is safe for
// concurrent use.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

func (m *MemoryBackend) Load(_ context.Context, keys ...string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *MemoryBackend) Store(_ context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.values == nil {
		m.values = make(map[string]string, len(values))
	}
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func (m *MemoryBackend) Remove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
