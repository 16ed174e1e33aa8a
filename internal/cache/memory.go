package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value   string
	expires time.Time
}

// Memory is an in-process TextCache for local runs without redis.
type Memory struct {
	mu   sync.Mutex
	data map[string]memoryEntry
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		data: make(map[string]memoryEntry),
		now:  time.Now,
	}
}

func (m *Memory) Get(ctx context.Context, hash string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.data[hash]
	if !ok {
		return "", ErrMiss
	}
	if !entry.expires.IsZero() && !m.now().Before(entry.expires) {
		delete(m.data, hash)
		return "", ErrMiss
	}
	return entry.value, nil
}

func (m *Memory) Set(ctx context.Context, hash, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expires = m.now().Add(ttl)
	}
	m.data[hash] = entry
	return nil
}
