package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bilgisen/newsdigest/internal/models"
)

// Memory is an in-process store for tests and local runs.
type Memory struct {
	mu       sync.RWMutex
	digests  map[string][]*models.Digest // oldest first
	profiles map[string]models.Preference
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		digests:  make(map[string][]*models.Digest),
		profiles: make(map[string]models.Preference),
		now:      time.Now,
	}
}

// SetClock replaces the write-time clock.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// SetPreference registers a subscriber profile.
func (m *Memory) SetPreference(subscriberID string, p models.Preference) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[subscriberID] = p
}

// Seed stores d exactly as given, keeping its ID and CreatedAt.
func (m *Memory) Seed(d *models.Digest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append(m.digests[d.SubscriberID], cloneDigest(d))
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	m.digests[d.SubscriberID] = list
}

func (m *Memory) Append(ctx context.Context, d *models.Digest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := d.Validate(); err != nil {
		return "", fmt.Errorf("refusing to store digest: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stamp(d, m.now())
	m.digests[d.SubscriberID] = append(m.digests[d.SubscriberID], cloneDigest(d))
	return d.ID, nil
}

func (m *Memory) LatestDigest(ctx context.Context, subscriberID string) (*models.Digest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.digests[subscriberID]
	if len(list) == 0 {
		return nil, nil
	}
	return cloneDigest(list[len(list)-1]), nil
}

func (m *Memory) ListDigests(ctx context.Context, subscriberID string, since time.Time) ([]*models.Digest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.digests[subscriberID]
	out := make([]*models.Digest, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].CreatedAt.Before(since) {
			break
		}
		out = append(out, cloneDigest(list[i]))
	}
	return out, nil
}

// Count returns the number of stored digests for a subscriber.
func (m *Memory) Count(subscriberID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.digests[subscriberID])
}

func (m *Memory) ListSubscribers(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.profiles))
	for id := range m.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) GetPreference(ctx context.Context, subscriberID string) (*models.Preference, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[subscriberID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}
