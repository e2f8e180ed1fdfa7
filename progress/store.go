package progress

import (
	"context"
	"sync"
)

// Store keeps at most one snapshot per series id. Get returns (nil, nil) when
// nothing was written for the id.
type Store interface {
	Get(ctx context.Context, seriesID string) (*Status, error)
	Set(ctx context.Context, status Status) error
	Delete(ctx context.Context, seriesID string) error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Status
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Status)}
}

func (m *MemoryStore) Get(_ context.Context, seriesID string) (*Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.entries[seriesID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryStore) Set(_ context.Context, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[status.SeriesID] = status
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, seriesID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, seriesID)
	return nil
}

// All returns a copy of every snapshot.
func (m *MemoryStore) All() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Status, 0, len(m.entries))
	for _, s := range m.entries {
		out = append(out, s)
	}
	return out
}
