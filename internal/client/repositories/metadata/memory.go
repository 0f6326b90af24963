package metadata

import (
	"context"
	"slices"
	"sync"
)

// MemoryRepository keeps the cache in process memory. Used when the terminal
// runs without a database file and in tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{entries: make(map[string]Entry)}
}

func (r *MemoryRepository) Load(ctx context.Context, key string) (Entry, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	e.Value = slices.Clone(e.Value)
	return e, true, nil
}

func (r *MemoryRepository) Save(ctx context.Context, key string, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.Value = slices.Clone(e.Value)
	r.entries[key] = e
	return nil
}
