package queue

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrijs2005/rollcall/internal/attendance"
	"github.com/dmitrijs2005/rollcall/internal/common"
)

// MemoryRepository implements Store in process memory. Contents are lost on
// exit.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]attendance.QueuedItem
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]attendance.QueuedItem)}
}

func (r *MemoryRepository) Put(ctx context.Context, it attendance.QueuedItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[it.Key()] = it
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, key string) (attendance.QueuedItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	it, ok := r.items[key]
	if !ok {
		return attendance.QueuedItem{}, common.ErrNotFound
	}
	return it, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, key)
	return nil
}

func (r *MemoryRepository) List(ctx context.Context, states ...attendance.QueueState) ([]attendance.QueuedItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []attendance.QueuedItem
	for _, it := range r.items {
		if len(states) == 0 || slices.Contains(states, it.State) {
			out = append(out, it)
		}
	}
	slices.SortFunc(out, func(a, b attendance.QueuedItem) int {
		if c := a.QueuedAt.Compare(b.QueuedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Key(), b.Key())
	})
	return out, nil
}
