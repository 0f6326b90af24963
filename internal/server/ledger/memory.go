package ledger

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrijs2005/rollcall/internal/attendance"
	"github.com/dmitrijs2005/rollcall/internal/common"
)

// MemoryRepository keeps the ledger in process memory. Used when no
// database is configured and in tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	events  map[string]attendance.ActiveEvent
	order   []string
	members map[string]attendance.Member
	records map[string]Record
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		events:  make(map[string]attendance.ActiveEvent),
		members: make(map[string]attendance.Member),
		records: make(map[string]Record),
	}
}

func (r *MemoryRepository) UpsertEvent(ctx context.Context, e attendance.ActiveEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[e.ID]; !ok {
		r.order = append(r.order, e.ID)
	}
	r.events[e.ID] = e
	return nil
}

func (r *MemoryRepository) UpsertMember(ctx context.Context, m attendance.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[m.ID] = m
	return nil
}

func (r *MemoryRepository) GetEvent(ctx context.Context, id string) (attendance.ActiveEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.events[id]
	if !ok {
		return attendance.ActiveEvent{}, common.ErrNotFound
	}
	return e, nil
}

// ListEvents returns events in insertion order.
func (r *MemoryRepository) ListEvents(ctx context.Context) ([]attendance.ActiveEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]attendance.ActiveEvent, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.events[id])
	}
	return out, nil
}

func (r *MemoryRepository) GetMember(ctx context.Context, id string) (attendance.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[id]
	if !ok {
		return attendance.Member{}, common.ErrNotFound
	}
	return m, nil
}

// SearchMembers returns members whose name contains query or whose ID
// equals it, case-insensitively, ordered by name.
func (r *MemoryRepository) SearchMembers(ctx context.Context, query string) ([]attendance.Member, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []attendance.Member
	for _, m := range r.members {
		if strings.Contains(strings.ToLower(m.Name), q) || strings.EqualFold(m.ID, q) {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b attendance.Member) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (r *MemoryRepository) Put(ctx context.Context, rec Record, overwrite bool) (string, error) {
	key := rec.Address.Key()
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.records[key]; ok && !overwrite {
		return cur.Value, common.ErrAlreadyExists
	}
	r.records[key] = rec
	return "", nil
}

func (r *MemoryRepository) Get(ctx context.Context, addr attendance.Address) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[addr.Key()]
	if !ok {
		return Record{}, common.ErrNotFound
	}
	return rec, nil
}
