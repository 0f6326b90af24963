package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/rollcall/internal/attendance"
)

const (
	keyDirectory = "directory.active_events"
	keySelection = "session.selection"
)

// Directory is the event list as last fetched from the ledger.
type Directory struct {
	Events    []attendance.ActiveEvent
	FetchedAt time.Time
}

// Selection is the part of the operator's choices restored on the next
// start. The event is kept by ID and re-checked against the directory.
type Selection struct {
	EventID   string               `json:"event_id,omitempty"`
	Direction attendance.Direction `json:"direction,omitempty"`
	Status    attendance.Status    `json:"status,omitempty"`
}

// SaveDirectory caches events, stamped with the time they were fetched.
func SaveDirectory(ctx context.Context, r Repository, d Directory) error {
	return save(ctx, r, keyDirectory, d.Events, d.FetchedAt)
}

// LoadDirectory returns the cached directory. It reports false when nothing
// has been cached yet.
func LoadDirectory(ctx context.Context, r Repository) (Directory, bool, error) {
	var d Directory
	at, ok, err := load(ctx, r, keyDirectory, &d.Events)
	if err != nil || !ok {
		return Directory{}, false, err
	}
	d.FetchedAt = at
	return d, true, nil
}

func SaveSelection(ctx context.Context, r Repository, sel Selection, at time.Time) error {
	return save(ctx, r, keySelection, sel, at)
}

func LoadSelection(ctx context.Context, r Repository) (Selection, bool, error) {
	var sel Selection
	_, ok, err := load(ctx, r, keySelection, &sel)
	if err != nil || !ok {
		return Selection{}, false, err
	}
	return sel, true, nil
}

func save(ctx context.Context, r Repository, key string, v any, at time.Time) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache[%s]: %w", key, err)
	}
	return r.Save(ctx, key, Entry{Value: raw, SavedAt: at})
}

func load(ctx context.Context, r Repository, key string, v any) (time.Time, bool, error) {
	e, ok, err := r.Load(ctx, key)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	if err := json.Unmarshal(e.Value, v); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to decode cache[%s]: %w", key, err)
	}
	return e.SavedAt, true, nil
}
