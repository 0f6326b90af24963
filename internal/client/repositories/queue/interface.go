package queue

import (
	"context"

	"github.com/dmitrijs2005/rollcall/internal/attendance"
)

type Store interface {
	// Put inserts item or replaces the item stored under the same key.
	Put(ctx context.Context, item attendance.QueuedItem) error

	// Get returns the item stored under key or common.ErrNotFound.
	Get(ctx context.Context, key string) (attendance.QueuedItem, error)

	// Delete removes the item under key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// List returns items in the given states ordered by QueuedAt. With no
	// states it returns every item.
	List(ctx context.Context, states ...attendance.QueueState) ([]attendance.QueuedItem, error)
}
