package metadata

import (
	"context"
	"time"
)

// Entry is one cached value and the time it was saved.
type Entry struct {
	Value   []byte
	SavedAt time.Time
}

// Repository stores cache entries by key. Load reports false for a key that
// was never saved.
type Repository interface {
	Load(ctx context.Context, key string) (Entry, bool, error)
	Save(ctx context.Context, key string, e Entry) error
}
