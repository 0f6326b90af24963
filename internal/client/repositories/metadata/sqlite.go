package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/rollcall/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Load(ctx context.Context, key string) (Entry, bool, error) {
	var (
		e       Entry
		savedAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT value, saved_at FROM metadata WHERE key = ?`, key,
	).Scan(&e.Value, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to load cache[%s]: %w", key, err)
	}
	if e.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
		return Entry{}, false, fmt.Errorf("cache[%s]: bad saved_at %q: %w", key, savedAt, err)
	}
	return e, true, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, key string, e Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, saved_at = excluded.saved_at
	`, key, e.Value, e.SavedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save cache[%s]: %w", key, err)
	}
	return nil
}
