package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/rollcall/internal/attendance"
	"github.com/dmitrijs2005/rollcall/internal/common"
	"github.com/dmitrijs2005/rollcall/internal/dbx"
)

const columns = `id, event_id, person_id, direction, status, formatted_value, overwrite,
	queued_at, updated_at, attempt_count, state, existing_value, last_error`

// SQLiteRepository implements Store over the capture_queue table.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Put(ctx context.Context, it attendance.QueuedItem) error {
	query := `INSERT INTO capture_queue (dedup_key, ` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dedup_key) DO UPDATE SET
			id = excluded.id,
			event_id = excluded.event_id,
			person_id = excluded.person_id,
			direction = excluded.direction,
			status = excluded.status,
			formatted_value = excluded.formatted_value,
			overwrite = excluded.overwrite,
			queued_at = excluded.queued_at,
			updated_at = excluded.updated_at,
			attempt_count = excluded.attempt_count,
			state = excluded.state,
			existing_value = excluded.existing_value,
			last_error = excluded.last_error
	`
	req := it.Request
	_, err := r.db.ExecContext(ctx, query,
		it.Key(), it.ID, req.EventID, req.PersonID, string(req.Direction), string(req.Status),
		req.FormattedValue, req.Overwrite,
		formatTime(it.QueuedAt), formatTime(it.UpdatedAt),
		it.AttemptCount, string(it.State), it.ExistingValue, it.LastError)
	if err != nil {
		return fmt.Errorf("failed to upsert queue item[%s]: %w", it.Key(), err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) (attendance.QueuedItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM capture_queue WHERE dedup_key = ?`, key)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return attendance.QueuedItem{}, common.ErrNotFound
	}
	if err != nil {
		return attendance.QueuedItem{}, fmt.Errorf("failed to get queue item[%s]: %w", key, err)
	}
	return it, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM capture_queue WHERE dedup_key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete queue item[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, states ...attendance.QueueState) ([]attendance.QueuedItem, error) {
	query := `SELECT ` + columns + ` FROM capture_queue`
	args := make([]any, 0, len(states))
	if len(states) > 0 {
		query += ` WHERE state IN (?` + strings.Repeat(`, ?`, len(states)-1) + `)`
		for _, s := range states {
			args = append(args, string(s))
		}
	}
	query += ` ORDER BY queued_at, dedup_key`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}
	defer rows.Close()

	var items []attendance.QueuedItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue row: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queue rows: %w", err)
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (attendance.QueuedItem, error) {
	var (
		it                  attendance.QueuedItem
		direction, status   string
		state               string
		queuedAt, updatedAt string
	)
	err := s.Scan(&it.ID, &it.Request.EventID, &it.Request.PersonID, &direction, &status,
		&it.Request.FormattedValue, &it.Request.Overwrite,
		&queuedAt, &updatedAt, &it.AttemptCount, &state, &it.ExistingValue, &it.LastError)
	if err != nil {
		return attendance.QueuedItem{}, err
	}
	it.Request.Direction = attendance.Direction(direction)
	it.Request.Status = attendance.Status(status)
	it.State = attendance.QueueState(state)
	if it.QueuedAt, err = parseTime(queuedAt); err != nil {
		return attendance.QueuedItem{}, err
	}
	if it.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return attendance.QueuedItem{}, err
	}
	return it, nil
}

// Timestamps are stored as fixed-width UTC text so ORDER BY sorts them
// chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	return t, nil
}
