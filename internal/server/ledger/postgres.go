package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/rollcall/internal/attendance"
	"github.com/dmitrijs2005/rollcall/internal/common"
	"github.com/dmitrijs2005/rollcall/internal/dbx"
	"github.com/dmitrijs2005/rollcall/internal/server/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// OpenPostgres connects to dsn through pgx and applies the embedded schema.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := dbx.Migrate(ctx, db, migrations.Migrations, goose.DialectPostgres); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return db, nil
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) UpsertEvent(ctx context.Context, e attendance.ActiveEvent) error {
	query :=
		`INSERT INTO events (id, name, event_date, status)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name, event_date = EXCLUDED.event_date, status = EXCLUDED.status`

	if _, err := r.db.ExecContext(ctx, query, e.ID, e.Name, e.Date, string(e.Status)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpsertMember(ctx context.Context, m attendance.Member) error {
	query :=
		`INSERT INTO members (id, name)
		 VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`

	if _, err := r.db.ExecContext(ctx, query, m.ID, m.Name); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetEvent(ctx context.Context, id string) (attendance.ActiveEvent, error) {
	query := `SELECT id, name, event_date, status FROM events WHERE id = $1`

	var e attendance.ActiveEvent
	var status string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&e.ID, &e.Name, &e.Date, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return attendance.ActiveEvent{}, common.ErrNotFound
		}
		return attendance.ActiveEvent{}, fmt.Errorf("db error: %w", err)
	}
	e.Status = attendance.EventStatus(status)
	return e, nil
}

func (r *PostgresRepository) ListEvents(ctx context.Context) ([]attendance.ActiveEvent, error) {
	query := `SELECT id, name, event_date, status FROM events ORDER BY event_date, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []attendance.ActiveEvent
	for rows.Next() {
		var e attendance.ActiveEvent
		var status string
		if err := rows.Scan(&e.ID, &e.Name, &e.Date, &status); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		e.Status = attendance.EventStatus(status)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) GetMember(ctx context.Context, id string) (attendance.Member, error) {
	query := `SELECT id, name FROM members WHERE id = $1`

	var m attendance.Member
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return attendance.Member{}, common.ErrNotFound
		}
		return attendance.Member{}, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *PostgresRepository) SearchMembers(ctx context.Context, query string) ([]attendance.Member, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	stmt :=
		`SELECT id, name FROM members
		 WHERE lower(name) LIKE $1 ESCAPE '\' OR lower(id) = $2
		 ORDER BY name`

	rows, err := r.db.QueryContext(ctx, stmt, "%"+likeEscaper.Replace(q)+"%", q)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []attendance.Member
	for rows.Next() {
		var m attendance.Member
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// Put relies on the unique (event_id, person_id, direction) constraint, so
// two concurrent first writes cannot both succeed.
func (r *PostgresRepository) Put(ctx context.Context, rec Record, overwrite bool) (string, error) {
	insert :=
		`INSERT INTO attendance (id, event_id, person_id, direction, status, value, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (event_id, person_id, direction) DO NOTHING`
	if overwrite {
		insert =
			`INSERT INTO attendance (id, event_id, person_id, direction, status, value, recorded_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (event_id, person_id, direction) DO UPDATE
			 SET id = EXCLUDED.id, status = EXCLUDED.status, value = EXCLUDED.value, recorded_at = EXCLUDED.recorded_at`
	}

	res, err := r.db.ExecContext(ctx, insert,
		rec.ID, rec.Address.EventID, rec.Address.PersonID, string(rec.Address.Direction),
		string(rec.Status), rec.Value, rec.RecordedAt)
	if err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}
	if n > 0 {
		return "", nil
	}

	cur, err := r.Get(ctx, rec.Address)
	if err != nil {
		return "", err
	}
	return cur.Value, common.ErrAlreadyExists
}

func (r *PostgresRepository) Get(ctx context.Context, addr attendance.Address) (Record, error) {
	query :=
		`SELECT id, status, value, recorded_at FROM attendance
		 WHERE event_id = $1 AND person_id = $2 AND direction = $3`

	rec := Record{Address: addr}
	var status string
	err := r.db.QueryRowContext(ctx, query, addr.EventID, addr.PersonID, string(addr.Direction)).
		Scan(&rec.ID, &status, &rec.Value, &rec.RecordedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, common.ErrNotFound
		}
		return Record{}, fmt.Errorf("db error: %w", err)
	}
	rec.Status = attendance.Status(status)
	return rec, nil
}
