package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository appends and lists audit entries. List returns newest first.
type Repository interface {
	Append(ctx context.Context, e Entry) error
	List(ctx context.Context, f Filter) ([]Entry, error)
}

// PostgresRepository stores entries in the audit_log table.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed audit repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Append inserts one entry.
func (r *PostgresRepository) Append(ctx context.Context, e Entry) error {
	_, err := r.db.Exec(ctx, `INSERT INTO audit_log (id, username, action, detail, created_at)
        VALUES ($1, $2, $3, $4, $5)`, e.ID, e.Username, e.Action, e.Detail, e.Timestamp.UTC())
	return err
}

// List returns entries newest first, optionally for one user.
func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Entry, error) {
	const query = `
        SELECT id, username, action, detail, created_at
        FROM audit_log
        WHERE ($1 = '' OR username = $1)
        ORDER BY created_at DESC, id DESC
        LIMIT $2`
	rows, err := r.db.Query(ctx, query, f.Username, f.limit())
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			ts time.Time
		)
		if err := rows.Scan(&e.ID, &e.Username, &e.Action, &e.Detail, &ts); err != nil {
			return nil, err
		}
		e.Timestamp = ts.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
