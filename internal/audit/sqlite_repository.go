package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteRepository stores entries in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository builds a SQLite-backed audit repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Append(ctx context.Context, e Entry) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO audit_log (id, username, action, detail, created_at)
        VALUES (?, ?, ?, ?, ?)`, e.ID, e.Username, e.Action, e.Detail, e.Timestamp.UTC().UnixMicro())
	return err
}

func (r *SQLiteRepository) List(ctx context.Context, f Filter) ([]Entry, error) {
	const query = `
        SELECT id, username, action, detail, created_at
        FROM audit_log
        WHERE (?1 = '' OR username = ?1)
        ORDER BY created_at DESC, id DESC
        LIMIT ?2`
	rows, err := r.db.QueryContext(ctx, query, f.Username, f.limit())
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			ts int64
		)
		if err := rows.Scan(&e.ID, &e.Username, &e.Action, &e.Detail, &ts); err != nil {
			return nil, err
		}
		e.Timestamp = time.UnixMicro(ts).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
