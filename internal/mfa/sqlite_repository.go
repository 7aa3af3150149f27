package mfa

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteRepository stores codes in SQLite. Transactions are opened with the
// write lock held, which gives the same per-user exclusion as row locks.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository builds a SQLite-backed code repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Issue(ctx context.Context, next Code, keep KeepFunc) (Code, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Code{}, false, err
	}
	defer tx.Rollback() // nolint:errcheck

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, next.UserID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Code{}, false, ErrUnknownUser
		}
		return Code{}, false, err
	}

	current := Code{UserID: next.UserID}
	var issuedAt int64
	err = tx.QueryRowContext(ctx, `SELECT code_hash, issued_at FROM mfa_codes WHERE user_id = ?`, next.UserID).Scan(&current.CodeHash, &issuedAt)
	switch {
	case err == nil:
		current.IssuedAt = time.UnixMicro(issuedAt).UTC()
		if keep != nil && keep(current) {
			return current, false, tx.Commit()
		}
	case !errors.Is(err, sql.ErrNoRows):
		return Code{}, false, err
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO mfa_codes (user_id, code_hash, issued_at) VALUES (?, ?, ?)
        ON CONFLICT (user_id) DO UPDATE SET code_hash = excluded.code_hash, issued_at = excluded.issued_at`,
		next.UserID, next.CodeHash, next.IssuedAt.UTC().UnixMicro()); err != nil {
		return Code{}, false, fmt.Errorf("store code: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Code{}, false, err
	}
	return next, true, nil
}

func (r *SQLiteRepository) Find(ctx context.Context, userID string) (Code, error) {
	code := Code{UserID: userID}
	var issuedAt int64
	if err := r.db.QueryRowContext(ctx, `SELECT code_hash, issued_at FROM mfa_codes WHERE user_id = ?`, userID).Scan(&code.CodeHash, &issuedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Code{}, ErrNotFound
		}
		return Code{}, err
	}
	code.IssuedAt = time.UnixMicro(issuedAt).UTC()
	return code, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, userID, codeHash string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM mfa_codes WHERE user_id = ? AND code_hash = ?`, userID, codeHash)
	return err
}
