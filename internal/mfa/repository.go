package mfa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// KeepFunc decides, under the per-user lock, whether the current code stays.
type KeepFunc func(current Code) bool

// Repository persists at most one code per user.
type Repository interface {
	// Issue stores next unless a current code exists and keep returns true.
	// It returns the code left in the store and whether next was written.
	Issue(ctx context.Context, next Code, keep KeepFunc) (Code, bool, error)
	Find(ctx context.Context, userID string) (Code, error)
	// Delete removes the user's code only if it still has the given hash.
	Delete(ctx context.Context, userID, codeHash string) error
}

// PostgresRepository stores codes in the mfa_codes table.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed code repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Issue serialises concurrent logins of the same user on the users row.
func (r *PostgresRepository) Issue(ctx context.Context, next Code, keep KeepFunc) (Code, bool, error) {
	userID, err := uuid.Parse(next.UserID)
	if err != nil {
		return Code{}, false, ErrUnknownUser
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Code{}, false, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var locked uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Code{}, false, ErrUnknownUser
		}
		return Code{}, false, err
	}

	var (
		current  = Code{UserID: next.UserID}
		issuedAt time.Time
	)
	err = tx.QueryRow(ctx, `SELECT code_hash, issued_at FROM mfa_codes WHERE user_id = $1`, userID).Scan(&current.CodeHash, &issuedAt)
	switch {
	case err == nil:
		current.IssuedAt = issuedAt.UTC()
		if keep != nil && keep(current) {
			return current, false, tx.Commit(ctx)
		}
	case !errors.Is(err, pgx.ErrNoRows):
		return Code{}, false, err
	}

	if _, err := tx.Exec(ctx, `INSERT INTO mfa_codes (user_id, code_hash, issued_at) VALUES ($1, $2, $3)
        ON CONFLICT (user_id) DO UPDATE SET code_hash = EXCLUDED.code_hash, issued_at = EXCLUDED.issued_at`,
		userID, next.CodeHash, next.IssuedAt.UTC()); err != nil {
		return Code{}, false, fmt.Errorf("store code: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Code{}, false, err
	}
	return next, true, nil
}

// Find returns the stored code for the user.
func (r *PostgresRepository) Find(ctx context.Context, userID string) (Code, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return Code{}, ErrNotFound
	}
	code := Code{UserID: userID}
	var issuedAt time.Time
	if err := r.db.QueryRow(ctx, `SELECT code_hash, issued_at FROM mfa_codes WHERE user_id = $1`, id).Scan(&code.CodeHash, &issuedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Code{}, ErrNotFound
		}
		return Code{}, err
	}
	code.IssuedAt = issuedAt.UTC()
	return code, nil
}

// Delete removes the code if it has not been replaced in the meantime.
func (r *PostgresRepository) Delete(ctx context.Context, userID, codeHash string) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil
	}
	_, err = r.db.Exec(ctx, `DELETE FROM mfa_codes WHERE user_id = $1 AND code_hash = $2`, id, codeHash)
	return err
}
