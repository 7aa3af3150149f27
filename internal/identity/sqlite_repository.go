package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteRepository implements Repository on a SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository builds a SQLite-backed identity repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new user.
func (r *SQLiteRepository) Create(ctx context.Context, user User) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (id, username, display_name, email, secret_hash, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`, user.ID, user.Username, user.DisplayName, user.Email, user.SecretHash, user.CreatedAt.UTC().UnixMicro())
	if err != nil {
		var se *sqlite.Error
		if errors.As(err, &se) && (se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByUsername fetches a user by its login identifier.
func (r *SQLiteRepository) FindByUsername(ctx context.Context, username string) (User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, username, display_name, email, secret_hash, created_at
        FROM users WHERE username = ?`, username)
	return scanSQLiteUser(row)
}

// FindByID fetches a user by primary key.
func (r *SQLiteRepository) FindByID(ctx context.Context, id string) (User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, username, display_name, email, secret_hash, created_at
        FROM users WHERE id = ?`, id)
	return scanSQLiteUser(row)
}

func scanSQLiteUser(row *sql.Row) (User, error) {
	var (
		user      User
		createdAt int64
	)
	if err := row.Scan(&user.ID, &user.Username, &user.DisplayName, &user.Email, &user.SecretHash, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.CreatedAt = time.UnixMicro(createdAt).UTC()
	return user, nil
}
