package mfa

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/evasion-watch/evasion_watch/internal/db/migrate"
	"github.com/evasion-watch/evasion_watch/internal/infra"
)

// postgresURLEnv names a scratch database the Postgres repository tests may migrate.
const postgresURLEnv = "EVASION_WATCH_TEST_DATABASE_URL"

func TestPostgresRepositoryConcurrentIssueWritesOnce(t *testing.T) {
	url := os.Getenv(postgresURLEnv)
	if url == "" {
		t.Skipf("%s not set", postgresURLEnv)
	}
	ctx := context.Background()

	require.NoError(t, migrate.Postgres(url, "up"))
	pool, err := infra.NewPostgresPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	userID := uuid.NewString()
	_, err = pool.Exec(ctx, `INSERT INTO users (id, username, display_name, email, secret_hash)
        VALUES ($1, $2, 'Alice', 'alice@example.com', '\x00')`, userID, "alice-"+userID)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM mfa_codes WHERE user_id = $1`, userID)
		_, _ = pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, userID)
	})

	issueConcurrently(t, NewPostgresRepository(pool), userID)
}

func TestPostgresRepositoryUnknownUser(t *testing.T) {
	url := os.Getenv(postgresURLEnv)
	if url == "" {
		t.Skipf("%s not set", postgresURLEnv)
	}
	ctx := context.Background()

	require.NoError(t, migrate.Postgres(url, "up"))
	pool, err := infra.NewPostgresPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := NewPostgresRepository(pool)
	_, _, err = repo.Issue(ctx, Code{UserID: uuid.NewString(), CodeHash: "h"}, nil)
	require.ErrorIs(t, err, ErrUnknownUser)
	_, _, err = repo.Issue(ctx, Code{UserID: "not-a-uuid", CodeHash: "h"}, nil)
	require.ErrorIs(t, err, ErrUnknownUser)
}
