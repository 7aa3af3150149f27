package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/evasion-watch/evasion_watch/internal/db/dbtest"
)

func TestSQLiteRepositoryRoundTrip(t *testing.T) {
	repo := NewSQLiteRepository(dbtest.SQLite(t))
	ctx := context.Background()

	user := User{
		ID:          uuid.NewString(),
		Username:    "alice",
		DisplayName: "Alice",
		Email:       "alice@example.com",
		SecretHash:  []byte("$2a$04$hash"),
		CreatedAt:   time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, user))

	byName, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, user.ID, byName.ID)
	require.Equal(t, user.Email, byName.Email)
	require.True(t, byName.CreatedAt.Equal(user.CreatedAt))

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.SecretHash, byID.SecretHash)

	_, err = repo.FindByUsername(ctx, "bob")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteRepositoryMapsUniqueViolation(t *testing.T) {
	repo := NewSQLiteRepository(dbtest.SQLite(t))
	ctx := context.Background()

	first := User{ID: uuid.NewString(), Username: "alice", DisplayName: "A", Email: "a@example.com", SecretHash: []byte("h"), CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, first))

	second := first
	second.ID = uuid.NewString()
	require.ErrorIs(t, repo.Create(ctx, second), ErrAlreadyExists)
}
