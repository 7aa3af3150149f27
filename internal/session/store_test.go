package session

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisStoreRoundTripAndExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStore(client, time.Minute)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	s := Session{ID: "sid-1", UserID: "u1", Username: "alice", State: MfaPending, CodeSent: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.Save(ctx, s))
	require.True(t, mr.Exists(keyPrefix+"sid-1"))

	got, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	require.Equal(t, s, got)

	mr.FastForward(2 * time.Minute)
	_, err = store.Get(ctx, "sid-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreExpires(t *testing.T) {
	c := &clock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(time.Hour, c.Now)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Session{ID: "sid", State: Anonymous}))
	_, err := store.Get(ctx, "sid")
	require.NoError(t, err)

	c.Advance(time.Hour)
	_, err = store.Get(ctx, "sid")
	require.ErrorIs(t, err, ErrNotFound)
}
