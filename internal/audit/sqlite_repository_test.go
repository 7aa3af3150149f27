package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evasion-watch/evasion_watch/internal/db/dbtest"
	"github.com/evasion-watch/evasion_watch/internal/logging"
)

func TestSQLiteRepositoryRoundTrip(t *testing.T) {
	repo := NewSQLiteRepository(dbtest.SQLite(t))
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	step := 0
	l := NewLogger(repo, logging.Discard(), func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	})

	l.Record(ctx, "alice", "overview", DetailNavigate)
	l.Record(ctx, "bob", "risk-map", DetailNavigate)
	l.Record(ctx, "alice", ActionLogout, "")

	got, err := l.Query(ctx, Filter{Username: "alice"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, ActionLogout, got[0].Action)
	require.Equal(t, base.Add(3*time.Minute), got[0].Timestamp)
	require.Equal(t, "overview", got[1].Action)

	all, err := l.Query(ctx, Filter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "bob", all[1].Username)
}
