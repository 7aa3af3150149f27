package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/evasion-watch/evasion_watch/internal/logging"
	"github.com/evasion-watch/evasion_watch/internal/metrics"
)

type stepClock struct{ t time.Time }

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func TestRecordAndQueryNewestFirst(t *testing.T) {
	clock := &stepClock{t: time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)}
	l := NewLogger(NewMemoryRepository(), logging.Discard(), clock.Now)
	ctx := context.Background()

	l.Record(ctx, "alice", "overview", DetailNavigate)
	l.Record(ctx, "bob", "risk-map", DetailNavigate)
	l.Record(ctx, "alice", "factor-ranking", DetailNavigate)

	all, err := l.Query(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "factor-ranking", all[0].Action)
	require.Equal(t, "overview", all[2].Action)
	require.NotEmpty(t, all[0].ID)
	require.True(t, all[0].Timestamp.After(all[1].Timestamp))

	alice, err := l.Query(ctx, Filter{Username: "alice", Limit: 1})
	require.NoError(t, err)
	require.Len(t, alice, 1)
	require.Equal(t, "factor-ranking", alice[0].Action)
}

type failingRepo struct{}

func (failingRepo) Append(context.Context, Entry) error { return errors.New("disk full") }
func (failingRepo) List(context.Context, Filter) ([]Entry, error) {
	return nil, nil
}

func TestRecordFailureIsSwallowed(t *testing.T) {
	before := testutil.ToFloat64(metrics.AuditWriteFailures)
	l := NewLogger(failingRepo{}, logging.Discard(), nil)

	l.Record(context.Background(), "alice", "overview", DetailNavigate)

	require.Equal(t, before+1, testutil.ToFloat64(metrics.AuditWriteFailures))
}

func TestFilterLimitBounds(t *testing.T) {
	require.Equal(t, defaultLimit, Filter{}.limit())
	require.Equal(t, maxLimit, Filter{Limit: maxLimit * 2}.limit())
	require.Equal(t, 7, Filter{Limit: 7}.limit())
}

func TestLookupPage(t *testing.T) {
	p, ok := LookupPage("audit")
	require.True(t, ok)
	require.True(t, p.Admin)

	_, ok = LookupPage("model-training")
	require.False(t, ok)
}
