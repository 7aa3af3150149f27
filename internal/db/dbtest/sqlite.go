// Package dbtest opens throwaway migrated databases for repository tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evasion-watch/evasion_watch/internal/db/migrate"
	"github.com/evasion-watch/evasion_watch/internal/infra"
)

// SQLite returns a migrated SQLite database in t's temp dir, closed on cleanup.
func SQLite(t testing.TB) *sql.DB {
	t.Helper()
	conn, err := infra.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "open sqlite")
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, migrate.SQLite(conn, "up"), "migrate sqlite")
	return conn
}
