// Command migrate applies the embedded schema to the configured database.
//
//	migrate [up|down]
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/evasion-watch/evasion_watch/internal/config"
	"github.com/evasion-watch/evasion_watch/internal/db/migrate"
	"github.com/evasion-watch/evasion_watch/internal/infra"
	"github.com/evasion-watch/evasion_watch/internal/logging"
)

func main() {
	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.AppEnv)

	if err := run(context.Background(), cfg, direction); err != nil {
		logger.Error("migrate", "direction", direction, "error", err)
		os.Exit(1)
	}
	logger.Info("migrations applied", "direction", direction)
}

// run migrates the configured backend. Any handle it opens is closed before it returns.
func run(ctx context.Context, cfg config.Config, direction string) error {
	switch {
	case cfg.DatabaseURL != "":
		return migrate.Postgres(cfg.DatabaseURL, direction)
	case cfg.SQLitePath != "":
		conn, err := infra.NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		err = migrate.SQLite(conn, direction)
		if closeErr := conn.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close sqlite: %w", closeErr)
		}
		return err
	default:
		return fmt.Errorf("set DATABASE_URL or SQLITE_PATH")
	}
}
