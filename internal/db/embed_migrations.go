package db

import "embed"

// PostgresMigrations and SQLiteMigrations embed the schema for each backend.
// The two sets describe the same tables; only the column types differ.
//
//go:embed migrations/postgres/*.sql
var PostgresMigrations embed.FS

//go:embed migrations/sqlite/*.sql
var SQLiteMigrations embed.FS
