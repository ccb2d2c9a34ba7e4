// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database

import (
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var embedMigrations embed.FS

func prepare(dialect Dialect) (string, error) {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if dialect == DialectPostgres {
		return "migrations/postgres", goose.SetDialect("postgres")
	}
	return "migrations/sqlite", goose.SetDialect("sqlite3")
}

// RunMigrations runs all pending goose migrations.
func RunMigrations(db *sql.DB, dialect Dialect) error {
	dir, err := prepare(dialect)
	if err != nil {
		return err
	}
	return goose.Up(db, dir)
}

// MigrateDown rolls back the last migration.
func MigrateDown(db *sql.DB, dialect Dialect) error {
	dir, err := prepare(dialect)
	if err != nil {
		return err
	}
	return goose.Down(db, dir)
}

// MigrateReset rolls back all migrations.
func MigrateReset(db *sql.DB, dialect Dialect) error {
	dir, err := prepare(dialect)
	if err != nil {
		return err
	}
	return goose.Reset(db, dir)
}

// MigrationVersion returns the current schema version.
func MigrationVersion(db *sql.DB, dialect Dialect) (int64, error) {
	if _, err := prepare(dialect); err != nil {
		return 0, err
	}
	return goose.GetDBVersion(db)
}
