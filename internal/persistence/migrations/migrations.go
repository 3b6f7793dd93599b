// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package migrations applies the embedded catalog schema with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/ManuGH/lessonstream/internal/log"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed sql/*.sql
var embedMigrations embed.FS

// goose keeps dialect and filesystem in package globals.
var gooseMu sync.Mutex

// Dialect returns the goose dialect for a store driver name.
func Dialect(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return "sqlite3", nil
	case "postgres", "postgresql":
		return "postgres", nil
	default:
		return "", fmt.Errorf("migrations: unsupported driver %q", driver)
	}
}

// Up migrates db to the latest embedded version and returns it.
func Up(ctx context.Context, db *sql.DB, driver string) (int64, error) {
	dialect, err := Dialect(driver)
	if err != nil {
		return 0, err
	}
	logger := log.WithComponent("migrations")

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(gooseLogger{logger: logger})
	if err := goose.SetDialect(dialect); err != nil {
		return 0, fmt.Errorf("set goose dialect: %w", err)
	}

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		logger.Warn().Err(err).Msg("could not read current schema version")
		current = 0
	}

	if err := goose.UpContext(ctx, db, "sql"); err != nil {
		return current, fmt.Errorf("run migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return current, fmt.Errorf("verify migration version: %w", err)
	}
	logger.Info().
		Str(log.FieldEvent, "migrations.applied").
		Int64("from_version", current).
		Int64("to_version", version).
		Str("dialect", dialect).
		Msg("catalog schema up to date")
	return version, nil
}

// Version reports the applied schema version without migrating.
func Version(ctx context.Context, db *sql.DB, driver string) (int64, error) {
	dialect, err := Dialect(driver)
	if err != nil {
		return 0, err
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()
	if err := goose.SetDialect(dialect); err != nil {
		return 0, fmt.Errorf("set goose dialect: %w", err)
	}
	return goose.GetDBVersionContext(ctx, db)
}

type gooseLogger struct {
	logger zerolog.Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.logger.Debug().Msgf(strings.TrimSpace(format), v...)
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.logger.Error().Msgf(strings.TrimSpace(format), v...)
}
