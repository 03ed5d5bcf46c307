package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// migrationLockID keys the advisory lock that keeps concurrently starting servers
// from applying the same migration twice.
const migrationLockID = 7_413_902

// RunMigrations applies every embedded migration not yet recorded in schema_migrations,
// each in its own transaction and in file name order.
func (db *DB) RunMigrations(ctx context.Context) error {
	logger := slog.With("component", "migrations")
	logger.Info("Starting database migrations")

	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to reserve migration connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			logger.Error("Failed to release migration lock", "error", err)
		}
	}()

	if _, err := conn.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations, err := migrationFiles(embeddedMigrations)
	if err != nil {
		return fmt.Errorf("failed to get migration files: %w", err)
	}
	logger.Debug("Found migration files", "count", len(migrations))

	applied := 0
	for _, migration := range migrations {
		ran, err := db.runMigration(ctx, embeddedMigrations, migration)
		if err != nil {
			logger.Error("Failed to run migration", "migration", migration, "error", err)
			return fmt.Errorf("failed to run migration %s: %w", migration, err)
		}
		if ran {
			applied++
		}
	}

	logger.Info("Migrations completed", "applied", applied, "total", len(migrations))
	return nil
}

func migrationFiles(fsys fs.FS) ([]string, error) {
	migrations, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(migrations)
	return migrations, nil
}

func (db *DB) runMigration(ctx context.Context, fsys fs.FS, migrationFile string) (bool, error) {
	version := path.Base(migrationFile)
	logger := slog.With(
		"component", "migrations",
		"operation", "run_migration",
		"migration", version,
	)

	ran := false
	err := db.InTx(ctx, func(tx *Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", version,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if exists {
			return nil
		}

		content, err := fs.ReadFile(fsys, migrationFile)
		if err != nil {
			return err
		}

		logger.Info("Running migration", "size_bytes", len(content))
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		ran = true
		return nil
	})
	return ran, err
}
