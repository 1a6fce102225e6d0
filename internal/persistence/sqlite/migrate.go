package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type migration struct {
	Version string
	SQL     string
}

// Migrate applies every embedded migration that has not run yet. Each
// migration runs in its own transaction and is recorded in schema_migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.initializeVersionTable(ctx); err != nil {
		return err
	}

	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	for _, m := range migrations {
		applied, err := s.isVersionApplied(ctx, m.Version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		if err := s.executeMigration(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func loadMigrations() ([]migration, error) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("sqlite: read migrations: %w", err)
	}

	migrations := make([]migration, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		content, err := fs.ReadFile(migrationFiles, "migrations/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("sqlite: read migration %s: %w", entry.Name(), err)
		}
		version, _, _ := strings.Cut(entry.Name(), "_")
		migrations = append(migrations, migration{Version: version, SQL: string(content)})
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func (s *Store) initializeVersionTable(ctx context.Context) error {
	const createTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL,
			execution_time_ms INTEGER
		)`
	if _, err := s.pool.DB().ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("sqlite: create schema_migrations table: %w", err)
	}
	return nil
}

func (s *Store) isVersionApplied(ctx context.Context, version string) (bool, error) {
	var exists int
	err := s.pool.DB().QueryRowContext(ctx, `SELECT 1 FROM schema_migrations WHERE version = ? LIMIT 1`, version).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: check migration %s: %w", version, err)
	}
	return true, nil
}

func (s *Store) executeMigration(ctx context.Context, m migration) error {
	start := s.now()
	statements := splitStatements(m.SQL)
	if len(statements) == 0 {
		return fmt.Errorf("sqlite: migration %s has no statements", m.Version)
	}

	return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for i, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("sqlite: migration %s statement %d: %w", m.Version, i+1, err)
			}
		}
		elapsed := s.now().Sub(start)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, applied_at, execution_time_ms) VALUES (?, ?, ?)`,
			m.Version, s.now().UTC().Format(time.RFC3339), elapsed.Milliseconds(),
		); err != nil {
			return fmt.Errorf("sqlite: record migration %s: %w", m.Version, err)
		}
		return nil
	})
}

func splitStatements(script string) []string {
	parts := strings.Split(script, ";")
	statements := make([]string, 0, len(parts))
	for _, part := range parts {
		if stmt := strings.TrimSpace(part); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
