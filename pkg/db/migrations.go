package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rubiojr/codesnippets/pkg/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var logger = log.ForService("db")

// Migration is one versioned schema change. Files are named NNN_name.sql.
type Migration struct {
	Version   int
	Name      string
	SQL       string
	AppliedAt *time.Time
}

// MigrationStatus represents the current state of migrations.
type MigrationStatus struct {
	Applied   []Migration
	Pending   []Migration
	Available []Migration
}

// MigrationManager applies migrations read from a filesystem, the embedded
// set by default.
type MigrationManager struct {
	db     *sql.DB
	source fs.FS
	dir    string
}

// NewMigrationManager creates a migration manager using the embedded migrations.
func NewMigrationManager(db *sql.DB) *MigrationManager {
	return &MigrationManager{db: db, source: migrationsFS, dir: "migrations"}
}

// NewMigrationManagerFromPath loads migrations from a directory on disk.
// Tests use it to exercise custom migration sets.
func NewMigrationManagerFromPath(db *sql.DB, dir string) *MigrationManager {
	return &MigrationManager{db: db, source: os.DirFS(dir), dir: "."}
}

// EnsureMigrationsTable creates the bookkeeping table if it doesn't exist.
func (m *MigrationManager) EnsureMigrationsTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)`)
	return err
}

// GetAppliedMigrations returns applied versions and when they were applied.
func (m *MigrationManager) GetAppliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	applied := make(map[int]time.Time)

	rows, err := m.db.QueryContext(ctx, "SELECT version, applied_at FROM migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("querying applied migrations: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Warnf("failed to close rows: %v", err)
		}
	}()

	for rows.Next() {
		var version int
		var appliedAt int64
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("scanning migration row: %w", err)
		}
		applied[version] = time.Unix(appliedAt, 0).UTC()
	}

	return applied, rows.Err()
}

// GetAvailableMigrations returns every migration in the source, sorted by version.
func (m *MigrationManager) GetAvailableMigrations() ([]Migration, error) {
	return readMigrations(m.source, m.dir)
}

// GetEmbeddedMigrations returns the embedded migration set without a database handle.
func GetEmbeddedMigrations() ([]Migration, error) {
	return readMigrations(migrationsFS, "migrations")
}

func readMigrations(source fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(source, dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		// "001_snippets.sql" -> 1, "snippets"
		prefix, rest, ok := strings.Cut(entry.Name(), "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}

		content, err := fs.ReadFile(source, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading migration file %s: %w", entry.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version: version,
			Name:    strings.TrimSuffix(rest, ".sql"),
			SQL:     string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// GetPendingMigrations returns migrations that haven't been applied yet.
func (m *MigrationManager) GetPendingMigrations(ctx context.Context) ([]Migration, error) {
	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	available, err := m.GetAvailableMigrations()
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, migration := range available {
		if _, exists := applied[migration.Version]; !exists {
			pending = append(pending, migration)
		}
	}

	return pending, nil
}

// ApplyMigration applies a single migration inside a transaction.
func (m *MigrationManager) ApplyMigration(ctx context.Context, migration Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				logger.Warnf("failed to rollback migration %d: %v", migration.Version, err)
			}
		}
	}()

	if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
		return fmt.Errorf("executing migration %d: %w", migration.Version, err)
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO migrations (version, applied_at) VALUES (?, ?)",
		migration.Version, time.Now().Unix()); err != nil {
		return fmt.Errorf("recording migration %d: %w", migration.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration %d: %w", migration.Version, err)
	}

	committed = true
	return nil
}

// ApplyPendingMigrations applies all pending migrations and returns how many ran.
func (m *MigrationManager) ApplyPendingMigrations(ctx context.Context) (int, error) {
	if err := m.EnsureMigrationsTable(ctx); err != nil {
		return 0, fmt.Errorf("ensuring migrations table: %w", err)
	}

	pending, err := m.GetPendingMigrations(ctx)
	if err != nil {
		return 0, fmt.Errorf("getting pending migrations: %w", err)
	}

	for _, migration := range pending {
		logger.Infof("applying migration %d: %s", migration.Version, migration.Name)
		if err := m.ApplyMigration(ctx, migration); err != nil {
			return 0, fmt.Errorf("applying migration %d (%s): %w", migration.Version, migration.Name, err)
		}
	}

	if len(pending) > 0 {
		logger.Infof("applied %d migrations", len(pending))
	}
	return len(pending), nil
}

// GetMigrationStatus returns the current migration status.
func (m *MigrationManager) GetMigrationStatus(ctx context.Context) (*MigrationStatus, error) {
	if err := m.EnsureMigrationsTable(ctx); err != nil {
		return nil, fmt.Errorf("ensuring migrations table: %w", err)
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	available, err := m.GetAvailableMigrations()
	if err != nil {
		return nil, err
	}

	status := &MigrationStatus{
		Applied:   make([]Migration, 0, len(applied)),
		Available: available,
	}

	for _, migration := range available {
		if appliedAt, exists := applied[migration.Version]; exists {
			migration.AppliedAt = &appliedAt
			status.Applied = append(status.Applied, migration)
			continue
		}
		status.Pending = append(status.Pending, migration)
	}

	return status, nil
}

// InitializeDatabase brings a database up to the current schema.
func InitializeDatabase(ctx context.Context, db *sql.DB) error {
	if _, err := NewMigrationManager(db).ApplyPendingMigrations(ctx); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}
