// Package storage persists snippets and snapshots in SQLite and runs the
// paginated search pipeline against them.
//
// Rows live in one table per kind with an FTS5 index over title and
// description. Search is expressed as a Pipeline (see Build) made of two
// statements, the page of items and the total count, which Store.Search
// executes concurrently.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rubiojr/codesnippets/pkg/db"
	"github.com/rubiojr/codesnippets/pkg/log"
)

var (
	// ErrInvalidFilter is returned when a filter value can never match, such
	// as an exact id that is not a UUID. The API maps it to HTTP 400.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrNotFound is returned by by-id lookups when no row matches.
	ErrNotFound = errors.New("not found")
)

var logger = log.ForService("storage")

// Store is the SQLite document store.
type Store struct {
	db *sql.DB
}

// connection pragmas applied by the driver to every pooled connection
const dsnPragmas = "?_pragma=busy_timeout(30000)&_pragma=journal_mode(wal)&_pragma=synchronous(normal)"

// Open opens (creating if needed) the database at path and applies pending
// migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	sqlDB, err := OpenDB(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := db.InitializeDatabase(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("initializing database: %w", err)
	}

	logger.Debugf("opened database %s", path)
	return &Store{db: sqlDB}, nil
}

// OpenDB opens the database at path with the connection tuning used by
// Open but without touching the schema.
func OpenDB(ctx context.Context, path string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite3", "file:"+path+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA cache_size = -64000", // 64MB cache
		"PRAGMA temp_store = memory",
		"PRAGMA mmap_size = 268435456", // 256MB mmap
		"PRAGMA optimize",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.ExecContext(ctx, pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}
	return sqlDB, nil
}

// New wraps an already open and migrated database.
func New(sqlDB *sql.DB) *Store {
	return &Store{db: sqlDB}
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logger.Warnf("failed to close rows: %v", err)
	}
}
