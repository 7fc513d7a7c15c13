package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/sqlpath/internal/query"
)

// ErrNotFound is returned by Get when no row matches.
var ErrNotFound = errors.New("record not found")

// Store executes rendered queries against a SQLite database.
//
// The Store never creates or migrates tables: the schema it queries is owned
// by whoever populated the database.
type Store struct {
	db  *sql.DB
	reg *query.Registry
}

// Open opens a SQLite database at path for queries against reg.
//
// The database is configured with:
//   - WAL mode for concurrent reads
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// The file is created if it does not exist.
func Open(path string, reg *query.Registry) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	slog.Debug("database opened", "path", path)
	return &Store{db: db, reg: reg}, nil
}

// New wraps an already open database.
func New(db *sql.DB, reg *query.Registry) *Store {
	return &Store{db: db, reg: reg}
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Registry returns the registry queries are built against.
func (s *Store) Registry() *query.Registry {
	return s.reg
}

// Exec runs a statement that returns no rows, such as a seed script.
func (s *Store) Exec(ctx context.Context, stmt string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
