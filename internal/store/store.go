// Package store is the typed facade over the embedded SQLite database.
//
// It owns schema bootstrap, WAL journaling, and the FTS5 index that backs
// search. All transactional operations roll back atomically on error;
// partial batches are never visible to readers.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	sferrors "github.com/specfusion/specfusion/internal/errors"
)

// Store is the typed accessor over the relational store.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// Open opens (or creates) the database at path, enables WAL and foreign-key
// enforcement, and applies the schema idempotently.
// An empty path opens an in-memory store for testing.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, sferrors.Wrap(sferrors.ErrCodeStoreUnavailable, err)
	}

	// Single writer prevents lock contention; SQLite serializes writes
	// internally anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL must be set via PRAGMA for modernc.org/sqlite; DSN params are
	// not honored.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{db: db, path: path}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, sferrors.Wrap(sferrors.ErrCodeSchemaFailed, err)
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Reindex rebuilds the FTS index from the documents table and returns the
// document row count.
func (s *Store) Reindex(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO documents_fts(documents_fts) VALUES ('rebuild')`); err != nil {
		return 0, fmt.Errorf("failed to rebuild FTS index: %w", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// FTSRowCount returns the number of rows in the FTS index. Used to assert
// index/table parity.
func (s *Store) FTSRowCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents_fts`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count FTS rows: %w", err)
	}
	return count, nil
}

// now returns the current time truncated to second precision; sub-second
// jitter is noise in sync timestamps.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// formatTime renders a time for TEXT storage; zero times store as NULL.
func formatTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

// parseTime reads a TEXT timestamp; NULL and malformed values yield zero.
func parseTime(ns sql.NullString) time.Time {
	if !ns.Valid {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return time.Time{}
	}
	return t
}
