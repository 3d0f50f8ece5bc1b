// Package history persists submitted Lox source, for REPL recall and for
// auditing what the evaluation server ran.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("history store closed")

var log = commonlog.GetLogger("lox.history")

// Entry is one recorded submission.
type Entry struct {
	ID      int64
	Session string // "" for the local REPL
	Source  string
	OK      bool
	At      time.Time
}

// Store is a SQLite-backed history of submissions.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// Open opens or creates the history database at path. The special path
// ":memory:" keeps history for the life of the Store only.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection, so an in-memory database is shared by every query.
	db.SetMaxOpenConns(1)

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL,
		ok INTEGER NOT NULL,
		at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened history at %s", path)
	return &Store{db: db}, nil
}

// Record appends a submission.
func (s *Store) Record(ctx context.Context, session, source string, ok bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO entries (session, source, ok, at) VALUES (?, ?, ?, ?)",
		session, source, ok, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("recording entry: %w", err)
	}
	return nil
}

// Recent returns up to limit of the latest entries for session, oldest
// first. A limit of zero or less returns all of them.
func (s *Store) Recent(ctx context.Context, session string, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session, source, ok, at FROM entries
		WHERE session = ? ORDER BY id DESC LIMIT ?`,
		session, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e  Entry
			at int64
		)
		if err := rows.Scan(&e.ID, &e.Session, &e.Source, &e.OK, &at); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.At = time.Unix(0, at)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading entries: %w", err)
	}

	// Reverse to oldest first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Clear deletes every entry of session.
func (s *Store) Clear(ctx context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE session = ?", session); err != nil {
		return fmt.Errorf("clearing entries: %w", err)
	}
	return nil
}

// Close closes the database. Further calls return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
