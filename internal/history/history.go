// Package history persists past queries and the commands generated for them
// in a local SQLite database under the XDG data directory.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite"
)

const dbFileName = "history.db"

// Entry is one past translation: what was asked and what came back.
type Entry struct {
	ID        int64
	Timestamp time.Time
	Query     string
	Command   string
	Provider  string
	Model     string
}

// Store records and lists entries. SQLite serializes concurrent writers,
// so a Store needs no locking of its own.
type Store struct {
	db *sql.DB
}

// Path returns the default database location.
func Path() string {
	return filepath.Join(xdg.DataHome, "halp", dbFileName)
}

// Open opens the store at the default location, creating it if needed.
func Open() (*Store, error) {
	return OpenAt(Path())
}

// OpenAt opens or creates a store at path.
func OpenAt(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database schema
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at INTEGER NOT NULL,
		query TEXT NOT NULL,
		command TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_created_at ON history(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Record appends an entry. A zero Timestamp is filled with the current time.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history (created_at, query, command, provider, model)
		VALUES (?, ?, ?, ?, ?)
	`, e.Timestamp.Unix(), e.Query, e.Command, e.Provider, e.Model)
	if err != nil {
		return fmt.Errorf("failed to record history entry: %w", err)
	}

	return nil
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, query, command, provider, model
		FROM history
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var createdAt int64
		if err := rows.Scan(&e.ID, &createdAt, &e.Query, &e.Command, &e.Provider, &e.Model); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.Timestamp = time.Unix(createdAt, 0)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Clear removes all entries.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM history`)
	return err
}

// Count returns the number of stored entries.
func (s *Store) Count() int {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM history`).Scan(&count); err != nil {
		return 0
	}
	return count
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
