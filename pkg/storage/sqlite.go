package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/goliatone/go-gmarup-admin/components/console"
)

// Scopes mirror the two browser storages the dashboard relies on.
const (
	ScopeLocal   = "local"
	ScopeSession = "session"
)

// SQLiteStore persists key/value pairs per scope in a single SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) the store at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("storage: database path is required")
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS kv(
	  scope      TEXT NOT NULL,
	  key        TEXT NOT NULL,
	  value      TEXT NOT NULL,
	  updated_at TEXT NOT NULL,
	  PRIMARY KEY (scope, key)
	);
	CREATE TABLE IF NOT EXISTS activity(
	  id          INTEGER PRIMARY KEY AUTOINCREMENT,
	  verb        TEXT NOT NULL,
	  actor_id    TEXT NOT NULL DEFAULT '',
	  object_type TEXT NOT NULL,
	  object_id   TEXT NOT NULL DEFAULT '',
	  channel     TEXT NOT NULL DEFAULT '',
	  data        TEXT NOT NULL DEFAULT '{}',
	  occurred_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_activity_occurred ON activity(occurred_at);
	`)
	if err != nil {
		return fmt.Errorf("storage: create tables: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Scope returns a console.KeyValueStore bound to one scope.
func (s *SQLiteStore) Scope(name string) *ScopedStore {
	return &ScopedStore{store: s, scope: name}
}

// Local is shorthand for Scope(ScopeLocal).
func (s *SQLiteStore) Local() *ScopedStore { return s.Scope(ScopeLocal) }

// Session is shorthand for Scope(ScopeSession).
func (s *SQLiteStore) Session() *ScopedStore { return s.Scope(ScopeSession) }

// ScopedStore is a view over one scope of a SQLiteStore.
type ScopedStore struct {
	store *SQLiteStore
	scope string
}

var _ console.KeyValueStore = (*ScopedStore)(nil)

func (s *ScopedStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.store.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE scope = ? AND key = ?`, s.scope, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage: get %s/%s: %w", s.scope, key, err)
	}
	return value, true, nil
}

func (s *ScopedStore) Set(ctx context.Context, key, value string) error {
	_, err := s.store.db.ExecContext(ctx, `
	INSERT INTO kv(scope, key, value, updated_at) VALUES (?, ?, ?, ?)
	ON CONFLICT(scope, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.scope, key, value, s.store.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("storage: set %s/%s: %w", s.scope, key, err)
	}
	return nil
}

func (s *ScopedStore) Delete(ctx context.Context, key string) error {
	if _, err := s.store.db.ExecContext(ctx, `DELETE FROM kv WHERE scope = ? AND key = ?`, s.scope, key); err != nil {
		return fmt.Errorf("storage: delete %s/%s: %w", s.scope, key, err)
	}
	return nil
}

// Keys lists the keys in this scope, sorted.
func (s *ScopedStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, `SELECT key FROM kv WHERE scope = ? ORDER BY key`, s.scope)
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", s.scope, err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("storage: scan %s: %w", s.scope, err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Clear removes every key in this scope.
func (s *ScopedStore) Clear(ctx context.Context) error {
	if _, err := s.store.db.ExecContext(ctx, `DELETE FROM kv WHERE scope = ?`, s.scope); err != nil {
		return fmt.Errorf("storage: clear %s: %w", s.scope, err)
	}
	return nil
}
