package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	apperrors "adaptive-trader/internal/errors"
)

// SQLiteStore implements KVStore backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a SQLite-backed KV store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, apperrors.NewStoreError("open", dbPath, err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, apperrors.NewStoreError("open", dbPath, err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS kv_list (
		id    INTEGER PRIMARY KEY AUTOINCREMENT,
		key   TEXT NOT NULL,
		value BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_kv_list_key ON kv_list(key, id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return apperrors.NewStoreError("migrate", "schema", err)
	}
	return nil
}

// Get returns the value stored at key, with ok=false when absent.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.NewStoreError("get", key, err)
	}
	return value, true, nil
}

// Set stores value at key, replacing any previous value.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return apperrors.NewStoreError("set", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return apperrors.NewStoreError("delete", key, err)
	}
	return nil
}

// ListAppend appends a value to the list at key.
func (s *SQLiteStore) ListAppend(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO kv_list (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return apperrors.NewStoreError("list-append", key, err)
	}
	return nil
}

// ListTrim keeps only the most recent keepLast entries of the list.
func (s *SQLiteStore) ListTrim(ctx context.Context, key string, keepLast int) error {
	if keepLast < 0 {
		keepLast = 0
	}
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM kv_list WHERE key = ? AND id NOT IN (
			SELECT id FROM kv_list WHERE key = ? ORDER BY id DESC LIMIT ?
		)`, key, key, keepLast)
	if err != nil {
		return apperrors.NewStoreError("list-trim", key, err)
	}
	return nil
}

// ListRange returns list entries in insertion order from start to end
// inclusive (zero-based). A negative end means "through the last entry".
func (s *SQLiteStore) ListRange(ctx context.Context, key string, start, end int) ([][]byte, error) {
	if start < 0 {
		start = 0
	}
	limit := -1
	if end >= 0 {
		if end < start {
			return nil, nil
		}
		limit = end - start + 1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT value FROM kv_list WHERE key = ? ORDER BY id ASC LIMIT ? OFFSET ?`,
		key, limit, start)
	if err != nil {
		return nil, apperrors.NewStoreError("list-range", key, err)
	}
	defer rows.Close()

	var values [][]byte
	for rows.Next() {
		var v []byte
		if err := rows.Scan(&v); err != nil {
			return nil, apperrors.NewStoreError("list-range", key, err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// ListClear removes all entries of the list at key.
func (s *SQLiteStore) ListClear(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_list WHERE key = ?`, key); err != nil {
		return apperrors.NewStoreError("list-clear", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ KVStore = (*SQLiteStore)(nil)
