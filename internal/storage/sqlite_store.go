package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements RecordStore in a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens or creates the database at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		key TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		accessed_at INTEGER NOT NULL,
		custom TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_records_accessed ON records(accessed_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Put inserts or replaces the record.
func (s *SQLiteStore) Put(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var custom []byte
	if len(rec.Metadata.Custom) > 0 {
		var err error
		if custom, err = json.Marshal(rec.Metadata.Custom); err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
	}
	data := rec.Data
	if data == nil {
		data = []byte{}
	}
	now := time.Now().UnixNano()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (key, data, created_at, accessed_at, custom) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, created_at = excluded.created_at,
			accessed_at = excluded.accessed_at, custom = excluded.custom`,
		rec.Key, data, now, now, custom,
	)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// Get retrieves the record stored under key.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &Record{Key: key}
	var created, accessed int64
	var custom []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data, created_at, accessed_at, custom FROM records WHERE key = ?", key,
	).Scan(&rec.Data, &created, &accessed, &custom)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound{Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("query record: %w", err)
	}

	now := time.Now()
	if _, err := s.db.ExecContext(ctx, "UPDATE records SET accessed_at = ? WHERE key = ?", now.UnixNano(), key); err != nil {
		return nil, fmt.Errorf("touch record: %w", err)
	}
	rec.Metadata = metadataFromRow(created, now.UnixNano(), int64(len(rec.Data)), custom)
	return rec, nil
}

// Stat returns the metadata of the record stored under key.
func (s *SQLiteStore) Stat(ctx context.Context, key string) (Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var created, accessed, size int64
	var custom []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT created_at, accessed_at, length(data), custom FROM records WHERE key = ?", key,
	).Scan(&created, &accessed, &size, &custom)
	if errors.Is(err, sql.ErrNoRows) {
		return Metadata{}, ErrNotFound{Key: key}
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("query record: %w", err)
	}
	return metadataFromRow(created, accessed, size, custom), nil
}

// Delete removes the record stored under key.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound{Key: key}
	}
	return nil
}

// List returns every stored key in key order.
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT key FROM records ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func metadataFromRow(created, accessed, size int64, custom []byte) Metadata {
	m := Metadata{
		CreatedAt:    time.Unix(0, created),
		LastAccessed: time.Unix(0, accessed),
		Size:         size,
	}
	if len(custom) > 0 {
		_ = json.Unmarshal(custom, &m.Custom)
	}
	return m
}
