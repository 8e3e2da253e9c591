// Package store persists reports, the rolling day index, and derived
// projections in a key-value store with per-key expiry.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a key is absent or expired.
var ErrNotFound = errors.New("key not found")

// KV is the minimal key-value contract the store builds on. Backends offer
// atomicity per individual key only; there are no multi-key transactions,
// and read-after-write may be eventually consistent.
type KV interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes value under key. ttl<=0 stores without expiry.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close releases backend resources.
	Close() error
}

// SQLiteKV is a SQLite-backed KV with lazy expiry: expired rows are treated
// as absent on read and reaped opportunistically.
type SQLiteKV struct {
	db   *sql.DB
	path string
}

// NewSQLiteKV opens (and initializes) the KV database under dataDir.
func NewSQLiteKV(dataDir string) (*SQLiteKV, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "trendpulse.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	kv := &SQLiteKV{db: db, path: dbPath}
	if err := kv.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return kv, nil
}

func (s *SQLiteKV) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at DATETIME
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create kv table: %w", err)
	}
	return nil
}

// Get retrieves a value, treating expired rows as absent.
func (s *SQLiteKV) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value, expires_at FROM kv WHERE key = ?`

	var value []byte
	var expiresAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}

	if expiresAt.Valid && expiresAt.Time.Before(time.Now().UTC()) {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
		return nil, ErrNotFound
	}
	return value, nil
}

// Put upserts a value. A non-positive ttl stores the key without expiry.
func (s *SQLiteKV) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt interface{}
	if ttl > 0 {
		expiresAt = time.Now().UTC().Add(ttl)
	}

	query := `INSERT OR REPLACE INTO kv (key, value, expires_at) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, key, value, expiresAt); err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

// Cleanup reaps all expired rows.
func (s *SQLiteKV) Cleanup(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at < ?`, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to clean expired keys: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteKV) Close() error {
	return s.db.Close()
}
