// Package settings persists user preferences that outlive a session.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
)

const keyToolsEnabled = "tools_enabled"

// Store is a small key/value table in SQLite.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens (and creates when missing) the settings database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize settings schema: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`)
	return err
}

// Path returns the database file.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value for key and whether it was set.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

// LoadToolsEnabled returns the persisted tools toggle, or fallback when it
// was never saved or cannot be parsed.
func (s *Store) LoadToolsEnabled(ctx context.Context, fallback bool) (bool, error) {
	raw, ok, err := s.Get(ctx, keyToolsEnabled)
	if err != nil || !ok {
		return fallback, err
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback, nil
	}
	return enabled, nil
}

// SaveToolsEnabled persists the tools toggle.
func (s *Store) SaveToolsEnabled(ctx context.Context, enabled bool) error {
	return s.Set(ctx, keyToolsEnabled, strconv.FormatBool(enabled))
}
