package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	_ "modernc.org/sqlite" // CGO-less SQLite driver
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteSlot keeps the blob as one row of a settings table.
type SQLiteSlot struct {
	db  *sql.DB
	key string
}

// NewSQLiteSlot opens (creating if needed) the database at dsn and prepares the table.
func NewSQLiteSlot(ctx context.Context, dsn, key string) (*SQLiteSlot, error) {
	if dir := filepath.Dir(dsn); dsn != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, dirPermissions); err != nil {
			return nil, errors.Wrap(err, "failed to create database directory")
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sqlite database")
	}

	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		_ = db.Close()

		return nil, errors.Wrap(err, "failed to configure sqlite")
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()

		return nil, errors.Wrap(err, "failed to create settings table")
	}

	return &SQLiteSlot{db: db, key: key}, nil
}

func (s *SQLiteSlot) Read(ctx context.Context) ([]byte, error) {
	var raw string

	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, s.key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, errors.Wrap(err, "failed to read settings row")
	}

	return []byte(raw), nil
}

func (s *SQLiteSlot) Write(ctx context.Context, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.key, string(data))
	if err != nil {
		return errors.Wrap(err, "failed to write settings row")
	}

	return nil
}

func (s *SQLiteSlot) Remove(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, s.key); err != nil {
		return errors.Wrap(err, "failed to delete settings row")
	}

	return nil
}

func (s *SQLiteSlot) Close() error {
	return s.db.Close()
}
