package storage

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS klinik_settings (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresSlot keeps the blob as one JSONB row.
type PostgresSlot struct {
	pool *pgxpool.Pool
	key  string
}

// NewPostgresSlot connects to dsn and prepares the table.
func NewPostgresSlot(ctx context.Context, dsn, key string) (*PostgresSlot, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create postgres pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, errors.Wrap(err, "postgres ping failed")
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()

		return nil, errors.Wrap(err, "failed to create settings table")
	}

	return &PostgresSlot{pool: pool, key: key}, nil
}

func (s *PostgresSlot) Read(ctx context.Context) ([]byte, error) {
	var raw []byte

	err := s.pool.QueryRow(ctx, `SELECT value::text FROM klinik_settings WHERE key = $1`, s.key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, errors.Wrap(err, "failed to read settings row")
	}

	return raw, nil
}

func (s *PostgresSlot) Write(ctx context.Context, data []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO klinik_settings (key, value, updated_at) VALUES ($1, $2::jsonb, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		s.key, string(data))
	if err != nil {
		return errors.Wrap(err, "failed to write settings row")
	}

	return nil
}

func (s *PostgresSlot) Remove(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM klinik_settings WHERE key = $1`, s.key); err != nil {
		return errors.Wrap(err, "failed to delete settings row")
	}

	return nil
}

func (s *PostgresSlot) Close() error {
	s.pool.Close()

	return nil
}
