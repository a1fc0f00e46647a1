package storage

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/smykla-labs/klinik/pkg/config"
)

// Open creates the slot selected by the storage settings.
func Open(ctx context.Context, s *config.StorageSettings) (Slot, error) {
	switch backend := s.GetBackend(); backend {
	case "file":
		return NewFileSlot(s.GetPath()), nil
	case "memory":
		return NewMemorySlot(), nil
	case "sqlite":
		return NewSQLiteSlot(ctx, s.GetDSN(), s.GetKey())
	case "redis":
		if s.GetDSN() == "" {
			return nil, errors.WithHint(
				errors.New("redis backend requires a dsn"),
				"set storage.dsn or KLINIK_STORAGE_DSN to a redis:// url",
			)
		}

		return NewRedisSlot(ctx, s.GetDSN(), s.GetKey())
	case "postgres":
		if s.GetDSN() == "" {
			return nil, errors.WithHint(
				errors.New("postgres backend requires a dsn"),
				"set storage.dsn or KLINIK_STORAGE_DSN to a postgres:// url",
			)
		}

		return NewPostgresSlot(ctx, s.GetDSN(), s.GetKey())
	default:
		return nil, errors.Wrapf(ErrUnknownBackend, "%q", backend)
	}
}
