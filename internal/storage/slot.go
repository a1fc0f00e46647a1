// Package storage provides the durable key/value slots holding the settings blob.
package storage

//go:generate mockgen -source=slot.go -destination=mocks/slot_mock.go -package=mocks

import (
	"context"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNotFound is returned by Read when the slot holds no blob.
	ErrNotFound = errors.New("slot is empty")

	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// Slot is one named blob in a durable store.
type Slot interface {
	// Read returns the stored blob, or ErrNotFound.
	Read(ctx context.Context) ([]byte, error)

	// Write replaces the stored blob.
	Write(ctx context.Context, data []byte) error

	// Remove deletes the stored blob. Removing an empty slot is not an error.
	Remove(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
