package storage

import (
	"context"
	"slices"
	"sync"
)

// MemorySlot keeps the blob in process memory.
type MemorySlot struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemorySlot creates an empty MemorySlot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{}
}

func (s *MemorySlot) Read(context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data == nil {
		return nil, ErrNotFound
	}

	return slices.Clone(s.data), nil
}

func (s *MemorySlot) Write(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = slices.Clone(data)

	return nil
}

func (s *MemorySlot) Remove(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = nil

	return nil
}

func (*MemorySlot) Close() error {
	return nil
}
