package repository

import (
	"context"
	"sync"

	"davinci-allocation/internal/domain"
)

// MemoryAllocationStore keeps the encoded set in memory. Used by tests and when no durable
// backend is configured; every read decodes a fresh copy like the durable stores do.
type MemoryAllocationStore struct {
	mu   sync.RWMutex
	data []byte
}

func NewMemoryAllocationStore() *MemoryAllocationStore {
	return &MemoryAllocationStore{}
}

func (s *MemoryAllocationStore) LoadAll(_ context.Context) ([]domain.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return []domain.Allocation{}, nil
	}
	return DecodeAllocations(s.data)
}

func (s *MemoryAllocationStore) SaveAll(_ context.Context, allocations []domain.Allocation) error {
	b, err := EncodeAllocations(allocations)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = b
	s.mu.Unlock()
	return nil
}
