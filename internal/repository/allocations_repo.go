package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"davinci-allocation/internal/domain"
)

var (
	// ErrStoreCorrupt persisted content could not be decoded.
	ErrStoreCorrupt = errors.New("allocation store corrupt")
	// ErrStoreUnavailable the backing medium could not be read or written.
	ErrStoreUnavailable = errors.New("allocation store unavailable")
)

// AllocationStore durable storage of the whole allocation set.
// There is no per-record update: callers load everything, change it in memory and save
// everything back. SaveAll replaces the persisted set in one step; readers never observe a
// partially written set. A store that has never been written reads as empty.
type AllocationStore interface {
	LoadAll(ctx context.Context) ([]domain.Allocation, error)
	SaveAll(ctx context.Context, allocations []domain.Allocation) error
}

// EncodeAllocations serialises the set as a JSON array, preserving order.
func EncodeAllocations(allocations []domain.Allocation) ([]byte, error) {
	if allocations == nil {
		allocations = []domain.Allocation{}
	}
	b, err := json.MarshalIndent(allocations, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode allocations: %w", err)
	}
	return b, nil
}

// DecodeAllocations parses a JSON array written by EncodeAllocations.
func DecodeAllocations(b []byte) ([]domain.Allocation, error) {
	var allocations []domain.Allocation
	if err := json.Unmarshal(b, &allocations); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
	}
	return normalizeAll(allocations)
}

// EncodeAllocation serialises a single record (row-per-record backends).
func EncodeAllocation(a domain.Allocation) ([]byte, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode allocation %s: %w", a.ID, err)
	}
	return b, nil
}

// DecodeAllocation parses a single record written by EncodeAllocation.
func DecodeAllocation(b []byte) (domain.Allocation, error) {
	var a domain.Allocation
	if err := json.Unmarshal(b, &a); err != nil {
		return domain.Allocation{}, fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
	}
	if a.ID == "" {
		return domain.Allocation{}, fmt.Errorf("%w: record without id", ErrStoreCorrupt)
	}
	return a.Normalize(), nil
}

func normalizeAll(allocations []domain.Allocation) ([]domain.Allocation, error) {
	out := make([]domain.Allocation, len(allocations))
	for i, a := range allocations {
		if a.ID == "" {
			return nil, fmt.Errorf("%w: record %d without id", ErrStoreCorrupt, i)
		}
		out[i] = a.Normalize()
	}
	return out, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}
