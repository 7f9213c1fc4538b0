package repository

import (
	"context"

	"davinci-allocation/internal/domain"

	"github.com/go-redis/redis/v8"
)

const DefaultAllocationsKey = "davinci:allocations"

// RedisAllocationStore keeps the encoded set under a single key, so every SaveAll is one
// atomic SET.
type RedisAllocationStore struct {
	c   *redis.Client
	key string
}

func NewRedisAllocationStore(c *redis.Client, key string) *RedisAllocationStore {
	if key == "" {
		key = DefaultAllocationsKey
	}
	return &RedisAllocationStore{c: c, key: key}
}

func (r *RedisAllocationStore) LoadAll(ctx context.Context) ([]domain.Allocation, error) {
	val, err := r.c.Get(ctx, r.key).Bytes()
	if err == redis.Nil {
		if err := r.c.SetNX(ctx, r.key, "[]", 0).Err(); err != nil {
			return nil, unavailable("initialize allocations key", err)
		}
		return []domain.Allocation{}, nil
	}
	if err != nil {
		return nil, unavailable("get allocations", err)
	}
	return DecodeAllocations(val)
}

func (r *RedisAllocationStore) SaveAll(ctx context.Context, allocations []domain.Allocation) error {
	b, err := EncodeAllocations(allocations)
	if err != nil {
		return err
	}
	if err := r.c.Set(ctx, r.key, b, 0).Err(); err != nil {
		return unavailable("set allocations", err)
	}
	return nil
}
