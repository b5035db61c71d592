package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "registra:lookup:"

// RedisCache persists lookup entries in Redis with TTL-based eviction, so a
// restarted instance keeps its warm cache and several instances share one.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache constructs a Redis-backed cache around a configured client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get loads a cached entry. Returns ErrNotFound on a miss; Redis handles
// expiry itself, so an expired entry is indistinguishable from an absent one.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	return data, nil
}

// Save writes an entry with its TTL, overwriting any existing one.
func (c *RedisCache) Save(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, redisKeyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("save cache entry: %w", err)
	}
	return nil
}
