package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a TTL cache for computed aggregates. Entries are invalidated
// explicitly whenever a write lands for the cached key; the TTL is only a
// backstop. A nil Cache (redis not configured) disables caching entirely.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache builds a cache over an existing redis connection.
func NewCache(r *Redis, ttl time.Duration) *Cache {
	if r == nil || r.Client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{client: r.Client, ttl: ttl}
}

// Get unmarshals the cached value into dst. Returns false on miss or any
// redis/decoding failure; a broken cache must never fail a read path.
func (c *Cache) Get(ctx context.Context, key string, dst any) bool {
	if c == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// Set stores val under key with the cache TTL. Errors are dropped.
func (c *Cache) Set(ctx context.Context, key string, val any) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Invalidate removes key immediately.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	if c == nil {
		return
	}
	_ = c.client.Del(ctx, key).Err()
}
