// Package cache is an optional Redis read-through cache for availability
// listings. A nil *Cache is valid and disables caching entirely, so callers
// never branch on configuration.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a Redis client with a fixed TTL. Keys are scoped per
// business and date so writes can invalidate precisely.
type Cache struct {
	redis *redis.Client
	ttl   time.Duration
}

// New returns a cache, or nil when the client is absent or the TTL is zero.
func New(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &Cache{redis: client, ttl: ttl}
}

// SlotsKey identifies a slot listing for (business, date, duration minutes).
func SlotsKey(businessID int64, date string, durationMinutes int) string {
	return fmt.Sprintf("slots:%d:%s:%d", businessID, date, durationMinutes)
}

// DatesKey identifies an available-dates listing.
func DatesKey(businessID int64, dayCount int) string {
	return fmt.Sprintf("dates:%d:%d", businessID, dayCount)
}

// Get reads a cached JSON value into out, reporting whether it was present.
// Cache errors are treated as misses.
func (c *Cache) Get(ctx context.Context, key string, out any) bool {
	if c == nil {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), out) == nil
}

// Set writes a JSON value with the configured TTL, best-effort.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.redis.Set(ctx, key, data, c.ttl)
}

// InvalidateBusiness drops all cached listings for a business. Called after
// any reservation write; correctness never depends on it.
func (c *Cache) InvalidateBusiness(ctx context.Context, businessID int64) {
	if c == nil {
		return
	}
	for _, pattern := range []string{
		fmt.Sprintf("slots:%d:*", businessID),
		fmt.Sprintf("dates:%d:*", businessID),
	} {
		iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()
		for iter.Next(ctx) {
			c.redis.Del(ctx, iter.Val())
		}
	}
}
