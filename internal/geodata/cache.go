// Package geodata wraps the third-party geo services the application depends
// on: reverse geocoding, Overpass POI search, postal-code lookup, routing and
// IP-based coarse geolocation. Every client degrades to a fallback value
// instead of failing the caller.
package geodata

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache stores raw response payloads keyed by query string.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

type memoryCacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is a process-local TTL cache with opportunistic eviction.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]memoryCacheEntry
	maxEntries int
	clock      func() time.Time
}

// NewMemoryCache constructs a cache bounded to maxEntries items. A zero or
// negative bound falls back to 512.
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 512
	}
	return &MemoryCache{
		entries:    make(map[string]memoryCacheEntry),
		maxEntries: maxEntries,
		clock:      func() time.Time { return time.Now().UTC() },
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.clock().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	now := c.clock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictLocked(now)
	}
	c.entries[key] = memoryCacheEntry{value: value, expiresAt: now.Add(ttl)}
}

// evictLocked drops expired entries first, then the entry closest to expiry
// when the cache is still full.
func (c *MemoryCache) evictLocked(now time.Time) {
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	if len(c.entries) < c.maxEntries {
		return
	}

	var oldestKey string
	var oldestExpiry time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.expiresAt.Before(oldestExpiry) {
			oldestKey = key
			oldestExpiry = entry.expiresAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// RedisCache shares cached responses across replicas through Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache wraps an existing Redis client. Keys are namespaced with the
// given prefix.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "geodata"
	}
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	value, err := c.client.Get(ctx, c.prefix+":"+key).Bytes()
	if err != nil {
		return nil, false
	}
	return value, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if c == nil || c.client == nil || ttl <= 0 {
		return
	}
	// Cache writes are best effort; a Redis outage must not fail lookups.
	_ = c.client.Set(ctx, c.prefix+":"+key, value, ttl).Err()
}
