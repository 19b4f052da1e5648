package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache defines the interface for caching source snapshots
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Delete(key string)
	Clear()
}

// TTLCache implements Cache interface with time-to-live support
type TTLCache struct {
	data *gocache.Cache
}

// New creates a new TTL cache; expired entries are swept every two TTL periods
func New(defaultTTL time.Duration) *TTLCache {
	cleanupInterval := defaultTTL * 2
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	return &TTLCache{
		data: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a value from the cache
func (c *TTLCache) Get(key string) (any, bool) {
	return c.data.Get(key)
}

// Set stores a value in the cache with the specified TTL
func (c *TTLCache) Set(key string, value any, ttl time.Duration) {
	c.data.Set(key, value, ttl)
}

// Delete removes a value from the cache
func (c *TTLCache) Delete(key string) {
	c.data.Delete(key)
}

// Clear removes all values from the cache
func (c *TTLCache) Clear() {
	c.data.Flush()
}

// Typed returns the cached value for key when it exists and has type T
func Typed[T any](c Cache, key string) (T, bool) {
	var zero T
	cached, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	value, ok := cached.(T)
	if !ok {
		return zero, false
	}
	return value, true
}
