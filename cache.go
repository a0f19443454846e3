package magql

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Cache is the interface for caching list-query results.
// Implement it with your preferred backend (Redis, Memcached, in-memory).
// The resolver layer encodes values with msgpack before storing them.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all values with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

// CacheKey identifies a cached list query.
type CacheKey struct {
	Model      string
	Operation  string
	Predicates string
	OrderBy    string
	Limit      int
	Offset     int
}

// String returns the string representation of the cache key. Keys for one
// model share the "model:" prefix so mutations can invalidate them with a
// single DeletePrefix.
func (k CacheKey) String() string {
	var sb strings.Builder
	sb.WriteString(k.Model)
	sb.WriteByte(':')
	sb.WriteString(k.Operation)
	sb.WriteByte(':')
	sb.WriteString(k.Predicates)
	sb.WriteByte(':')
	sb.WriteString(k.OrderBy)
	if k.Limit > 0 || k.Offset > 0 {
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(k.Limit))
		sb.WriteByte(',')
		sb.WriteString(strconv.Itoa(k.Offset))
	}
	return sb.String()
}

// MemoryCache is a minimal in-process Cache, mainly for tests and examples.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value   []byte
	expires time.Time // zero means no expiry
}

// NewMemoryCache returns an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, nil
	}
	return e.value, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// Delete implements Cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// DeletePrefix implements Cache.
func (c *MemoryCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
	return nil
}
