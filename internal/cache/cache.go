// Package cache provides the ChartResult cache abstraction used by the
// engine, mirroring cache.py's CacheBackend protocol / SpecCache wrapper.
package cache

import (
	"context"
	"time"
)

// Backend is implemented by every cache backend the engine can be wired to.
// Values are opaque JSON bytes; the engine/internal/cache caller is
// responsible for marshaling/unmarshaling chartspec.ChartResult.
type Backend interface {
	// Get returns the cached value for key, or ok=false when missing or
	// expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Clear removes all cached entries.
	Clear(ctx context.Context) error
}

// SpecCache wraps a Backend with a default TTL applied when the caller does
// not specify one, mirroring cache.py's SpecCache.
type SpecCache struct {
	backend    Backend
	defaultTTL time.Duration
}

// New builds a SpecCache over backend with defaultTTL applied to Set calls
// that pass a zero ttl.
func New(backend Backend, defaultTTL time.Duration) *SpecCache {
	return &SpecCache{backend: backend, defaultTTL: defaultTTL}
}

func (c *SpecCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return c.backend.Get(ctx, key)
}

func (c *SpecCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	effective := ttl
	if effective == 0 {
		effective = c.defaultTTL
	}
	return c.backend.Set(ctx, key, value, effective)
}

func (c *SpecCache) Clear(ctx context.Context) error {
	return c.backend.Clear(ctx)
}
