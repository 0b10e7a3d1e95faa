package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value    []byte
	expires  time.Time
	hasTTL   bool
}

func (e memoryEntry) expired(now time.Time) bool {
	return e.hasTTL && !now.Before(e.expires)
}

// MemoryBackend is an in-process cache backend with optional TTL eviction,
// mirroring cache.py's LocalCacheBackend. Safe for concurrent use.
type MemoryBackend struct {
	mu    sync.Mutex
	store map[string]memoryEntry
}

// NewMemoryBackend builds an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{store: make(map[string]memoryEntry)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.store[key]
	if !ok {
		return nil, false, nil
	}
	if entry.expired(time.Now()) {
		delete(m.store, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.hasTTL = true
		entry.expires = time.Now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[key] = entry
	return nil
}

func (m *MemoryBackend) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = make(map[string]memoryEntry)
	return nil
}

// NullBackend never stores anything; wiring it in place of MemoryBackend or
// RedisBackend effectively disables caching, mirroring cache.py's
// NullCacheBackend (used by tests and by callers that opt out of caching).
type NullBackend struct{}

func (NullBackend) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (NullBackend) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullBackend) Clear(context.Context) error { return nil }
