package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend is a Redis-backed cache backend, used in multi-instance
// deployments where the in-process MemoryBackend would not be shared across
// replicas. Wiring mirrors redisclient.New's redis.ParseURL(cfg.RedisURL)
// pattern.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend parses rawURL (a redis:// or rediss:// URL) and returns a
// RedisBackend. Keys are namespaced under prefix to avoid collisions with
// other consumers of the same Redis instance.
func NewRedisBackend(rawURL, prefix string) (*RedisBackend, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &RedisBackend{client: redis.NewClient(opt), prefix: prefix}, nil
}

// NewRedisBackendFromClient wraps an already-constructed client, used by
// tests against a miniredis instance.
func NewRedisBackendFromClient(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

func (r *RedisBackend) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (r *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *RedisBackend) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.key("*"), 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return nil
}

// Ping verifies connectivity, mirroring redisclient.Client.Ping.
func (r *RedisBackend) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.client.Ping(ctx).Err()
}
