package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisBackend(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisBackendFromClient(client, "chartengine"), mr
}

func TestRedisBackendGetSet(t *testing.T) {
	ctx := context.Background()
	backend, _ := newTestRedisBackend(t)

	if _, ok, err := backend.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("expected miss on empty backend, got ok=%v err=%v", ok, err)
	}

	if err := backend.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, ok, err := backend.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(value) != "v" {
		t.Fatalf("expected value %q, got %q", "v", value)
	}
}

func TestRedisBackendTTLExpiry(t *testing.T) {
	ctx := context.Background()
	backend, mr := newTestRedisBackend(t)

	if err := backend.Set(ctx, "k", []byte("v"), time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	mr.FastForward(2 * time.Second)

	if _, ok, _ := backend.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after ttl expiry")
	}
}

func TestRedisBackendClear(t *testing.T) {
	ctx := context.Background()
	backend, _ := newTestRedisBackend(t)

	_ = backend.Set(ctx, "a", []byte("1"), time.Minute)
	_ = backend.Set(ctx, "b", []byte("2"), time.Minute)

	if err := backend.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := backend.Get(ctx, "a"); ok {
		t.Fatalf("expected miss after Clear")
	}
}
