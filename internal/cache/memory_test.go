package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryBackendGetSet(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	if _, ok, err := b.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("expected miss on empty backend, got ok=%v err=%v", ok, err)
	}

	if err := b.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, ok, err := b.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(value) != "v" {
		t.Fatalf("expected value %q, got %q", "v", value)
	}
}

func TestMemoryBackendTTLExpiry(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	if err := b.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, _ := b.Get(ctx, "k"); !ok {
		t.Fatalf("expected hit immediately after set")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok, _ := b.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after ttl expiry")
	}
}

func TestMemoryBackendClear(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	_ = b.Set(ctx, "a", []byte("1"), 0)
	_ = b.Set(ctx, "b", []byte("2"), 0)

	if err := b.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := b.Get(ctx, "a"); ok {
		t.Fatalf("expected miss after Clear")
	}
}

func TestSpecCacheAppliesDefaultTTL(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	c := New(backend, 10*time.Millisecond)

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Fatalf("expected hit before default ttl elapses")
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after default ttl elapses")
	}
}

func TestNullBackendNeverHits(t *testing.T) {
	ctx := context.Background()
	var b NullBackend
	_ = b.Set(ctx, "k", []byte("v"), time.Minute)
	if _, ok, _ := b.Get(ctx, "k"); ok {
		t.Fatalf("NullBackend must never report a hit")
	}
}
