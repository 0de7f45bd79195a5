package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T, ttl time.Duration) (*RedisDeliveredCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRedisDeliveredCache(rdb, ttl), mr
}

func TestRedisDeliveredCache_MarkDelivered(t *testing.T) {
	t.Parallel()

	cache, mr := newTestCache(t, 10*time.Second)
	ctx := context.Background()

	if err := cache.MarkDelivered(ctx, "wamid.1", 42); err != nil {
		t.Fatalf("MarkDelivered() error: %v", err)
	}

	key := "wa:delivered:wamid.1"
	if !mr.Exists(key) {
		t.Fatalf("expected key %q to exist", key)
	}
	if ttl := mr.TTL(key); ttl <= 0 {
		t.Fatalf("expected TTL to be set, got %v", ttl)
	}
	raw, err := mr.Get(key)
	if err != nil {
		t.Fatalf("failed to get key %q: %v", key, err)
	}
	if raw != "42" {
		t.Fatalf("expected stored message id 42, got %q", raw)
	}

	ok, err := cache.IsDelivered(ctx, "wamid.1")
	if err != nil {
		t.Fatalf("IsDelivered() error: %v", err)
	}
	if !ok {
		t.Fatalf("expected wamid.1 to be delivered")
	}
}

func TestRedisDeliveredCache_MissAndExpiry(t *testing.T) {
	t.Parallel()

	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	ok, err := cache.IsDelivered(ctx, "unknown")
	if err != nil {
		t.Fatalf("IsDelivered() error: %v", err)
	}
	if ok {
		t.Fatalf("expected miss for unknown id")
	}

	if err := cache.MarkDelivered(ctx, "wamid.2", 7); err != nil {
		t.Fatalf("MarkDelivered() error: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	ok, err = cache.IsDelivered(ctx, "wamid.2")
	if err != nil {
		t.Fatalf("IsDelivered() error: %v", err)
	}
	if ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestRedisDeliveredCache_Forget(t *testing.T) {
	t.Parallel()

	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := cache.MarkDelivered(ctx, id, 1); err != nil {
			t.Fatalf("MarkDelivered() error: %v", err)
		}
	}
	if err := cache.Forget(ctx, "a", "b"); err != nil {
		t.Fatalf("Forget() error: %v", err)
	}
	if mr.Exists("wa:delivered:a") || mr.Exists("wa:delivered:b") {
		t.Fatalf("expected keys to be removed")
	}
}

func TestRedisDeliveredCache_ContextCanceled(t *testing.T) {
	t.Parallel()

	cache, _ := newTestCache(t, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := cache.MarkDelivered(ctx, "x", 1); err == nil {
		t.Fatalf("expected error due to canceled context, got nil")
	}
}
