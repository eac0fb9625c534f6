package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func TestRedisBackend_ImplementsBackend(t *testing.T) {
	var _ Backend = (*RedisBackend)(nil)
}

// Integration test - needs a reachable Redis instance
func TestRedisBackend_Contract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	r := NewRedis(RedisConfig{Addr: addr, TTL: time.Minute})
	ctx := context.Background()
	if err := r.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	key := "series:redistest:price"
	defer r.Delete(ctx, key)

	if err := r.Write(ctx, key, []byte("data")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := r.Read(ctx, key)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("got %q, want %q", got, "data")
	}

	exists, err := r.Exists(ctx, key)
	if err != nil || !exists {
		t.Errorf("Exists = %v, %v", exists, err)
	}

	keys, err := r.List(ctx, "series:redistest:")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 1 || keys[0] != key {
		t.Errorf("List = %v", keys)
	}

	if err := r.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := r.Read(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
