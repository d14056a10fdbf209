package memory

import (
	"context"
	"testing"
	"time"
)

func TestKVStoreSetGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewKVStore()

	if err := store.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	data, err := store.Get(ctx, "k")
	if err != nil || string(data) != "v" {
		t.Fatalf("get: %q %v", data, err)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if data, _ := store.Get(ctx, "k"); data != nil {
		t.Fatalf("expected key gone, got %q", data)
	}
}

func TestKVStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewKVStoreWithClock(func() time.Time { return now })

	if err := store.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	now = now.Add(30 * time.Minute)
	if data, _ := store.Get(ctx, "k"); data == nil {
		t.Fatalf("expected key alive before TTL")
	}
	now = now.Add(time.Hour)
	if data, _ := store.Get(ctx, "k"); data != nil {
		t.Fatalf("expected key expired, got %q", data)
	}
}
