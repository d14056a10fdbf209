package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestKVStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewKVStore(newClient(mr))

	if data, err := store.Get(ctx, "missing"); err != nil || data != nil {
		t.Fatalf("expected absent key as (nil, nil), got %q %v", data, err)
	}

	if err := store.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	data, err := store.Get(ctx, "k")
	if err != nil || string(data) != "v" {
		t.Fatalf("get: %q %v", data, err)
	}

	mr.FastForward(2 * time.Hour)
	if data, _ := store.Get(ctx, "k"); data != nil {
		t.Fatalf("expected key expired, got %q", data)
	}

	_ = store.Set(ctx, "k2", []byte("v2"), 0)
	if err := store.Delete(ctx, "k2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("k2") {
		t.Fatalf("expected key removed")
	}
}
