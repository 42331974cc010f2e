package catalogcache_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"octpack/internal/catalogcache"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func openCache(t *testing.T, ttl time.Duration, clk *clock) *catalogcache.Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "catalog.db")
	cache, err := catalogcache.Open(context.Background(), path, ttl, catalogcache.WithClock(clk.Now))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestPutAndGet(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)}
	cache := openCache(t, time.Hour, clk)

	key := "http://hallofbeorn.com/Export/Search?CardSet=Core%20Set"
	if err := cache.Put(ctx, key, []byte(`[{"Title":"Gandalf"}]`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	body, ok, err := cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(body) != `[{"Title":"Gandalf"}]` {
		t.Fatalf("unexpected body %q", body)
	}

	if err := cache.Put(ctx, key, []byte(`[]`)); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	body, _, _ = cache.Get(ctx, key)
	if string(body) != `[]` {
		t.Fatalf("expected overwrite, got %q", body)
	}
	if n, err := cache.Count(ctx); err != nil || n != 1 {
		t.Fatalf("expected one entry, got %d (%v)", n, err)
	}
}

func TestGetMissAndExpiry(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)}
	cache := openCache(t, time.Hour, clk)

	if _, ok, err := cache.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	if err := cache.Put(ctx, "sets", []byte(`[]`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	clk.now = clk.now.Add(59 * time.Minute)
	if _, ok, _ := cache.Get(ctx, "sets"); !ok {
		t.Fatal("expected hit before ttl")
	}
	clk.now = clk.now.Add(time.Minute)
	if _, ok, _ := cache.Get(ctx, "sets"); ok {
		t.Fatal("expected miss once ttl elapsed")
	}

	entries, err := cache.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 || !entries[0].Expired {
		t.Fatalf("expected one expired entry, got %+v", entries)
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)}
	cache := openCache(t, 0, clk)

	if err := cache.Put(ctx, "sets", []byte(`[]`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	clk.now = clk.now.Add(365 * 24 * time.Hour)
	if _, ok, _ := cache.Get(ctx, "sets"); !ok {
		t.Fatal("expected hit with ttl disabled")
	}
}

func TestListRemoveClear(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)}
	cache := openCache(t, time.Hour, clk)

	for i, key := range []string{"a", "b", "c"} {
		clk.now = clk.now.Add(time.Duration(i) * time.Minute)
		if err := cache.Put(ctx, key, []byte(key)); err != nil {
			t.Fatalf("Put %s failed: %v", key, err)
		}
	}

	entries, err := cache.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 3 || entries[0].Key != "c" || entries[2].Key != "a" {
		t.Fatalf("expected newest first, got %+v", entries)
	}
	if entries[0].Size != 1 {
		t.Fatalf("unexpected size %d", entries[0].Size)
	}

	if err := cache.Remove(ctx, "b"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := cache.Remove(ctx, "b"); err == nil {
		t.Fatal("expected error removing missing key")
	}

	removed, err := cache.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if n, _ := cache.Count(ctx); n != 0 {
		t.Fatalf("expected empty cache, got %d", n)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	first, err := catalogcache.Open(ctx, path, time.Hour)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := first.Put(ctx, "sets", []byte(`[]`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := catalogcache.Open(ctx, path, time.Hour)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()
	if _, ok, _ := second.Get(ctx, "sets"); !ok {
		t.Fatal("expected entry to survive reopen")
	}
}
