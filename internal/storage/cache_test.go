package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache", "iplens.db"), ttl)
	if err != nil {
		t.Fatalf("Open returned an error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_PutGet(t *testing.T) {
	c := openTestCache(t, time.Hour)
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, KindHost, "1.2.3.4"); err != nil || ok {
		t.Fatalf("expected miss on empty cache, got ok=%v err=%v", ok, err)
	}
	if err := c.Put(ctx, KindHost, "1.2.3.4", []byte(`{"ip":"1.2.3.4"}`)); err != nil {
		t.Fatalf("Put returned an error: %v", err)
	}
	if err := c.Put(ctx, KindHost, "1.2.3.4", []byte(`{"ip":"1.2.3.4","ports":[22]}`)); err != nil {
		t.Fatalf("second Put returned an error: %v", err)
	}
	got, ok, err := c.Get(ctx, KindHost, "1.2.3.4")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(got) != `{"ip":"1.2.3.4","ports":[22]}` {
		t.Errorf("unexpected value %s", got)
	}
	if _, ok, _ := c.Get(ctx, KindCVE, "1.2.3.4"); ok {
		t.Errorf("kinds must not share keys")
	}
}

func TestCache_Expiry(t *testing.T) {
	c := openTestCache(t, time.Minute)
	ctx := context.Background()
	base := time.Now()
	c.now = func() time.Time { return base }

	if err := c.Put(ctx, KindCVE, "CVE-2021-44228", []byte(`{}`)); err != nil {
		t.Fatalf("Put returned an error: %v", err)
	}
	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, ok, _ := c.Get(ctx, KindCVE, "CVE-2021-44228"); ok {
		t.Errorf("expected expired entry to miss")
	}
	n, err := c.Purge(ctx)
	if err != nil {
		t.Fatalf("Purge returned an error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 purged row, got %d", n)
	}
}

func TestCache_NilIsDisabled(t *testing.T) {
	var c *Cache
	ctx := context.Background()
	if err := c.Put(ctx, KindHost, "k", []byte("v")); err != nil {
		t.Errorf("nil Put should be a no-op, got %v", err)
	}
	if _, ok, err := c.Get(ctx, KindHost, "k"); ok || err != nil {
		t.Errorf("nil Get should miss, got ok=%v err=%v", ok, err)
	}
}
