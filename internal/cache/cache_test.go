package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	c := New[string](10, time.Minute)
	if _, ok := c.Get("missing"); ok {
		t.Fatal("empty cache should miss")
	}
	c.Set("k", "v")
	if got, ok := c.Get("k"); !ok || got != "v" {
		t.Fatalf("got %q/%v", got, ok)
	}
}

func TestTTLExpiry(t *testing.T) {
	c := New[int](10, 10*time.Millisecond)
	c.Set("k", 1)
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry should miss")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry not removed, size %d", c.Size())
	}
}

func TestLRUEviction(t *testing.T) {
	c := New[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a becomes most recent
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("least recently used entry should be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("recently used entry should survive")
	}
}

func TestPurge(t *testing.T) {
	c := New[int](10, time.Minute)
	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("purge left %d entries", c.Size())
	}
	c.Set("k", 9)
	if got, ok := c.Get("k"); !ok || got != 9 {
		t.Fatal("cache unusable after purge")
	}
}

func TestCleanExpired(t *testing.T) {
	c := New[int](10, 10*time.Millisecond)
	c.Set("old", 1)
	time.Sleep(20 * time.Millisecond)
	c.Set("fresh", 2)

	// Fresh entry must survive a cleanup pass.
	removed := c.CleanExpired()
	if removed != 1 {
		t.Fatalf("removed %d, want 1", removed)
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Fatal("fresh entry removed")
	}
}
