package memory

import (
	"testing"
	"time"
)

func TestGetReturnsStoredValue(t *testing.T) {
	c := New[string, string](8, 0, time.Minute)
	c.Set("a", "one", 3)
	got, ok := c.Get("a")
	if !ok || got != "one" {
		t.Fatalf("got %q, %v", got, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatalf("missing key reported present")
	}
}

func TestEntryExpires(t *testing.T) {
	c := New[string, string](8, 0, 10*time.Millisecond)
	c.Set("a", "one", 3)
	time.Sleep(25 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expired entry served")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not dropped, len = %d", c.Len())
	}
}

func TestEvictsLeastRecentlyUsedOnCount(t *testing.T) {
	c := New[string, string](2, 0, time.Minute)
	c.Set("a", "1", 1)
	c.Set("b", "2", 1)
	c.Get("a") // refresh a
	c.Set("c", "3", 1)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("least recently used entry survived")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("recently used entry evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatalf("new entry missing")
	}
}

func TestEvictsOnByteCap(t *testing.T) {
	c := New[string, string](100, 10, time.Minute)
	c.Set("a", "1", 6)
	c.Set("b", "2", 6)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("byte cap not enforced")
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatalf("newest entry evicted instead")
	}
}

func TestSetReplacesExisting(t *testing.T) {
	c := New[string, string](8, 0, time.Minute)
	c.Set("a", "old", 3)
	c.Set("a", "new", 3)
	got, _ := c.Get("a")
	if got != "new" {
		t.Fatalf("got %q, want new", got)
	}
	if c.Len() != 1 {
		t.Fatalf("len = %d, want 1", c.Len())
	}
}

func TestNilCacheIsInert(t *testing.T) {
	var c *LRUTTL[string, string]
	c.Set("a", "1", 1)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("nil cache returned a value")
	}
	c.Delete("a")
	if c.Len() != 0 {
		t.Fatalf("nil cache has entries")
	}
}
