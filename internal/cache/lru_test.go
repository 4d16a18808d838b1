package cache

import (
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b was least recently used and should be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("a = %v, %v", v, ok)
	}
	if hits, misses := c.Stats(); hits != 2 || misses != 1 {
		t.Errorf("stats = %d hits, %d misses", hits, misses)
	}
}

func TestLRUExpiry(t *testing.T) {
	clk := &clock{t: time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)}
	c := newLRUCache[string](10, time.Minute, clk.now)
	c.Set("a", "x")
	c.Set("b", "y")

	clk.t = clk.t.Add(30 * time.Second)
	c.Set("b", "z")
	clk.t = clk.t.Add(45 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if n := c.CleanExpired(); n != 0 {
		t.Errorf("CleanExpired = %d, a was already dropped by Get", n)
	}
	if v, ok := c.Get("b"); !ok || v != "z" {
		t.Errorf("b = %q, %v", v, ok)
	}

	clk.t = clk.t.Add(time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired = %d, want 1", n)
	}
}

func TestDeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("u1:dashboard", 1)
	c.Set("u1:monthly:2024", 2)
	c.Set("u12:dashboard", 3)

	if n := c.DeletePrefix("u1:"); n != 2 {
		t.Errorf("DeletePrefix = %d, want 2", n)
	}
	if c.Size() != 1 {
		t.Errorf("Size = %d, want 1", c.Size())
	}
	c.Delete("u12:dashboard")
	if c.Size() != 0 {
		t.Error("Delete left the entry")
	}
}

func TestManagerSweep(t *testing.T) {
	clk := &clock{t: time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)}
	a := newLRUCache[int](10, time.Second, clk.now)
	b := newLRUCache[int](10, time.Hour, clk.now)
	a.Set("k", 1)
	b.Set("k", 1)

	m := NewManager(nil)
	m.Register(a)
	m.Register(b)
	m.Start(time.Hour)
	defer m.Stop()

	clk.t = clk.t.Add(time.Minute)
	if n := m.Sweep(); n != 1 {
		t.Errorf("Sweep = %d, want 1", n)
	}
}
