package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLRU(size int, ttl time.Duration) (*LRU[int], *clock) {
	clk := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRU[int](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU(2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for key, want := range map[string]int{"a": 1, "c": 3} {
		if got, ok := c.Get(key); !ok || got != want {
			t.Errorf("Get(%q) = %d, %v; want %d", key, got, ok, want)
		}
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRU_Expiry(t *testing.T) {
	c, clk := newTestLRU(10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	clk.t = clk.t.Add(30 * time.Second)
	c.Set("b", 20)

	clk.t = clk.t.Add(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if got, ok := c.Get("b"); !ok || got != 20 {
		t.Errorf("Get(b) = %d, %v; want 20, true", got, ok)
	}

	clk.t = clk.t.Add(time.Hour)
	c.Set("c", 3)
	c.now = func() time.Time { return clk.t.Add(2 * time.Minute) }
	if n := c.CleanExpired(); n != 2 {
		t.Errorf("CleanExpired() = %d, want 2", n)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestLRU_Delete(t *testing.T) {
	c, _ := newTestLRU(2, time.Hour)
	c.Set("a", 1)
	c.Delete("a")
	c.Delete("missing")
	if _, ok := c.Get("a"); ok {
		t.Error("a should be gone")
	}
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[int](50, time.Hour)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%80)
				c.Set(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()
	if c.Size() > 50 {
		t.Errorf("Size() = %d, exceeds max 50", c.Size())
	}
}

func TestManager(t *testing.T) {
	a, clk := newTestLRU(5, time.Minute)
	b, _ := newTestLRU(5, time.Minute)
	b.now = clk.now
	a.Set("x", 1)
	b.Set("y", 2)
	b.Set("z", 3)

	m := NewManager(nil)
	m.Register(a)
	m.Register(b)

	if n := m.CleanAll(); n != 0 {
		t.Errorf("CleanAll() before expiry = %d, want 0", n)
	}
	clk.t = clk.t.Add(2 * time.Minute)
	if n := m.CleanAll(); n != 3 {
		t.Errorf("CleanAll() = %d, want 3", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx, time.Millisecond)
	cancel()
	m.Wait()
}
