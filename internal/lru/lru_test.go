package lru

import (
	"sync"
	"testing"
	"time"
)

func TestGetComputesOnMiss(t *testing.T) {
	c := New[string, int](10)
	now := time.Now()
	calls := 0
	compute := func(k string) (int, time.Time) {
		calls++
		return len(k), now.Add(time.Minute)
	}

	v := c.Get(now, "hello", compute)
	if v != 5 || calls != 1 {
		t.Fatalf("got (%d, %d calls), want (5, 1 call)", v, calls)
	}
}

func TestGetReturnsCachedValueWhileFresh(t *testing.T) {
	c := New[string, int](10)
	now := time.Now()
	calls := 0
	compute := func(k string) (int, time.Time) {
		calls++
		return 42, now.Add(time.Minute)
	}

	c.Get(now, "k", compute)
	c.Get(now.Add(30*time.Second), "k", compute)
	if calls != 1 {
		t.Fatalf("compute called %d times, want 1 (still fresh)", calls)
	}
}

func TestGetRecomputesAfterExpiry(t *testing.T) {
	c := New[string, int](10)
	now := time.Now()
	calls := 0
	compute := func(k string) (int, time.Time) {
		calls++
		return calls, now.Add(time.Minute)
	}

	c.Get(now, "k", compute)
	v := c.Get(now.Add(2*time.Minute), "k", compute)
	if calls != 2 || v != 2 {
		t.Fatalf("got (%d, %d calls), want (2, 2 calls) after expiry", v, calls)
	}
}

func TestEvictsSmallestDeadlineFirstOverCapacity(t *testing.T) {
	c := New[string, int](2)
	now := time.Now()
	compute := func(expires time.Time) func(string) (int, time.Time) {
		return func(k string) (int, time.Time) { return 1, expires }
	}

	c.Get(now, "a", compute(now.Add(1*time.Minute)))
	c.Get(now, "b", compute(now.Add(2*time.Minute)))
	c.Get(now, "c", compute(now.Add(3*time.Minute)))

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}

	calls := 0
	c.Get(now, "a", func(string) (int, time.Time) {
		calls++
		return 99, now.Add(time.Minute)
	})
	if calls != 1 {
		t.Fatal("expected 'a' (earliest deadline) to have been evicted")
	}
}

func TestReentrantGetDuringCompute(t *testing.T) {
	c := New[string, int](10)
	now := time.Now()

	var compute func(string) (int, time.Time)
	compute = func(k string) (int, time.Time) {
		if k == "child" {
			return 1, now.Add(time.Minute)
		}
		child := c.Get(now, "child", compute)
		return child + 1, now.Add(time.Minute)
	}

	v := c.Get(now, "parent", compute)
	if v != 2 {
		t.Fatalf("got %d, want 2 (reentrant compute of child should succeed)", v)
	}
}

func TestInvalidateRemovesEntry(t *testing.T) {
	c := New[string, int](10)
	now := time.Now()
	calls := 0
	compute := func(k string) (int, time.Time) {
		calls++
		return calls, now.Add(time.Minute)
	}

	c.Get(now, "k", compute)
	c.Invalidate("k")
	c.Get(now, "k", compute)
	if calls != 2 {
		t.Fatalf("compute called %d times, want 2 (invalidated entry must recompute)", calls)
	}
}

func TestConcurrentGetsAreSafe(t *testing.T) {
	c := New[int, int](50)
	now := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Get(now, i, func(k int) (int, time.Time) {
				return k * 2, now.Add(time.Minute)
			})
		}()
	}
	wg.Wait()
}
