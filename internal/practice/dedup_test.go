package practice

import (
	"sync"
	"testing"
	"time"
)

func TestDedupReserveAndFilter(t *testing.T) {
	c := NewDedupCache(time.Hour)
	key := SessionKey(1, 7)

	c.Reserve(key, []int64{10, 20})

	got := c.FilterUnserved(key, []int64{10, 20, 30, 40})
	want := []int64{30, 40}
	if len(got) != len(want) {
		t.Fatalf("FilterUnserved returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FilterUnserved[%d] = %d, want %d (order must be preserved)", i, got[i], want[i])
		}
	}
}

func TestDedupKeysAreIndependent(t *testing.T) {
	c := NewDedupCache(time.Hour)

	c.Reserve(SessionKey(1, 7), []int64{10})

	// Same user, different topic: nothing filtered.
	got := c.FilterUnserved(SessionKey(1, 8), []int64{10})
	if len(got) != 1 {
		t.Errorf("topic 8 filtered %v, want [10] untouched", got)
	}

	// Different user, same topic: nothing filtered.
	got = c.FilterUnserved(SessionKey(2, 7), []int64{10})
	if len(got) != 1 {
		t.Errorf("user 2 filtered %v, want [10] untouched", got)
	}
}

func TestDedupEviction(t *testing.T) {
	c := NewDedupCache(time.Minute)
	key := SessionKey(1, 7)
	c.Reserve(key, []int64{10})

	// Not yet expired.
	if n := c.evictExpired(time.Now()); n != 0 {
		t.Errorf("evictExpired evicted %d fresh entries, want 0", n)
	}
	if got := c.FilterUnserved(key, []int64{10}); len(got) != 0 {
		t.Errorf("fresh entry lost: FilterUnserved = %v, want []", got)
	}

	// FilterUnserved above touched the entry; expire relative to now.
	if n := c.evictExpired(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Errorf("evictExpired evicted %d entries, want 1", n)
	}
	if got := c.FilterUnserved(key, []int64{10}); len(got) != 1 {
		t.Errorf("after eviction FilterUnserved = %v, want [10]", got)
	}
}

func TestDedupConcurrentAccess(t *testing.T) {
	c := NewDedupCache(time.Hour)

	var wg sync.WaitGroup
	for u := int64(0); u < 8; u++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			key := SessionKey(userID, 1)
			for i := int64(0); i < 100; i++ {
				c.Reserve(key, []int64{i})
				c.FilterUnserved(key, []int64{i, i + 1})
			}
		}(u)
	}
	wg.Wait()

	for u := int64(0); u < 8; u++ {
		got := c.FilterUnserved(SessionKey(u, 1), []int64{0, 50, 99, 1000})
		if len(got) != 1 || got[0] != 1000 {
			t.Errorf("user %d: FilterUnserved = %v, want [1000]", u, got)
		}
	}
}
