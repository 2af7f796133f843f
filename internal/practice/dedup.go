package practice

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// DedupCache remembers which question ids were recently served to a
// user/topic pair, covering the window between "selection returned" and "the
// answer ledger reflects it". It is advisory: losing an entry can at worst
// re-serve a question, the database stays the source of truth for scoring.
//
// Locking is per entry so unrelated sessions never contend. No I/O happens
// while either lock is held.
type DedupCache struct {
	mu      sync.Mutex
	entries map[string]*dedupEntry
	ttl     time.Duration
}

type dedupEntry struct {
	mu          sync.Mutex
	servedIDs   map[int64]struct{}
	lastTouched time.Time
}

func NewDedupCache(ttl time.Duration) *DedupCache {
	return &DedupCache{
		entries: make(map[string]*dedupEntry),
		ttl:     ttl,
	}
}

// SessionKey builds the cache key for a user/topic pair.
func SessionKey(userID, topicID int64) string {
	return fmt.Sprintf("%d:%d", userID, topicID)
}

func (c *DedupCache) entry(key string) *dedupEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		e = &dedupEntry{servedIDs: make(map[int64]struct{})}
		c.entries[key] = e
	}
	return e
}

// Reserve marks ids as served for this key.
func (c *DedupCache) Reserve(key string, ids []int64) {
	e := c.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range ids {
		e.servedIDs[id] = struct{}{}
	}
	e.lastTouched = time.Now()
}

// FilterUnserved drops ids already reserved for this key, preserving order.
func (c *DedupCache) FilterUnserved(key string, candidates []int64) []int64 {
	e := c.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastTouched = time.Now()

	if len(e.servedIDs) == 0 {
		return candidates
	}
	out := make([]int64, 0, len(candidates))
	for _, id := range candidates {
		if _, served := e.servedIDs[id]; !served {
			out = append(out, id)
		}
	}
	return out
}

// StartJanitor evicts entries idle past the TTL until ctx is canceled.
// Stale entries must go away so an old sitting never poisons a new one.
func (c *DedupCache) StartJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted := c.evictExpired(time.Now())
			if evicted > 0 {
				log.Printf("[dedup] evicted %d expired entries", evicted)
			}
		}
	}
}

func (c *DedupCache) evictExpired(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for key, e := range c.entries {
		e.mu.Lock()
		expired := now.Sub(e.lastTouched) > c.ttl
		e.mu.Unlock()
		if expired {
			delete(c.entries, key)
			evicted++
		}
	}
	return evicted
}
