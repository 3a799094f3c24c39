/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"container/list"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vasayxtx/go-glob"
)

// DefaultCleanupInterval is the recommended interval for RunPeriodicCleanup.
const DefaultCleanupInterval = time.Minute

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// Cache is a bounded key/value store with LRU eviction and per-entry expiration.
// Keys are strings so that related entries can be invalidated in bulk by pattern.
type Cache[V any] struct {
	maxEntries int
	defaultTTL time.Duration

	mu      sync.Mutex
	lruList *list.List
	entries map[string]*list.Element

	// Cumulative counters since construction or the last Clear.
	hits      uint64
	misses    uint64
	evictions uint64

	metricsCollector MetricsCollector
}

// Options represents options for the cache.
type Options struct {
	// DefaultTTL is the TTL applied by Set. Zero means no expiration.
	// Expired entries are not removed immediately, but on access or
	// during periodic cleanup (see Prune and RunPeriodicCleanup).
	DefaultTTL time.Duration
}

// New creates a new Cache with the provided maximum number of entries and metrics collector.
// Metrics collector may be nil, in this case metrics will be disabled.
func New[V any](maxEntries int, metricsCollector MetricsCollector) (*Cache[V], error) {
	return NewWithOpts[V](maxEntries, metricsCollector, Options{})
}

// NewWithOpts creates a new Cache with the provided maximum number of entries,
// metrics collector, and options.
func NewWithOpts[V any](maxEntries int, metricsCollector MetricsCollector, opts Options) (*Cache[V], error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("maxEntries must be greater than 0")
	}
	if opts.DefaultTTL < 0 {
		return nil, fmt.Errorf("defaultTTL must be greater or equal to 0 (no expiration)")
	}
	if metricsCollector == nil {
		metricsCollector = disabledMetrics{}
	}
	return &Cache[V]{
		maxEntries:       maxEntries,
		defaultTTL:       opts.DefaultTTL,
		lruList:          list.New(),
		entries:          make(map[string]*list.Element),
		metricsCollector: metricsCollector,
	}, nil
}

// Get returns a value from the cache by the provided key.
// An entry whose TTL has elapsed is removed and reported as a miss.
// A hit moves the entry to the most-recently-used position.
func (c *Cache[V]) Get(key string) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, found := c.entries[key]
	if !found {
		c.misses++
		c.metricsCollector.IncMisses()
		return value, false
	}
	ent := elem.Value.(*entry[V])
	if !ent.expiresAt.IsZero() && ent.expiresAt.Before(time.Now()) {
		c.removeElement(elem)
		c.misses++
		c.metricsCollector.IncMisses()
		return value, false
	}
	c.lruList.MoveToFront(elem)
	c.hits++
	c.metricsCollector.IncHits()
	return ent.value, true
}

// Set adds a value to the cache with the default TTL.
// If the cache is full, the least-recently-used entry is evicted.
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL adds a value to the cache with the provided TTL. Zero TTL means no expiration.
// Overwriting an existing key refreshes its position to most-recently-used and
// never evicts other entries; eviction happens only when a genuinely new key
// is inserted at capacity.
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.lruList.MoveToFront(elem)
		elem.Value = &entry[V]{key: key, value: value, expiresAt: expiresAt}
		return
	}

	c.entries[key] = c.lruList.PushFront(&entry[V]{key: key, value: value, expiresAt: expiresAt})
	if len(c.entries) <= c.maxEntries {
		c.metricsCollector.SetAmount(len(c.entries))
		return
	}
	if c.removeOldest() {
		c.evictions++
		c.metricsCollector.AddEvictions(1)
	}
}

// Invalidate removes a single key and reports whether it was present.
func (c *Cache[V]) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeElement(elem)
	return true
}

// InvalidatePattern removes all entries whose keys contain the provided substring
// and returns the number of removed entries. It is intended for bulk invalidation
// of related keys, e.g. all entries for one entity.
func (c *Cache[V]) InvalidatePattern(substr string) int {
	return c.invalidateMatching(func(key string) bool {
		return strings.Contains(key, substr)
	})
}

// InvalidateGlob removes all entries whose keys match the provided glob pattern
// (e.g. "user:*") and returns the number of removed entries.
func (c *Cache[V]) InvalidateGlob(pattern string) int {
	return c.invalidateMatching(glob.Compile(pattern))
}

func (c *Cache[V]) invalidateMatching(match func(key string) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, elem := range c.entries {
		if match(key) {
			c.lruList.Remove(elem)
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		c.metricsCollector.SetAmount(len(c.entries))
	}
	return removed
}

// Clear removes all entries and resets the cumulative hit/miss/eviction counters.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.lruList.Init()
	c.hits, c.misses, c.evictions = 0, 0, 0
	c.metricsCollector.SetAmount(0)
}

// Prune removes all entries whose TTL has elapsed and returns the number of removed entries.
// Entries without expiration time are not affected.
func (c *Cache[V]) Prune() int {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, elem := range c.entries {
		ent := elem.Value.(*entry[V])
		if !ent.expiresAt.IsZero() && ent.expiresAt.Before(now) {
			c.lruList.Remove(elem)
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		c.metricsCollector.SetAmount(len(c.entries))
	}
	return removed
}

// Len returns the number of entries in the cache, including not yet pruned expired ones.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of cache usage statistics.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Size:      len(c.entries),
		MaxSize:   c.maxEntries,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		HitRate:   formatHitRate(c.hits, c.misses),
	}
}

// Stats represents a snapshot of cache usage statistics.
// Counters are cumulative since construction or the last Clear.
type Stats struct {
	Size      int
	MaxSize   int
	Hits      uint64
	Misses    uint64
	Evictions uint64

	// HitRate is hits/(hits+misses) formatted as a percentage with one decimal,
	// or "N/A" if the cache has not been accessed yet.
	HitRate string
}

func formatHitRate(hits, misses uint64) string {
	total := hits + misses
	if total == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", float64(hits)/float64(total)*100)
}

// RunPeriodicCleanup runs a loop that prunes expired entries on the provided interval.
// It's supposed to be run in a separate goroutine and stops when ctx is canceled.
func (c *Cache[V]) RunPeriodicCleanup(ctx context.Context, cleanupInterval time.Duration) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Prune()
		}
	}
}

// removeElement removes the element from both the list and the map. Lock must be held.
func (c *Cache[V]) removeElement(elem *list.Element) {
	c.lruList.Remove(elem)
	delete(c.entries, elem.Value.(*entry[V]).key)
	c.metricsCollector.SetAmount(len(c.entries))
}

func (c *Cache[V]) removeOldest() bool {
	elem := c.lruList.Back()
	if elem == nil {
		return false
	}
	c.lruList.Remove(elem)
	delete(c.entries, elem.Value.(*entry[V]).key)
	c.metricsCollector.SetAmount(len(c.entries))
	return true
}
