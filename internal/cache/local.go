// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/tomtom215/gscstats/internal/metrics"
)

// DefaultLocalMaxEntries caps the local tier when no bound is configured.
const DefaultLocalMaxEntries = 10000

type localEntry struct {
	key       string
	data      []byte
	expiresAt time.Time
}

// Local is a thread-safe in-memory TTL cache of encoded responses, bounded
// by entry count. When full, the least recently used entry is evicted.
type Local struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front is most recently used
	ttl        time.Duration
	maxEntries int

	stop     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewLocal creates a local tier with a default TTL and an entry bound, and
// starts a cleanup goroutine that removes expired entries every
// cleanupInterval. Call Close to stop it. A non-positive cleanupInterval
// disables background cleanup; expired entries are then removed lazily on
// Get. A non-positive maxEntries uses DefaultLocalMaxEntries.
func NewLocal(ttl, cleanupInterval time.Duration, maxEntries int) *Local {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultLocalMaxEntries
	}
	c := &Local{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		ttl:        ttl,
		maxEntries: maxEntries,
		stop:       make(chan struct{}),
		now:        time.Now,
	}
	if cleanupInterval > 0 {
		go c.cleanupLoop(cleanupInterval)
	}
	return c
}

// Get returns the value stored under key. An expired entry is removed and
// reported as absent.
func (c *Local) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*localEntry)
	if c.now().After(entry.expiresAt) {
		c.removeLocked(el)
		metrics.CacheEntries.Set(float64(len(c.entries)))
		return nil, false
	}

	c.order.MoveToFront(el)
	return entry.data, true
}

// Set stores value under key. A non-positive ttl uses the default.
func (c *Local) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	expiresAt := c.now().Add(ttl)
	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*localEntry)
		entry.data = value
		entry.expiresAt = expiresAt
		c.order.MoveToFront(el)
	} else {
		c.entries[key] = c.order.PushFront(&localEntry{key: key, data: value, expiresAt: expiresAt})
		for len(c.entries) > c.maxEntries {
			c.removeLocked(c.order.Back())
		}
	}
	n := len(c.entries)
	c.mu.Unlock()

	metrics.CacheEntries.Set(float64(n))
}

// Delete removes one key.
func (c *Local) Delete(key string) {
	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		c.removeLocked(el)
	}
	n := len(c.entries)
	c.mu.Unlock()
	metrics.CacheEntries.Set(float64(n))
}

// DeletePattern removes every key matching the glob pattern and returns how
// many were removed.
func (c *Local) DeletePattern(pattern string) (int, error) {
	if !validPattern(pattern) {
		return 0, errBadPattern(pattern)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, el := range c.entries {
		ok, err := matchPattern(pattern, key)
		if err != nil {
			return removed, err
		}
		if ok {
			c.removeLocked(el)
			removed++
		}
	}
	metrics.CacheEntries.Set(float64(len(c.entries)))
	return removed, nil
}

// Len returns the number of stored entries, expired or not.
func (c *Local) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (c *Local) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Local) removeLocked(el *list.Element) {
	c.order.Remove(el)
	delete(c.entries, el.Value.(*localEntry).key)
}

func (c *Local) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes all expired entries
func (c *Local) cleanup() {
	now := c.now()
	c.mu.Lock()
	for _, el := range c.entries {
		if now.After(el.Value.(*localEntry).expiresAt) {
			c.removeLocked(el)
		}
	}
	n := len(c.entries)
	c.mu.Unlock()

	metrics.CacheEntries.Set(float64(n))
}
