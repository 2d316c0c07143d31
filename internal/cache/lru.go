// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

// Package cache provides a thread-safe LRU cache for aggregated statistics.
// Aggregation is pure over the published snapshot, so results are cached
// under a key that includes the snapshot version; publishing a new snapshot
// naturally invalidates stale entries via LRU eviction and TTL.
package cache

import (
	"sync"
	"time"

	"github.com/Ajkll/RoadBook-sub002/internal/stats"
)

// entry is a node in the doubly-linked recency list.
type entry struct {
	key       string
	series    stats.AggregatedSeries
	prev      *entry
	next      *entry
	expiresAt time.Time
}

// StatsCache is an LRU cache for aggregation results with TTL support.
// It uses a doubly-linked list for recency ordering and a map for O(1)
// lookup, with lazy expiration on read.
type StatsCache struct {
	mu sync.RWMutex

	capacity int
	ttl      time.Duration

	items map[string]*entry

	// head.next is the most recently used, tail.prev the least.
	head *entry
	tail *entry

	hits   int64
	misses int64
}

// NewStatsCache creates a cache with the given capacity and TTL.
func NewStatsCache(capacity int, ttl time.Duration) *StatsCache {
	if capacity <= 0 {
		capacity = 64
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	c := &StatsCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*entry, capacity),
		head:     &entry{},
		tail:     &entry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns the cached series for key, moving it to the front of the
// recency list. Expired entries are removed on access.
func (c *StatsCache) Get(key string) (stats.AggregatedSeries, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.misses++
		return stats.AggregatedSeries{}, false
	}
	if time.Now().After(e.expiresAt) {
		c.remove(e)
		c.misses++
		return stats.AggregatedSeries{}, false
	}

	c.moveToFront(e)
	c.hits++
	return e.series, true
}

// Add stores a series under key, evicting the least recently used entry
// when the cache is at capacity.
func (c *StatsCache) Add(key string, series stats.AggregatedSeries) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(c.ttl)

	if e, ok := c.items[key]; ok {
		e.series = series
		e.expiresAt = expiresAt
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, series: series, expiresAt: expiresAt}
	c.addToFront(e)
	c.items[key] = e

	for len(c.items) > c.capacity {
		c.evictOldest()
	}
}

// Len returns the current number of entries.
func (c *StatsCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Clear drops all entries.
func (c *StatsCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*entry, c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
}

// Stats returns hit/miss counters and the current size.
func (c *StatsCache) Stats() (hits, misses int64, size int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses, len(c.items)
}

// List manipulation below requires the write lock.

func (c *StatsCache) addToFront(e *entry) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *StatsCache) moveToFront(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	c.addToFront(e)
}

func (c *StatsCache) remove(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(c.items, e.key)
}

func (c *StatsCache) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.remove(oldest)
}
