// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianRisk/services/riskengine"
)

// DefaultMaxEntries bounds a MemoryCache.
const DefaultMaxEntries = 1024

type memoryEntry struct {
	key       string
	value     *riskengine.RiskAssessment
	expiresAt time.Time
	elem      *list.Element
}

// MemoryCache is an in-process TTL cache with LRU eviction.
//
// # Thread Safety
//
// Safe for concurrent use.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]*memoryEntry
	lru        *list.List
	maxEntries int
	now        func() time.Time

	hits      int64
	misses    int64
	evictions int64
}

// MemoryStats is a point-in-time snapshot of cache counters.
type MemoryStats struct {
	Entries   int
	Hits      int64
	Misses    int64
	Evictions int64
}

// NewMemoryCache creates a cache holding at most maxEntries live entries.
// Zero or negative means DefaultMaxEntries.
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryCache{
		entries:    make(map[string]*memoryEntry),
		lru:        list.New(),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns a copy of the live entry for key.
func (c *MemoryCache) Get(_ context.Context, key string) (*riskengine.RiskAssessment, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		c.removeLocked(e)
		c.misses++
		return nil, false, nil
	}

	c.lru.MoveToFront(e.elem)
	c.hits++
	return e.value.Clone(), true, nil
}

// Add stores a copy of a under key unless a live entry already exists.
// A non-positive ttl is a no-op.
func (c *MemoryCache) Add(_ context.Context, key string, a *riskengine.RiskAssessment, ttl time.Duration) error {
	if a == nil || ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.entries[key]; ok {
		if now.Before(e.expiresAt) {
			return nil
		}
		c.removeLocked(e)
	}

	e := &memoryEntry{key: key, value: a.Clone(), expiresAt: now.Add(ttl)}
	e.elem = c.lru.PushFront(e)
	c.entries[key] = e

	for len(c.entries) > c.maxEntries {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest.Value.(*memoryEntry))
		c.evictions++
	}
	return nil
}

// Stats returns current counters.
func (c *MemoryCache) Stats() MemoryStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return MemoryStats{
		Entries:   len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

func (c *MemoryCache) removeLocked(e *memoryEntry) {
	c.lru.Remove(e.elem)
	delete(c.entries, e.key)
}
