// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package recommend

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Cache holds precomputed recommendation lists keyed by user id.
//
// The cache is organised in generations. A generation pairs a model version
// with an immutable base mapping built by a recompute cycle and an overlay for
// entries computed on demand against that same version. Publish and
// InvalidateAll replace the whole generation with a single pointer store, so
// readers observe either the old mapping or the new one and never a mix.
// Get never blocks.
//
// There is no per-entry TTL. An entry is valid for exactly as long as its
// generation is current.
type Cache struct {
	current atomic.Pointer[generation]
	now     func() time.Time
}

type generation struct {
	version uint64
	base    map[string]Entry
	overlay sync.Map // string -> Entry
	size    atomic.Int64
}

// NewCache creates an empty cache at model version 0.
func NewCache() *Cache {
	c := &Cache{now: time.Now}
	c.current.Store(newGeneration(0, nil))
	return c
}

func newGeneration(version uint64, base map[string]Entry) *generation {
	if base == nil {
		base = map[string]Entry{}
	}
	g := &generation{version: version, base: base}
	g.size.Store(int64(len(base)))
	return g
}

// Get returns a copy of the entry for userID.
func (c *Cache) Get(userID string) (Entry, bool) {
	g := c.current.Load()
	if e, ok := g.base[userID]; ok {
		return copyEntry(e), true
	}
	if v, ok := g.overlay.Load(userID); ok {
		return copyEntry(v.(Entry)), true
	}
	return Entry{}, false
}

// Put stores an on-demand result. The write is dropped, and Put returns
// false, when modelVersion is not the current generation's version: a list
// scored against a superseded snapshot must not outlive it. Entries written
// by the last Publish are not overwritten.
func (c *Cache) Put(userID string, items []string, modelVersion uint64) bool {
	g := c.current.Load()
	if g.version != modelVersion {
		return false
	}
	if _, ok := g.base[userID]; ok {
		return true
	}
	entry := Entry{
		UserID:       userID,
		Items:        slices.Clone(nonNil(items)),
		GeneratedAt:  c.now(),
		ModelVersion: modelVersion,
	}
	if _, loaded := g.overlay.Swap(userID, entry); !loaded {
		g.size.Add(1)
	}
	return true
}

// Publish atomically replaces the cache contents with entries at version.
// The caller must not modify entries afterwards. Entries whose ModelVersion
// differs from version are stamped with version.
func (c *Cache) Publish(version uint64, entries map[string]Entry) {
	base := make(map[string]Entry, len(entries))
	for userID, e := range entries {
		e.UserID = userID
		e.ModelVersion = version
		e.Items = nonNil(e.Items)
		base[userID] = e
	}
	c.current.Store(newGeneration(version, base))
}

// InvalidateAll drops every entry and moves the cache to newVersion.
func (c *Cache) InvalidateAll(newVersion uint64) {
	c.current.Store(newGeneration(newVersion, nil))
}

// Version returns the model version of the current generation.
func (c *Cache) Version() uint64 {
	return c.current.Load().version
}

// Len returns the number of entries in the current generation.
func (c *Cache) Len() int {
	return int(c.current.Load().size.Load())
}

func copyEntry(e Entry) Entry {
	e.Items = slices.Clone(nonNil(e.Items))
	return e
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
