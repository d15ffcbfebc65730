// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package recommend

import (
	"fmt"
	"strconv"
	"sync"
	"testing"
)

func TestCache_Empty(t *testing.T) {
	t.Parallel()

	c := NewCache()
	if _, ok := c.Get("u1"); ok {
		t.Error("Get on empty cache returned an entry")
	}
	if c.Version() != 0 || c.Len() != 0 {
		t.Errorf("Version=%d Len=%d, want 0/0", c.Version(), c.Len())
	}
}

func TestCache_PublishStampsVersion(t *testing.T) {
	t.Parallel()

	c := NewCache()
	c.Publish(3, map[string]Entry{
		"u1": {Items: []string{"p1", "p2"}, ModelVersion: 1},
		"u2": {},
	})

	e, ok := c.Get("u1")
	if !ok {
		t.Fatal("u1 missing after Publish")
	}
	if e.ModelVersion != 3 || e.UserID != "u1" {
		t.Errorf("entry = %+v, want version 3 for u1", e)
	}
	empty, ok := c.Get("u2")
	if !ok || empty.Items == nil || len(empty.Items) != 0 {
		t.Errorf("u2 = %+v, %v; want present with empty non-nil items", empty, ok)
	}
	if c.Version() != 3 || c.Len() != 2 {
		t.Errorf("Version=%d Len=%d, want 3/2", c.Version(), c.Len())
	}
}

func TestCache_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	c := NewCache()
	c.Publish(1, map[string]Entry{"u1": {Items: []string{"p1"}}})
	e, _ := c.Get("u1")
	e.Items[0] = "mutated"

	again, _ := c.Get("u1")
	if again.Items[0] != "p1" {
		t.Errorf("cache entry modified through Get result: %v", again.Items)
	}
}

func TestCache_PutVersionGate(t *testing.T) {
	t.Parallel()

	c := NewCache()
	c.Publish(2, map[string]Entry{"u1": {Items: []string{"p1"}}})

	if c.Put("u2", []string{"p9"}, 1) {
		t.Error("Put with superseded version accepted")
	}
	if _, ok := c.Get("u2"); ok {
		t.Error("rejected Put is visible")
	}

	items := []string{"p3"}
	if !c.Put("u2", items, 2) {
		t.Fatal("Put with current version rejected")
	}
	items[0] = "mutated"
	e, ok := c.Get("u2")
	if !ok || e.Items[0] != "p3" || e.ModelVersion != 2 {
		t.Errorf("u2 = %+v, %v", e, ok)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}

	// A published entry is authoritative for its generation.
	c.Put("u1", []string{"other"}, 2)
	if e, _ := c.Get("u1"); e.Items[0] != "p1" {
		t.Errorf("Put overwrote published entry: %v", e.Items)
	}
}

func TestCache_InvalidateAll(t *testing.T) {
	t.Parallel()

	c := NewCache()
	c.Publish(1, map[string]Entry{"u1": {Items: []string{"p1"}}})
	c.Put("u2", []string{"p2"}, 1)

	c.InvalidateAll(5)
	if _, ok := c.Get("u1"); ok {
		t.Error("published entry survived InvalidateAll")
	}
	if _, ok := c.Get("u2"); ok {
		t.Error("on-demand entry survived InvalidateAll")
	}
	if c.Version() != 5 || c.Len() != 0 {
		t.Errorf("Version=%d Len=%d, want 5/0", c.Version(), c.Len())
	}
	if c.Put("u2", []string{"p2"}, 1) {
		t.Error("Put at old version accepted after InvalidateAll")
	}
}

// Readers racing a series of publishes must only ever see entries that
// belong together: every item of an entry names the version it was
// published with.
func TestCache_PublishIsAtomic(t *testing.T) {
	t.Parallel()

	const users = 50
	build := func(version uint64) map[string]Entry {
		entries := make(map[string]Entry, users)
		tag := strconv.FormatUint(version, 10)
		for i := 0; i < users; i++ {
			entries[fmt.Sprintf("u%d", i)] = Entry{Items: []string{tag, tag}}
		}
		return entries
	}

	c := NewCache()
	c.Publish(1, build(1))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan string, 8)
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				e, ok := c.Get(fmt.Sprintf("u%d", (i+r)%users))
				if !ok {
					errs <- "entry missing during publish"
					return
				}
				tag := strconv.FormatUint(e.ModelVersion, 10)
				if e.Items[0] != tag || e.Items[1] != tag {
					errs <- fmt.Sprintf("entry %v mixes generations (version %d)", e.Items, e.ModelVersion)
					return
				}
			}
		}(r)
	}

	for v := uint64(2); v <= 200; v++ {
		c.Publish(v, build(v))
	}
	close(stop)
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Error(msg)
	}
}
