// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/basket/internal/recommend"
)

// Compile-time interface checks.
var (
	_ recommend.EventStore = (*MemoryStore)(nil)
	_ recommend.Catalog    = (*MemoryStore)(nil)
)

// MemoryStore is an in-process EventStore and Catalog. It has the same
// dedup and ordering behavior as DB.
type MemoryStore struct {
	mu       sync.RWMutex
	events   []recommend.Event
	ids      map[string]struct{}
	products map[string]bool
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ids:      make(map[string]struct{}),
		products: make(map[string]bool),
	}
}

// Append adds one event under a new random id.
func (s *MemoryStore) Append(ctx context.Context, e recommend.Event) error {
	_, err := s.AppendRecord(ctx, Record{ID: uuid.NewString(), Source: "api", Event: e})
	return err
}

// AppendRecord adds one event; a duplicate id is a no-op reported as false.
func (s *MemoryStore) AppendRecord(ctx context.Context, rec Record) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := validateRecord(&rec); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(&rec), nil
}

// AppendBatch appends recs atomically and returns how many were new.
func (s *MemoryStore) AppendBatch(ctx context.Context, recs []Record) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	for i := range recs {
		if err := validateRecord(&recs[i]); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for i := range recs {
		if s.appendLocked(&recs[i]) {
			inserted++
		}
	}
	return inserted, nil
}

func (s *MemoryStore) appendLocked(rec *Record) bool {
	if _, dup := s.ids[rec.ID]; dup {
		return false
	}
	s.ids[rec.ID] = struct{}{}
	e := rec.Event
	e.Timestamp = e.Timestamp.UTC()
	s.events = append(s.events, e)
	return true
}

// ListEvents returns events with Timestamp >= since, oldest first.
func (s *MemoryStore) ListEvents(ctx context.Context, since time.Time) ([]recommend.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]recommend.Event, 0, len(s.events))
	for _, e := range s.events {
		if since.IsZero() || !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		return a.ProductID < b.ProductID
	})
	return out, nil
}

// UpsertProducts inserts or updates products.
func (s *MemoryStore) UpsertProducts(ctx context.Context, products []Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for i, p := range products {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("product %d: %w", i, ErrEmptyID)
		}
	}
	s.mu.Lock()
	for _, p := range products {
		s.products[strings.TrimSpace(p.ID)] = p.Sellable
	}
	s.mu.Unlock()
	return nil
}

// SetSellable marks one product sellable or not, creating it if needed.
func (s *MemoryStore) SetSellable(ctx context.Context, productID string, sellable bool) error {
	return s.UpsertProducts(ctx, []Product{{ID: productID, Sellable: sellable}})
}

// ListProductIDs returns every sellable product id in ascending order.
func (s *MemoryStore) ListProductIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	ids := make([]string, 0, len(s.products))
	for id, sellable := range s.products {
		if sellable {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids, nil
}

// Exists reports whether productID is in the catalog and sellable.
func (s *MemoryStore) Exists(ctx context.Context, productID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.products[productID], nil
}

// GetRecordCounts mirrors DB.GetRecordCounts.
func (s *MemoryStore) GetRecordCounts(ctx context.Context) (Counts, error) {
	if err := ctx.Err(); err != nil {
		return Counts{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make(map[string]struct{})
	for _, e := range s.events {
		users[e.UserID] = struct{}{}
	}
	c := Counts{
		Events:   int64(len(s.events)),
		Users:    int64(len(users)),
		Products: int64(len(s.products)),
	}
	for _, sellable := range s.products {
		if sellable {
			c.Sellable++
		}
	}
	return c, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
