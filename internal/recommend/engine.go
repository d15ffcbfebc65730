// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package recommend

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Engine is the serving coordinator. It answers Recommend from the Cache,
// scores on demand against the current Snapshot on a miss, and falls back to
// the popularity ranking when personalization is unavailable.
// It is safe for concurrent use.
type Engine struct {
	config  *Config
	logger  zerolog.Logger
	model   Model
	catalog Catalog

	snapshot atomic.Pointer[Snapshot]
	cache    *Cache

	// flight collapses concurrent on-demand scoring of the same user
	// against the same snapshot version into one computation.
	flight singleflight.Group

	requests      atomic.Int64
	cacheHits     atomic.Int64
	staleEntries  atomic.Int64
	computed      atomic.Int64
	fallbacks     atomic.Int64
	scoringErrors atomic.Int64

	now func() time.Time
}

// NewEngine creates a serving engine. catalog is consulted only while no
// snapshot has been published.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, model Model, catalog Catalog, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if model == nil {
		return nil, errors.New("model is required")
	}
	if catalog == nil {
		return nil, errors.New("catalog is required")
	}

	return &Engine{
		config:  cfg.Clone(),
		logger:  logger.With().Str("component", "recommend").Logger(),
		model:   model,
		catalog: catalog,
		cache:   NewCache(),
		now:     time.Now,
	}, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	return e.config.Clone()
}

// Limits returns the serving limits.
func (e *Engine) Limits() LimitsConfig {
	return e.config.Limits
}

// Model returns the model the engine scores with.
func (e *Engine) Model() Model {
	return e.model
}

// Cache returns the engine's recommendation cache.
func (e *Engine) Cache() *Cache {
	return e.cache
}

// Snapshot returns the current snapshot, or nil before the first publish.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Version returns the current model version (0 before the first publish).
func (e *Engine) Version() uint64 {
	if s := e.snapshot.Load(); s != nil {
		return s.Version
	}
	return 0
}

// Publish makes snap current and replaces the cache with entries. The cache
// generation is swapped first: a reader that still sees the previous
// snapshot treats the new entries as stale and recomputes, and its on-demand
// Put is rejected by the newer generation.
func (e *Engine) Publish(snap *Snapshot, entries map[string]Entry) error {
	if snap == nil {
		return errors.New("snapshot is required")
	}
	if cur := e.snapshot.Load(); cur != nil && snap.Version <= cur.Version {
		return fmt.Errorf("snapshot version %d is not newer than current %d", snap.Version, cur.Version)
	}
	if snap.Fallback == nil {
		snap.Fallback = buildFallback(snap.Popular, snap.Catalog)
	}
	e.cache.Publish(snap.Version, entries)
	e.snapshot.Store(snap)
	e.logger.Info().
		Uint64("model_version", snap.Version).
		Str("algorithm", snap.Algorithm).
		Int("users", len(snap.Users)).
		Int("entries", len(entries)).
		Msg("published snapshot")
	return nil
}

// Restore installs a previously persisted snapshot without precomputed
// entries. Lists are then computed on demand against it until the next cycle
// publishes.
func (e *Engine) Restore(snap *Snapshot) error {
	if snap == nil {
		return errors.New("snapshot is required")
	}
	if snap.Fallback == nil {
		snap.Fallback = buildFallback(snap.Popular, snap.Catalog)
	}
	e.cache.InvalidateAll(snap.Version)
	e.snapshot.Store(snap)
	e.logger.Info().
		Uint64("model_version", snap.Version).
		Time("generated_at", snap.GeneratedAt).
		Msg("restored snapshot")
	return nil
}

// Recommend returns up to k product ids for userID. k <= 0 means
// Limits.DefaultK. Personalized scoring stops at Limits.MaxK; the rest of a
// larger k is filled from the fallback ranking.
//
// Scoring failures degrade to the popularity fallback and are never returned.
// The only error for a live context is ErrNoRecommendationsAvailable, when
// the catalog is empty.
func (e *Engine) Recommend(ctx context.Context, userID string, k int) (*Result, error) {
	e.requests.Add(1)
	k = e.config.Limits.ResolveK(k)
	logger := e.logger.With().Str("user_id", userID).Logger()

	snap := e.snapshot.Load()
	if snap == nil {
		return e.fallbackWithoutSnapshot(ctx, userID, k, logger)
	}

	if entry, ok := e.cache.Get(userID); ok {
		if entry.ModelVersion == snap.Version {
			e.cacheHits.Add(1)
			return e.assemble(snap, userID, entry.Items, k, true, entry.GeneratedAt)
		}
		e.staleEntries.Add(1)
		warn := &StaleModelWarning{UserID: userID, EntryVersion: entry.ModelVersion, CurrentVersion: snap.Version}
		logger.Debug().Err(warn).Msg("discarding stale cache entry")
	}

	items, err := e.scoreShared(ctx, snap, userID)
	switch {
	case err == nil:
		e.computed.Add(1)
		e.cache.Put(userID, items, snap.Version)
		return e.assemble(snap, userID, items, k, false, e.now())
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, ErrUnknownUser):
		logger.Debug().Msg("unknown user, serving fallback")
	default:
		e.scoringErrors.Add(1)
		logger.Warn().Err(err).Msg("scoring failed, serving fallback")
	}

	return e.assemble(snap, userID, nil, k, false, snap.GeneratedAt)
}

// scoreShared scores userID to MaxK items. Concurrent calls for the same user
// and snapshot version share one computation. The returned slice is shared
// between callers and must not be modified.
func (e *Engine) scoreShared(ctx context.Context, snap *Snapshot, userID string) ([]string, error) {
	key := userID + "@" + strconv.FormatUint(snap.Version, 10)
	ch := e.flight.DoChan(key, func() (interface{}, error) {
		scored, err := e.model.Score(snap, userID, e.config.Limits.MaxK)
		if err != nil {
			return nil, err
		}
		items := make([]string, 0, len(scored))
		for _, s := range scored {
			items = append(items, s.ProductID)
		}
		return items, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]string), nil
	}
}

// assemble truncates personalized to k, or pads it with fallback items the
// user has not purchased, preserving order and never duplicating.
func (e *Engine) assemble(snap *Snapshot, userID string, personalized []string, k int, cacheHit bool, generatedAt time.Time) (*Result, error) {
	if len(personalized) >= k {
		return &Result{
			UserID:       userID,
			Items:        slices.Clone(personalized[:k]),
			Personalized: k > 0,
			ModelVersion: snap.Version,
			CacheHit:     cacheHit,
			GeneratedAt:  generatedAt,
		}, nil
	}

	size := min(k, len(personalized)+len(snap.Fallback))
	items := make([]string, 0, size)
	seen := make(map[string]struct{}, size)
	for _, id := range personalized {
		items = append(items, id)
		seen[id] = struct{}{}
	}
	profile := snap.Users[userID]
	for _, id := range snap.Fallback {
		if len(items) == k {
			break
		}
		if _, dup := seen[id]; dup || profile.HasPurchased(id) {
			continue
		}
		items = append(items, id)
		seen[id] = struct{}{}
	}

	// A user who has purchased the whole catalog still gets an answer.
	if len(items) == 0 {
		items = append(items, snap.Fallback[:min(k, len(snap.Fallback))]...)
	}
	if len(items) == 0 {
		return nil, ErrNoRecommendationsAvailable
	}
	if len(personalized) == 0 {
		e.fallbacks.Add(1)
	}

	return &Result{
		UserID:       userID,
		Items:        items,
		Personalized: len(personalized) > 0,
		ModelVersion: snap.Version,
		CacheHit:     cacheHit,
		GeneratedAt:  generatedAt,
	}, nil
}

// fallbackWithoutSnapshot serves catalog order before the first publish.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (e *Engine) fallbackWithoutSnapshot(ctx context.Context, userID string, k int, logger zerolog.Logger) (*Result, error) {
	ids, err := e.catalog.ListProductIDs(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Error().Err(err).Msg("catalog unavailable and no snapshot published")
		return nil, fmt.Errorf("%w: %w", ErrNoRecommendationsAvailable, err)
	}
	ids = dedupeSorted(ids)
	if len(ids) == 0 {
		return nil, ErrNoRecommendationsAvailable
	}
	e.fallbacks.Add(1)
	logger.Debug().Err(ErrModelNotReady).Msg("serving catalog fallback")
	return &Result{
		UserID:      userID,
		Items:       ids[:min(k, len(ids))],
		GeneratedAt: e.now(),
	}, nil
}

// Status returns serving statistics.
func (e *Engine) Status() Status {
	st := Status{
		CacheEntries:  e.cache.Len(),
		CacheVersion:  e.cache.Version(),
		Requests:      e.requests.Load(),
		CacheHits:     e.cacheHits.Load(),
		StaleEntries:  e.staleEntries.Load(),
		Computed:      e.computed.Load(),
		Fallbacks:     e.fallbacks.Load(),
		ScoringErrors: e.scoringErrors.Load(),
	}
	if snap := e.snapshot.Load(); snap != nil {
		st.ModelVersion = snap.Version
		st.Algorithm = snap.Algorithm
		st.GeneratedAt = snap.GeneratedAt
		st.Users = len(snap.Users)
		st.Items = len(snap.Affinity)
		st.CatalogSize = len(snap.Catalog)
	}
	return st
}

// buildFallback returns popular followed by the remaining catalog products in
// id order, restricted to the catalog.
func buildFallback(popular []string, catalog map[string]struct{}) []string {
	out := make([]string, 0, len(catalog))
	seen := make(map[string]struct{}, len(popular))
	for _, id := range popular {
		if _, ok := catalog[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range sortedKeys(catalog) {
		if _, dup := seen[id]; !dup {
			out = append(out, id)
		}
	}
	return out
}

// dedupeSorted returns the distinct non-empty ids in ascending order.
func dedupeSorted(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
