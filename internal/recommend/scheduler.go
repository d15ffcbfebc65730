// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// CycleHook is called after every cycle attempt with its result or error.
// It runs on the scheduler goroutine and must not block.
type CycleHook func(res *CycleResult, err error)

// Scheduler runs recompute cycles: Idle -> Extracting -> Training ->
// Publishing -> Idle. At most one cycle runs at a time. A failure or
// cancellation before Publishing leaves the engine's snapshot and cache
// untouched.
type Scheduler struct {
	engine  *Engine
	events  EventStore
	catalog Catalog
	store   SnapshotStore
	config  ScheduleConfig
	signals SignalConfig
	logger  zerolog.Logger
	hook    CycleHook

	// pending holds at most one queued trigger.
	pending chan struct{}
	runMu   sync.Mutex
	limiter *rate.Limiter

	state     atomic.Int32
	cycles    atomic.Int64
	failures  atomic.Int64
	lastCycle atomic.Pointer[CycleResult]
	lastError atomic.Pointer[string]
	lastRunAt atomic.Pointer[time.Time]

	now     func() time.Time
	newID   func() string
	running atomic.Bool
}

// SchedulerOption configures optional Scheduler collaborators.
type SchedulerOption func(*Scheduler)

// WithSnapshotStore persists every published snapshot.
func WithSnapshotStore(store SnapshotStore) SchedulerOption {
	return func(s *Scheduler) { s.store = store }
}

// WithCycleHook registers a callback invoked after every cycle attempt.
func WithCycleHook(hook CycleHook) SchedulerOption {
	return func(s *Scheduler) { s.hook = hook }
}

// WithCycleIDs sets the function that names cycles in logs.
func WithCycleIDs(fn func() string) SchedulerOption {
	return func(s *Scheduler) { s.newID = fn }
}

// NewScheduler creates a scheduler that publishes into engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewScheduler(engine *Engine, events EventStore, catalog Catalog, logger zerolog.Logger, opts ...SchedulerOption) (*Scheduler, error) {
	if engine == nil {
		return nil, errors.New("engine is required")
	}
	if events == nil {
		return nil, errors.New("event store is required")
	}
	if catalog == nil {
		return nil, errors.New("catalog is required")
	}

	cfg := engine.config
	limit := rate.Inf
	if cfg.Schedule.MinInterval > 0 {
		limit = rate.Every(cfg.Schedule.MinInterval)
	}

	var seq atomic.Uint64
	s := &Scheduler{
		engine:  engine,
		events:  events,
		catalog: catalog,
		config:  cfg.Schedule,
		signals: cfg.Signals,
		logger:  logger.With().Str("component", "recompute").Logger(),
		pending: make(chan struct{}, 1),
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
		newID: func() string {
			return fmt.Sprintf("cycle-%d", seq.Add(1))
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// State returns the current state machine state.
func (s *Scheduler) State() SchedulerState {
	return SchedulerState(s.state.Load())
}

// Trigger requests a cycle without blocking. Triggers received while a cycle
// is queued are coalesced into that one; Trigger returns false when it was
// coalesced.
func (s *Scheduler) Trigger() bool {
	select {
	case s.pending <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run drives cycles from the ticker and from Trigger until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("scheduler already running")
	}
	defer s.running.Store(false)

	if s.config.RunOnStartup {
		s.Trigger()
	}

	var tick <-chan time.Time
	if s.config.Interval > 0 {
		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	s.logger.Info().
		Dur("interval", s.config.Interval).
		Dur("min_interval", s.config.MinInterval).
		Dur("window", s.config.Window).
		Msg("recompute scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("recompute scheduler stopped")
			return ctx.Err()
		case <-tick:
			s.runScheduled(ctx)
		case <-s.pending:
			s.runScheduled(ctx)
		}
	}
}

func (s *Scheduler) runScheduled(ctx context.Context) {
	if err := s.limiter.Wait(ctx); err != nil {
		return
	}
	_, err := s.RunOnce(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case errors.Is(err, ErrInsufficientData):
		s.logger.Warn().Msg("no usable events, keeping previous snapshot")
	case errors.Is(err, ErrRecomputeInProgress):
		s.logger.Debug().Msg("cycle already running, skipped")
	default:
		s.logger.Error().Err(err).Msg("recompute cycle failed, keeping previous snapshot")
	}
}

// RunOnce runs one full cycle synchronously. It returns
// ErrRecomputeInProgress if another cycle is running.
func (s *Scheduler) RunOnce(ctx context.Context) (*CycleResult, error) {
	if !s.runMu.TryLock() {
		return nil, ErrRecomputeInProgress
	}
	defer s.runMu.Unlock()
	defer s.state.Store(int32(StateIdle))

	res, err := s.cycle(ctx)
	finishedAt := s.now()
	s.lastRunAt.Store(&finishedAt)
	if err != nil {
		s.failures.Add(1)
		msg := err.Error()
		s.lastError.Store(&msg)
	} else {
		s.cycles.Add(1)
		s.lastCycle.Store(res)
		s.lastError.Store(nil)
	}
	if s.hook != nil {
		s.hook(res, err)
	}
	return res, err
}

func (s *Scheduler) cycle(ctx context.Context) (*CycleResult, error) {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	res := &CycleResult{ID: s.newID(), StartedAt: s.now()}
	logger := s.logger.With().Str("cycle_id", res.ID).Logger()
	logger.Info().Msg("recompute cycle started")

	// Extracting
	s.state.Store(int32(StateExtracting))
	stageStart := s.now()
	asOf := res.StartedAt
	var since time.Time
	if s.config.Window > 0 {
		since = asOf.Add(-s.config.Window)
	}
	events, err := s.events.ListEvents(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	productIDs, err := s.catalog.ListProductIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	catalog := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		if id != "" {
			catalog[id] = struct{}{}
		}
	}
	res.Events = len(events)
	res.ExtractDuration = s.now().Sub(stageStart)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Training
	s.state.Store(int32(StateTraining))
	stageStart = s.now()
	matrix, err := Extract(events, asOf, s.signals)
	if err != nil {
		return nil, err
	}
	snap, err := s.engine.model.Train(ctx, matrix, catalog)
	if err != nil {
		return nil, fmt.Errorf("train %s: %w", s.engine.model.Name(), err)
	}
	res.TrainDuration = s.now().Sub(stageStart)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Publishing
	s.state.Store(int32(StatePublishing))
	stageStart = s.now()
	snap.Version = max(s.engine.Version(), s.engine.cache.Version()) + 1
	snap.GeneratedAt = s.now()
	snap.AsOf = asOf
	snap.Algorithm = s.engine.model.Name()
	snap.Fallback = buildFallback(snap.Popular, snap.Catalog)

	entries, err := s.buildEntries(ctx, snap)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Publish(snap, entries); err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	res.PublishDuration = s.now().Sub(stageStart)

	res.Version = snap.Version
	res.Algorithm = snap.Algorithm
	res.Users = len(snap.Users)
	res.Items = len(snap.Affinity)
	res.Entries = len(entries)
	res.Duration = s.now().Sub(res.StartedAt)

	logger.Info().
		Uint64("model_version", res.Version).
		Int("events", res.Events).
		Int("users", res.Users).
		Int("items", res.Items).
		Dur("duration", res.Duration).
		Msg("recompute cycle published")

	// Persistence happens after the swap and never undoes it.
	if s.store != nil {
		if err := s.store.Save(context.WithoutCancel(ctx), snap); err != nil {
			logger.Warn().Err(err).Uint64("model_version", snap.Version).Msg("failed to persist snapshot")
		}
	}
	return res, nil
}

// buildEntries scores every user in snap. Cancellation is checked between
// users so an aborted cycle publishes nothing.
func (s *Scheduler) buildEntries(ctx context.Context, snap *Snapshot) (map[string]Entry, error) {
	maxK := s.engine.config.Limits.MaxK
	entries := make(map[string]Entry, len(snap.Users))
	for _, userID := range sortedKeys(snap.Users) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scored, err := s.engine.model.Score(snap, userID, maxK)
		if err != nil {
			s.logger.Debug().Err(err).Str("user_id", userID).Msg("skipping user during cache rebuild")
			continue
		}
		items := make([]string, 0, len(scored))
		for _, sc := range scored {
			items = append(items, sc.ProductID)
		}
		entries[userID] = Entry{
			UserID:       userID,
			Items:        items,
			GeneratedAt:  snap.GeneratedAt,
			ModelVersion: snap.Version,
		}
	}
	return entries, nil
}

// Status returns a summary of scheduler activity.
func (s *Scheduler) Status() SchedulerStatus {
	st := SchedulerStatus{
		State:     s.State().String(),
		Pending:   len(s.pending) > 0,
		Cycles:    s.cycles.Load(),
		Failures:  s.failures.Load(),
		LastCycle: s.lastCycle.Load(),
	}
	if msg := s.lastError.Load(); msg != nil {
		st.LastError = *msg
	}
	if t := s.lastRunAt.Load(); t != nil {
		st.LastRunAt = *t
	}
	return st
}
