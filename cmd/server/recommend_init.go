// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/basket/internal/config"
	"github.com/tomtom215/basket/internal/logging"
	"github.com/tomtom215/basket/internal/metrics"
	"github.com/tomtom215/basket/internal/recommend"
	"github.com/tomtom215/basket/internal/recommend/algorithms"
	"github.com/tomtom215/basket/internal/recommend/storage"
)

// RecommendComponents holds the serving engine and its recompute scheduler.
type RecommendComponents struct {
	Engine    *recommend.Engine
	Scheduler *recommend.Scheduler
	Snapshots *storage.Store // nil when RECOMMEND_SNAPSHOT_DIR is empty
}

// Close releases the snapshot store.
func (c *RecommendComponents) Close() error {
	if c == nil || c.Snapshots == nil {
		return nil
	}
	return c.Snapshots.Close()
}

// initRecommend builds the engine over catalog, restores the latest
// persisted snapshot, and creates the scheduler reading events.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func initRecommend(ctx context.Context, cfg *config.Config, events recommend.EventStore, catalog recommend.Catalog, logger zerolog.Logger) (*RecommendComponents, error) {
	engineCfg := cfg.Recommend.EngineConfig()

	model, err := algorithms.New(engineCfg.Model)
	if err != nil {
		return nil, fmt.Errorf("create model: %w", err)
	}

	engine, err := recommend.NewEngine(engineCfg, model, catalog, logger)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	comps := &RecommendComponents{Engine: engine}

	opts := []recommend.SchedulerOption{
		recommend.WithCycleHook(recordCycle(engine)),
		recommend.WithCycleIDs(logging.GenerateCycleID),
	}

	if cfg.Recommend.SnapshotDir != "" {
		snapshots, err := storage.Open(cfg.Recommend.SnapshotDir, cfg.Recommend.SnapshotKeep)
		if err != nil {
			return nil, err
		}
		comps.Snapshots = snapshots
		opts = append(opts, recommend.WithSnapshotStore(snapshots))

		if err := restoreSnapshot(ctx, engine, snapshots, logger); err != nil {
			_ = snapshots.Close()
			return nil, err
		}
	} else {
		logger.Info().Msg("snapshot persistence disabled (RECOMMEND_SNAPSHOT_DIR is empty)")
	}

	scheduler, err := recommend.NewScheduler(engine, events, catalog, logger, opts...)
	if err != nil {
		_ = comps.Close()
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	comps.Scheduler = scheduler

	logger.Info().
		Str("algorithm", model.Name()).
		Str("normalization", engineCfg.Model.Normalization).
		Dur("half_life", engineCfg.Signals.HalfLife).
		Dur("interval", engineCfg.Schedule.Interval).
		Uint64("model_version", engine.Version()).
		Msg("recommendation engine initialized")

	return comps, nil
}

// restoreSnapshot loads the latest persisted snapshot into engine. A missing
// snapshot is not an error; the engine serves the catalog fallback until the
// first cycle publishes.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func restoreSnapshot(ctx context.Context, engine *recommend.Engine, snapshots recommend.SnapshotStore, logger zerolog.Logger) error {
	snap, err := snapshots.Load(ctx)
	if err != nil {
		return fmt.Errorf("load persisted snapshot: %w", err)
	}
	if snap == nil {
		logger.Info().Msg("no persisted snapshot, serving catalog fallback until the first cycle")
		return nil
	}
	if err := engine.Restore(snap); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	metrics.SetServingState(engine.Version(), engine.Cache().Len())
	return nil
}

// recordCycle exports every cycle attempt to Prometheus.
func recordCycle(engine *recommend.Engine) recommend.CycleHook {
	return func(res *recommend.CycleResult, err error) {
		switch {
		case err == nil && res != nil:
			metrics.RecordCycle("published", metrics.CycleTimings{
				Extract: res.ExtractDuration,
				Train:   res.TrainDuration,
				Publish: res.PublishDuration,
				Total:   res.Duration,
			}, res.Users)
		case errors.Is(err, recommend.ErrInsufficientData):
			metrics.RecordCycle("insufficient_data", metrics.CycleTimings{}, 0)
		case errors.Is(err, recommend.ErrRecomputeInProgress):
			metrics.RecordCycle("busy", metrics.CycleTimings{}, 0)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			metrics.RecordCycle("cancelled", metrics.CycleTimings{}, 0)
		default:
			metrics.RecordCycle("failed", metrics.CycleTimings{}, 0)
		}
		metrics.SetServingState(engine.Version(), engine.Cache().Len())
	}
}

// servingSampler refreshes the gauges that change between cycles: uptime,
// cache size and the stale entry counter.
func servingSampler(engine *recommend.Engine, start time.Time) func(ctx context.Context) {
	var lastStale int64
	return func(context.Context) {
		metrics.UpdateUptime(start)
		st := engine.Status()
		metrics.SetServingState(st.ModelVersion, st.CacheEntries)
		metrics.RecordStaleEntries(st.StaleEntries - lastStale)
		lastStale = st.StaleEntries
	}
}
