// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/basket/internal/metrics"
	"github.com/tomtom215/basket/internal/recommend"
)

// Store is the full storage surface shared by DB and MemoryStore.
type Store interface {
	recommend.EventStore
	recommend.Catalog

	AppendRecord(ctx context.Context, rec Record) (bool, error)
	AppendBatch(ctx context.Context, recs []Record) (int, error)
	UpsertProducts(ctx context.Context, products []Product) error
	SetSellable(ctx context.Context, productID string, sellable bool) error
	GetRecordCounts(ctx context.Context) (Counts, error)
	Ping(ctx context.Context) error
	Close() error
}

// Compile-time interface checks.
var (
	_ Store = (*DB)(nil)
	_ Store = (*MemoryStore)(nil)
	_ Store = (*BreakerStore)(nil)
)

// BreakerSettings configures a BreakerStore.
type BreakerSettings struct {
	// Name labels metrics and logs.
	Name string

	// ConsecutiveFailures opens the circuit.
	ConsecutiveFailures uint32

	// Timeout is how long the circuit stays open before a probe.
	Timeout time.Duration

	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32
}

// DefaultBreakerSettings returns the settings used when none are configured.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:                "duckdb",
		ConsecutiveFailures: 5,
		Timeout:             30 * time.Second,
		MaxRequests:         1,
	}
}

// BreakerStore wraps a Store with a circuit breaker so that a failing
// database fails fast. Recommend keeps serving from its snapshot and cache
// while the circuit is open; the Scheduler fails its cycle and keeps the
// last-known-good snapshot.
//
// Caller errors (invalid events, cancelled contexts) do not count as failures.
type BreakerStore struct {
	store  Store
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
	logger zerolog.Logger
}

// NewBreakerStore wraps store.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewBreakerStore(store Store, settings BreakerSettings, logger zerolog.Logger) *BreakerStore {
	defaults := DefaultBreakerSettings()
	if settings.Name == "" {
		settings.Name = defaults.Name
	}
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = defaults.ConsecutiveFailures
	}
	if settings.Timeout <= 0 {
		settings.Timeout = defaults.Timeout
	}
	if settings.MaxRequests == 0 {
		settings.MaxRequests = defaults.MaxRequests
	}

	bs := &BreakerStore{
		store:  store,
		name:   settings.Name,
		logger: logger.With().Str("component", "store-breaker").Str("breaker", settings.Name).Logger(),
	}

	// Initialize circuit breaker state metrics
	metrics.CircuitBreakerState.WithLabelValues(settings.Name).Set(0) // 0 = closed
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(settings.Name).Set(0)

	threshold := settings.ConsecutiveFailures
	bs.cb = gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.MaxRequests,
		Interval:    time.Minute, // Reset counts after 1 minute in closed state
		Timeout:     settings.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			shouldTrip := counts.ConsecutiveFailures >= threshold
			if shouldTrip {
				bs.logger.Warn().Uint32("consecutive_failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		IsSuccessful: isStoreSuccess,

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			bs.logger.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})
	return bs
}

// isStoreSuccess classifies errors that say nothing about store health as
// successes so they cannot open the circuit.
func isStoreSuccess(err error) bool {
	return err == nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, recommend.ErrInvalidEvent) ||
		errors.Is(err, ErrEmptyID)
}

// State returns the breaker state: "closed", "half-open" or "open".
func (bs *BreakerStore) State() string {
	return stateToString(bs.cb.State())
}

// Unwrap returns the wrapped store.
func (bs *BreakerStore) Unwrap() Store {
	return bs.store
}

// execute wraps a store call with circuit breaker protection
func (bs *BreakerStore) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := bs.cb.Execute(fn)

	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
			metrics.CircuitBreakerRequests.WithLabelValues(bs.name, "rejected").Inc()
			return nil, fmt.Errorf("store %s unavailable: %w", bs.name, err)
		case isStoreSuccess(err):
			metrics.CircuitBreakerRequests.WithLabelValues(bs.name, "success").Inc()
		default:
			metrics.CircuitBreakerRequests.WithLabelValues(bs.name, "failure").Inc()
			counts := bs.cb.Counts()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(bs.name).Set(float64(counts.ConsecutiveFailures))
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(bs.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(bs.name).Set(0)
	return result, nil
}

// castResult safely type-casts the circuit breaker result with error checking
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// ListEvents reads the log with circuit breaker protection.
func (bs *BreakerStore) ListEvents(ctx context.Context, since time.Time) ([]recommend.Event, error) {
	return castResult[[]recommend.Event](bs.execute(func() (interface{}, error) {
		return bs.store.ListEvents(ctx, since)
	}))
}

// Append appends with circuit breaker protection.
func (bs *BreakerStore) Append(ctx context.Context, e recommend.Event) error {
	_, err := bs.execute(func() (interface{}, error) {
		return nil, bs.store.Append(ctx, e)
	})
	return err
}

// AppendRecord appends with circuit breaker protection.
func (bs *BreakerStore) AppendRecord(ctx context.Context, rec Record) (bool, error) {
	return castResult[bool](bs.execute(func() (interface{}, error) {
		return bs.store.AppendRecord(ctx, rec)
	}))
}

// AppendBatch appends with circuit breaker protection.
func (bs *BreakerStore) AppendBatch(ctx context.Context, recs []Record) (int, error) {
	return castResult[int](bs.execute(func() (interface{}, error) {
		return bs.store.AppendBatch(ctx, recs)
	}))
}

// ListProductIDs lists the catalog with circuit breaker protection.
func (bs *BreakerStore) ListProductIDs(ctx context.Context) ([]string, error) {
	return castResult[[]string](bs.execute(func() (interface{}, error) {
		return bs.store.ListProductIDs(ctx)
	}))
}

// Exists looks up a product with circuit breaker protection.
func (bs *BreakerStore) Exists(ctx context.Context, productID string) (bool, error) {
	return castResult[bool](bs.execute(func() (interface{}, error) {
		return bs.store.Exists(ctx, productID)
	}))
}

// UpsertProducts writes the catalog with circuit breaker protection.
func (bs *BreakerStore) UpsertProducts(ctx context.Context, products []Product) error {
	_, err := bs.execute(func() (interface{}, error) {
		return nil, bs.store.UpsertProducts(ctx, products)
	})
	return err
}

// SetSellable writes one product with circuit breaker protection.
func (bs *BreakerStore) SetSellable(ctx context.Context, productID string, sellable bool) error {
	_, err := bs.execute(func() (interface{}, error) {
		return nil, bs.store.SetSellable(ctx, productID, sellable)
	})
	return err
}

// GetRecordCounts counts rows with circuit breaker protection.
func (bs *BreakerStore) GetRecordCounts(ctx context.Context) (Counts, error) {
	return castResult[Counts](bs.execute(func() (interface{}, error) {
		return bs.store.GetRecordCounts(ctx)
	}))
}

// Ping bypasses the breaker so health checks see the real store state.
func (bs *BreakerStore) Ping(ctx context.Context) error {
	return bs.store.Ping(ctx)
}

// Close closes the wrapped store.
func (bs *BreakerStore) Close() error {
	return bs.store.Close()
}
