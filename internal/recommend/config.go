// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package recommend

import (
	"fmt"
	"time"
)

// Normalization names accepted by ModelConfig.Normalization.
const (
	NormalizationCosine  = "cosine"
	NormalizationJaccard = "jaccard"
)

// Algorithm names accepted by ModelConfig.Algorithm.
const (
	AlgorithmItemCF   = "itemcf"
	AlgorithmSequence = "sequence"
)

// Config contains all configuration for the recommendation engine.
type Config struct {
	// Signals controls how events become interaction weights.
	Signals SignalConfig `json:"signals"`

	// Model contains the item-to-item model parameters.
	Model ModelConfig `json:"model"`

	// Schedule controls the recompute cadence.
	Schedule ScheduleConfig `json:"schedule"`

	// Limits contains serving limits.
	Limits LimitsConfig `json:"limits"`
}

// SignalConfig controls signal extraction.
type SignalConfig struct {
	// Weights is the base weight per event type. Remove is negative.
	// Default: view 1, cart_add 3, purchase 5, remove -2.
	Weights map[EventType]float64 `json:"weights"`

	// HalfLife is the age at which an event contributes half its base weight.
	// Zero or negative disables decay.
	// Default: 336h (14 days).
	HalfLife time.Duration `json:"half_life"`
}

// ModelConfig contains item-to-item model parameters.
type ModelConfig struct {
	// Algorithm is "itemcf" (symmetric co-occurrence) or "sequence"
	// (asymmetric, ordered by first interaction).
	// Default: itemcf.
	Algorithm string `json:"algorithm"`

	// Normalization is "cosine" or "jaccard".
	// Default: cosine.
	Normalization string `json:"normalization"`

	// NeighborsPerItem caps each product's affinity list.
	// Default: 50.
	NeighborsPerItem int `json:"neighbors_per_item"`

	// MaxItemsPerUser caps how many of a user's items feed co-occurrence.
	// The highest-weighted items are kept.
	// Default: 200.
	MaxItemsPerUser int `json:"max_items_per_user"`
}

// ScheduleConfig controls the Scheduler.
type ScheduleConfig struct {
	// Interval between scheduled cycles. Zero disables the ticker, leaving
	// only manual triggers.
	// Default: 1h.
	Interval time.Duration `json:"interval"`

	// MinInterval is the minimum spacing between two cycle starts.
	// Default: 30s.
	MinInterval time.Duration `json:"min_interval"`

	// Window limits extraction to events newer than now-Window. Zero reads
	// the whole log.
	// Default: 0.
	Window time.Duration `json:"window"`

	// RunOnStartup queues a cycle as soon as Run starts.
	// Default: true.
	RunOnStartup bool `json:"run_on_startup"`

	// Timeout bounds one cycle.
	// Default: 10m.
	Timeout time.Duration `json:"timeout"`
}

// LimitsConfig contains serving limits.
type LimitsConfig struct {
	// DefaultK is used when the caller passes k <= 0.
	// Default: 10.
	DefaultK int `json:"default_k"`

	// MaxK is the scoring depth: the list length precomputed per user and
	// scored on demand. Requests above it are padded from the fallback.
	// Default: 100.
	MaxK int `json:"max_k"`
}

// DefaultWeights returns the default base weight per event type.
func DefaultWeights() map[EventType]float64 {
	return map[EventType]float64{
		EventView:     1,
		EventCartAdd:  3,
		EventPurchase: 5,
		EventRemove:   -2,
	}
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		Signals: SignalConfig{
			Weights:  DefaultWeights(),
			HalfLife: 14 * 24 * time.Hour,
		},
		Model: ModelConfig{
			Algorithm:        AlgorithmItemCF,
			Normalization:    NormalizationCosine,
			NeighborsPerItem: 50,
			MaxItemsPerUser:  200,
		},
		Schedule: ScheduleConfig{
			Interval:     time.Hour,
			MinInterval:  30 * time.Second,
			Window:       0,
			RunOnStartup: true,
			Timeout:      10 * time.Minute,
		},
		Limits: LimitsConfig{
			DefaultK: 10,
			MaxK:     100,
		},
	}
}

// Validate checks the configuration for errors.
//
//nolint:gocyclo // validation needs to check many fields
func (c *Config) Validate() error {
	for _, t := range EventTypes {
		if _, ok := c.Signals.Weights[t]; !ok {
			return fmt.Errorf("signals.weights missing %q", t)
		}
	}
	for t, w := range c.Signals.Weights {
		if !t.Valid() {
			return fmt.Errorf("signals.weights has unknown event type %q", t)
		}
		if t != EventRemove && w <= 0 {
			return fmt.Errorf("signals.weights[%s] must be positive, got %f", t, w)
		}
	}
	w := c.Signals.Weights
	if !(w[EventPurchase] > w[EventCartAdd] && w[EventCartAdd] > w[EventView]) {
		return fmt.Errorf("signals.weights must satisfy purchase > cart_add > view, got %v > %v > %v",
			w[EventPurchase], w[EventCartAdd], w[EventView])
	}
	if w[EventRemove] > 0 {
		return fmt.Errorf("signals.weights[remove] must not be positive, got %f", w[EventRemove])
	}

	switch c.Model.Algorithm {
	case AlgorithmItemCF, AlgorithmSequence:
	default:
		return fmt.Errorf("model.algorithm must be %q or %q, got %q", AlgorithmItemCF, AlgorithmSequence, c.Model.Algorithm)
	}
	switch c.Model.Normalization {
	case NormalizationCosine, NormalizationJaccard:
	default:
		return fmt.Errorf("model.normalization must be %q or %q, got %q", NormalizationCosine, NormalizationJaccard, c.Model.Normalization)
	}
	if c.Model.NeighborsPerItem < 1 {
		return fmt.Errorf("model.neighbors_per_item must be positive, got %d", c.Model.NeighborsPerItem)
	}
	if c.Model.MaxItemsPerUser < 1 {
		return fmt.Errorf("model.max_items_per_user must be positive, got %d", c.Model.MaxItemsPerUser)
	}

	if c.Schedule.Interval < 0 {
		return fmt.Errorf("schedule.interval must be non-negative, got %v", c.Schedule.Interval)
	}
	if c.Schedule.MinInterval < 0 {
		return fmt.Errorf("schedule.min_interval must be non-negative, got %v", c.Schedule.MinInterval)
	}
	if c.Schedule.Window < 0 {
		return fmt.Errorf("schedule.window must be non-negative, got %v", c.Schedule.Window)
	}
	if c.Schedule.Timeout <= 0 {
		return fmt.Errorf("schedule.timeout must be positive, got %v", c.Schedule.Timeout)
	}

	if c.Limits.DefaultK < 1 {
		return fmt.Errorf("limits.default_k must be positive, got %d", c.Limits.DefaultK)
	}
	if c.Limits.MaxK < c.Limits.DefaultK {
		return fmt.Errorf("limits.max_k must be >= limits.default_k, got %d < %d", c.Limits.MaxK, c.Limits.DefaultK)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Signals.Weights = make(map[EventType]float64, len(c.Signals.Weights))
	for t, w := range c.Signals.Weights {
		clone.Signals.Weights[t] = w
	}
	return &clone
}

// ResolveK substitutes DefaultK for a missing or non-positive k. Upper
// bounds are enforced by callers; the engine never truncates below k.
func (l LimitsConfig) ResolveK(k int) int {
	if k <= 0 {
		return l.DefaultK
	}
	return k
}
