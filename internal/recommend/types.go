// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package recommend

import (
	"time"
)

// EventType classifies a storefront interaction.
type EventType string

const (
	// EventView is a product page view.
	EventView EventType = "view"
	// EventCartAdd is an add-to-cart.
	EventCartAdd EventType = "cart_add"
	// EventPurchase is a completed purchase of the product.
	EventPurchase EventType = "purchase"
	// EventRemove is a removal from the cart. Its default weight is negative.
	EventRemove EventType = "remove"
)

// EventTypes lists every valid EventType in ascending weight order.
var EventTypes = []EventType{EventRemove, EventView, EventCartAdd, EventPurchase}

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventView, EventCartAdd, EventPurchase, EventRemove:
		return true
	}
	return false
}

// String returns the wire name of the event type.
func (t EventType) String() string {
	return string(t)
}

// Event is one canonical interaction record. Events are immutable once
// appended to the EventStore.
type Event struct {
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// Weight overrides the per-type default when non-zero.
	Weight float64 `json:"weight,omitempty"`
}

// RawEvent is an event as received from a collaborator before normalization.
// Weight is a pointer so that "absent" and "explicitly zero" can be told apart
// on the wire; an explicit zero is treated as absent.
type RawEvent struct {
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Weight    *float64  `json:"weight,omitempty"`
}

// InteractionMatrix is the output of Extract: a sparse user x product matrix
// of accumulated, time-decayed weights plus per-product popularity.
//
// Every weight stored in Weights is strictly positive.
type InteractionMatrix struct {
	AsOf time.Time

	// Weights maps user -> product -> accumulated weight.
	Weights map[string]map[string]float64

	// Purchased maps user -> set of purchased products.
	Purchased map[string]map[string]struct{}

	// FirstSeen maps user -> product -> earliest interaction time. The
	// sequence model uses it to order a user's items.
	FirstSeen map[string]map[string]time.Time

	// Popularity is the sum of retained weights per product across users.
	Popularity map[string]float64

	// EventCount is the number of events that contributed.
	EventCount int
}

// Users returns the number of users with at least one retained interaction.
func (m *InteractionMatrix) Users() int {
	return len(m.Weights)
}

// Items returns the number of products with at least one retained interaction.
func (m *InteractionMatrix) Items() int {
	return len(m.Popularity)
}

// Neighbor is one entry of a product's affinity list.
type Neighbor struct {
	ProductID string  `json:"product_id"`
	Score     float64 `json:"score"`
}

// Scored is a product with its model score.
type Scored struct {
	ProductID string  `json:"product_id"`
	Score     float64 `json:"score"`
}

// UserProfile is a user's retained interactions inside a Snapshot.
type UserProfile struct {
	Items     map[string]float64
	Purchased map[string]struct{}
}

// HasPurchased reports whether the user purchased productID.
func (p *UserProfile) HasPurchased(productID string) bool {
	if p == nil {
		return false
	}
	_, ok := p.Purchased[productID]
	return ok
}

// Snapshot is the immutable, versioned output of one recompute cycle. A
// Snapshot is never modified after it has been published.
type Snapshot struct {
	Version     uint64
	GeneratedAt time.Time
	AsOf        time.Time
	Algorithm   string

	// Affinity maps product -> ranked neighbors.
	Affinity map[string][]Neighbor

	// Popularity maps product -> summed weight.
	Popularity map[string]float64

	// Popular is the sellable products with non-zero popularity, ranked by
	// popularity desc then product id asc.
	Popular []string

	// Fallback is Popular followed by the remaining sellable products in id
	// order. It is the complete non-personalized ranking.
	Fallback []string

	// Users holds every user with retained interactions.
	Users map[string]*UserProfile

	// Catalog is the set of sellable products at training time.
	Catalog map[string]struct{}
}

// Sellable reports whether productID was in the catalog at training time.
func (s *Snapshot) Sellable(productID string) bool {
	_, ok := s.Catalog[productID]
	return ok
}

// Entry is one precomputed recommendation list held by the Cache. An entry
// with an empty Items slice means "computed, nothing to recommend", which is
// different from no entry at all.
type Entry struct {
	UserID       string    `json:"user_id"`
	Items        []string  `json:"items"`
	GeneratedAt  time.Time `json:"generated_at"`
	ModelVersion uint64    `json:"model_version"`
}

// Result is what Recommend returns.
type Result struct {
	UserID       string    `json:"user_id"`
	Items        []string  `json:"items"`
	Personalized bool      `json:"personalized"`
	ModelVersion uint64    `json:"model_version"`
	CacheHit     bool      `json:"cache_hit"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// Status summarizes the serving side of the engine.
type Status struct {
	ModelVersion  uint64    `json:"model_version"`
	Algorithm     string    `json:"algorithm,omitempty"`
	GeneratedAt   time.Time `json:"generated_at,omitempty"`
	Users         int       `json:"users"`
	Items         int       `json:"items"`
	CatalogSize   int       `json:"catalog_size"`
	CacheEntries  int       `json:"cache_entries"`
	CacheVersion  uint64    `json:"cache_version"`
	Requests      int64     `json:"requests"`
	CacheHits     int64     `json:"cache_hits"`
	StaleEntries  int64     `json:"stale_entries"`
	Computed      int64     `json:"computed"`
	Fallbacks     int64     `json:"fallbacks"`
	ScoringErrors int64     `json:"scoring_errors"`
}

// SchedulerState is a Scheduler state machine state.
type SchedulerState int32

const (
	// StateIdle means no cycle is running.
	StateIdle SchedulerState = iota
	// StateExtracting means the cycle is reading events and the catalog.
	StateExtracting
	// StateTraining means the cycle is extracting signals and training.
	StateTraining
	// StatePublishing means the cycle is scoring users and swapping results in.
	StatePublishing
)

// String returns the lower-case state name.
func (s SchedulerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExtracting:
		return "extracting"
	case StateTraining:
		return "training"
	case StatePublishing:
		return "publishing"
	default:
		return "unknown"
	}
}

// CycleResult describes one completed recompute cycle.
type CycleResult struct {
	ID        string    `json:"id"`
	Version   uint64    `json:"version"`
	Algorithm string    `json:"algorithm"`
	StartedAt time.Time `json:"started_at"`
	Events    int       `json:"events"`
	Users     int       `json:"users"`
	Items     int       `json:"items"`
	Entries   int       `json:"entries"`

	ExtractDuration time.Duration `json:"extract_duration"`
	TrainDuration   time.Duration `json:"train_duration"`
	PublishDuration time.Duration `json:"publish_duration"`
	Duration        time.Duration `json:"duration"`
}

// SchedulerStatus summarizes the recompute side.
type SchedulerStatus struct {
	State     string       `json:"state"`
	Pending   bool         `json:"pending"`
	Cycles    int64        `json:"cycles"`
	Failures  int64        `json:"failures"`
	LastCycle *CycleResult `json:"last_cycle,omitempty"`
	LastError string       `json:"last_error,omitempty"`
	LastRunAt time.Time    `json:"last_run_at,omitempty"`
}
