// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package recommend

import (
	"math"
	"slices"
	"strings"
	"time"
)

// Decay returns the multiplier for an event of the given age: 0.5^(age/halfLife).
// Events at or after asOf (age <= 0) are not decayed, and a non-positive
// halfLife disables decay entirely.
func Decay(age, halfLife time.Duration) float64 {
	if halfLife <= 0 || age <= 0 {
		return 1
	}
	return math.Exp2(-float64(age) / float64(halfLife))
}

// Extract builds the InteractionMatrix for events as of asOf.
//
// Contributions are base_weight(type) * Decay(asOf - timestamp), summed per
// (user, product). Pairs whose total is not positive are dropped. The input
// slice is not modified, and the same events and asOf always produce the same
// matrix: events are summed in a fixed total order so floating point addition
// order does not depend on input order.
//
// Extract returns ErrInsufficientData when events is empty or when no pair
// ends up with a positive weight.
func Extract(events []Event, asOf time.Time, cfg SignalConfig) (*InteractionMatrix, error) {
	if len(events) == 0 {
		return nil, ErrInsufficientData
	}

	ordered := slices.Clone(events)
	slices.SortFunc(ordered, compareEvents)

	weights := make(map[string]map[string]float64)
	firstSeen := make(map[string]map[string]time.Time)
	purchased := make(map[string]map[string]struct{})

	for i := range ordered {
		e := &ordered[i]
		contribution := cfg.BaseWeight(*e) * Decay(asOf.Sub(e.Timestamp), cfg.HalfLife)

		row := weights[e.UserID]
		if row == nil {
			row = make(map[string]float64)
			weights[e.UserID] = row
			firstSeen[e.UserID] = make(map[string]time.Time)
		}
		row[e.ProductID] += contribution

		// Events are in timestamp order, so the first write is the earliest.
		if _, seen := firstSeen[e.UserID][e.ProductID]; !seen {
			firstSeen[e.UserID][e.ProductID] = e.Timestamp
		}

		if e.Type == EventPurchase {
			set := purchased[e.UserID]
			if set == nil {
				set = make(map[string]struct{})
				purchased[e.UserID] = set
			}
			set[e.ProductID] = struct{}{}
		}
	}

	popularity := make(map[string]float64)
	for _, user := range sortedKeys(weights) {
		row := weights[user]
		for _, product := range sortedKeys(row) {
			w := row[product]
			if w <= 0 || math.IsNaN(w) {
				delete(row, product)
				delete(firstSeen[user], product)
				continue
			}
			popularity[product] += w
		}
		if len(row) == 0 {
			delete(weights, user)
			delete(firstSeen, user)
		}
	}
	if len(weights) == 0 {
		return nil, ErrInsufficientData
	}

	return &InteractionMatrix{
		AsOf:       asOf,
		Weights:    weights,
		Purchased:  purchased,
		FirstSeen:  firstSeen,
		Popularity: popularity,
		EventCount: len(ordered),
	}, nil
}

// compareEvents orders events by timestamp, user, product, type, weight.
func compareEvents(a, b Event) int {
	if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
		return c
	}
	if c := strings.Compare(a.UserID, b.UserID); c != 0 {
		return c
	}
	if c := strings.Compare(a.ProductID, b.ProductID); c != 0 {
		return c
	}
	if c := strings.Compare(string(a.Type), string(b.Type)); c != 0 {
		return c
	}
	switch {
	case a.Weight < b.Weight:
		return -1
	case a.Weight > b.Weight:
		return 1
	}
	return 0
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
