// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package algorithms

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/tomtom215/basket/internal/recommend"
)

// Sequence is an asymmetric item-to-item model: a pair (i, j) only counts
// when the user first interacted with i before j. affinity(i, j) therefore
// answers "after i, what came next" and generally differs from affinity(j, i).
type Sequence struct {
	core cooccurrence
}

// NewSequence creates a Sequence model.
func NewSequence(cfg recommend.ModelConfig) *Sequence {
	cfg = withDefaults(cfg)
	return &Sequence{core: cooccurrence{
		name:          recommend.AlgorithmSequence,
		normalization: cfg.Normalization,
		neighbors:     cfg.NeighborsPerItem,
		maxUserItems:  cfg.MaxItemsPerUser,
		pairs:         orderedPairs,
	}}
}

// Name returns "sequence".
func (m *Sequence) Name() string {
	return m.core.name
}

// Train builds the asymmetric affinity snapshot.
func (m *Sequence) Train(ctx context.Context, matrix *recommend.InteractionMatrix, catalog map[string]struct{}) (*recommend.Snapshot, error) {
	return m.core.train(ctx, matrix, catalog)
}

// Score ranks products for userID.
func (m *Sequence) Score(snap *recommend.Snapshot, userID string, k int) ([]recommend.Scored, error) {
	return score(snap, userID, k)
}

// orderedPairs orders a user's items by first interaction (then id) and
// emits (earlier, later) only. Items that share a first-seen time are
// treated as unordered and emitted both ways.
func orderedPairs(m *recommend.InteractionMatrix, user string) pairEmitter {
	first := m.FirstSeen[user]
	return func(items []userItem, emit func(a, b userItem)) {
		ordered := slices.Clone(items)
		slices.SortFunc(ordered, func(a, b userItem) int {
			if c := first[a.id].Compare(first[b.id]); c != 0 {
				return c
			}
			return strings.Compare(a.id, b.id)
		})
		for x := 0; x < len(ordered); x++ {
			for y := x + 1; y < len(ordered); y++ {
				emit(ordered[x], ordered[y])
				if sameInstant(first[ordered[x].id], first[ordered[y].id]) {
					emit(ordered[y], ordered[x])
				}
			}
		}
	}
}

func sameInstant(a, b time.Time) bool {
	return a.Equal(b)
}
