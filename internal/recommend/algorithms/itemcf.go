// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package algorithms

import (
	"context"

	"github.com/tomtom215/basket/internal/recommend"
)

// ItemCF is item-based collaborative filtering over symmetric co-occurrence.
// It holds no trained state; everything it learns lives in the returned
// Snapshot, so one ItemCF can train and score concurrently.
type ItemCF struct {
	core cooccurrence
}

// NewItemCF creates an ItemCF model. Zero-valued fields in cfg take the
// package defaults.
func NewItemCF(cfg recommend.ModelConfig) *ItemCF {
	cfg = withDefaults(cfg)
	return &ItemCF{core: cooccurrence{
		name:          recommend.AlgorithmItemCF,
		normalization: cfg.Normalization,
		neighbors:     cfg.NeighborsPerItem,
		maxUserItems:  cfg.MaxItemsPerUser,
		pairs: func(*recommend.InteractionMatrix, string) pairEmitter {
			return symmetricPairs
		},
	}}
}

// Name returns "itemcf".
func (m *ItemCF) Name() string {
	return m.core.name
}

// Train builds the symmetric affinity snapshot.
func (m *ItemCF) Train(ctx context.Context, matrix *recommend.InteractionMatrix, catalog map[string]struct{}) (*recommend.Snapshot, error) {
	return m.core.train(ctx, matrix, catalog)
}

// Score ranks products for userID.
func (m *ItemCF) Score(snap *recommend.Snapshot, userID string, k int) ([]recommend.Scored, error) {
	return score(snap, userID, k)
}

// symmetricPairs emits (a, b) and (b, a) for every unordered pair.
func symmetricPairs(items []userItem, emit func(a, b userItem)) {
	for x := 0; x < len(items); x++ {
		for y := x + 1; y < len(items); y++ {
			emit(items[x], items[y])
			emit(items[y], items[x])
		}
	}
}

func withDefaults(cfg recommend.ModelConfig) recommend.ModelConfig {
	def := recommend.DefaultConfig().Model
	if cfg.Normalization == "" {
		cfg.Normalization = def.Normalization
	}
	if cfg.NeighborsPerItem < 1 {
		cfg.NeighborsPerItem = def.NeighborsPerItem
	}
	if cfg.MaxItemsPerUser < 1 {
		cfg.MaxItemsPerUser = def.MaxItemsPerUser
	}
	return cfg
}
