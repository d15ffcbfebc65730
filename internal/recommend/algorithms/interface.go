// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package algorithms

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/tomtom215/basket/internal/recommend"
)

// New returns the model named by cfg.Algorithm.
func New(cfg recommend.ModelConfig) (recommend.Model, error) {
	switch cfg.Algorithm {
	case recommend.AlgorithmItemCF, "":
		return NewItemCF(cfg), nil
	case recommend.AlgorithmSequence:
		return NewSequence(cfg), nil
	default:
		return nil, fmt.Errorf("unknown algorithm %q", cfg.Algorithm)
	}
}

// ContextCancelled reports whether ctx is done without blocking.
func ContextCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// userItem is one retained interaction of a single user.
type userItem struct {
	id     string
	weight float64
}

// pairStats accumulates the statistics normalization needs for one (i, j).
type pairStats struct {
	dot float64 // sum of w_ui * w_uj
	min float64 // sum of min(w_ui, w_uj)
}

// pairEmitter yields the ordered pairs (i, j) a user's items contribute.
type pairEmitter func(items []userItem, emit func(a, b userItem))

// cooccurrence is the shared training core of ItemCF and Sequence.
type cooccurrence struct {
	name          string
	normalization string
	neighbors     int
	maxUserItems  int
	pairs         func(m *recommend.InteractionMatrix, user string) pairEmitter
}

func (c *cooccurrence) train(ctx context.Context, m *recommend.InteractionMatrix, catalog map[string]struct{}) (*recommend.Snapshot, error) {
	if m == nil || len(m.Weights) == 0 {
		return nil, recommend.ErrInsufficientData
	}

	users := sortedKeys(m.Weights)
	acc := make(map[string]map[string]*pairStats)
	sumSq := make(map[string]float64)
	sum := make(map[string]float64)

	for _, user := range users {
		if ContextCancelled(ctx) {
			return nil, ctx.Err()
		}
		items := c.capItems(m.Weights[user])
		for _, it := range items {
			sumSq[it.id] += it.weight * it.weight
			sum[it.id] += it.weight
		}
		c.pairs(m, user)(items, func(a, b userItem) {
			if _, ok := catalog[b.id]; !ok {
				return
			}
			row := acc[a.id]
			if row == nil {
				row = make(map[string]*pairStats)
				acc[a.id] = row
			}
			ps := row[b.id]
			if ps == nil {
				ps = &pairStats{}
				row[b.id] = ps
			}
			ps.dot += a.weight * b.weight
			ps.min += math.Min(a.weight, b.weight)
		})
	}

	affinity := make(map[string][]recommend.Neighbor, len(acc))
	for _, item := range sortedKeys(acc) {
		if ContextCancelled(ctx) {
			return nil, ctx.Err()
		}
		row := acc[item]
		list := make([]recommend.Neighbor, 0, len(row))
		for _, other := range sortedKeys(row) {
			score := c.normalize(row[other], item, other, sumSq, sum)
			if score > 0 && !math.IsNaN(score) {
				list = append(list, recommend.Neighbor{ProductID: other, Score: score})
			}
		}
		slices.SortFunc(list, compareNeighbors)
		if len(list) > c.neighbors {
			list = list[:c.neighbors]
		}
		if len(list) > 0 {
			affinity[item] = slices.Clip(list)
		}
	}

	profiles := make(map[string]*recommend.UserProfile, len(users))
	for _, user := range users {
		items := make(map[string]float64, len(m.Weights[user]))
		for id, w := range m.Weights[user] {
			items[id] = w
		}
		purchased := make(map[string]struct{}, len(m.Purchased[user]))
		for id := range m.Purchased[user] {
			purchased[id] = struct{}{}
		}
		profiles[user] = &recommend.UserProfile{Items: items, Purchased: purchased}
	}

	popularity := make(map[string]float64, len(m.Popularity))
	for id, p := range m.Popularity {
		popularity[id] = p
	}
	sellable := make(map[string]struct{}, len(catalog))
	for id := range catalog {
		sellable[id] = struct{}{}
	}

	return &recommend.Snapshot{
		AsOf:       m.AsOf,
		Algorithm:  c.name,
		Affinity:   affinity,
		Popularity: popularity,
		Popular:    RankByPopularity(popularity, sellable),
		Users:      profiles,
		Catalog:    sellable,
	}, nil
}

// capItems returns the user's items, keeping the maxUserItems heaviest, in
// product id order.
func (c *cooccurrence) capItems(row map[string]float64) []userItem {
	items := make([]userItem, 0, len(row))
	for id, w := range row {
		items = append(items, userItem{id: id, weight: w})
	}
	if len(items) > c.maxUserItems {
		slices.SortFunc(items, func(a, b userItem) int {
			if a.weight != b.weight {
				if a.weight > b.weight {
					return -1
				}
				return 1
			}
			return strings.Compare(a.id, b.id)
		})
		items = items[:c.maxUserItems]
	}
	slices.SortFunc(items, func(a, b userItem) int { return strings.Compare(a.id, b.id) })
	return items
}

func (c *cooccurrence) normalize(ps *pairStats, i, j string, sumSq, sum map[string]float64) float64 {
	switch c.normalization {
	case recommend.NormalizationJaccard:
		union := sum[i] + sum[j] - ps.min
		if union <= 0 {
			return 0
		}
		return ps.min / union
	default:
		denom := math.Sqrt(sumSq[i]) * math.Sqrt(sumSq[j])
		if denom == 0 {
			return 0
		}
		return ps.dot / denom
	}
}

// score ranks candidates for userID against snap.
func score(snap *recommend.Snapshot, userID string, k int) ([]recommend.Scored, error) {
	profile, ok := snap.Users[userID]
	if !ok || profile == nil || len(profile.Items) == 0 {
		return nil, &recommend.UnknownUserError{UserID: userID}
	}
	if k <= 0 {
		return []recommend.Scored{}, nil
	}

	scores := make(map[string]float64)
	for _, item := range sortedKeys(profile.Items) {
		w := profile.Items[item]
		for _, n := range snap.Affinity[item] {
			if profile.HasPurchased(n.ProductID) || !snap.Sellable(n.ProductID) {
				continue
			}
			scores[n.ProductID] += w * n.Score
		}
	}

	out := make([]recommend.Scored, 0, len(scores))
	for id, s := range scores {
		if s > 0 {
			out = append(out, recommend.Scored{ProductID: id, Score: s})
		}
	}
	slices.SortFunc(out, func(a, b recommend.Scored) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		pa, pb := snap.Popularity[a.ProductID], snap.Popularity[b.ProductID]
		if pa != pb {
			if pa > pb {
				return -1
			}
			return 1
		}
		return strings.Compare(a.ProductID, b.ProductID)
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func compareNeighbors(a, b recommend.Neighbor) int {
	if a.Score != b.Score {
		if a.Score > b.Score {
			return -1
		}
		return 1
	}
	return strings.Compare(a.ProductID, b.ProductID)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
