// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

// Package algorithms implements the recommend.Model variants.
//
// # Item-based collaborative filtering
//
// ItemCF accumulates, for every pair of products a user interacted with, the
// product of the user's two interaction weights:
//
//	C[i][j] = sum over users u of w(u,i) * w(u,j)
//
// and normalizes the result so that globally popular products are not
// related to everything:
//
//	cosine:  C[i][j] / (||i|| * ||j||)
//	jaccard: sum_u min(w_ui, w_uj) / sum_u max(w_ui, w_uj)
//
// The affinity is symmetric.
//
// # Sequence
//
// Sequence uses the same arithmetic but only counts a pair (i, j) when the
// user first interacted with i before j, giving an asymmetric "bought this,
// then that" affinity.
//
// # Scoring
//
// Both models score a user by summing, over the user's items, the user's
// weight times the item's affinity to each candidate. Purchased and
// unsellable products are excluded. Ties are broken by global popularity and
// then by product id, so scoring is fully deterministic.
//
// # Popularity
//
// RankByPopularity orders the snapshot's Popular list. The engine serves it,
// padded with the rest of the catalog, as the non-personalized fallback.
package algorithms
