// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package algorithms

import (
	"slices"
	"strings"
)

// RankByPopularity returns the catalog products with positive popularity,
// ranked by popularity desc then product id asc.
func RankByPopularity(popularity map[string]float64, catalog map[string]struct{}) []string {
	ids := make([]string, 0, len(popularity))
	for id, p := range popularity {
		if p <= 0 {
			continue
		}
		if _, ok := catalog[id]; !ok {
			continue
		}
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		pa, pb := popularity[a], popularity[b]
		if pa != pb {
			if pa > pb {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	})
	return ids
}
