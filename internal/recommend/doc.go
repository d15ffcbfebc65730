// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

// Package recommend is the recommendation serving engine.
//
// The package is split along the recompute/serve boundary:
//
//   - Extract turns a slice of storefront events into an InteractionMatrix
//     of time-decayed implicit-feedback weights.
//   - A Model (see the algorithms subpackage) trains an immutable Snapshot
//     from the matrix and scores users against it.
//   - The Scheduler runs Extract, Train and a full cache rebuild as one
//     cycle, one cycle at a time, and publishes the result to the Engine.
//   - The Engine serves Recommend calls from the Cache, falling back to
//     on-demand scoring and then to the popularity list.
//
// The current Snapshot and the Cache generation are both published through
// atomic pointers, so the serving path never takes a lock that a recompute
// cycle holds. The serving path never calls the EventStore.
//
// This package has no dependencies on other internal packages. Storage,
// transport and metrics are wired in from cmd/server through the EventStore,
// Catalog and SnapshotStore ports and the Scheduler's cycle hook.
package recommend
