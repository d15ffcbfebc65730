// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

// Package storage persists recommendation snapshots in BadgerDB so a restarted
// server can serve personalized results before its first recompute cycle.
//
// # Overview
//
// The storage system provides:
//   - Gob serialization of the snapshot state
//   - Gzip compression to reduce storage footprint
//   - SHA-256 checksums verified on every load
//   - Version tracking with automatic pruning of old snapshots
//
// # Storage Format
//
// Each snapshot is one BadgerDB value:
//
//	key:   snapshot:v:{version, 20 digits}
//	value: gob(storedSnapshot{Metadata, CompressedData})
//
// CompressedData is gzip(gob(persistedSnapshot)). The key
// "snapshot:latest" holds the newest version as 8 big-endian bytes.
//
// # Usage Example
//
//	store, err := storage.Open("/data/snapshots", 3)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	sched, err := recommend.NewScheduler(engine, events, catalog, logger,
//	    recommend.WithSnapshotStore(store))
//
// On startup:
//
//	snap, err := store.Load(ctx) // nil, nil when nothing is stored
//	if err == nil && snap != nil {
//	    _ = engine.Restore(snap)
//	}
//
// # Thread Safety
//
// Store is safe for concurrent use; BadgerDB transactions provide isolation.
package storage
