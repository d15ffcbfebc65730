// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package recommend

import (
	"context"
	"time"
)

// EventStore is read/append access to the interaction log. It is typically
// implemented by the database package.
type EventStore interface {
	// ListEvents returns events with Timestamp >= since. A zero since returns
	// the whole log.
	ListEvents(ctx context.Context, since time.Time) ([]Event, error)

	// Append adds one event to the log.
	Append(ctx context.Context, e Event) error
}

// Catalog is read access to the sellable product catalog.
type Catalog interface {
	// ListProductIDs returns every sellable product id.
	ListProductIDs(ctx context.Context) ([]string, error)

	// Exists reports whether productID is sellable.
	Exists(ctx context.Context, productID string) (bool, error)
}

// SnapshotStore persists the current snapshot across restarts.
type SnapshotStore interface {
	// Save stores s as the latest snapshot.
	Save(ctx context.Context, s *Snapshot) error

	// Load returns the latest snapshot, or (nil, nil) if none is stored.
	Load(ctx context.Context) (*Snapshot, error)
}

// Model trains snapshots and scores users against them.
type Model interface {
	// Name identifies the algorithm; it is recorded in Snapshot.Algorithm.
	Name() string

	// Train builds a snapshot from the matrix. catalog is the sellable set;
	// the returned snapshot's Version is assigned by the caller.
	Train(ctx context.Context, m *InteractionMatrix, catalog map[string]struct{}) (*Snapshot, error)

	// Score returns up to k ranked products for userID. It returns an
	// *UnknownUserError when the user has no history in snap.
	Score(snap *Snapshot, userID string, k int) ([]Scored, error)
}
