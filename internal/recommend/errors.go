// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package recommend

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData is returned by Extract when there are no usable
	// events. The Scheduler keeps the previous snapshot when it sees it.
	ErrInsufficientData = errors.New("insufficient interaction data")

	// ErrUnknownUser is matched by every *UnknownUserError.
	ErrUnknownUser = errors.New("unknown user")

	// ErrNoRecommendationsAvailable is the only error Recommend surfaces for a
	// valid request: the catalog itself is empty.
	ErrNoRecommendationsAvailable = errors.New("no recommendations available")

	// ErrStaleModel is matched by every *StaleModelWarning.
	ErrStaleModel = errors.New("stale model")

	// ErrModelNotReady means no snapshot has been published yet.
	ErrModelNotReady = errors.New("model not ready")

	// ErrRecomputeInProgress is returned by RunOnce while another cycle runs.
	ErrRecomputeInProgress = errors.New("recompute already in progress")

	// ErrInvalidEvent is returned by NormalizeEvent.
	ErrInvalidEvent = errors.New("invalid event")
)

// UnknownUserError reports a user with no interaction history in the snapshot.
type UnknownUserError struct {
	UserID string
}

func (e *UnknownUserError) Error() string {
	return fmt.Sprintf("unknown user %q", e.UserID)
}

// Is makes errors.Is(err, ErrUnknownUser) true.
func (e *UnknownUserError) Is(target error) bool {
	return target == ErrUnknownUser
}

// StaleModelWarning reports a cache entry computed against a superseded snapshot.
type StaleModelWarning struct {
	UserID         string
	EntryVersion   uint64
	CurrentVersion uint64
}

func (w *StaleModelWarning) Error() string {
	return fmt.Sprintf("cache entry for %q has model version %d, current is %d",
		w.UserID, w.EntryVersion, w.CurrentVersion)
}

// Is makes errors.Is(err, ErrStaleModel) true.
func (w *StaleModelWarning) Is(target error) bool {
	return target == ErrStaleModel
}
