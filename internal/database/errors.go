// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package database

import (
	"errors"
	"io"

	"github.com/rs/zerolog"
)

var (
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("database: store is closed")

	// ErrEmptyID is returned when an event or product id is blank.
	ErrEmptyID = errors.New("database: id must not be empty")
)

// closeWithLog closes a resource and logs any error
// Use this for cleanup operations where errors should be acknowledged but not fail the operation
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func closeWithLog(closer io.Closer, logger zerolog.Logger, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and explicitly ignores any error
// Use this for cleanup operations in error paths where Close() errors are not actionable
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close() // Explicitly ignore error - cleanup is best-effort
	}
}
