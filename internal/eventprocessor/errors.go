// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package eventprocessor

import "errors"

// ErrNilPublisher is returned when attempting to create a publisher with nil input.
var ErrNilPublisher = errors.New("publisher cannot be nil")

// ErrNilStore is returned when an ingest handler is created without a store.
var ErrNilStore = errors.New("event store cannot be nil")

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// ErrInvalidConfig is returned when configuration is invalid.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrUnsupportedSchema is returned for events encoded with a newer schema.
var ErrUnsupportedSchema = errors.New("unsupported event schema version")
