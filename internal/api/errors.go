// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package api

import (
	"errors"
	"net/http"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/basket/internal/database"
	"github.com/tomtom215/basket/internal/recommend"
)

var (
	// ErrEmptyBody is returned when a write endpoint receives no payload.
	ErrEmptyBody = errors.New("request body is empty")

	// ErrMalformedBody is returned when a request body is not valid JSON.
	ErrMalformedBody = errors.New("malformed request body")

	// ErrBatchTooLarge is returned when an event batch exceeds MaxBatchSize.
	ErrBatchTooLarge = errors.New("event batch too large")

	// ErrIngestDisabled is returned when neither a store nor a publisher is wired.
	ErrIngestDisabled = errors.New("event ingestion is not configured")
)

// errorStatus maps a domain error to an HTTP status and error code.
// Unrecognized errors are internal errors.
func errorStatus(err error) (status int, code string) {
	switch {
	case errors.Is(err, recommend.ErrNoRecommendationsAvailable):
		return http.StatusServiceUnavailable, ErrCodeNoRecommendations
	case errors.Is(err, recommend.ErrRecomputeInProgress):
		return http.StatusConflict, ErrCodeRecomputeRunning
	case errors.Is(err, recommend.ErrInsufficientData):
		return http.StatusUnprocessableEntity, ErrCodeInsufficientData
	case errors.Is(err, recommend.ErrInvalidEvent),
		errors.Is(err, database.ErrEmptyID),
		errors.Is(err, ErrEmptyBody):
		return http.StatusBadRequest, ErrCodeValidationFailed
	case errors.Is(err, ErrMalformedBody):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, ErrBatchTooLarge):
		return http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge
	case errors.Is(err, ErrIngestDisabled):
		return http.StatusServiceUnavailable, ErrCodeServiceUnavailable
	case errors.Is(err, database.ErrClosed), isBreakerOpen(err):
		return http.StatusServiceUnavailable, ErrCodeStoreUnavailable
	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}

// isBreakerOpen reports whether err came from an open or saturated circuit
// breaker, either the store's or the NATS publisher's.
func isBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
