// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

// Request validation structs. Validation tags follow go-playground/validator
// v10 syntax plus the custom entity_id and event_type tags registered by the
// validation package. Fields are reported by their json names.

// MaxBodyBytes bounds every JSON request body.
const MaxBodyBytes = 1 << 20

// MaxBatchSize bounds the number of events accepted by one batch request.
const MaxBatchSize = 1000

// RecommendationRequest is the validated input of GET /recommendations/{userID}.
// The upper bound of K is applied separately from config.
type RecommendationRequest struct {
	UserID string `json:"user_id" validate:"entity_id"`
	K      int    `json:"k" validate:"gte=0"`
}

// PopularRequest is the validated input of GET /recommendations/popular.
type PopularRequest struct {
	K int `json:"k" validate:"gte=0"`
}

// RecomputeRequest is the validated input of POST /admin/recompute.
type RecomputeRequest struct {
	Wait string `json:"wait" validate:"omitempty,oneof=true false 1 0"`
}

// Synchronous reports whether the caller asked to wait for the cycle.
func (r RecomputeRequest) Synchronous() bool {
	return r.Wait == "true" || r.Wait == "1"
}

// errInvalidParam carries a query parameter that failed to parse.
type errInvalidParam struct {
	Name   string
	Value  string
	Reason string
}

func (e *errInvalidParam) Error() string {
	return e.Name + " " + e.Reason
}

// intQueryParam parses an optional integer query parameter. A missing
// parameter yields 0.
func intQueryParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &errInvalidParam{Name: name, Value: raw, Reason: "must be an integer"}
	}
	return v, nil
}

// pathParam returns the unescaped chi URL parameter.
func pathParam(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	v, err := url.PathUnescape(raw)
	if err != nil {
		return "", &errInvalidParam{Name: name, Value: raw, Reason: "is not a valid path segment"}
	}
	return v, nil
}

// decodeJSON decodes a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: body exceeds %d bytes", ErrBatchTooLarge, MaxBodyBytes)
		}
		return fmt.Errorf("%w: %s", ErrMalformedBody, err.Error())
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return ErrEmptyBody
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedBody, err.Error())
	}
	return nil
}
