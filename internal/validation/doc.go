// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

// Package validation provides struct validation using go-playground/validator v10.
//
// The package wraps a thread-safe singleton validator with the storefront's
// custom tags and translates failures into the API's VALIDATION_ERROR
// envelope. Fields are reported by their JSON names.
//
// # Quick Start
//
//	type eventRequest struct {
//	    UserID    string `json:"user_id" validate:"entity_id"`
//	    ProductID string `json:"product_id" validate:"entity_id"`
//	    Type      string `json:"type" validate:"event_type"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
//	    return
//	}
//
// # Custom Tags
//
//   - entity_id: non-blank user or product id, at most MaxIDLength bytes,
//     no surrounding whitespace and no control characters
//   - event_type: any spelling accepted by recommend.ParseEventType
//     ("view", "add-to-cart", "Purchase", ...)
//
// Built-in tags (required, min, max, gte, lte, oneof)
// keep their go-playground semantics and get friendly messages.
//
// # Error Format
//
// A single failure produces a message naming the field and Details with
// field, tag and value. Several failures are joined with "; " and listed
// under Details["fields"].
//
// # Thread Safety
//
// GetValidator initializes the validator once; the instance caches struct
// metadata and is safe for concurrent use.
package validation
