// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

/*
Package api provides the HTTP serving layer for Basket.

Endpoints:

	GET  /api/v1/recommendations/{userID}?k=N   ranked product ids for a user
	GET  /api/v1/recommendations/popular?k=N    non-personalized ranking
	GET  /api/v1/recommendations/status         engine, scheduler and store state
	POST /api/v1/events                         ingest one storefront event
	POST /api/v1/events/batch                   ingest up to MaxBatchSize events
	POST /api/v1/admin/recompute[?wait=true]    queue or run a recompute cycle
	GET  /health/live                           liveness probe
	GET  /health/ready                          readiness probe
	GET  /metrics                               Prometheus metrics

The static segments under /recommendations shadow user ids of the same
name; storefront user ids "status" and "popular" are not addressable.

Response Format:

Every JSON response uses the same envelope:

	{
	  "success": true,
	  "data": { ... },
	  "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 3}
	}

Errors carry a machine-readable code:

	{
	  "success": false,
	  "error": {"code": "VALIDATION_ERROR", "message": "k must be at most 1000", "details": {...}},
	  "meta": { ... }
	}

Error Mapping:

  - VALIDATION_ERROR (400): bad user id, k, wait flag or event payload
  - NO_RECOMMENDATIONS (503): the catalog is empty
  - RECOMPUTE_IN_PROGRESS (409): a synchronous recompute overlapped another cycle
  - INSUFFICIENT_DATA (422): a synchronous recompute found no usable events
  - STORE_UNAVAILABLE (503): the store is closed or its circuit breaker is open
  - RECOMPUTE_FAILED / INTERNAL_ERROR (500): anything else; details are logged only

Middleware Stack:

Global: request id, real IP, panic recovery, request logging, CORS.
The /api/v1 group adds httprate limiting per client IP, security headers and
Prometheus instrumentation labelled by route pattern.

Thread Safety:

Handler holds no per-request state and is safe for concurrent use.
*/
package api
