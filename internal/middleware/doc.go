// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

/*
Package middleware provides HTTP middleware shared by the API router.

Key Components:

  - Request ID: UUID-based request tracking; the id is echoed in the
    X-Request-ID header and picked up by logging.Ctx
  - Prometheus Metrics: request count, latency and in-flight gauges,
    labelled by chi route pattern

Both middlewares use the http.HandlerFunc signature. The api package adapts
them to chi with a small wrapper:

	r.Use(chiMiddleware(middleware.PrometheusMetrics))

Upstream request ids are accepted when they are short printable tokens;
anything else is replaced with a fresh UUID v4.

Thread Safety:

All middleware is stateless apart from the Prometheus collectors, which are
safe for concurrent use.
*/
package middleware
