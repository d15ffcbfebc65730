// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

/*
Package services adapts basket's long-running components to suture.Service.

  - RecomputeService runs the recompute scheduler loop (data layer).
  - PeriodicService samples gauges such as uptime and cache size (data layer).
  - IngestService drives the NATS ingest pipeline's Start/Shutdown (messaging layer).
  - HTTPServerService runs the API server with graceful drain (api layer).

Each Serve returns ctx.Err() on cancellation and a wrapped error on failure,
so the owning supervisor can restart the service with backoff.
*/
package services
