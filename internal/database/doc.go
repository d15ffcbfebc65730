// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

// Package database provides the event log and product catalog storage used by
// the recommendation engine.
//
// # Overview
//
// The package implements recommend.EventStore and recommend.Catalog three ways:
//
//   - DB: DuckDB-backed storage for production deployments
//   - MemoryStore: a map-backed store for tests and the CLI
//   - BreakerStore: a circuit breaker wrapper around either of the above
//
// # Architecture
//
//   - database.go: DB lifecycle (open, initialize, close)
//   - database_schema.go: table and index creation
//   - database_connection.go: connection pool configuration and error classification
//   - database_utils.go: context management, checkpoint, counts
//   - migrations.go: versioned schema migrations tracked in schema_migrations
//   - events.go: append and range reads over the events table
//   - catalog.go: product upserts and sellable lookups
//   - memory.go: MemoryStore
//   - breaker.go: BreakerStore (sony/gobreaker)
//
// # Schema
//
//	events(event_id PK, user_id, product_id, event_type, ts, weight NULL, source, ingested_at)
//	products(product_id PK, sellable, updated_at)
//
// Events are append-only. A NULL weight means the per-type default applies.
// Appending an event whose id already exists is a no-op, so redelivered
// messages from the event bus are absorbed here.
//
// # Database Technology
//
// DuckDB is used through the CGO driver github.com/duckdb/duckdb-go/v2. The
// path ":memory:" opens a private in-memory database, which is what the tests
// use.
//
// # Thread Safety
//
// DB, MemoryStore and BreakerStore are safe for concurrent use.
package database
