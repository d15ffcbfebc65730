// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

/*
Package main is the entry point for the basket binary.

basket turns storefront interaction events into per-user product
recommendations. Events arrive over HTTP or a NATS JetStream stream, are
stored in DuckDB, and are periodically folded into a collaborative-filtering
model whose results are served from an in-memory cache.

# Commands

	basket [serve]                       run the server (default)
	basket ingest <file.jsonl|->         append events (--publish sends to NATS)
	basket catalog load <file.jsonl|->   upsert products
	basket catalog set-sellable <id> <b> toggle a product
	basket recompute                     run one cycle and persist the snapshot
	basket recommend <user-id> [-k N]    query the persisted snapshot
	basket status                        store counts and snapshot history
	basket version

Every command reads the same configuration: defaults, then the optional YAML
file (--config or CONFIG_PATH), then environment variables.

The server holds the DuckDB file lock, so the offline commands need the
server stopped. Against a running server use the HTTP API instead.

# Supervision

The server runs under a suture v4 tree:

	basket
	├── data-layer
	│   ├── recompute-scheduler
	│   └── metrics-sampler
	├── messaging-layer
	│   └── nats-ingest (when NATS_ENABLED)
	└── api-layer
	    └── http-server

A failed service is restarted with backoff without touching its siblings.
On SIGINT or SIGTERM the tree is canceled and each service gets
HTTP_SHUTDOWN_TIMEOUT to stop.

# Startup

 1. Load configuration and initialize zerolog.
 2. Open DuckDB behind the store circuit breaker.
 3. Build the engine and restore the newest snapshot from
    RECOMMEND_SNAPSHOT_DIR, if any.
 4. Start or connect to NATS, ensure the stream, create the publisher.
 5. Build the chi router and start the supervisor tree.
*/
package main
