// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

/*
Package config provides centralized configuration management for Basket.

# Configuration Sources

LoadWithKoanf layers three sources with increasing priority:
  - Built-in defaults (koanf structs provider over defaultConfig)
  - An optional YAML file: CONFIG_PATH, or the first of DefaultConfigPaths that exists
  - Environment variables, through an explicit name-to-key map

# Environment Variables

HTTP Server (ServerConfig):
  - HTTP_HOST (default: 0.0.0.0), HTTP_PORT (default: 8080)
  - HTTP_READ_TIMEOUT (10s), HTTP_WRITE_TIMEOUT (15s), HTTP_SHUTDOWN_TIMEOUT (10s)

API (APIConfig):
  - API_RATE_LIMIT_REQUESTS (300), API_RATE_LIMIT_WINDOW (1m), API_RATE_LIMIT_DISABLED
  - CORS_ALLOWED_ORIGINS: comma-separated (default: *)
  - API_MAX_K (1000)

Database (DatabaseConfig):
  - DUCKDB_PATH (/data/basket.duckdb; ":memory:" allowed), DUCKDB_MAX_MEMORY (1GB)
  - DUCKDB_THREADS (0 = NumCPU), DB_QUERY_TIMEOUT (30s)
  - DB_BREAKER_FAILURES (5), DB_BREAKER_TIMEOUT (30s)

Event bus (NATSConfig):
  - NATS_ENABLED (false), NATS_URL, NATS_EMBEDDED (true), NATS_STORE_DIR
  - NATS_MAX_MEMORY, NATS_MAX_STORE, NATS_RETENTION_DAYS (30)
  - NATS_STREAM_NAME (STOREFRONT_EVENTS), NATS_EVENTS_SUBJECT (storefront.events.>)
  - NATS_SUBSCRIBERS (1), NATS_DURABLE_NAME (basket-ingest), NATS_QUEUE_GROUP (basket)
  - NATS_ROUTER_RETRY_COUNT (3), NATS_ROUTER_RETRY_INTERVAL (100ms), NATS_ROUTER_CLOSE_TIMEOUT (30s)

Recommendation engine (RecommendConfig):
  - RECOMMEND_ALGORITHM (itemcf), RECOMMEND_NORMALIZATION (cosine)
  - RECOMMEND_HALF_LIFE (336h), RECOMMEND_WINDOW (0 = whole log)
  - RECOMMEND_INTERVAL (1h), RECOMMEND_MIN_INTERVAL (30s), RECOMMEND_RUN_ON_STARTUP (true)
  - RECOMMEND_TRAIN_TIMEOUT (10m), RECOMMEND_DEFAULT_K (10), RECOMMEND_MAX_K (100)
  - RECOMMEND_NEIGHBORS_PER_ITEM (50), RECOMMEND_MAX_ITEMS_PER_USER (200)
  - RECOMMEND_WEIGHT_VIEW (1), RECOMMEND_WEIGHT_CART_ADD (3),
    RECOMMEND_WEIGHT_PURCHASE (5), RECOMMEND_WEIGHT_REMOVE (-2)
  - RECOMMEND_SNAPSHOT_DIR (/data/snapshots; empty disables), RECOMMEND_SNAPSHOT_KEEP (3)

Logging (LoggingConfig):
  - LOG_LEVEL (info), LOG_FORMAT (json), LOG_CALLER (false)

# Usage

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	engineCfg := cfg.Recommend.EngineConfig()

# Validation

Validate checks every section and returns the first problem, naming the
environment variable to fix. The recommend section is validated through
recommend.Config.Validate so both layers agree on the rules.
*/
package config
