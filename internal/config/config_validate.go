// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateAPI,
		c.validateDatabase,
		c.validateNATS,
		c.validateRecommend,
		c.validateLogging,
	}
	for _, validator := range validators {
		if err := validator(); err != nil {
			return err
		}
	}
	return nil
}

// validateServer validates HTTP server settings
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP_READ_TIMEOUT and HTTP_WRITE_TIMEOUT must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP_SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

// validateAPI validates rate limiting and CORS settings
func (c *Config) validateAPI() error {
	if !c.API.RateLimitDisabled {
		if c.API.RateLimitRequests < 1 {
			return fmt.Errorf("API_RATE_LIMIT_REQUESTS must be positive")
		}
		if c.API.RateLimitWindow < time.Second {
			return fmt.Errorf("API_RATE_LIMIT_WINDOW must be at least 1s")
		}
	}
	for _, origin := range c.API.CORSOrigins {
		if err := validateCORSOrigin(origin); err != nil {
			return fmt.Errorf("CORS_ALLOWED_ORIGINS entry %q is invalid: %w", origin, err)
		}
	}
	if c.API.MaxK < 1 {
		return fmt.Errorf("API_MAX_K must be positive")
	}
	return nil
}

// validateDatabase validates DuckDB settings
func (c *Config) validateDatabase() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative")
	}
	if c.Database.QueryTimeout <= 0 {
		return fmt.Errorf("DB_QUERY_TIMEOUT must be positive")
	}
	if c.Database.BreakerFailures < 1 {
		return fmt.Errorf("DB_BREAKER_FAILURES must be at least 1")
	}
	if c.Database.BreakerTimeout <= 0 {
		return fmt.Errorf("DB_BREAKER_TIMEOUT must be positive")
	}
	return nil
}

// NATS limit constants
const (
	natsMinMemory      = 64 * 1024 * 1024  // 64MB
	natsMinStore       = 100 * 1024 * 1024 // 100MB
	natsMaxRetention   = 365
	natsMinRetention   = 1
	natsMaxSubscribers = 32
)

// validateNATS validates NATS configuration (only if enabled)
func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}

	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	if c.NATS.EmbeddedServer {
		if c.NATS.MaxMemory < natsMinMemory {
			return fmt.Errorf("NATS_MAX_MEMORY must be at least 64MB (67108864 bytes)")
		}
		if c.NATS.MaxStore < natsMinStore {
			return fmt.Errorf("NATS_MAX_STORE must be at least 100MB (104857600 bytes)")
		}
		if c.NATS.EmbeddedPort < -1 || c.NATS.EmbeddedPort > 65535 {
			return fmt.Errorf("NATS_EMBEDDED_PORT must be -1 (random) or between 0 and 65535")
		}
	}
	if c.NATS.StreamRetentionDays < natsMinRetention || c.NATS.StreamRetentionDays > natsMaxRetention {
		return fmt.Errorf("NATS_RETENTION_DAYS must be between 1 and 365")
	}
	if c.NATS.SubscribersCount < 1 || c.NATS.SubscribersCount > natsMaxSubscribers {
		return fmt.Errorf("NATS_SUBSCRIBERS must be between 1 and 32")
	}
	if c.NATS.StreamName == "" || c.NATS.EventsSubject == "" {
		return fmt.Errorf("NATS_STREAM_NAME and NATS_EVENTS_SUBJECT are required")
	}
	if c.NATS.DurableName == "" {
		return fmt.Errorf("NATS_DURABLE_NAME is required")
	}
	if c.NATS.RouterRetryCount < 0 {
		return fmt.Errorf("NATS_ROUTER_RETRY_COUNT must not be negative")
	}
	return nil
}

// validateRecommend validates the engine settings through recommend.Config.
func (c *Config) validateRecommend() error {
	if err := c.Recommend.EngineConfig().Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	if c.Recommend.SnapshotKeep < 1 {
		return fmt.Errorf("RECOMMEND_SNAPSHOT_KEEP must be at least 1")
	}
	return nil
}

// validateLogging validates the logging configuration
func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
	return nil
}
