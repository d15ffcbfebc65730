// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"basket.yaml",
	"config/config.yaml",
	"config/basket.yaml",
	"/etc/basket/config.yaml",
	"/etc/basket/basket.yaml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		API: APIConfig{
			RateLimitRequests: 300,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
			MaxK:              1000,
		},
		Database: DatabaseConfig{
			Path:                   "/data/basket.duckdb",
			MaxMemory:              "1GB",
			Threads:                0, // 0 = use runtime.NumCPU()
			PreserveInsertionOrder: false,
			QueryTimeout:           30 * time.Second,
			BreakerFailures:        5,
			BreakerTimeout:         30 * time.Second,
		},
		NATS: NATSConfig{
			Enabled:                    false,
			URL:                        "nats://127.0.0.1:4222",
			EmbeddedServer:             true,
			EmbeddedPort:               4222,
			StoreDir:                   "/data/nats/jetstream",
			MaxMemory:                  256 << 20, // 256MB
			MaxStore:                   4 << 30,   // 4GB
			StreamName:                 "STOREFRONT_EVENTS",
			EventsSubject:              "storefront.events.>",
			StreamRetentionDays:        30,
			SubscribersCount:           1,
			DurableName:                "basket-ingest",
			QueueGroup:                 "basket",
			RouterRetryCount:           3,
			RouterRetryInitialInterval: 100 * time.Millisecond,
			RouterCloseTimeout:         30 * time.Second,
		},
		Recommend: RecommendConfig{
			Algorithm:        "itemcf",
			Normalization:    "cosine",
			HalfLife:         14 * 24 * time.Hour,
			Window:           0,
			Interval:         time.Hour,
			MinInterval:      30 * time.Second,
			RunOnStartup:     true,
			TrainTimeout:     10 * time.Minute,
			DefaultK:         10,
			MaxK:             100,
			NeighborsPerItem: 50,
			MaxItemsPerUser:  200,
			WeightView:       1,
			WeightCartAdd:    3,
			WeightPurchase:   5,
			WeightRemove:     -2,
			SnapshotDir:      "/data/snapshots",
			SnapshotKeep:     3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Default returns the built-in defaults without reading files or the
// environment. Tests and the CLI use it as a base.
func Default() *Config {
	return defaultConfig()
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// DUCKDB_PATH -> database.path
	// RECOMMEND_HALF_LIFE -> recommend.half_life
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"api.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// This is necessary because env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Unmapped variables are ignored so unrelated environment cannot pollute
// the configuration.
var envMappings = map[string]string{
	// Server mappings
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	// API mappings
	"api_rate_limit_requests": "api.rate_limit_requests",
	"api_rate_limit_window":   "api.rate_limit_window",
	"api_rate_limit_disabled": "api.rate_limit_disabled",
	"cors_allowed_origins":    "api.cors_origins",
	"api_max_k":               "api.max_k",

	// Database mappings
	"duckdb_path":         "database.path",
	"duckdb_max_memory":   "database.max_memory",
	"duckdb_threads":      "database.threads",
	"db_query_timeout":    "database.query_timeout",
	"db_breaker_failures": "database.breaker_failures",
	"db_breaker_timeout":  "database.breaker_timeout",

	// NATS mappings
	"nats_enabled":               "nats.enabled",
	"nats_url":                   "nats.url",
	"nats_embedded":              "nats.embedded_server",
	"nats_embedded_port":         "nats.embedded_port",
	"nats_store_dir":             "nats.store_dir",
	"nats_max_memory":            "nats.max_memory",
	"nats_max_store":             "nats.max_store",
	"nats_stream_name":           "nats.stream_name",
	"nats_events_subject":        "nats.events_subject",
	"nats_retention_days":        "nats.stream_retention_days",
	"nats_subscribers":           "nats.subscribers_count",
	"nats_durable_name":          "nats.durable_name",
	"nats_queue_group":           "nats.queue_group",
	"nats_router_retry_count":    "nats.router_retry_count",
	"nats_router_retry_interval": "nats.router_retry_initial_interval",
	"nats_router_close_timeout":  "nats.router_close_timeout",

	// Recommendation engine mappings
	"recommend_algorithm":          "recommend.algorithm",
	"recommend_normalization":      "recommend.normalization",
	"recommend_half_life":          "recommend.half_life",
	"recommend_window":             "recommend.window",
	"recommend_interval":           "recommend.interval",
	"recommend_min_interval":       "recommend.min_interval",
	"recommend_run_on_startup":     "recommend.run_on_startup",
	"recommend_train_timeout":      "recommend.train_timeout",
	"recommend_default_k":          "recommend.default_k",
	"recommend_max_k":              "recommend.max_k",
	"recommend_neighbors_per_item": "recommend.neighbors_per_item",
	"recommend_max_items_per_user": "recommend.max_items_per_user",
	"recommend_weight_view":        "recommend.weight_view",
	"recommend_weight_cart_add":    "recommend.weight_cart_add",
	"recommend_weight_purchase":    "recommend.weight_purchase",
	"recommend_weight_remove":      "recommend.weight_remove",
	"recommend_snapshot_dir":       "recommend.snapshot_dir",
	"recommend_snapshot_keep":      "recommend.snapshot_keep",

	// Logging mappings
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - DUCKDB_PATH -> database.path
//   - HTTP_PORT -> server.port
//   - NATS_EMBEDDED -> nats.embedded_server
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
