// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package config

import (
	"time"

	"github.com/tomtom215/basket/internal/recommend"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	API       APIConfig       `koanf:"api"`
	Database  DatabaseConfig  `koanf:"database"`
	NATS      NATSConfig      `koanf:"nats"`
	Recommend RecommendConfig `koanf:"recommend"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// APIConfig holds request limiting and CORS settings for the /api routes.
type APIConfig struct {
	// RateLimitRequests is the number of requests allowed per window per client IP.
	// Default: 300
	RateLimitRequests int `koanf:"rate_limit_requests"`

	// RateLimitWindow is the rate limit window.
	// Default: 1m
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// RateLimitDisabled turns rate limiting off (load tests, trusted networks).
	RateLimitDisabled bool `koanf:"rate_limit_disabled"`

	// CORSOrigins lists allowed origins. "*" allows any.
	// Environment variable is comma-separated.
	CORSOrigins []string `koanf:"cors_origins"`

	// MaxK is the largest k accepted from callers before clamping.
	// Default: 1000
	MaxK int `koanf:"max_k"`
}

// DatabaseConfig holds DuckDB settings for the event log and catalog.
type DatabaseConfig struct {
	Path                   string        `koanf:"path"`
	MaxMemory              string        `koanf:"max_memory"`
	Threads                int           `koanf:"threads"`                  // Number of DuckDB threads (0 = use NumCPU)
	PreserveInsertionOrder bool          `koanf:"preserve_insertion_order"` // Whether to preserve insertion order
	QueryTimeout           time.Duration `koanf:"query_timeout"`            // Applied to queries without a deadline

	// BreakerFailures is the number of consecutive store failures that open
	// the circuit. Default: 5
	BreakerFailures uint32 `koanf:"breaker_failures"`

	// BreakerTimeout is how long the circuit stays open. Default: 30s
	BreakerTimeout time.Duration `koanf:"breaker_timeout"`
}

// NATSConfig holds event bus settings.
type NATSConfig struct {
	// Enabled controls whether events are consumed from NATS JetStream.
	// When false, events arrive only through POST /api/v1/events.
	Enabled bool `koanf:"enabled"`

	// URL is the NATS server connection URL.
	URL string `koanf:"url"`

	// EmbeddedServer starts an in-process NATS server.
	// If false, expects external NATS server at URL.
	EmbeddedServer bool `koanf:"embedded_server"`

	// EmbeddedPort is the client port of the embedded server. -1 picks a
	// free port. Default: 4222
	EmbeddedPort int `koanf:"embedded_port"`

	// StoreDir is the JetStream storage directory.
	StoreDir string `koanf:"store_dir"`

	// MaxMemory is the maximum memory for JetStream in bytes.
	MaxMemory int64 `koanf:"max_memory"`

	// MaxStore is the maximum disk storage for JetStream in bytes.
	MaxStore int64 `koanf:"max_store"`

	// StreamName is the JetStream stream holding storefront events.
	StreamName string `koanf:"stream_name"`

	// EventsSubject is the subject filter the ingest router subscribes to.
	EventsSubject string `koanf:"events_subject"`

	// StreamRetentionDays is how long to keep events in the stream.
	StreamRetentionDays int `koanf:"stream_retention_days"`

	// SubscribersCount is the number of concurrent message processors.
	SubscribersCount int `koanf:"subscribers_count"`

	// DurableName is the consumer durable name for message tracking.
	DurableName string `koanf:"durable_name"`

	// QueueGroup is the queue group for load balancing.
	QueueGroup string `koanf:"queue_group"`

	// RouterRetryCount is the maximum number of retries for failed messages.
	// Default: 3
	RouterRetryCount int `koanf:"router_retry_count"`

	// RouterRetryInitialInterval is the initial backoff interval for retries.
	// Default: 100ms
	RouterRetryInitialInterval time.Duration `koanf:"router_retry_initial_interval"`

	// RouterCloseTimeout is the maximum time to wait for graceful router shutdown.
	// Default: 30s
	RouterCloseTimeout time.Duration `koanf:"router_close_timeout"`
}

// RecommendConfig holds recommendation engine settings. It is flattened for
// environment variables; EngineConfig converts it to recommend.Config.
type RecommendConfig struct {
	// Algorithm is "itemcf" or "sequence". Default: itemcf
	Algorithm string `koanf:"algorithm"`

	// Normalization is "cosine" or "jaccard". Default: cosine
	Normalization string `koanf:"normalization"`

	// HalfLife of the event decay. Default: 336h (14 days)
	HalfLife time.Duration `koanf:"half_life"`

	// Window limits extraction to recent events. 0 reads the whole log.
	Window time.Duration `koanf:"window"`

	// Interval between scheduled recomputes. 0 disables the schedule.
	// Default: 1h
	Interval time.Duration `koanf:"interval"`

	// MinInterval is the minimum spacing between two cycles. Default: 30s
	MinInterval time.Duration `koanf:"min_interval"`

	// RunOnStartup queues a recompute when the service starts. Default: true
	RunOnStartup bool `koanf:"run_on_startup"`

	// TrainTimeout bounds one recompute cycle. Default: 10m
	TrainTimeout time.Duration `koanf:"train_timeout"`

	// DefaultK is used when the caller does not pass k. Default: 10
	DefaultK int `koanf:"default_k"`

	// MaxK caps k and is the precomputed list length. Default: 100
	MaxK int `koanf:"max_k"`

	// NeighborsPerItem caps each product's affinity list. Default: 50
	NeighborsPerItem int `koanf:"neighbors_per_item"`

	// MaxItemsPerUser caps the items per user feeding co-occurrence. Default: 200
	MaxItemsPerUser int `koanf:"max_items_per_user"`

	// Event type weights. Defaults: 1, 3, 5, -2
	WeightView     float64 `koanf:"weight_view"`
	WeightCartAdd  float64 `koanf:"weight_cart_add"`
	WeightPurchase float64 `koanf:"weight_purchase"`
	WeightRemove   float64 `koanf:"weight_remove"`

	// SnapshotDir is the badger directory for persisted snapshots. Empty
	// disables persistence.
	SnapshotDir string `koanf:"snapshot_dir"`

	// SnapshotKeep is how many snapshot versions to retain. Default: 3
	SnapshotKeep int `koanf:"snapshot_keep"`
}

// EngineConfig converts the flattened settings to a recommend.Config.
func (r *RecommendConfig) EngineConfig() *recommend.Config {
	cfg := recommend.DefaultConfig()
	cfg.Signals.Weights = map[recommend.EventType]float64{
		recommend.EventView:     r.WeightView,
		recommend.EventCartAdd:  r.WeightCartAdd,
		recommend.EventPurchase: r.WeightPurchase,
		recommend.EventRemove:   r.WeightRemove,
	}
	cfg.Signals.HalfLife = r.HalfLife
	cfg.Model.Algorithm = r.Algorithm
	cfg.Model.Normalization = r.Normalization
	cfg.Model.NeighborsPerItem = r.NeighborsPerItem
	cfg.Model.MaxItemsPerUser = r.MaxItemsPerUser
	cfg.Schedule.Interval = r.Interval
	cfg.Schedule.MinInterval = r.MinInterval
	cfg.Schedule.Window = r.Window
	cfg.Schedule.RunOnStartup = r.RunOnStartup
	cfg.Schedule.Timeout = r.TrainTimeout
	cfg.Limits.DefaultK = r.DefaultK
	cfg.Limits.MaxK = r.MaxK
	return cfg
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// Addr returns the HTTP listen address.
func (s *ServerConfig) Addr() string {
	return joinHostPort(s.Host, s.Port)
}
