// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package eventprocessor

import (
	"time"

	"github.com/tomtom215/basket/internal/config"
)

// SubjectPrefix is the NATS subject prefix for storefront events.
// Each event is published to SubjectPrefix + "." + <type>.
const SubjectPrefix = "storefront.events"

// DeadLetterSubject receives messages that failed every retry.
const DeadLetterSubject = "storefront.dlq.events"

// ServerConfig holds embedded NATS server configuration.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// DefaultServerConfig returns production defaults for the embedded NATS server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   256 << 20, // 256MB
		JetStreamMaxStore: 4 << 30,   // 4GB
	}
}

// PublisherConfig holds publisher configuration.
type PublisherConfig struct {
	URL              string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool // nolint:revive // ID is correct per Go conventions
}

// DefaultPublisherConfig returns production defaults for publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		MaxReconnects:    -1, // Unlimited
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024, // 8MB
		EnableTrackMsgID: true,
	}
}

// SubscriberConfig holds subscriber configuration.
type SubscriberConfig struct {
	URL              string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
	AckWaitTimeout   time.Duration
	MaxDeliver       int
	MaxAckPending    int
	CloseTimeout     time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration
	// StreamName binds the subscriber to an existing stream. Required for
	// wildcard subjects such as "storefront.events.>" because stream names
	// cannot contain wildcards.
	StreamName string
}

// DefaultSubscriberConfig returns production defaults for subscriber.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		DurableName:      "basket-ingest",
		QueueGroup:       "basket",
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		MaxDeliver:       5,
		MaxAckPending:    1000,
		CloseTimeout:     30 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
	}
}

// StreamConfig defines storefront event stream settings.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultStreamConfig returns production stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Name:            "STOREFRONT_EVENTS",
		Subjects:        []string{SubjectPrefix + ".>", DeadLetterSubject},
		MaxAge:          30 * 24 * time.Hour,
		MaxBytes:        4 << 30, // 4GB
		MaxMsgs:         -1,      // Unlimited
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// RouterConfig holds configuration for the Watermill Router.
type RouterConfig struct {
	// CloseTimeout is how long to wait for handlers to finish when closing.
	CloseTimeout time.Duration

	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64

	// ThrottlePerSecond limits handled messages per second. 0 disables it.
	ThrottlePerSecond int64

	// PoisonQueueTopic receives messages that exhausted their retries.
	// Empty disables the poison queue.
	PoisonQueueTopic string
}

// DefaultRouterConfig returns production defaults for the Router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: 100 * time.Millisecond,
		RetryMaxInterval:     10 * time.Second,
		RetryMultiplier:      2.0,
		PoisonQueueTopic:     DeadLetterSubject,
	}
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Failures before opening
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// Settings bundles every component configuration derived from the
// application config.
type Settings struct {
	Server     ServerConfig
	Stream     StreamConfig
	Publisher  PublisherConfig
	Subscriber SubscriberConfig
	Router     RouterConfig
	Breaker    CircuitBreakerConfig
	// Subject is the subscription filter for the ingest handler.
	Subject string
}

// SettingsFromConfig maps the NATS section of the application config onto
// component configurations. url is the resolved client URL (the embedded
// server's when one is started).
func SettingsFromConfig(cfg *config.NATSConfig, url string) Settings {
	server := DefaultServerConfig()
	server.StoreDir = cfg.StoreDir
	server.JetStreamMaxMem = cfg.MaxMemory
	server.JetStreamMaxStore = cfg.MaxStore
	if cfg.EmbeddedPort != 0 {
		server.Port = cfg.EmbeddedPort
	}

	stream := DefaultStreamConfig()
	if cfg.StreamName != "" {
		stream.Name = cfg.StreamName
	}
	if cfg.StreamRetentionDays > 0 {
		stream.MaxAge = time.Duration(cfg.StreamRetentionDays) * 24 * time.Hour
	}
	if cfg.MaxStore > 0 {
		stream.MaxBytes = cfg.MaxStore
	}

	sub := DefaultSubscriberConfig(url)
	sub.StreamName = stream.Name
	if cfg.DurableName != "" {
		sub.DurableName = cfg.DurableName
	}
	if cfg.QueueGroup != "" {
		sub.QueueGroup = cfg.QueueGroup
	}
	if cfg.SubscribersCount > 0 {
		sub.SubscribersCount = cfg.SubscribersCount
	}

	router := DefaultRouterConfig()
	if cfg.RouterRetryCount >= 0 {
		router.RetryMaxRetries = cfg.RouterRetryCount
	}
	if cfg.RouterRetryInitialInterval > 0 {
		router.RetryInitialInterval = cfg.RouterRetryInitialInterval
	}
	if cfg.RouterCloseTimeout > 0 {
		router.CloseTimeout = cfg.RouterCloseTimeout
		sub.CloseTimeout = cfg.RouterCloseTimeout
	}

	subject := cfg.EventsSubject
	if subject == "" {
		subject = SubjectPrefix + ".>"
	}

	return Settings{
		Server:     server,
		Stream:     stream,
		Publisher:  DefaultPublisherConfig(url),
		Subscriber: sub,
		Router:     router,
		Breaker:    DefaultCircuitBreakerConfig("nats-publisher"),
		Subject:    subject,
	}
}
