// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"github.com/tomtom215/basket/internal/config"
	"github.com/tomtom215/basket/internal/eventprocessor"
	"github.com/tomtom215/basket/internal/logging"
)

// routerStartTimeout bounds how long Start waits for the router to subscribe.
const routerStartTimeout = 30 * time.Second

// NATSComponents owns the event bus side of the process.
//
// The embedded server, connection, stream and publisher live for the whole
// process and are released by Close. The subscriber and router are rebuilt
// by every Start, because a closed Watermill router cannot be run again and
// the supervisor restarts ingestion after a failure.
type NATSComponents struct {
	settings eventprocessor.Settings
	logger   zerolog.Logger
	wmLogger watermill.LoggerAdapter

	server    *eventprocessor.EmbeddedServer
	natsConn  *natsgo.Conn
	stream    *eventprocessor.StreamInitializer
	publisher *eventprocessor.Publisher
	ingest    *eventprocessor.IngestHandler

	mu         sync.Mutex
	router     *eventprocessor.Router
	subscriber *eventprocessor.Subscriber
	running    bool
}

// InitNATS starts (or connects to) NATS, ensures the storefront stream and
// creates the publisher. It returns nil when NATS is disabled.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func InitNATS(ctx context.Context, cfg *config.Config, store eventprocessor.EventAppender, logger zerolog.Logger) (*NATSComponents, error) {
	if !cfg.NATS.Enabled {
		logger.Info().Msg("NATS event ingestion disabled (NATS_ENABLED=false)")
		return nil, nil
	}

	logger = logger.With().Str("component", "nats").Logger()
	c := &NATSComponents{
		logger:   logger,
		wmLogger: watermill.NewSlogLogger(logging.NewSlogLoggerFor(logger)),
	}

	natsURL := cfg.NATS.URL
	if cfg.NATS.EmbeddedServer {
		serverCfg := eventprocessor.SettingsFromConfig(&cfg.NATS, "").Server
		server, err := eventprocessor.NewEmbeddedServer(&serverCfg, 0)
		if err != nil {
			return nil, err
		}
		c.server = server
		natsURL = server.ClientURL()
		logger.Info().Str("url", natsURL).Msg("embedded NATS server started")
	} else {
		logger.Info().Str("url", natsURL).Msg("using external NATS server")
	}
	c.settings = eventprocessor.SettingsFromConfig(&cfg.NATS, natsURL)

	nc, err := natsgo.Connect(natsURL,
		natsgo.Name("basket"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
	)
	if err != nil {
		c.Close(context.Background())
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	c.natsConn = nc

	js, err := jetstream.New(nc)
	if err != nil {
		c.Close(context.Background())
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	c.stream, err = eventprocessor.NewStreamInitializer(js, &c.settings.Stream)
	if err != nil {
		c.Close(context.Background())
		return nil, fmt.Errorf("create stream initializer: %w", err)
	}
	stream, err := c.stream.EnsureStream(ctx)
	if err != nil {
		c.Close(context.Background())
		return nil, fmt.Errorf("ensure stream exists: %w", err)
	}
	info := stream.CachedInfo()
	logger.Info().
		Str("name", info.Config.Name).
		Strs("subjects", info.Config.Subjects).
		Dur("max_age", info.Config.MaxAge).
		Msg("JetStream stream ready")

	c.publisher, err = eventprocessor.NewPublisher(c.settings.Publisher, c.wmLogger)
	if err != nil {
		c.Close(context.Background())
		return nil, err
	}
	c.publisher.SetCircuitBreaker(eventprocessor.NewCircuitBreaker(c.settings.Breaker, logger))

	c.ingest, err = eventprocessor.NewIngestHandler(store, logger)
	if err != nil {
		c.Close(context.Background())
		return nil, err
	}

	return c, nil
}

// Publisher returns the circuit-breaker protected event publisher.
func (c *NATSComponents) Publisher() *eventprocessor.Publisher {
	if c == nil {
		return nil
	}
	return c.publisher
}

// Start subscribes the ingest handler and runs the router until ctx ends or
// Shutdown is called.
func (c *NATSComponents) Start(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if c.publisher == nil || c.ingest == nil {
		return errors.New("NATS components are not initialized")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}

	sub, err := eventprocessor.NewSubscriber(&c.settings.Subscriber, c.wmLogger)
	if err != nil {
		return fmt.Errorf("create subscriber: %w", err)
	}

	router, err := eventprocessor.NewRouter(&c.settings.Router, c.publisher.WatermillPublisher(), c.wmLogger)
	if err != nil {
		_ = sub.Close()
		return fmt.Errorf("create router: %w", err)
	}
	router.AddConsumerHandler("storefront-ingest", c.settings.Subject, sub.WatermillSubscriber(), c.ingest.Handle)

	select {
	case <-router.RunAsync(ctx):
	case <-ctx.Done():
		_ = router.Close()
		_ = sub.Close()
		return ctx.Err()
	case <-time.After(routerStartTimeout):
		_ = router.Close()
		_ = sub.Close()
		return fmt.Errorf("router did not start within %s", routerStartTimeout)
	}

	c.router = router
	c.subscriber = sub
	c.running = true
	c.logger.Info().
		Str("subject", c.settings.Subject).
		Str("durable", c.settings.Subscriber.DurableName).
		Int("retries", c.settings.Router.RetryMaxRetries).
		Str("poison_topic", c.settings.Router.PoisonQueueTopic).
		Msg("ingest router started")
	return nil
}

// Shutdown stops the router and its subscriber. The connection and
// publisher stay open for the API.
func (c *NATSComponents) Shutdown(_ context.Context) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false

	if err := c.router.Close(); err != nil {
		c.logger.Error().Err(err).Msg("error closing router")
	}
	if err := c.subscriber.Close(); err != nil {
		c.logger.Error().Err(err).Msg("error closing subscriber")
	}
	c.router, c.subscriber = nil, nil

	st := c.ingest.Stats()
	c.logger.Info().
		Int64("received", st.Received).
		Int64("stored", st.Stored).
		Int64("duplicates", st.Duplicates).
		Int64("rejected", st.Rejected).
		Int64("failed", st.Failed).
		Msg("ingest router stopped")
}

// IsRunning reports whether the ingest router is running.
func (c *NATSComponents) IsRunning() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Close stops ingestion and releases the publisher, the connection and the
// embedded server, in that order.
func (c *NATSComponents) Close(ctx context.Context) {
	if c == nil {
		return
	}
	c.Shutdown(ctx)

	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			c.logger.Error().Err(err).Msg("error closing publisher")
		}
	}
	if c.natsConn != nil {
		c.natsConn.Close()
	}
	if c.server != nil {
		if err := c.server.Shutdown(ctx); err != nil {
			c.logger.Error().Err(err).Msg("error shutting down NATS server")
		}
	}
	c.logger.Info().Msg("NATS components closed")
}
