// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package eventprocessor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/basket/internal/metrics"
)

// Publisher wraps a Watermill publisher with circuit breaker protection and
// Nats-Msg-Id deduplication.
type Publisher struct {
	publisher      message.Publisher
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	serializer     *Serializer
	mu             sync.RWMutex
	closed         bool
	logger         watermill.LoggerAdapter
}

// NewPublisher creates a Watermill NATS JetStream publisher. The stream must
// already exist (see StreamInitializer).
func NewPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false, // Stream is pre-created by StreamInitializer
			TrackMsgId:    cfg.EnableTrackMsgID,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return WrapPublisher(pub, logger)
}

// WrapPublisher adapts any Watermill publisher, such as a gochannel pub/sub.
func WrapPublisher(pub message.Publisher, logger watermill.LoggerAdapter) (*Publisher, error) {
	if pub == nil {
		return nil, ErrNilPublisher
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Publisher{
		publisher:  pub,
		serializer: NewSerializer(),
		logger:     logger,
	}, nil
}

// SetCircuitBreaker configures the circuit breaker for publish operations.
func (p *Publisher) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[interface{}]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.circuitBreaker = cb
}

// Publish sends a message to topic. The message UUID is used as Nats-Msg-Id
// when none is set.
func (p *Publisher) Publish(ctx context.Context, topic string, msg *message.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.RLock()
	closed, cb := p.closed, p.circuitBreaker
	p.mu.RUnlock()
	if closed {
		return ErrPublisherClosed
	}

	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	var err error
	if cb != nil {
		_, err = cb.Execute(func() (interface{}, error) {
			return nil, p.publisher.Publish(topic, msg)
		})
	} else {
		err = p.publisher.Publish(topic, msg)
	}

	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	metrics.RecordNATSPublish()
	return nil
}

// PublishEvent validates, serializes and publishes a storefront event on its
// type subject. The event id becomes the message UUID and Nats-Msg-Id.
func (p *Publisher) PublishEvent(ctx context.Context, event *StorefrontEvent) error {
	data, err := p.serializer.Marshal(event)
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	msg := message.NewMessage(event.EventID, data)
	msg.Metadata.Set(natsgo.MsgIdHdr, event.EventID)
	msg.Metadata.Set("event_type", event.Type)
	if event.Source != "" {
		msg.Metadata.Set("source", event.Source)
	}

	return p.Publish(ctx, event.Topic(), msg)
}

// PublishBatch publishes events in order and stops at the first failure,
// returning how many were published.
func (p *Publisher) PublishBatch(ctx context.Context, events []*StorefrontEvent) (int, error) {
	for i, event := range events {
		if err := p.PublishEvent(ctx, event); err != nil {
			return i, fmt.Errorf("publish event %s: %w", event.EventID, err)
		}
	}
	return len(events), nil
}

// Close gracefully shuts down the publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	return p.publisher.Close()
}

// WatermillPublisher returns the underlying Watermill publisher, for the
// router's poison queue.
func (p *Publisher) WatermillPublisher() message.Publisher {
	return p.publisher
}
