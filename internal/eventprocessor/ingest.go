// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/tomtom215/basket/internal/database"
	"github.com/tomtom215/basket/internal/metrics"
	"github.com/tomtom215/basket/internal/recommend"
)

// Rejection reasons reported on basket_events_rejected_total.
const (
	RejectMalformed = "malformed"
	RejectInvalid   = "invalid"
	RejectDuplicate = "duplicate"
)

// EventAppender is the slice of database.Store the ingest handler writes to.
type EventAppender interface {
	AppendRecord(ctx context.Context, rec database.Record) (bool, error)
}

// IngestHandler persists storefront events from the bus into the event store.
//
// Malformed or invalid payloads are acknowledged and counted as rejected so
// they never enter a redelivery loop. Store failures are returned so the
// router retries and, after the last retry, routes the message to the
// poison queue.
type IngestHandler struct {
	store      EventAppender
	serializer *Serializer
	logger     zerolog.Logger

	received   atomic.Int64
	stored     atomic.Int64
	duplicates atomic.Int64
	rejected   atomic.Int64
	failed     atomic.Int64
}

// IngestStats is a point-in-time copy of the handler counters.
type IngestStats struct {
	Received   int64 `json:"received"`
	Stored     int64 `json:"stored"`
	Duplicates int64 `json:"duplicates"`
	Rejected   int64 `json:"rejected"`
	Failed     int64 `json:"failed"`
}

// NewIngestHandler creates an ingest handler writing to store.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewIngestHandler(store EventAppender, logger zerolog.Logger) (*IngestHandler, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	return &IngestHandler{
		store:      store,
		serializer: NewSerializer(),
		logger:     logger.With().Str("component", "ingest").Logger(),
	}, nil
}

// Handle implements message.NoPublishHandlerFunc.
func (h *IngestHandler) Handle(msg *message.Message) error {
	start := time.Now()
	defer func() { metrics.RecordNATSConsume(time.Since(start)) }()
	h.received.Add(1)

	event, err := h.serializer.Unmarshal(msg.Payload)
	if err != nil {
		h.reject(RejectMalformed, msg, err)
		return nil
	}
	if event.EventID == "" {
		event.EventID = messageID(msg)
	}

	rec, err := event.Record()
	if err != nil {
		h.reject(RejectInvalid, msg, err)
		return nil
	}

	inserted, err := h.store.AppendRecord(msg.Context(), rec)
	switch {
	case errors.Is(err, recommend.ErrInvalidEvent), errors.Is(err, database.ErrEmptyID):
		h.reject(RejectInvalid, msg, err)
		return nil
	case err != nil:
		h.failed.Add(1)
		return fmt.Errorf("append event %s: %w", rec.ID, err)
	case !inserted:
		h.duplicates.Add(1)
		metrics.RecordEventRejected(RejectDuplicate)
		h.logger.Debug().Str("event_id", rec.ID).Msg("duplicate event ignored")
		return nil
	}

	h.stored.Add(1)
	metrics.RecordEventIngested(string(rec.Event.Type))
	return nil
}

func (h *IngestHandler) reject(reason string, msg *message.Message, err error) {
	h.rejected.Add(1)
	metrics.RecordEventRejected(reason)
	h.logger.Warn().
		Err(err).
		Str("reason", reason).
		Str("message_uuid", msg.UUID).
		Msg("rejected storefront event")
}

// Stats returns the handler counters.
func (h *IngestHandler) Stats() IngestStats {
	return IngestStats{
		Received:   h.received.Load(),
		Stored:     h.stored.Load(),
		Duplicates: h.duplicates.Load(),
		Rejected:   h.rejected.Load(),
		Failed:     h.failed.Load(),
	}
}

// messageID prefers the JetStream dedup header over the Watermill UUID,
// which a republish may regenerate.
func messageID(msg *message.Message) string {
	if id := msg.Metadata.Get(natsgo.MsgIdHdr); id != "" {
		return id
	}
	return msg.UUID
}
