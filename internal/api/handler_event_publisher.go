// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/basket/internal/eventprocessor"
	"github.com/tomtom215/basket/internal/logging"
	"github.com/tomtom215/basket/internal/metrics"
	"github.com/tomtom215/basket/internal/validation"
)

// sourceAPI tags events that arrived over HTTP.
const sourceAPI = "api"

// EventPublisher publishes storefront events to the event bus.
// *eventprocessor.Publisher implements it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *eventprocessor.StorefrontEvent) error
}

// SetEventPublisher routes POST /events through NATS. The ingest consumer
// then appends the event to the store. Passing nil writes events to the
// store directly.
//
// Thread Safety: Safe for concurrent access but should be called once during startup.
func (h *Handler) SetEventPublisher(publisher EventPublisher) {
	h.publisher = publisher
}

// EventAccepted is the per-event outcome of an ingestion request.
type EventAccepted struct {
	EventID   string `json:"event_id"`
	Published bool   `json:"published,omitempty"`
	Stored    bool   `json:"stored,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BatchAccepted is the body of POST /events/batch.
type BatchAccepted struct {
	Accepted int             `json:"accepted"`
	Rejected int             `json:"rejected"`
	Results  []EventAccepted `json:"results"`
}

// PostEvent handles POST /api/v1/events. The body is one StorefrontEvent;
// a missing event_id, timestamp or source is filled in.
func (h *Handler) PostEvent(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.publisher == nil && h.store == nil {
		respondError(w, r, ErrIngestDisabled, "")
		return
	}

	var event eventprocessor.StorefrontEvent
	if err := decodeJSON(w, r, &event); err != nil {
		metrics.RecordEventRejected(eventprocessor.RejectMalformed)
		respondError(w, r, err, "Invalid request body")
		return
	}

	fillEventDefaults(&event, time.Now())
	if verr := validation.ValidateStruct(&event); verr != nil {
		metrics.RecordEventRejected(eventprocessor.RejectInvalid)
		rw.ValidationError(verr)
		return
	}

	result, err := h.ingest(r.Context(), &event)
	if err != nil {
		respondError(w, r, err, "Failed to store event")
		return
	}
	rw.Accepted(result)
}

// PostEventBatch handles POST /api/v1/events/batch. The body is a JSON array
// of at most MaxBatchSize events. Invalid events are reported per item and
// do not fail the batch; a store or bus failure aborts the remainder.
func (h *Handler) PostEventBatch(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.publisher == nil && h.store == nil {
		respondError(w, r, ErrIngestDisabled, "")
		return
	}

	var events []*eventprocessor.StorefrontEvent
	if err := decodeJSON(w, r, &events); err != nil {
		metrics.RecordEventRejected(eventprocessor.RejectMalformed)
		respondError(w, r, err, "Invalid request body")
		return
	}
	if len(events) == 0 {
		respondError(w, r, ErrEmptyBody, "")
		return
	}
	if len(events) > MaxBatchSize {
		respondError(w, r, fmt.Errorf("%w: %d events, limit %d", ErrBatchTooLarge, len(events), MaxBatchSize), "")
		return
	}

	now := time.Now()
	resp := BatchAccepted{Results: make([]EventAccepted, 0, len(events))}
	for i, event := range events {
		if event == nil {
			resp.Rejected++
			resp.Results = append(resp.Results, EventAccepted{Error: fmt.Sprintf("event %d is null", i)})
			metrics.RecordEventRejected(eventprocessor.RejectMalformed)
			continue
		}
		fillEventDefaults(event, now)
		if verr := validation.ValidateStruct(event); verr != nil {
			resp.Rejected++
			resp.Results = append(resp.Results, EventAccepted{EventID: event.EventID, Error: verr.Error()})
			metrics.RecordEventRejected(eventprocessor.RejectInvalid)
			continue
		}

		result, err := h.ingest(r.Context(), event)
		if err != nil {
			logging.Ctx(r.Context()).Warn().
				Err(err).
				Int("index", i).
				Int("accepted", resp.Accepted).
				Msg("Event batch aborted")
			respondError(w, r, err, "Failed to store event batch")
			return
		}
		resp.Accepted++
		resp.Results = append(resp.Results, result)
	}
	rw.Accepted(resp)
}

// ingest publishes the event when a publisher is configured and appends it
// to the store otherwise.
func (h *Handler) ingest(ctx context.Context, event *eventprocessor.StorefrontEvent) (EventAccepted, error) {
	result := EventAccepted{EventID: event.EventID}

	if h.publisher != nil {
		if err := h.publisher.PublishEvent(ctx, event); err != nil {
			return result, fmt.Errorf("publish event %s: %w", event.EventID, err)
		}
		result.Published = true
		return result, nil
	}

	rec, err := event.Record()
	if err != nil {
		metrics.RecordEventRejected(eventprocessor.RejectInvalid)
		return result, err
	}
	stored, err := h.store.AppendRecord(ctx, rec)
	if err != nil {
		return result, fmt.Errorf("append event %s: %w", rec.ID, err)
	}
	if !stored {
		metrics.RecordEventRejected(eventprocessor.RejectDuplicate)
		result.Duplicate = true
		return result, nil
	}
	metrics.RecordEventIngested(string(rec.Event.Type))
	result.Stored = true
	return result, nil
}

// fillEventDefaults assigns the fields HTTP producers may omit.
func fillEventDefaults(event *eventprocessor.StorefrontEvent, now time.Time) {
	if event.SchemaVersion == 0 {
		event.SchemaVersion = eventprocessor.SchemaVersion
	}
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now.UTC()
	}
	if event.Source == "" {
		event.Source = sourceAPI
	}
}
