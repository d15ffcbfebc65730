// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package eventprocessor

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/basket/internal/database"
	"github.com/tomtom215/basket/internal/recommend"
	"github.com/tomtom215/basket/internal/validation"
)

// SchemaVersion is the current event schema version.
// Increment this when making breaking changes to StorefrontEvent.
const SchemaVersion = 1

// StorefrontEvent is the wire format of one interaction on the event bus.
// Type accepts every alias recommend.ParseEventType understands; the
// canonical type is resolved on ingestion.
type StorefrontEvent struct {
	SchemaVersion int `json:"schema_version,omitempty"`

	// EventID doubles as the Nats-Msg-Id and the events table primary key,
	// so redelivered or republished events are stored once.
	EventID   string    `json:"event_id" validate:"required,max=128"`
	UserID    string    `json:"user_id" validate:"entity_id"`
	ProductID string    `json:"product_id" validate:"entity_id"`
	Type      string    `json:"type" validate:"event_type"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
	Weight    *float64  `json:"weight,omitempty"`
	Source    string    `json:"source,omitempty" validate:"omitempty,max=64"`
}

// NewStorefrontEvent creates an event with a unique ID and schema version.
func NewStorefrontEvent(userID, productID string, eventType recommend.EventType, ts time.Time) *StorefrontEvent {
	return &StorefrontEvent{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.New().String(),
		UserID:        userID,
		ProductID:     productID,
		Type:          string(eventType),
		Timestamp:     ts.UTC(),
	}
}

// FromRaw wraps a collaborator event for publishing. An empty id gets a
// fresh UUID.
func FromRaw(id, source string, raw recommend.RawEvent) *StorefrontEvent {
	if id == "" {
		id = uuid.New().String()
	}
	return &StorefrontEvent{
		SchemaVersion: SchemaVersion,
		EventID:       id,
		UserID:        raw.UserID,
		ProductID:     raw.ProductID,
		Type:          raw.Type,
		Timestamp:     raw.Timestamp,
		Weight:        raw.Weight,
		Source:        source,
	}
}

// GetSchemaVersion returns the schema version, defaulting to 1 for events
// published without one.
func (e *StorefrontEvent) GetSchemaVersion() int {
	if e.SchemaVersion == 0 {
		return 1
	}
	return e.SchemaVersion
}

// Validate checks the event against its struct tags. Failures wrap
// recommend.ErrInvalidEvent.
func (e *StorefrontEvent) Validate() error {
	if verr := validation.ValidateStruct(e); verr != nil {
		return fmt.Errorf("%w: %s", recommend.ErrInvalidEvent, verr.Error())
	}
	return nil
}

// Topic returns the NATS subject for this event.
// Format: storefront.events.<canonical type>, e.g. storefront.events.cart_add.
// Unparseable types land on storefront.events.unknown so the ingest side
// can count them as rejected.
func (e *StorefrontEvent) Topic() string {
	t, err := recommend.ParseEventType(e.Type)
	if err != nil {
		return SubjectPrefix + ".unknown"
	}
	return SubjectPrefix + "." + string(t)
}

// Raw returns the event in the shape recommend.NormalizeEvent accepts.
func (e *StorefrontEvent) Raw() recommend.RawEvent {
	return recommend.RawEvent{
		UserID:    e.UserID,
		ProductID: e.ProductID,
		Type:      e.Type,
		Timestamp: e.Timestamp,
		Weight:    e.Weight,
	}
}

// Record validates and normalizes the event into a store record.
func (e *StorefrontEvent) Record() (database.Record, error) {
	if err := e.Validate(); err != nil {
		return database.Record{}, err
	}
	ev, err := recommend.NormalizeEvent(e.Raw())
	if err != nil {
		return database.Record{}, err
	}
	return database.Record{ID: e.EventID, Source: e.Source, Event: ev}, nil
}
