// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package eventprocessor

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Serializer encodes storefront events for the bus.
//
// Marshal stamps the current schema version on events that carry none.
// Unmarshal refuses payloads from a newer schema, which this build cannot
// interpret; the ingest handler acks and counts those as malformed.
type Serializer struct{}

// NewSerializer creates a serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Marshal validates event and encodes it.
func (s *Serializer) Marshal(event *StorefrontEvent) ([]byte, error) {
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}
	if event.SchemaVersion == 0 {
		event.SchemaVersion = SchemaVersion
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// Unmarshal decodes data without validating the event fields.
func (s *Serializer) Unmarshal(data []byte) (*StorefrontEvent, error) {
	var event StorefrontEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	if v := event.GetSchemaVersion(); v > SchemaVersion {
		return nil, fmt.Errorf("%w: version %d, newest supported %d", ErrUnsupportedSchema, v, SchemaVersion)
	}
	return &event, nil
}

// SerializeEvent marshals event with a fresh Serializer.
func SerializeEvent(event *StorefrontEvent) ([]byte, error) {
	return NewSerializer().Marshal(event)
}

// DeserializeEvent unmarshals data with a fresh Serializer.
func DeserializeEvent(data []byte) (*StorefrontEvent, error) {
	return NewSerializer().Unmarshal(data)
}
