// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package recommend

import (
	"fmt"
	"math"
	"strings"
)

// eventTypeAliases maps the spellings seen from tracking clients to the
// canonical event types.
var eventTypeAliases = map[string]EventType{
	"view":             EventView,
	"page_view":        EventView,
	"pageview":         EventView,
	"product_view":     EventView,
	"cart_add":         EventCartAdd,
	"add_to_cart":      EventCartAdd,
	"addtocart":        EventCartAdd,
	"cart":             EventCartAdd,
	"purchase":         EventPurchase,
	"order":            EventPurchase,
	"checkout":         EventPurchase,
	"buy":              EventPurchase,
	"remove":           EventRemove,
	"remove_from_cart": EventRemove,
	"cart_remove":      EventRemove,
}

// ParseEventType maps a raw type string (any case, '-' or ' ' as separator)
// to an EventType.
func ParseEventType(s string) (EventType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	if t, ok := eventTypeAliases[key]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown event type %q", ErrInvalidEvent, s)
}

// NormalizeEvent converts a RawEvent into the canonical Event shape. Ids are
// trimmed, the type is resolved through its aliases and the timestamp is
// converted to UTC. An explicit zero weight is treated as absent.
func NormalizeEvent(raw RawEvent) (Event, error) {
	userID := strings.TrimSpace(raw.UserID)
	if userID == "" {
		return Event{}, fmt.Errorf("%w: user_id is required", ErrInvalidEvent)
	}
	productID := strings.TrimSpace(raw.ProductID)
	if productID == "" {
		return Event{}, fmt.Errorf("%w: product_id is required", ErrInvalidEvent)
	}
	t, err := ParseEventType(raw.Type)
	if err != nil {
		return Event{}, err
	}
	if raw.Timestamp.IsZero() {
		return Event{}, fmt.Errorf("%w: timestamp is required", ErrInvalidEvent)
	}

	e := Event{
		UserID:    userID,
		ProductID: productID,
		Type:      t,
		Timestamp: raw.Timestamp.UTC(),
	}
	if raw.Weight != nil {
		w := *raw.Weight
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return Event{}, fmt.Errorf("%w: weight must be finite", ErrInvalidEvent)
		}
		e.Weight = w
	}
	return e, nil
}

// BaseWeight returns the event's weight before decay: the explicit weight if
// set, otherwise the configured default for its type.
func (c SignalConfig) BaseWeight(e Event) float64 {
	if e.Weight != 0 {
		return e.Weight
	}
	return c.Weights[e.Type]
}
