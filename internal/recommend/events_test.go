// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package recommend

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestParseEventType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    EventType
		wantErr bool
	}{
		{"view", EventView, false},
		{"Page-View", EventView, false},
		{" add to cart ", EventCartAdd, false},
		{"ADD_TO_CART", EventCartAdd, false},
		{"checkout", EventPurchase, false},
		{"remove-from-cart", EventRemove, false},
		{"wishlist", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseEventType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEventType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("error %v does not wrap ErrInvalidEvent", err)
			}
			if got != tt.want {
				t.Errorf("ParseEventType(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeEvent(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	weight := func(w float64) *float64 { return &w }

	tests := []struct {
		name    string
		raw     RawEvent
		want    Event
		wantErr bool
	}{
		{
			name: "trims and converts to UTC",
			raw:  RawEvent{UserID: " u1 ", ProductID: "p1\t", Type: "Purchase", Timestamp: ts},
			want: Event{UserID: "u1", ProductID: "p1", Type: EventPurchase, Timestamp: ts.UTC()},
		},
		{
			name: "explicit weight",
			raw:  RawEvent{UserID: "u1", ProductID: "p1", Type: "view", Timestamp: ts, Weight: weight(2.5)},
			want: Event{UserID: "u1", ProductID: "p1", Type: EventView, Timestamp: ts.UTC(), Weight: 2.5},
		},
		{
			name: "explicit zero weight is absent",
			raw:  RawEvent{UserID: "u1", ProductID: "p1", Type: "view", Timestamp: ts, Weight: weight(0)},
			want: Event{UserID: "u1", ProductID: "p1", Type: EventView, Timestamp: ts.UTC()},
		},
		{name: "missing user", raw: RawEvent{ProductID: "p1", Type: "view", Timestamp: ts}, wantErr: true},
		{name: "blank product", raw: RawEvent{UserID: "u1", ProductID: "  ", Type: "view", Timestamp: ts}, wantErr: true},
		{name: "unknown type", raw: RawEvent{UserID: "u1", ProductID: "p1", Type: "like", Timestamp: ts}, wantErr: true},
		{name: "zero timestamp", raw: RawEvent{UserID: "u1", ProductID: "p1", Type: "view"}, wantErr: true},
		{name: "NaN weight", raw: RawEvent{UserID: "u1", ProductID: "p1", Type: "view", Timestamp: ts, Weight: weight(math.NaN())}, wantErr: true},
		{name: "infinite weight", raw: RawEvent{UserID: "u1", ProductID: "p1", Type: "view", Timestamp: ts, Weight: weight(math.Inf(1))}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeEvent(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidEvent) {
					t.Fatalf("NormalizeEvent() error = %v, want ErrInvalidEvent", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeEvent() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeEvent() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSignalConfig_BaseWeight(t *testing.T) {
	t.Parallel()

	cfg := SignalConfig{Weights: DefaultWeights()}
	if got := cfg.BaseWeight(Event{Type: EventCartAdd}); got != 3 {
		t.Errorf("BaseWeight(cart_add) = %v, want 3", got)
	}
	if got := cfg.BaseWeight(Event{Type: EventRemove}); got != -2 {
		t.Errorf("BaseWeight(remove) = %v, want -2", got)
	}
	if got := cfg.BaseWeight(Event{Type: EventView, Weight: 4}); got != 4 {
		t.Errorf("BaseWeight(explicit) = %v, want 4", got)
	}
}
