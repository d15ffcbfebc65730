// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/basket/internal/database"
	"github.com/tomtom215/basket/internal/eventprocessor"
)

func eventBody(id, user, product, typ string) map[string]interface{} {
	body := map[string]interface{}{
		"user_id":    user,
		"product_id": product,
		"type":       typ,
		"timestamp":  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if id != "" {
		body["event_id"] = id
	}
	return body
}

func TestPostEvent_Store(t *testing.T) {
	t.Parallel()

	store := database.NewMemoryStore()
	router := newTestRouter(NewHandler(&fakeEngine{}, nil, store, testConfig()))

	rec, env := do(t, router, http.MethodPost, "/api/v1/events", mustJSON(t, eventBody("e1", "u1", "p1", "add_to_cart")))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var got EventAccepted
	decodeData(t, env, &got)
	if got.EventID != "e1" || !got.Stored || got.Duplicate {
		t.Errorf("first post = %+v, want stored", got)
	}

	rec, env = do(t, router, http.MethodPost, "/api/v1/events", mustJSON(t, eventBody("e1", "u1", "p1", "cart_add")))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("duplicate status = %d", rec.Code)
	}
	got = EventAccepted{}
	decodeData(t, env, &got)
	if got.Stored || !got.Duplicate {
		t.Errorf("second post = %+v, want duplicate", got)
	}

	events, err := store.ListEvents(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 1 || events[0].Type != "cart_add" {
		t.Errorf("stored events = %+v, want one canonical cart_add", events)
	}
}

func TestPostEvent_FillsDefaults(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	h := NewHandler(&fakeEngine{}, nil, nil, testConfig())
	h.SetEventPublisher(pub)
	router := newTestRouter(h)

	body := map[string]interface{}{"user_id": "u1", "product_id": "p1", "type": "view"}
	rec, env := do(t, router, http.MethodPost, "/api/v1/events", mustJSON(t, body))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var got EventAccepted
	decodeData(t, env, &got)
	if !got.Published || got.EventID == "" {
		t.Errorf("response = %+v, want published with generated id", got)
	}

	if pub.count() != 1 {
		t.Fatalf("published %d events, want 1", pub.count())
	}
	ev := pub.events[0]
	if ev.EventID != got.EventID || ev.Source != sourceAPI || ev.Timestamp.IsZero() || ev.SchemaVersion != eventprocessor.SchemaVersion {
		t.Errorf("published event = %+v", ev)
	}
}

func TestPostEvent_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		store      EventStore
		publisher  EventPublisher
		body       string
		wantStatus int
		wantCode   string
	}{
		{"unknown event type", database.NewMemoryStore(), nil, `{"user_id":"u1","product_id":"p1","type":"wishlist"}`, http.StatusBadRequest, ErrCodeValidationFailed},
		{"blank user", database.NewMemoryStore(), nil, `{"user_id":"  ","product_id":"p1","type":"view"}`, http.StatusBadRequest, ErrCodeValidationFailed},
		{"missing product", database.NewMemoryStore(), nil, `{"user_id":"u1","type":"view"}`, http.StatusBadRequest, ErrCodeValidationFailed},
		{"malformed json", database.NewMemoryStore(), nil, `{"user_id":`, http.StatusBadRequest, ErrCodeBadRequest},
		{"empty body", database.NewMemoryStore(), nil, ``, http.StatusBadRequest, ErrCodeValidationFailed},
		{"oversized body", database.NewMemoryStore(), nil, `{"user_id":"` + strings.Repeat("x", MaxBodyBytes) + `"}`, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge},
		{"store down", &failingStore{err: errStoreDown}, nil, `{"user_id":"u1","product_id":"p1","type":"view"}`, http.StatusInternalServerError, ErrCodeInternalError},
		{"breaker open", &failingStore{err: fmt.Errorf("store duckdb unavailable: %w", gobreaker.ErrOpenState)}, nil, `{"user_id":"u1","product_id":"p1","type":"view"}`, http.StatusServiceUnavailable, ErrCodeStoreUnavailable},
		{"store closed", &failingStore{err: database.ErrClosed}, nil, `{"user_id":"u1","product_id":"p1","type":"view"}`, http.StatusServiceUnavailable, ErrCodeStoreUnavailable},
		{"publisher breaker open", nil, &recordingPublisher{err: gobreaker.ErrOpenState}, `{"user_id":"u1","product_id":"p1","type":"view"}`, http.StatusServiceUnavailable, ErrCodeStoreUnavailable},
		{"ingestion disabled", nil, nil, `{"user_id":"u1","product_id":"p1","type":"view"}`, http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHandler(&fakeEngine{}, nil, tt.store, testConfig())
			if tt.publisher != nil {
				h.SetEventPublisher(tt.publisher)
			}
			router := newTestRouter(h)

			rec, env := do(t, router, http.MethodPost, "/api/v1/events", []byte(tt.body))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if env.Error == nil || env.Error.Code != tt.wantCode {
				t.Fatalf("error = %+v, want %s", env.Error, tt.wantCode)
			}
		})
	}
}

func TestPostEventBatch(t *testing.T) {
	t.Parallel()

	store := database.NewMemoryStore()
	router := newTestRouter(NewHandler(&fakeEngine{}, nil, store, testConfig()))

	batch := []interface{}{
		eventBody("b1", "u1", "p1", "view"),
		eventBody("b2", "u1", "p2", "purchase"),
		eventBody("b3", "u2", "p1", "teleport"),
		nil,
		eventBody("b1", "u1", "p1", "view"),
	}
	rec, env := do(t, router, http.MethodPost, "/api/v1/events/batch", mustJSON(t, batch))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var got BatchAccepted
	decodeData(t, env, &got)
	if got.Accepted != 3 || got.Rejected != 2 || len(got.Results) != 5 {
		t.Fatalf("batch = %+v, want 3 accepted and 2 rejected", got)
	}
	if !got.Results[0].Stored || !got.Results[1].Stored {
		t.Errorf("results[0:2] = %+v, want stored", got.Results[:2])
	}
	if got.Results[2].Error == "" || got.Results[3].Error == "" {
		t.Errorf("results[2:4] = %+v, want per-item errors", got.Results[2:4])
	}
	if !got.Results[4].Duplicate {
		t.Errorf("results[4] = %+v, want duplicate", got.Results[4])
	}

	counts, err := store.GetRecordCounts(context.Background())
	if err != nil {
		t.Fatalf("GetRecordCounts() error = %v", err)
	}
	if counts.Events != 2 {
		t.Errorf("stored %d events, want 2", counts.Events)
	}
}

func TestPostEventBatch_Limits(t *testing.T) {
	t.Parallel()

	router := newTestRouter(NewHandler(&fakeEngine{}, nil, database.NewMemoryStore(), testConfig()))

	rec, env := do(t, router, http.MethodPost, "/api/v1/events/batch", []byte(`[]`))
	if rec.Code != http.StatusBadRequest || env.Error == nil {
		t.Errorf("empty batch status = %d, error = %+v", rec.Code, env.Error)
	}

	small := map[string]string{"user_id": "u", "product_id": "p", "type": "view"}
	oversized := make([]interface{}, MaxBatchSize+1)
	for i := range oversized {
		oversized[i] = small
	}
	rec, env = do(t, router, http.MethodPost, "/api/v1/events/batch", mustJSON(t, oversized))
	if rec.Code != http.StatusRequestEntityTooLarge || env.Error == nil || env.Error.Code != ErrCodePayloadTooLarge {
		t.Errorf("oversized batch status = %d, error = %+v", rec.Code, env.Error)
	}
}
