// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package eventprocessor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/basket/internal/database"
	"github.com/tomtom215/basket/internal/recommend"
)

const testTopic = "storefront.events.view"

// failingAppender fails every append with a store error.
type failingAppender struct {
	calls atomic.Int32
}

var errStoreDown = errors.New("store down")

func (f *failingAppender) AppendRecord(context.Context, database.Record) (bool, error) {
	f.calls.Add(1)
	return false, errStoreDown
}

func fastRetryConfig() RouterConfig {
	cfg := DefaultRouterConfig()
	cfg.CloseTimeout = 5 * time.Second
	cfg.RetryMaxRetries = 2
	cfg.RetryInitialInterval = time.Millisecond
	cfg.RetryMaxInterval = 5 * time.Millisecond
	cfg.PoisonQueueTopic = "test.dlq"
	return cfg
}

func TestNewIngestHandler_NilStore(t *testing.T) {
	t.Parallel()

	if _, err := NewIngestHandler(nil, zerolog.Nop()); !errors.Is(err, ErrNilStore) {
		t.Errorf("NewIngestHandler(nil) = %v, want ErrNilStore", err)
	}
}

func TestIngestHandler_Handle(t *testing.T) {
	t.Parallel()

	store := database.NewMemoryStore()
	h, err := NewIngestHandler(store, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewIngestHandler() error = %v", err)
	}

	valid, _ := SerializeEvent(validTestEvent())

	missingIDPayload := []byte(`{"user_id":"u2","product_id":"p2","type":"cart","timestamp":"2026-03-01T09:00:00Z"}`)

	tests := []struct {
		name    string
		msg     *message.Message
		wantErr bool
	}{
		{"valid", message.NewMessage("m1", valid), false},
		{"duplicate", message.NewMessage("m2", valid), false},
		{"malformed", message.NewMessage("m3", []byte("{")), false},
		{"invalid type", message.NewMessage("m4", []byte(`{"event_id":"x","user_id":"u","product_id":"p","type":"wishlist","timestamp":"2026-03-01T09:00:00Z"}`)), false},
		{"id from message", message.NewMessage("m5", missingIDPayload), false},
	}

	for _, tt := range tests {
		if err := h.Handle(tt.msg); (err != nil) != tt.wantErr {
			t.Errorf("%s: Handle() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}

	stats := h.Stats()
	want := IngestStats{Received: 5, Stored: 2, Duplicates: 1, Rejected: 2}
	if stats != want {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}

	events, err := store.ListEvents(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("stored %d events, want 2", len(events))
	}
	if events[1].UserID != "u2" || events[1].Type != recommend.EventCartAdd {
		t.Errorf("second event = %+v, want normalized cart_add for u2", events[1])
	}

	// The message UUID stands in for the missing event id, so redelivery is absorbed.
	if err := h.Handle(message.NewMessage("m5", missingIDPayload)); err != nil {
		t.Fatalf("Handle() redelivery error = %v", err)
	}
	if got := h.Stats().Duplicates; got != 2 {
		t.Errorf("Duplicates = %d, want 2", got)
	}
}

func TestIngestHandler_StoreErrorIsReturned(t *testing.T) {
	t.Parallel()

	store := &failingAppender{}
	h, _ := NewIngestHandler(store, zerolog.Nop())

	payload, _ := SerializeEvent(validTestEvent())
	err := h.Handle(message.NewMessage("m1", payload))
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("Handle() = %v, want errStoreDown", err)
	}
	if got := h.Stats().Failed; got != 1 {
		t.Errorf("Failed = %d, want 1", got)
	}
}

func TestRouter_IngestPipeline(t *testing.T) {
	t.Parallel()

	ps := newTestPubSub(t)
	store := database.NewMemoryStore()
	h, _ := NewIngestHandler(store, zerolog.Nop())

	cfg := fastRetryConfig()
	r, err := NewRouter(&cfg, ps, watermill.NopLogger{})
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	r.AddConsumerHandler("ingest", testTopic, ps, h.Handle)
	if r.Handlers() != 1 {
		t.Errorf("Handlers() = %d, want 1", r.Handlers())
	}
	startRouter(t, r)
	if !r.IsRunning() {
		waitFor(t, time.Second, "router running", r.IsRunning)
	}

	pub, _ := WrapPublisher(ps, nil)
	ctx := context.Background()

	first := validTestEvent()
	second := validTestEvent()
	second.EventID = "evt-2"
	second.UserID = "u2"
	for _, e := range []*StorefrontEvent{first, second, first} {
		if err := pub.Publish(ctx, testTopic, mustMessage(t, e)); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}
	if err := pub.Publish(ctx, testTopic, message.NewMessage(watermill.NewUUID(), []byte("garbage"))); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	waitFor(t, 5*time.Second, "four handled messages", func() bool { return h.Stats().Received == 4 })

	counts, err := store.GetRecordCounts(ctx)
	if err != nil {
		t.Fatalf("GetRecordCounts() error = %v", err)
	}
	if counts.Events != 2 || counts.Users != 2 {
		t.Errorf("counts = %+v, want 2 events from 2 users", counts)
	}
	if stats := h.Stats(); stats.Duplicates != 1 || stats.Rejected != 1 {
		t.Errorf("Stats() = %+v, want 1 duplicate and 1 rejected", stats)
	}
}

func TestRouter_RetriesThenPoisonQueue(t *testing.T) {
	t.Parallel()

	ps := newTestPubSub(t)
	store := &failingAppender{}
	h, _ := NewIngestHandler(store, zerolog.Nop())

	ctx := context.Background()
	poisoned, err := ps.Subscribe(ctx, "test.dlq")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	cfg := fastRetryConfig()
	r, err := NewRouter(&cfg, ps, nil)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	r.AddConsumerHandler("ingest", testTopic, ps, h.Handle)
	startRouter(t, r)

	msg := mustMessage(t, validTestEvent())
	if err := ps.Publish(testTopic, msg); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	dead := receive(t, poisoned)
	if dead.UUID != msg.UUID {
		t.Errorf("poisoned UUID = %q, want %q", dead.UUID, msg.UUID)
	}
	if got := store.calls.Load(); got != int32(cfg.RetryMaxRetries+1) {
		t.Errorf("store calls = %d, want %d", got, cfg.RetryMaxRetries+1)
	}
}

func TestRouter_Defaults(t *testing.T) {
	t.Parallel()

	cfg := DefaultRouterConfig()
	if cfg.RetryMaxRetries != 3 || cfg.RetryInitialInterval != 100*time.Millisecond {
		t.Errorf("retry defaults = %d/%v", cfg.RetryMaxRetries, cfg.RetryInitialInterval)
	}
	if cfg.PoisonQueueTopic != DeadLetterSubject {
		t.Errorf("PoisonQueueTopic = %q, want %q", cfg.PoisonQueueTopic, DeadLetterSubject)
	}

	r, err := NewRouter(nil, nil, nil)
	if err != nil {
		t.Fatalf("NewRouter(nil, nil, nil) error = %v", err)
	}
	if r.IsRunning() {
		t.Error("new router should not be running")
	}
}

func mustMessage(t *testing.T, e *StorefrontEvent) *message.Message {
	t.Helper()
	data, err := SerializeEvent(e)
	if err != nil {
		t.Fatalf("SerializeEvent() error = %v", err)
	}
	return message.NewMessage(e.EventID, data)
}
