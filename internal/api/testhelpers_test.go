// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/basket/internal/config"
	"github.com/tomtom215/basket/internal/database"
	"github.com/tomtom215/basket/internal/eventprocessor"
	"github.com/tomtom215/basket/internal/recommend"
)

// fakeEngine is a scripted Recommender.
type fakeEngine struct {
	mu      sync.Mutex
	result  *recommend.Result
	err     error
	snap    *recommend.Snapshot
	status  recommend.Status
	limits  *recommend.LimitsConfig
	gotUser string
	gotK    int
}

func (e *fakeEngine) Recommend(_ context.Context, userID string, k int) (*recommend.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gotUser, e.gotK = userID, k
	if e.err != nil {
		return nil, e.err
	}
	res := *e.result
	res.UserID = userID
	return &res, nil
}

func (e *fakeEngine) Status() recommend.Status { return e.status }

func (e *fakeEngine) Snapshot() *recommend.Snapshot { return e.snap }

func (e *fakeEngine) Limits() recommend.LimitsConfig {
	if e.limits != nil {
		return *e.limits
	}
	return recommend.DefaultConfig().Limits
}

// fakeScheduler is a scripted Recomputer.
type fakeScheduler struct {
	mu        sync.Mutex
	triggered int
	coalesce  bool
	result    *recommend.CycleResult
	err       error
}

func (s *fakeScheduler) Trigger() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggered++
	return !s.coalesce
}

func (s *fakeScheduler) RunOnce(context.Context) (*recommend.CycleResult, error) {
	return s.result, s.err
}

func (s *fakeScheduler) State() recommend.SchedulerState { return recommend.StateIdle }

func (s *fakeScheduler) Status() recommend.SchedulerStatus {
	return recommend.SchedulerStatus{State: recommend.StateIdle.String(), Cycles: 1}
}

// failingStore fails every call with err.
type failingStore struct {
	err error
}

func (s *failingStore) AppendRecord(context.Context, database.Record) (bool, error) {
	return false, s.err
}

func (s *failingStore) GetRecordCounts(context.Context) (database.Counts, error) {
	return database.Counts{}, s.err
}

func (s *failingStore) Ping(context.Context) error { return s.err }

// recordingPublisher records published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventprocessor.StorefrontEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, event *eventprocessor.StorefrontEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

var errStoreDown = errors.New("store down")

// testConfig returns a config with a small API k limit.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.API.MaxK = 50
	cfg.API.RateLimitDisabled = true
	return cfg
}

// newTestRouter builds the full chi handler around h with rate limiting off.
func newTestRouter(h *Handler) http.Handler {
	mc := DefaultChiMiddlewareConfig()
	mc.RateLimitDisabled = true
	return NewRouter(h, NewChiMiddleware(mc)).SetupChi()
}

// envelope is APIResponse with Data left raw for per-test decoding.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

// do sends a request through handler and decodes the envelope.
func do(t *testing.T, handler http.Handler, method, target string, body []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: response is not an envelope: %v\n%s", method, target, err, rec.Body.String())
		}
	}
	return rec, env
}

// decodeData unmarshals the envelope payload into v.
func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v\n%s", err, env.Data)
	}
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func testSnapshot() *recommend.Snapshot {
	return &recommend.Snapshot{
		Version:     3,
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Algorithm:   "itemcf",
		Popular:     []string{"p1", "p2", "p3", "p4"},
		Fallback:    []string{"p1", "p2", "p3", "p4", "p5"},
		Catalog:     map[string]struct{}{"p1": {}, "p2": {}, "p3": {}, "p4": {}, "p5": {}},
	}
}
