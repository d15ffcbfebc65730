// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/basket/internal/database"
	"github.com/tomtom215/basket/internal/middleware"
	"github.com/tomtom215/basket/internal/recommend"
	"github.com/tomtom215/basket/internal/recommend/algorithms"
)

func TestRouter_NotFoundAndMethod(t *testing.T) {
	t.Parallel()

	router := newTestRouter(NewHandler(&fakeEngine{}, nil, nil, testConfig()))

	rec, env := do(t, router, http.MethodGet, "/api/v1/nope", nil)
	if rec.Code != http.StatusNotFound || env.Error == nil || env.Error.Code != ErrCodeNotFound {
		t.Errorf("unknown route: status %d, error %+v", rec.Code, env.Error)
	}

	rec, env = do(t, router, http.MethodDelete, "/api/v1/events", nil)
	if rec.Code != http.StatusMethodNotAllowed || env.Error == nil {
		t.Errorf("wrong method: status %d, error %+v", rec.Code, env.Error)
	}
}

func TestRouter_RequestIDPropagates(t *testing.T) {
	t.Parallel()

	router := newTestRouter(NewHandler(&fakeEngine{}, nil, nil, testConfig()))

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set(middleware.RequestIDHeader, "edge-abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get(middleware.RequestIDHeader); got != "edge-abc-123" {
		t.Errorf("response %s = %q", middleware.RequestIDHeader, got)
	}
	if !strings.Contains(rec.Body.String(), `"request_id":"edge-abc-123"`) {
		t.Errorf("body does not carry the request id: %s", rec.Body.String())
	}
}

func TestRouter_Metrics(t *testing.T) {
	t.Parallel()

	router := newTestRouter(NewHandler(&fakeEngine{snap: testSnapshot()}, nil, nil, testConfig()))
	do(t, router, http.MethodGet, "/api/v1/recommendations/popular", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `endpoint="/api/v1/recommendations/popular"`) {
		t.Error("/metrics does not expose the route-pattern label")
	}
}

// TestRouter_EndToEnd drives the real engine and scheduler over HTTP:
// events in, synchronous recompute, recommendations out.
func TestRouter_EndToEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := database.NewMemoryStore()
	products := make([]database.Product, 0, 5)
	for i := 1; i <= 5; i++ {
		products = append(products, database.Product{ID: fmt.Sprintf("p%d", i), Sellable: true})
	}
	if err := store.UpsertProducts(ctx, products); err != nil {
		t.Fatalf("UpsertProducts() error = %v", err)
	}

	cfg := recommend.DefaultConfig()
	model, err := algorithms.New(cfg.Model)
	if err != nil {
		t.Fatalf("algorithms.New() error = %v", err)
	}
	engine, err := recommend.NewEngine(cfg, model, store, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	sched, err := recommend.NewScheduler(engine, store, store, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	router := newTestRouter(NewHandler(engine, sched, store, testConfig()))

	// Before any recompute: fallback from the catalog, and a synchronous
	// recompute with no events reports insufficient data.
	rec, env := do(t, router, http.MethodGet, "/api/v1/recommendations/u1?k=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pre-recompute status = %d: %s", rec.Code, rec.Body.String())
	}
	var res recommend.Result
	decodeData(t, env, &res)
	if res.Personalized || len(res.Items) != 3 {
		t.Errorf("pre-recompute result = %+v, want 3 fallback items", res)
	}
	if rec, _ := do(t, router, http.MethodPost, "/api/v1/admin/recompute?wait=true", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty-log recompute status = %d, want 422", rec.Code)
	}

	// u1 bought p1 and p2; u2 bought p1 and viewed p3. u1 should be steered to p3.
	now := time.Now().UTC()
	batch := []map[string]interface{}{
		{"event_id": "e1", "user_id": "u1", "product_id": "p1", "type": "view", "timestamp": now.Add(-3 * time.Hour)},
		{"event_id": "e2", "user_id": "u1", "product_id": "p2", "type": "purchase", "timestamp": now.Add(-2 * time.Hour)},
		{"event_id": "e3", "user_id": "u2", "product_id": "p1", "type": "purchase", "timestamp": now.Add(-2 * time.Hour)},
		{"event_id": "e4", "user_id": "u2", "product_id": "p3", "type": "cart_add", "timestamp": now.Add(-time.Hour)},
	}
	rec, _ = do(t, router, http.MethodPost, "/api/v1/events/batch", mustJSON(t, batch))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("batch status = %d: %s", rec.Code, rec.Body.String())
	}

	rec, env = do(t, router, http.MethodPost, "/api/v1/admin/recompute?wait=true", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("recompute status = %d: %s", rec.Code, rec.Body.String())
	}
	var cycle recommend.CycleResult
	decodeData(t, env, &cycle)
	if cycle.Version != 1 || cycle.Users != 2 || cycle.Events != 4 {
		t.Errorf("cycle = %+v", cycle)
	}

	rec, env = do(t, router, http.MethodGet, "/api/v1/recommendations/u1?k=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("recommend status = %d", rec.Code)
	}
	res = recommend.Result{}
	decodeData(t, env, &res)
	if !res.Personalized || res.ModelVersion != 1 {
		t.Errorf("result = %+v, want personalized from version 1", res)
	}
	if !slices.Contains(res.Items, "p3") || slices.Contains(res.Items, "p2") {
		t.Errorf("items = %v, want p3 and never the purchased p2", res.Items)
	}

	rec, env = do(t, router, http.MethodGet, "/api/v1/recommendations/popular?k=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("popular status = %d", rec.Code)
	}
	var popular PopularResponse
	decodeData(t, env, &popular)
	if len(popular.Items) != 1 || popular.Items[0] != "p1" {
		t.Errorf("popular = %+v, want p1 first", popular)
	}

	if rec, _ := do(t, router, http.MethodGet, "/health/ready", nil); rec.Code != http.StatusOK {
		t.Errorf("ready status = %d after recompute", rec.Code)
	}
}
