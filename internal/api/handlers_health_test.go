// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package api

import (
	"net/http"
	"testing"

	"github.com/tomtom215/basket/internal/database"
	"github.com/tomtom215/basket/internal/recommend"
)

func TestHealthLive(t *testing.T) {
	t.Parallel()

	h := NewHandler(&fakeEngine{}, nil, nil, testConfig())
	h.SetVersion("1.2.3")

	rec, env := do(t, newTestRouter(h), http.MethodGet, "/health/live", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got LiveStatus
	decodeData(t, env, &got)
	if !got.Alive || got.Version != "1.2.3" {
		t.Errorf("live = %+v", got)
	}
}

func TestHealthReady(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		snap       *recommend.Snapshot
		store      EventStore
		wantStatus int
	}{
		{"snapshot served", testSnapshot(), nil, http.StatusOK},
		{"snapshot served with store down", testSnapshot(), &failingStore{err: errStoreDown}, http.StatusOK},
		{"no snapshot, store reachable", nil, database.NewMemoryStore(), http.StatusOK},
		{"no snapshot, store down", nil, &failingStore{err: errStoreDown}, http.StatusServiceUnavailable},
		{"no snapshot, no store", nil, nil, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHandler(&fakeEngine{snap: tt.snap}, nil, tt.store, testConfig())
			rec, env := do(t, newTestRouter(h), http.MethodGet, "/health/ready", nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus == http.StatusServiceUnavailable && (env.Error == nil || env.Error.Message == "") {
				t.Errorf("error = %+v, want a reason", env.Error)
			}
		})
	}
}
