// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package api

import (
	"context"
	"net/http"
	"time"
)

// readinessTimeout bounds the store ping of the readiness probe.
const readinessTimeout = 2 * time.Second

// LiveStatus is the body of GET /health/live.
type LiveStatus struct {
	Alive   bool    `json:"alive"`
	Uptime  float64 `json:"uptime_seconds"`
	Version string  `json:"version"`
}

// ReadyStatus is the body of GET /health/ready.
type ReadyStatus struct {
	Ready          bool   `json:"ready"`
	ModelVersion   uint64 `json:"model_version"`
	StoreReachable bool   `json:"store_reachable"`
	Reason         string `json:"reason,omitempty"`
}

// HealthLive handles liveness probe requests.
// Returns 200 OK if the process is alive, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(LiveStatus{
		Alive:   true,
		Uptime:  time.Since(h.startTime).Seconds(),
		Version: h.version,
	})
}

// HealthReady handles readiness probe requests.
// The service is ready once a snapshot is being served or, before the first
// recompute, once the store answers so fallback lists can be built.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	status := ReadyStatus{ModelVersion: h.engine.Status().ModelVersion}

	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		status.StoreReachable = h.store.Ping(ctx) == nil
		cancel()
	}

	switch {
	case h.engine.Snapshot() != nil:
		status.Ready = true
	case status.StoreReachable:
		status.Ready = true
	case h.store == nil:
		status.Reason = "no model published and no store configured"
	default:
		status.Reason = "no model published and store unreachable"
	}

	rw := NewResponseWriter(w, r)
	if !status.Ready {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, status.Reason, status)
		return
	}
	rw.Success(status)
}
