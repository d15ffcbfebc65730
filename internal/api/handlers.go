// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/basket/internal/config"
	"github.com/tomtom215/basket/internal/database"
	"github.com/tomtom215/basket/internal/logging"
	"github.com/tomtom215/basket/internal/recommend"
)

// Recommender serves recommendations. *recommend.Engine implements it.
type Recommender interface {
	Recommend(ctx context.Context, userID string, k int) (*recommend.Result, error)
	Status() recommend.Status
	Snapshot() *recommend.Snapshot
	Limits() recommend.LimitsConfig
}

// Recomputer runs recompute cycles. *recommend.Scheduler implements it.
type Recomputer interface {
	Trigger() bool
	RunOnce(ctx context.Context) (*recommend.CycleResult, error)
	State() recommend.SchedulerState
	Status() recommend.SchedulerStatus
}

// EventStore is the slice of database.Store the API writes events to and
// probes for readiness.
type EventStore interface {
	AppendRecord(ctx context.Context, rec database.Record) (bool, error)
	GetRecordCounts(ctx context.Context) (database.Counts, error)
	Ping(ctx context.Context) error
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across files:
//   - handlers_recommend.go: recommendations, popular, status, recompute
//   - handler_event_publisher.go: event ingestion
//   - handlers_health.go: liveness and readiness probes
type Handler struct {
	engine    Recommender
	scheduler Recomputer     // optional; recompute endpoints answer 503 without it
	store     EventStore     // optional when a publisher is set
	publisher EventPublisher // optional; events go to NATS instead of the store
	maxK      int
	startTime time.Time
	version   string
}

// NewHandler creates a new API handler.
//
// engine is required. scheduler and store may be nil for read-only
// deployments; the endpoints that need them answer 503.
func NewHandler(engine Recommender, scheduler Recomputer, store EventStore, cfg *config.Config) *Handler {
	maxK := config.Default().API.MaxK
	if cfg != nil && cfg.API.MaxK > 0 {
		maxK = cfg.API.MaxK
	}
	return &Handler{
		engine:    engine,
		scheduler: scheduler,
		store:     store,
		maxK:      maxK,
		startTime: time.Now(),
		version:   "dev",
	}
}

// SetVersion sets the build version reported by the readiness probe.
func (h *Handler) SetVersion(version string) {
	if version != "" {
		h.version = version
	}
}

// respondError maps err to a status and code and writes the error envelope.
// Server-side failures are logged with the request id; the response carries
// fallback instead of the internal error text.
func respondError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if r.Context().Err() != nil && errors.Is(err, r.Context().Err()) {
		// Client went away; nothing useful can be written.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Request canceled by client")
		return
	}

	status, code := errorStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().
			Err(err).
			Str("code", code).
			Str("path", r.URL.Path).
			Msg("Request failed")
		if status == http.StatusInternalServerError {
			message = fallback
		}
	}
	NewResponseWriter(w, r).Error(status, code, message)
}

// respondInvalidParam writes a 400 for a query or path parameter that did
// not parse.
func respondInvalidParam(w http.ResponseWriter, r *http.Request, perr *errInvalidParam) {
	NewResponseWriter(w, r).ErrorWithDetails(http.StatusBadRequest, ErrCodeValidationFailed, perr.Error(), map[string]interface{}{
		"field": perr.Name,
		"value": perr.Value,
	})
}

// respondParamError handles errors returned by intQueryParam and pathParam.
func respondParamError(w http.ResponseWriter, r *http.Request, err error) {
	var perr *errInvalidParam
	if errors.As(err, &perr) {
		respondInvalidParam(w, r, perr)
		return
	}
	respondError(w, r, err, "Invalid request")
}
