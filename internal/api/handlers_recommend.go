// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/basket/internal/database"
	"github.com/tomtom215/basket/internal/logging"
	"github.com/tomtom215/basket/internal/metrics"
	"github.com/tomtom215/basket/internal/recommend"
	"github.com/tomtom215/basket/internal/validation"
)

// Recommendation sources reported on basket_recommend_requests_total.
const (
	sourceCache    = "cache"
	sourceComputed = "computed"
	sourceFallback = "fallback"
	sourceError    = "error"
)

// resultSource classifies how a result was produced.
func resultSource(res *recommend.Result) string {
	switch {
	case res.CacheHit:
		return sourceCache
	case res.Personalized:
		return sourceComputed
	default:
		return sourceFallback
	}
}

// PopularResponse is the body of GET /recommendations/popular.
type PopularResponse struct {
	Items        []string  `json:"items"`
	ModelVersion uint64    `json:"model_version"`
	GeneratedAt  time.Time `json:"generated_at,omitempty"`
}

// StatusResponse is the body of GET /recommendations/status.
type StatusResponse struct {
	Engine    recommend.Status           `json:"engine"`
	Scheduler *recommend.SchedulerStatus `json:"scheduler,omitempty"`
	Store     *database.Counts           `json:"store,omitempty"`
}

// RecomputeTriggered is the body of an asynchronous recompute request.
type RecomputeTriggered struct {
	Triggered bool   `json:"triggered"`
	State     string `json:"state"`
}

// GetRecommendations handles GET /api/v1/recommendations/{userID}?k=N.
// k=0 or a missing k means the configured default; k above the serving
// limit is clamped by the engine; k above the API limit is rejected.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rw := NewResponseWriter(w, r)

	userID, err := pathParam(r, "userID")
	if err != nil {
		respondParamError(w, r, err)
		return
	}
	k, err := intQueryParam(r, "k")
	if err != nil {
		respondParamError(w, r, err)
		return
	}

	req := RecommendationRequest{UserID: userID, K: k}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr)
		return
	}
	if req.K > h.maxK {
		respondInvalidParam(w, r, &errInvalidParam{
			Name:   "k",
			Value:  fmt.Sprint(req.K),
			Reason: fmt.Sprintf("must be at most %d", h.maxK),
		})
		return
	}

	res, err := h.engine.Recommend(r.Context(), req.UserID, req.K)
	if err != nil {
		metrics.RecordRecommendation(sourceError, time.Since(start))
		respondError(w, r, err, "Failed to compute recommendations")
		return
	}

	metrics.RecordRecommendation(resultSource(res), time.Since(start))
	rw.Success(res)
}

// GetPopular handles GET /api/v1/recommendations/popular?k=N.
// It returns the non-personalized ranking of the current snapshot, or an
// empty list before the first recompute.
func (h *Handler) GetPopular(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	k, err := intQueryParam(r, "k")
	if err != nil {
		respondParamError(w, r, err)
		return
	}
	req := PopularRequest{K: k}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr)
		return
	}

	resp := PopularResponse{Items: []string{}}
	if snap := h.engine.Snapshot(); snap != nil {
		limit := min(h.engine.Limits().ResolveK(req.K), h.maxK)
		if limit > len(snap.Popular) {
			limit = len(snap.Popular)
		}
		resp.Items = append(resp.Items, snap.Popular[:limit]...)
		resp.ModelVersion = snap.Version
		resp.GeneratedAt = snap.GeneratedAt
	}
	rw.Success(resp)
}

// GetStatus handles GET /api/v1/recommendations/status.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Engine: h.engine.Status()}
	if h.scheduler != nil {
		st := h.scheduler.Status()
		resp.Scheduler = &st
	}
	if h.store != nil {
		counts, err := h.store.GetRecordCounts(r.Context())
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to read store counts for status")
		} else {
			resp.Store = &counts
		}
	}
	NewResponseWriter(w, r).Success(resp)
}

// Recompute handles POST /api/v1/admin/recompute.
//
// Without ?wait=true the request only queues a cycle and answers 202;
// triggers arriving while one is queued are coalesced. With ?wait=true the
// cycle runs synchronously and the CycleResult is returned: 409 when another
// cycle is running, 422 when there is not enough data to train on.
func (h *Handler) Recompute(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.scheduler == nil {
		rw.ServiceUnavailable(ErrCodeServiceUnavailable, "Recompute scheduler is not running")
		return
	}

	req := RecomputeRequest{Wait: r.URL.Query().Get("wait")}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr)
		return
	}

	if !req.Synchronous() {
		triggered := h.scheduler.Trigger()
		rw.Accepted(RecomputeTriggered{
			Triggered: triggered,
			State:     h.scheduler.State().String(),
		})
		return
	}

	res, err := h.scheduler.RunOnce(r.Context())
	if err != nil {
		status, code := errorStatus(err)
		if status == http.StatusInternalServerError {
			logging.Ctx(r.Context()).Error().Err(err).Msg("Synchronous recompute failed")
			rw.Error(status, ErrCodeRecomputeFailed, "Recompute failed; the previous model is still served")
			return
		}
		if errors.Is(err, recommend.ErrInsufficientData) {
			rw.Error(status, code, "Not enough interaction data to train a model")
			return
		}
		respondError(w, r, err, "Recompute failed")
		return
	}
	rw.Success(res)
}
