// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package metrics

import (
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for:
// - Event and catalog store queries (DuckDB)
// - Recommendation serving and recompute cycles
// - Event ingestion over NATS JetStream
// - API endpoint latency and throughput
// - Circuit breakers

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "basket_db_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basket_db_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// Serving Metrics
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basket_recommend_requests_total",
			Help: "Total recommendation requests by answer source",
		},
		[]string{"source"}, // "cache", "computed", "fallback", "error"
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "basket_recommend_request_duration_seconds",
			Help:    "Time to answer one recommendation request",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	RecommendCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "basket_recommend_cache_entries",
			Help: "Entries in the current recommendation cache generation",
		},
	)

	RecommendStaleEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "basket_recommend_stale_entries_total",
			Help: "Cache entries discarded because they referenced a superseded model",
		},
	)

	ModelVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "basket_recommend_model_version",
			Help: "Version of the snapshot currently being served",
		},
	)

	// Recompute Metrics
	RecomputeCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basket_recommend_cycles_total",
			Help: "Recompute cycles by result",
		},
		[]string{"result"}, // "published", "insufficient_data", "busy", "cancelled", "failed"
	)

	RecomputeStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "basket_recommend_cycle_duration_seconds",
			Help:    "Duration of recompute cycle stages",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300, 600},
		},
		[]string{"stage"}, // "extract", "train", "publish", "total"
	)

	RecomputeLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "basket_recommend_last_publish_timestamp_seconds",
			Help: "Unix time of the last published snapshot",
		},
	)

	RecomputeUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "basket_recommend_snapshot_users",
			Help: "Users in the last published snapshot",
		},
	)

	// Ingestion Metrics
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basket_events_ingested_total",
			Help: "Storefront events appended to the event log",
		},
		[]string{"type"},
	)

	EventsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basket_events_rejected_total",
			Help: "Storefront events dropped before reaching the event log",
		},
		[]string{"reason"}, // "decode", "invalid", "duplicate"
	)

	NATSMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "basket_nats_messages_published_total",
			Help: "Messages published to NATS JetStream",
		},
	)

	NATSMessagesConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "basket_nats_messages_consumed_total",
			Help: "Messages consumed from NATS JetStream",
		},
	)

	NATSProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "basket_nats_processing_duration_seconds",
			Help:    "Time to process one consumed message",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basket_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "basket_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "basket_http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basket_http_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "basket_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basket_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "basket_circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basket_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "basket_app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "basket_app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordRecommendation records one answered (or failed) recommendation request.
func RecordRecommendation(source string, duration time.Duration) {
	RecommendRequests.WithLabelValues(source).Inc()
	RecommendDuration.Observe(duration.Seconds())
}

// RecordStaleEntries adds n discarded stale cache entries.
func RecordStaleEntries(n int64) {
	if n > 0 {
		RecommendStaleEntries.Add(float64(n))
	}
}

// SetServingState publishes the served model version and cache size.
func SetServingState(modelVersion uint64, cacheEntries int) {
	ModelVersion.Set(float64(modelVersion))
	RecommendCacheEntries.Set(float64(cacheEntries))
}

// CycleTimings are the stage durations of one recompute cycle.
type CycleTimings struct {
	Extract time.Duration
	Train   time.Duration
	Publish time.Duration
	Total   time.Duration
}

// RecordCycle records the outcome of a recompute cycle. Timings are only
// observed for published cycles.
//
//nolint:gocritic // timings passed by value is acceptable for this small struct
func RecordCycle(result string, timings CycleTimings, users int) {
	RecomputeCycles.WithLabelValues(result).Inc()
	if result != "published" {
		return
	}
	RecomputeStageDuration.WithLabelValues("extract").Observe(timings.Extract.Seconds())
	RecomputeStageDuration.WithLabelValues("train").Observe(timings.Train.Seconds())
	RecomputeStageDuration.WithLabelValues("publish").Observe(timings.Publish.Seconds())
	RecomputeStageDuration.WithLabelValues("total").Observe(timings.Total.Seconds())
	RecomputeLastSuccess.Set(float64(time.Now().Unix()))
	RecomputeUsers.Set(float64(users))
}

// RecordEventIngested records an event appended to the log.
func RecordEventIngested(eventType string) {
	EventsIngested.WithLabelValues(eventType).Inc()
}

// RecordEventRejected records an event dropped before the log.
func RecordEventRejected(reason string) {
	EventsRejected.WithLabelValues(reason).Inc()
}

// RecordNATSPublish records a message published to NATS.
func RecordNATSPublish() {
	NATSMessagesPublished.Inc()
}

// RecordNATSConsume records a message consumed from NATS and how long it took.
func RecordNATSConsume(duration time.Duration) {
	NATSMessagesConsumed.Inc()
	NATSProcessingDuration.Observe(duration.Seconds())
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit records a request rejected by the rate limiter.
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

// SetAppInfo records the build version once at startup.
func SetAppInfo(version string) {
	AppInfo.WithLabelValues(version, runtime.Version()).Set(1)
}

// UpdateUptime sets the uptime gauge from the process start time.
func UpdateUptime(start time.Time) {
	AppUptime.Set(time.Since(start).Seconds())
}

// StatusLabel converts an HTTP status code to a metric label.
func StatusLabel(code int) string {
	return strconv.Itoa(code)
}
