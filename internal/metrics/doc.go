// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

/*
Package metrics provides Prometheus metrics collection and export for observability.

All metrics are registered with the default registry through promauto and are
exposed at GET /metrics in Prometheus text format.

# Available Metrics

Serving:
  - basket_recommend_requests_total{source}: cache, computed, fallback or error
  - basket_recommend_request_duration_seconds: time to answer one request
  - basket_recommend_cache_entries: entries in the current cache generation
  - basket_recommend_stale_entries_total: entries discarded as superseded
  - basket_recommend_model_version: version of the snapshot being served

Recompute:
  - basket_recommend_cycles_total{result}
  - basket_recommend_cycle_duration_seconds{stage}: extract, train, publish, total
  - basket_recommend_last_publish_timestamp_seconds
  - basket_recommend_snapshot_users

Ingestion:
  - basket_events_ingested_total{type}
  - basket_events_rejected_total{reason}
  - basket_nats_messages_published_total, basket_nats_messages_consumed_total
  - basket_nats_processing_duration_seconds

HTTP:
  - basket_http_requests_total{method,endpoint,status}
  - basket_http_request_duration_seconds{method,endpoint}
  - basket_http_requests_in_flight
  - basket_http_rate_limit_hits_total{endpoint}

Database and resilience:
  - basket_db_query_duration_seconds{operation,table}
  - basket_db_query_errors_total{operation,table}
  - basket_circuit_breaker_state{name}: 0=closed, 1=half-open, 2=open
  - basket_circuit_breaker_requests_total{name,result}
  - basket_circuit_breaker_consecutive_failures{name}
  - basket_circuit_breaker_state_transitions_total{name,from_state,to_state}

# Usage

	start := time.Now()
	res, err := engine.Recommend(ctx, userID, k)
	metrics.RecordRecommendation(source(res, err), time.Since(start))

# Thread Safety

All recording functions are safe for concurrent use.
*/
package metrics
