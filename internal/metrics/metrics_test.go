// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

// gaugeValue reads a gauge through the client_model protobuf form.
func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestRecordDBQuery(t *testing.T) {
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("select", "events"))
	RecordDBQuery("select", "events", 5*time.Millisecond, nil)
	RecordDBQuery("select", "events", 5*time.Millisecond, errors.New("connection refused"))

	if got := testutil.ToFloat64(DBQueryErrors.WithLabelValues("select", "events")) - before; got != 1 {
		t.Errorf("errors recorded = %v, want 1", got)
	}
}

func TestRecordRecommendation(t *testing.T) {
	sources := []string{"cache", "computed", "fallback", "error"}
	before := make(map[string]float64, len(sources))
	for _, s := range sources {
		before[s] = testutil.ToFloat64(RecommendRequests.WithLabelValues(s))
	}
	for _, s := range sources {
		RecordRecommendation(s, time.Millisecond)
	}
	for _, s := range sources {
		if got := testutil.ToFloat64(RecommendRequests.WithLabelValues(s)) - before[s]; got != 1 {
			t.Errorf("source %s: recorded %v, want 1", s, got)
		}
	}
}

func TestRecordStaleEntries(t *testing.T) {
	before := testutil.ToFloat64(RecommendStaleEntries)
	RecordStaleEntries(0)
	RecordStaleEntries(-3)
	RecordStaleEntries(4)
	if got := testutil.ToFloat64(RecommendStaleEntries) - before; got != 4 {
		t.Errorf("stale entries = %v, want 4", got)
	}
}

func TestSetServingState(t *testing.T) {
	SetServingState(12, 340)
	if got := gaugeValue(t, ModelVersion); got != 12 {
		t.Errorf("model version = %v, want 12", got)
	}
	if got := gaugeValue(t, RecommendCacheEntries); got != 340 {
		t.Errorf("cache entries = %v, want 340", got)
	}
}

func TestRecordCycle(t *testing.T) {
	before := testutil.ToFloat64(RecomputeCycles.WithLabelValues("published"))
	failedBefore := testutil.ToFloat64(RecomputeCycles.WithLabelValues("failed"))

	RecordCycle("published", CycleTimings{
		Extract: 10 * time.Millisecond,
		Train:   50 * time.Millisecond,
		Publish: 5 * time.Millisecond,
		Total:   65 * time.Millisecond,
	}, 42)
	RecordCycle("failed", CycleTimings{}, 0)

	if got := testutil.ToFloat64(RecomputeCycles.WithLabelValues("published")) - before; got != 1 {
		t.Errorf("published cycles = %v, want 1", got)
	}
	if got := testutil.ToFloat64(RecomputeCycles.WithLabelValues("failed")) - failedBefore; got != 1 {
		t.Errorf("failed cycles = %v, want 1", got)
	}
	if got := gaugeValue(t, RecomputeUsers); got != 42 {
		t.Errorf("snapshot users = %v, want 42 (a failed cycle must not reset it)", got)
	}
	if gaugeValue(t, RecomputeLastSuccess) == 0 {
		t.Error("last publish timestamp not set")
	}
}

func TestRecordEvents(t *testing.T) {
	ingested := testutil.ToFloat64(EventsIngested.WithLabelValues("purchase"))
	rejected := testutil.ToFloat64(EventsRejected.WithLabelValues("invalid"))

	RecordEventIngested("purchase")
	RecordEventRejected("invalid")
	RecordEventRejected("invalid")

	if got := testutil.ToFloat64(EventsIngested.WithLabelValues("purchase")) - ingested; got != 1 {
		t.Errorf("ingested = %v, want 1", got)
	}
	if got := testutil.ToFloat64(EventsRejected.WithLabelValues("invalid")) - rejected; got != 2 {
		t.Errorf("rejected = %v, want 2", got)
	}
}

func TestTrackActiveRequest_Concurrent(t *testing.T) {
	before := gaugeValue(t, APIActiveRequests)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			TrackActiveRequest(true)
			TrackActiveRequest(false)
		}()
	}
	wg.Wait()

	if got := gaugeValue(t, APIActiveRequests); got != before {
		t.Errorf("in-flight = %v, want %v", got, before)
	}
}

func TestStatusLabel(t *testing.T) {
	t.Parallel()

	tests := map[int]string{200: "200", 404: "404", 503: "503"}
	for code, want := range tests {
		if got := StatusLabel(code); got != want {
			t.Errorf("StatusLabel(%d) = %q, want %q", code, got, want)
		}
	}
}

// TestMetricGathering checks that every registered metric passes the
// Prometheus linter.
func TestMetricGathering(t *testing.T) {
	SetAppInfo("test")
	UpdateUptime(time.Now().Add(-time.Minute))

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Fatalf("GatherAndLint() error = %v", err)
	}
	for _, p := range problems {
		t.Errorf("metric %s: %s", p.Metric, p.Text)
	}
}
