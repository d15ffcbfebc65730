// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestGenerateIDs(t *testing.T) {
	t.Parallel()

	r1, r2 := GenerateRequestID(), GenerateRequestID()
	if len(r1) != 36 {
		t.Errorf("request id length = %d, want 36", len(r1))
	}
	if r1 == r2 {
		t.Error("request ids not unique")
	}
	if c := GenerateCycleID(); len(c) != 8 {
		t.Errorf("cycle id length = %d, want 8", len(c))
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("empty context request id = %q", got)
	}
	ctx = ContextWithRequestID(ctx, "req-1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("RequestIDFromContext = %q, want req-1", got)
	}
	if got := RequestIDFromContext(ContextWithNewRequestID(context.Background())); got == "" {
		t.Error("ContextWithNewRequestID stored empty id")
	}
}

func TestCtx_AddsFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	ctx = ContextWithRequestID(ctx, "req-42")
	ctx = ContextWithCycleID(ctx, "cyc1")

	Ctx(ctx).Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-42"`) {
		t.Errorf("missing request_id: %s", out)
	}
	if !strings.Contains(out, `"cycle_id":"cyc1"`) {
		t.Errorf("missing cycle_id: %s", out)
	}
}

func TestCtx_NoFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	Ctx(ctx).Info().Msg("plain")

	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("unexpected request_id: %s", buf.String())
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	l := WithComponent("scheduler")
	l.Info().Msg("tick")
	if !strings.Contains(buf.String(), `"component":"scheduler"`) {
		t.Errorf("missing component: %s", buf.String())
	}
}
