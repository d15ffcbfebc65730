// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package services

import (
	"context"
	"fmt"
	"time"
)

// IngestRunner is the Start/Shutdown lifecycle of the NATS ingest pipeline
// (embedded server, JetStream connection, Watermill router).
type IngestRunner interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context)
	IsRunning() bool
}

// IngestService adapts an IngestRunner to suture's Serve pattern. A failed
// Start is returned so the messaging layer backs off and retries; the API
// keeps serving meanwhile.
type IngestService struct {
	runner          IngestRunner
	shutdownTimeout time.Duration
	name            string
}

// NewIngestService wraps runner. A non-positive timeout defaults to 10s.
func NewIngestService(runner IngestRunner, shutdownTimeout time.Duration) *IngestService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &IngestService{
		runner:          runner,
		shutdownTimeout: shutdownTimeout,
		name:            "nats-ingest",
	}
}

// Serve implements suture.Service.
func (s *IngestService) Serve(ctx context.Context) error {
	if err := s.runner.Start(ctx); err != nil {
		return fmt.Errorf("nats ingest start failed: %w", err)
	}

	<-ctx.Done()

	// ctx is already canceled.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.runner.Shutdown(shutdownCtx)

	return ctx.Err()
}

// String returns the service name for logging.
func (s *IngestService) String() string {
	return s.name
}
