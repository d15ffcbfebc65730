// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// RecomputeRunner is the scheduler loop. *recommend.Scheduler satisfies it.
type RecomputeRunner interface {
	Run(ctx context.Context) error
}

// RecomputeService supervises the recompute scheduler loop. Cycle failures
// are handled inside the loop; Serve only returns when the loop itself exits.
type RecomputeService struct {
	runner RecomputeRunner
	logger zerolog.Logger
	name   string
}

// NewRecomputeService creates a new recompute service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRecomputeService(runner RecomputeRunner, logger zerolog.Logger) *RecomputeService {
	return &RecomputeService{
		runner: runner,
		logger: logger.With().Str("service", "recompute").Logger(),
		name:   "recompute-scheduler",
	}
}

// Serve implements suture.Service.
func (s *RecomputeService) Serve(ctx context.Context) error {
	err := s.runner.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		// The loop only returns on cancellation; restart it otherwise.
		return errors.New("recompute scheduler exited unexpectedly")
	}
	s.logger.Error().Err(err).Msg("recompute scheduler stopped")
	return fmt.Errorf("recompute scheduler: %w", err)
}

// String returns the service name for logging.
func (s *RecomputeService) String() string {
	return s.name
}
