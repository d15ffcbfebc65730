// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package services

import (
	"context"
	"time"
)

// PeriodicService calls fn once at start and then every interval until the
// context is canceled. It backs gauges that are sampled rather than pushed,
// such as uptime and cache size.
type PeriodicService struct {
	fn       func(ctx context.Context)
	interval time.Duration
	name     string
}

// NewPeriodicService creates a periodic service. Intervals below one second
// are raised to one second.
func NewPeriodicService(name string, interval time.Duration, fn func(ctx context.Context)) *PeriodicService {
	if interval < time.Second {
		interval = time.Second
	}
	return &PeriodicService{fn: fn, interval: interval, name: name}
}

// Serve implements suture.Service.
func (p *PeriodicService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.fn(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.fn(ctx)
		}
	}
}

// String returns the service name for logging.
func (p *PeriodicService) String() string {
	return p.name
}
