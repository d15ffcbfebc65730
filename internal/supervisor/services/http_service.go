// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/thejerf/suture/v4"
)

const defaultHTTPShutdownTimeout = 10 * time.Second

// HTTPServer is the part of *http.Server the service drives.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs the recommendation API under supervision. On
// cancellation it drains in-flight requests for up to shutdownTimeout.
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewHTTPServerService wraps server. A non-positive timeout defaults to 10s.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultHTTPShutdownTimeout
	}
	return &HTTPServerService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service.
//
// A listen error (port in use) is returned so the supervisor retries with
// backoff. A server closed by someone else cannot listen again, so that case
// stops the service instead of restarting it.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	listenErr := make(chan error, 1)
	go func() { listenErr <- h.server.ListenAndServe() }()

	select {
	case err := <-listenErr:
		if errors.Is(err, http.ErrServerClosed) || err == nil {
			return suture.ErrDoNotRestart
		}
		return fmt.Errorf("listen: %w", err)

	case <-ctx.Done():
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(drainCtx); err != nil {
			return fmt.Errorf("drain http server: %w", err)
		}
		<-listenErr
		return ctx.Err()
	}
}

func (h *HTTPServerService) String() string {
	return "http-server"
}
