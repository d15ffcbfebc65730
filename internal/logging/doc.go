// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

// Package logging provides the process-wide zerolog logger for Basket.
//
// The logger is configured once from main via Init and then used through the
// package-level helpers or through component loggers derived with
// WithComponent. Request-scoped logging goes through Ctx, which attaches the
// request id stored by the HTTP middleware.
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("addr", addr).Msg("HTTP server listening")
//	logging.Ctx(r.Context()).Warn().Err(err).Msg("Scoring failed")
//
// Libraries that expect a *slog.Logger (suture via sutureslog, watermill via
// watermill.NewSlogLogger) receive one from NewSlogLogger, which forwards to
// the same zerolog output.
package logging
