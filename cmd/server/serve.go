// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/basket/internal/api"
	"github.com/tomtom215/basket/internal/logging"
	"github.com/tomtom215/basket/internal/metrics"
	"github.com/tomtom215/basket/internal/supervisor"
	"github.com/tomtom215/basket/internal/supervisor/services"
)

// samplerInterval is how often uptime and cache gauges are refreshed.
const samplerInterval = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the recommendation server",
	Long: `Opens the event store, restores the last persisted snapshot, optionally
starts NATS ingestion, and serves the HTTP API under a supervisor tree until
SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

//nolint:gocyclo // sequential setup steps
func runServe(cmd *cobra.Command, _ []string) error {
	startedAt := time.Now()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.Logger()

	logging.Info().
		Str("version", Version).
		Str("db_path", cfg.Database.Path).
		Str("addr", cfg.Server.Addr()).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Str("algorithm", cfg.Recommend.Algorithm).
		Msg("starting basket")
	metrics.SetAppInfo(Version)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore(store)

	rec, err := initRecommend(ctx, cfg, store, store, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rec.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing snapshot store")
		}
	}()

	natsComponents, err := InitNATS(ctx, cfg, store, logger)
	if err != nil {
		return fmt.Errorf("initialize NATS: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		natsComponents.Close(closeCtx)
	}()

	handler := api.NewHandler(rec.Engine, rec.Scheduler, store, cfg)
	handler.SetVersion(Version)
	if pub := natsComponents.Publisher(); pub != nil {
		handler.SetEventPublisher(pub)
		logging.Info().Msg("POST /api/v1/events publishes to NATS")
	}

	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromAPI(&cfg.API)))
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddDataService(services.NewRecomputeService(rec.Scheduler, logger))
	tree.AddDataService(services.NewPeriodicService("metrics-sampler", samplerInterval, servingSampler(rec.Engine, startedAt)))
	if natsComponents != nil {
		tree.AddMessagingService(services.NewIngestService(natsComponents, cfg.NATS.RouterCloseTimeout))
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service did not stop within the shutdown timeout")
		}
	}

	logging.Info().Msg("basket stopped")
	return nil
}
