// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

/*
Package supervisor runs basket's long-lived services under a suture v4 tree.

	basket
	├── data-layer
	│   ├── recompute-scheduler
	│   └── metrics-sampler
	├── messaging-layer
	│   └── nats-ingest (when NATS is enabled)
	└── api-layer
	    └── http-server

Each layer counts failures separately. The API keeps serving the published
snapshot while a failing ingest pipeline backs off and restarts.

Supervisor events (start, failure, backoff) are logged through sutureslog on a
slog.Logger bridged to zerolog by logging.NewSlogLogger.

	tree, err := supervisor.NewSupervisorTree(slogger, supervisor.TreeConfig{
	    ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddDataService(services.NewRecomputeService(scheduler, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)
*/
package supervisor
