// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tomtom215/basket/internal/config"
	"github.com/tomtom215/basket/internal/database"
	"github.com/tomtom215/basket/internal/logging"
)

// loadConfig loads the layered configuration and initializes logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	return cfg, nil
}

// openStore opens DuckDB and wraps it in the store circuit breaker.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func openStore(cfg *config.Config, logger zerolog.Logger) (*database.BreakerStore, error) {
	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return database.NewBreakerStore(db, database.BreakerSettings{
		ConsecutiveFailures: cfg.Database.BreakerFailures,
		Timeout:             cfg.Database.BreakerTimeout,
	}, logger), nil
}

// closeStore closes store and logs any error.
func closeStore(store database.Store) {
	if err := store.Close(); err != nil {
		logging.Error().Err(err).Msg("error closing database")
	}
}

// printJSON writes v to the command output as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
