// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/basket/internal/logging"
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Run one recompute cycle and persist the snapshot",
	Long: `Trains the configured model on the current event store, publishes the result,
and saves it to RECOMMEND_SNAPSHOT_DIR so a server started later restores it.

The server holds the DuckDB file lock, so stop it first or use
POST /api/v1/recompute against the running instance.`,
	Args: cobra.NoArgs,
	RunE: runRecompute,
}

func init() {
	rootCmd.AddCommand(recomputeCmd)
}

func runRecompute(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.Logger()
	ctx := cmd.Context()

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore(store)

	rec, err := initRecommend(ctx, cfg, store, store, logger)
	if err != nil {
		return err
	}
	defer rec.Close() //nolint:errcheck // logged by badger

	result, err := rec.Scheduler.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("recompute: %w", err)
	}
	return printJSON(cmd, result)
}
