// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/basket/internal/database"
	"github.com/tomtom215/basket/internal/logging"
	"github.com/tomtom215/basket/internal/recommend/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store counts and persisted snapshots",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// StatusReport is the output of the status command.
type StatusReport struct {
	Store     database.Counts    `json:"store"`
	Snapshots []storage.Metadata `json:"snapshots"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	store, err := openStore(cfg, logging.Logger())
	if err != nil {
		return err
	}
	defer closeStore(store)

	counts, err := store.GetRecordCounts(ctx)
	if err != nil {
		return fmt.Errorf("record counts: %w", err)
	}
	report := StatusReport{Store: counts, Snapshots: []storage.Metadata{}}

	if cfg.Recommend.SnapshotDir != "" {
		snapshots, err := storage.Open(cfg.Recommend.SnapshotDir, cfg.Recommend.SnapshotKeep)
		if err != nil {
			return fmt.Errorf("open snapshot store: %w", err)
		}
		defer snapshots.Close() //nolint:errcheck // read-only use

		list, err := snapshots.List(ctx)
		if err != nil {
			return fmt.Errorf("list snapshots: %w", err)
		}
		report.Snapshots = append(report.Snapshots, list...)
	}
	return printJSON(cmd, report)
}
