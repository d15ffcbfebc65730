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

var recommendK int

var recommendCmd = &cobra.Command{
	Use:   "recommend <user-id>",
	Short: "Print recommendations for a user from the persisted snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecommend,
}

func init() {
	rootCmd.AddCommand(recommendCmd)
	recommendCmd.Flags().IntVarP(&recommendK, "k", "k", 0, "number of items (0 uses RECOMMEND_DEFAULT_K)")
}

func runRecommend(cmd *cobra.Command, args []string) error {
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

	result, err := rec.Engine.Recommend(ctx, args[0], recommendK)
	if err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	return printJSON(cmd, result)
}
