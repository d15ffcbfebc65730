// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tomtom215/basket/internal/config"
)

// Version is set at build time: -ldflags "-X main.Version=v1.2.3".
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "basket",
	Short: "Storefront recommendation engine",
	Long: `basket turns storefront interaction events (views, cart adds, purchases,
removals) into per-user product recommendations.

Without a subcommand it runs the server (see "basket serve").`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if configPath != "" {
			return os.Setenv(config.ConfigPathEnvVar, configPath)
		}
		return nil
	},
	RunE: runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("basket version %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (sets "+config.ConfigPathEnvVar+")")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
