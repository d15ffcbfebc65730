// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/basket/internal/database"
	"github.com/tomtom215/basket/internal/logging"
)

var catalogBatchSize int

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the product catalog",
}

var catalogLoadCmd = &cobra.Command{
	Use:   "load <file.jsonl|->",
	Short: "Upsert products from a JSON Lines file",
	Long: `Each line is {"product_id": "...", "sellable": true}. A missing "sellable"
field means the product is sellable.`,
	Args: cobra.ExactArgs(1),
	RunE: runCatalogLoad,
}

var catalogSetSellableCmd = &cobra.Command{
	Use:   "set-sellable <product-id> <true|false>",
	Short: "Change whether a product may be recommended",
	Args:  cobra.ExactArgs(2),
	RunE:  runCatalogSetSellable,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogLoadCmd, catalogSetSellableCmd)
	catalogLoadCmd.Flags().IntVar(&catalogBatchSize, "batch-size", 1000, "products per upsert")
}

type productLine struct {
	ID       string `json:"product_id"`
	Sellable *bool  `json:"sellable"`
}

// parseProducts decodes JSON Lines product rows. Lines without a product id
// or with malformed JSON are rejected.
func parseProducts(r io.Reader) ([]database.Product, []LineError, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var (
		products []database.Product
		rejected []LineError
		lineNo   int
	)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var p productLine
		if err := json.Unmarshal([]byte(line), &p); err != nil {
			rejected = append(rejected, LineError{Line: lineNo, Error: "malformed JSON: " + err.Error()})
			continue
		}
		if strings.TrimSpace(p.ID) == "" {
			rejected = append(rejected, LineError{Line: lineNo, Error: "product_id is required"})
			continue
		}
		sellable := true
		if p.Sellable != nil {
			sellable = *p.Sellable
		}
		products = append(products, database.Product{ID: p.ID, Sellable: sellable})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read input: %w", err)
	}
	return products, rejected, nil
}

func runCatalogLoad(cmd *cobra.Command, args []string) error {
	if catalogBatchSize <= 0 {
		return fmt.Errorf("--batch-size must be positive, got %d", catalogBatchSize)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	in, err := openInput(args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	products, rejected, err := parseProducts(in)
	if err != nil {
		return err
	}

	store, err := openStore(cfg, logging.Logger())
	if err != nil {
		return err
	}
	defer closeStore(store)

	loaded := 0
	for start := 0; start < len(products); start += catalogBatchSize {
		end := min(start+catalogBatchSize, len(products))
		if err := store.UpsertProducts(cmd.Context(), products[start:end]); err != nil {
			return fmt.Errorf("upsert products: %w", err)
		}
		loaded = end
	}

	return printJSON(cmd, map[string]any{
		"loaded":   loaded,
		"rejected": rejected,
	})
}

func runCatalogSetSellable(cmd *cobra.Command, args []string) error {
	sellable, err := strconv.ParseBool(args[1])
	if err != nil {
		return fmt.Errorf("sellable must be true or false, got %q", args[1])
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg, logging.Logger())
	if err != nil {
		return err
	}
	defer closeStore(store)

	if err := store.SetSellable(cmd.Context(), args[0], sellable); err != nil {
		return fmt.Errorf("set sellable: %w", err)
	}
	cmd.Printf("%s sellable=%t\n", args[0], sellable)
	return nil
}
