// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Product is one row of the catalog projection.
type Product struct {
	ID       string `json:"product_id"`
	Sellable bool   `json:"sellable"`
}

const upsertProductSQL = `
INSERT INTO products (product_id, sellable, updated_at) VALUES (?, ?, ?)
ON CONFLICT (product_id) DO UPDATE SET sellable = excluded.sellable, updated_at = excluded.updated_at`

// UpsertProducts inserts or updates products in one transaction.
func (db *DB) UpsertProducts(ctx context.Context, products []Product) error {
	for i := range products {
		products[i].ID = strings.TrimSpace(products[i].ID)
		if products[i].ID == "" {
			return fmt.Errorf("product %d: %w", i, ErrEmptyID)
		}
	}
	if len(products) == 0 {
		return nil
	}
	if db.closed.Load() {
		return ErrClosed
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	err := db.upsertProductsTx(ctx, products)
	if err := observe("upsert", "products", start, err); err != nil {
		return fmt.Errorf("failed to upsert %d products: %w", len(products), err)
	}
	return nil
}

func (db *DB) upsertProductsTx(ctx context.Context, products []Product) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	now := db.now().UTC()
	for _, p := range products {
		if _, err := tx.ExecContext(ctx, upsertProductSQL, p.ID, p.Sellable, now); err != nil {
			_ = tx.Rollback() // Explicitly ignore error - the exec error is returned
			return err
		}
	}
	return tx.Commit()
}

// SetSellable marks one product sellable or not, creating it if needed.
func (db *DB) SetSellable(ctx context.Context, productID string, sellable bool) error {
	return db.UpsertProducts(ctx, []Product{{ID: productID, Sellable: sellable}})
}

// ListProductIDs returns every sellable product id in ascending order.
func (db *DB) ListProductIDs(ctx context.Context) ([]string, error) {
	if db.closed.Load() {
		return nil, ErrClosed
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	ids, err := db.queryProductIDs(ctx)
	if err := observe("select", "products", start, err); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return ids, nil
}

func (db *DB) queryProductIDs(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT product_id FROM products WHERE sellable ORDER BY product_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Exists reports whether productID is in the catalog and sellable.
func (db *DB) Exists(ctx context.Context, productID string) (bool, error) {
	if db.closed.Load() {
		return false, ErrClosed
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	var sellable bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT sellable FROM products WHERE product_id = ?`, productID).Scan(&sellable)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
	}
	if err := observe("select_one", "products", start, err); err != nil {
		return false, fmt.Errorf("failed to look up product %s: %w", productID, err)
	}
	return sellable, nil
}
