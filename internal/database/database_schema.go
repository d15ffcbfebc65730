// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

/*
database_schema.go - Database Schema Management

Tables:
  - events: append-only interaction log (view, cart_add, purchase, remove)
  - products: catalog projection with the sellable flag

Index Strategy:
  - events(ts) for windowed extraction
  - events(user_id) for per-user reads
  - products(sellable) for catalog listing
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

// tableCreationQueries returns the table creation SQL statements
func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			ts TIMESTAMP NOT NULL,
			weight DOUBLE,
			source TEXT NOT NULL DEFAULT '',
			ingested_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS products (
			product_id TEXT PRIMARY KEY,
			sellable BOOLEAN NOT NULL DEFAULT TRUE,
			updated_at TIMESTAMP NOT NULL
		);`,
	}
}

// createIndexes creates indexes for the extraction and catalog queries
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);`,
		`CREATE INDEX IF NOT EXISTS idx_events_user ON events(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_products_sellable ON products(sellable);`,
	}
	for _, idx := range indexes {
		if _, err := db.conn.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", idx, err)
		}
	}
	return nil
}
