// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/basket/internal/metrics"
)

// ensureContext applies the configured query timeout when ctx has no deadline.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := db.cfg.QueryTimeout
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	if ctx == nil {
		return context.WithTimeout(context.Background(), timeout)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}
	return ctx, func() {}
}

// observe records a query metric and returns err unchanged.
func observe(operation, table string, start time.Time, err error) error {
	metrics.RecordDBQuery(operation, table, time.Since(start), err)
	return err
}

// Checkpoint forces a WAL checkpoint
func (db *DB) Checkpoint(ctx context.Context) error {
	if db.closed.Load() {
		return ErrClosed
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// GetDatabasePath returns the path to the database file
func (db *DB) GetDatabasePath() string {
	return db.cfg.Path
}

// Counts is the row count of each table.
type Counts struct {
	Events   int64 `json:"events"`
	Users    int64 `json:"users"`
	Products int64 `json:"products"`
	Sellable int64 `json:"sellable"`
}

// GetRecordCounts returns the count of records in main tables
func (db *DB) GetRecordCounts(ctx context.Context) (Counts, error) {
	if db.closed.Load() {
		return Counts{}, ErrClosed
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var c Counts
	err := db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(DISTINCT user_id) FROM events").Scan(&c.Events, &c.Users)
	if err != nil {
		return c, fmt.Errorf("failed to count events: %w", err)
	}
	err = db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(*) FILTER (WHERE sellable) FROM products").Scan(&c.Products, &c.Sellable)
	if err != nil {
		return c, fmt.Errorf("failed to count products: %w", err)
	}
	return c, nil
}
