// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package database

import (
	"runtime"
	"strings"
	"time"
)

// configureConnectionPool sets connection pool parameters
//   - max_open: NumCPU() for parallelism
//   - max_idle: 2 for connection reuse
//   - max_lifetime: 1h to prevent stale connections
//   - max_idle_time: 5m for idle connection cleanup
func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// IsConnectionError reports whether err indicates database connection loss
// rather than a query error. The breaker only counts these as failures.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, s := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"bad connection",
		"database is closed",
		"store is closed",
		"IO Error",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// isTransactionConflict checks if an error is a DuckDB transaction conflict
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Transaction conflict") ||
		strings.Contains(errStr, "Conflict on update")
}
