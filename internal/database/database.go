// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"

	"github.com/tomtom215/basket/internal/config"
	"github.com/tomtom215/basket/internal/recommend"
)

const defaultQueryTimeout = 30 * time.Second

// Compile-time interface checks.
var (
	_ recommend.EventStore = (*DB)(nil)
	_ recommend.Catalog    = (*DB)(nil)
)

// DB wraps the DuckDB connection and provides the event log and catalog.
type DB struct {
	conn   *sql.DB
	cfg    *config.DatabaseConfig
	logger zerolog.Logger
	closed atomic.Bool

	// now is replaced in tests.
	now func() time.Time
}

// New opens the DuckDB database at cfg.Path and initializes the schema.
// ":memory:" opens a private in-memory database.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(cfg *config.DatabaseConfig, logger zerolog.Logger) (*DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}

	// Ensure parent directory exists for database file
	// Use 0750 permissions (owner: rwx, group: rx, other: none) per gosec G301
	if cfg.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	conn, err := sql.Open("duckdb", connectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		conn:   conn,
		cfg:    cfg,
		logger: logger.With().Str("component", "database").Logger(),
		now:    time.Now,
	}

	db.configureConnectionPool()

	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	db.logger.Info().Str("path", cfg.Path).Msg("Database opened")
	return db, nil
}

// connectionString builds the DuckDB DSN with tuning options.
// Extension auto-install is disabled; the schema needs none.
func connectionString(cfg *config.DatabaseConfig) string {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}
	preserveOrder := "true"
	if !cfg.PreserveInsertionOrder {
		preserveOrder = "false"
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "1GB"
	}

	path := cfg.Path
	if path == ":memory:" {
		path = ""
	}
	return fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&preserve_insertion_order=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		path, numThreads, maxMemory, preserveOrder)
}

// initialize creates tables and indexes and applies pending migrations.
func (db *DB) initialize() error {
	if err := db.createTables(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if err := db.createIndexes(); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	if err := db.runVersionedMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.closed.Load() {
		return ErrClosed
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return db.conn.PingContext(ctx)
}

// Close checkpoints and closes the database. Calling Close twice is a no-op.
func (db *DB) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return nil
	}
	if db.cfg.Path != ":memory:" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
			db.logger.Warn().Err(err).Msg("Checkpoint before close failed")
		}
		cancel()
	}
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// Conn returns the underlying SQL database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}
