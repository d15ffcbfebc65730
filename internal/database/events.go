// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/basket/internal/recommend"
)

// maxConflictRetries bounds retries of a batch that hit a DuckDB
// transaction conflict.
const maxConflictRetries = 3

// Record is an event plus the envelope fields kept alongside it in the log.
type Record struct {
	// ID deduplicates redelivered events. Append assigns a random one.
	ID string

	// Source names the producer (e.g. "nats", "api", "import").
	Source string

	Event recommend.Event
}

// validateRecord rejects records that could never have come out of
// recommend.NormalizeEvent.
func validateRecord(rec *Record) error {
	if rec.ID == "" {
		return ErrEmptyID
	}
	e := rec.Event
	if e.UserID == "" || e.ProductID == "" {
		return fmt.Errorf("%w: user_id and product_id are required", recommend.ErrInvalidEvent)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("%w: unknown event type %q", recommend.ErrInvalidEvent, e.Type)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is required", recommend.ErrInvalidEvent)
	}
	return nil
}

const insertEventSQL = `
INSERT INTO events (event_id, user_id, product_id, event_type, ts, weight, source, ingested_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING`

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRecord(ctx context.Context, ex execer, rec *Record, ingestedAt time.Time) (bool, error) {
	weight := sql.NullFloat64{Float64: rec.Event.Weight, Valid: rec.Event.Weight != 0}
	res, err := ex.ExecContext(ctx, insertEventSQL,
		rec.ID,
		rec.Event.UserID,
		rec.Event.ProductID,
		string(rec.Event.Type),
		rec.Event.Timestamp.UTC(),
		weight,
		rec.Source,
		ingestedAt.UTC(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// Append adds one event to the log under a new random id.
func (db *DB) Append(ctx context.Context, e recommend.Event) error {
	_, err := db.AppendRecord(ctx, Record{ID: uuid.NewString(), Source: "api", Event: e})
	return err
}

// AppendRecord adds one event to the log. It reports false without error
// when an event with the same id is already stored.
func (db *DB) AppendRecord(ctx context.Context, rec Record) (bool, error) {
	if err := validateRecord(&rec); err != nil {
		return false, err
	}
	if db.closed.Load() {
		return false, ErrClosed
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	inserted, err := insertRecord(ctx, db.conn, &rec, db.now())
	if err := observe("insert", "events", start, err); err != nil {
		return false, fmt.Errorf("failed to append event %s: %w", rec.ID, err)
	}
	return inserted, nil
}

// AppendBatch appends recs in one transaction and returns how many were new.
// A transaction conflict retries the whole batch.
func (db *DB) AppendBatch(ctx context.Context, recs []Record) (int, error) {
	for i := range recs {
		if err := validateRecord(&recs[i]); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
	}
	if len(recs) == 0 {
		return 0, nil
	}
	if db.closed.Load() {
		return 0, ErrClosed
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var (
		inserted int
		err      error
	)
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		start := time.Now()
		inserted, err = db.appendBatchTx(ctx, recs)
		err = observe("insert_batch", "events", start, err)
		if err == nil || !isTransactionConflict(err) {
			break
		}
		db.logger.Debug().Int("attempt", attempt+1).Err(err).Msg("Batch append conflict, retrying")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to append %d events: %w", len(recs), err)
	}
	return inserted, nil
}

func (db *DB) appendBatchTx(ctx context.Context, recs []Record) (int, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	now := db.now()
	inserted := 0
	for i := range recs {
		ok, err := insertRecord(ctx, tx, &recs[i], now)
		if err != nil {
			_ = tx.Rollback() // Explicitly ignore error - the insert error is returned
			return 0, err
		}
		if ok {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return inserted, nil
}

// ListEvents returns events with Timestamp >= since, oldest first. A zero
// since returns the whole log.
func (db *DB) ListEvents(ctx context.Context, since time.Time) ([]recommend.Event, error) {
	if db.closed.Load() {
		return nil, ErrClosed
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT user_id, product_id, event_type, ts, weight FROM events`
	var args []any
	if !since.IsZero() {
		query += ` WHERE ts >= ?`
		args = append(args, since.UTC())
	}
	query += ` ORDER BY ts, user_id, product_id, event_id`

	start := time.Now()
	events, err := db.scanEvents(ctx, query, args...)
	if err := observe("select", "events", start, err); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (db *DB) scanEvents(ctx context.Context, query string, args ...any) ([]recommend.Event, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []recommend.Event
	for rows.Next() {
		var (
			e         recommend.Event
			eventType string
			weight    sql.NullFloat64
		)
		if err := rows.Scan(&e.UserID, &e.ProductID, &eventType, &e.Timestamp, &weight); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Type = recommend.EventType(eventType)
		e.Timestamp = e.Timestamp.UTC()
		if weight.Valid {
			e.Weight = weight.Float64
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
