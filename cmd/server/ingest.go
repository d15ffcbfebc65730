// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tomtom215/basket/internal/config"
	"github.com/tomtom215/basket/internal/database"
	"github.com/tomtom215/basket/internal/eventprocessor"
	"github.com/tomtom215/basket/internal/logging"
)

const maxLineBytes = 1 << 20

var (
	ingestPublish   bool
	ingestBatchSize int
	ingestSource    string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.jsonl|->",
	Short: "Load storefront events from a JSON Lines file",
	Long: `Reads one storefront event per line ("-" reads stdin) and appends the valid
ones to the event store. Missing event ids get a UUID, missing timestamps get
the current time. Invalid lines are reported and skipped.

With --publish the events go to the NATS stream instead, and the running
server stores them through its consumer.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolVar(&ingestPublish, "publish", false, "publish to NATS instead of writing the store")
	ingestCmd.Flags().IntVar(&ingestBatchSize, "batch-size", 500, "events per store batch")
	ingestCmd.Flags().StringVar(&ingestSource, "source", "import", "source recorded on events that have none")
}

// LineError describes one rejected input line.
type LineError struct {
	Line  int    `json:"line"`
	Error string `json:"error"`
}

// IngestSummary is printed after an ingest run.
type IngestSummary struct {
	Read      int         `json:"read"`
	Accepted  int         `json:"accepted"`
	Stored    int         `json:"stored,omitempty"`
	Published int         `json:"published,omitempty"`
	Rejected  []LineError `json:"rejected,omitempty"`
}

// parseEvents decodes JSON Lines into validated events. Blank lines are
// skipped; malformed or invalid lines are returned as LineErrors.
func parseEvents(r io.Reader, source string, now time.Time) ([]*eventprocessor.StorefrontEvent, []LineError, int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var (
		events   []*eventprocessor.StorefrontEvent
		rejected []LineError
		read     int
		lineNo   int
	)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		read++

		var event eventprocessor.StorefrontEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			rejected = append(rejected, LineError{Line: lineNo, Error: "malformed JSON: " + err.Error()})
			continue
		}
		if event.EventID == "" {
			event.EventID = uuid.New().String()
		}
		if event.Source == "" {
			event.Source = source
		}
		if event.Timestamp.IsZero() {
			event.Timestamp = now.UTC()
		}
		if event.SchemaVersion == 0 {
			event.SchemaVersion = eventprocessor.SchemaVersion
		}
		if err := event.Validate(); err != nil {
			rejected = append(rejected, LineError{Line: lineNo, Error: err.Error()})
			continue
		}
		events = append(events, &event)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, read, fmt.Errorf("read input: %w", err)
	}
	return events, rejected, read, nil
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path) //nolint:gosec // path is an operator-supplied CLI argument
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestBatchSize <= 0 {
		return fmt.Errorf("--batch-size must be positive, got %d", ingestBatchSize)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	in, err := openInput(args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	events, rejected, read, err := parseEvents(in, ingestSource, time.Now())
	if err != nil {
		return err
	}
	summary := IngestSummary{Read: read, Accepted: len(events), Rejected: rejected}

	if ingestPublish {
		published, err := publishEvents(ctx, cfg, events)
		summary.Published = published
		if err != nil {
			_ = printJSON(cmd, summary)
			return err
		}
		return printJSON(cmd, summary)
	}

	store, err := openStore(cfg, logging.Logger())
	if err != nil {
		return err
	}
	defer closeStore(store)

	stored, err := storeEvents(ctx, store, events, ingestBatchSize)
	summary.Stored = stored
	if err != nil {
		_ = printJSON(cmd, summary)
		return err
	}
	return printJSON(cmd, summary)
}

// storeEvents appends events in chunks and returns how many were new.
func storeEvents(ctx context.Context, store database.Store, events []*eventprocessor.StorefrontEvent, batchSize int) (int, error) {
	stored := 0
	batch := make([]database.Record, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := store.AppendBatch(ctx, batch)
		stored += n
		batch = batch[:0]
		return err
	}

	for _, event := range events {
		rec, err := event.Record()
		if err != nil {
			return stored, fmt.Errorf("event %s: %w", event.EventID, err)
		}
		batch = append(batch, rec)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return stored, fmt.Errorf("append batch: %w", err)
			}
		}
	}
	if err := flush(); err != nil {
		return stored, fmt.Errorf("append batch: %w", err)
	}
	return stored, nil
}

// publishEvents sends events to the configured NATS server through the
// breaker-guarded publisher and returns how many were accepted.
func publishEvents(ctx context.Context, cfg *config.Config, events []*eventprocessor.StorefrontEvent) (int, error) {
	logger := logging.Logger()
	settings := eventprocessor.SettingsFromConfig(&cfg.NATS, cfg.NATS.URL)

	publisher, err := eventprocessor.NewPublisher(settings.Publisher, watermill.NewSlogLogger(logging.NewSlogLoggerFor(logger)))
	if err != nil {
		return 0, fmt.Errorf("create publisher: %w", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing publisher")
		}
	}()
	publisher.SetCircuitBreaker(eventprocessor.NewCircuitBreaker(settings.Breaker, logger))

	n, err := publisher.PublishBatch(ctx, events)
	if err != nil {
		return n, fmt.Errorf("publish: %w", err)
	}
	return n, nil
}
