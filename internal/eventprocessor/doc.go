// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

/*
Package eventprocessor moves storefront interaction events from NATS
JetStream into the event store.

# Architecture

	tracking client / basket ingest --publish
	        |
	        v
	Publisher (gobreaker, Nats-Msg-Id = event_id)
	        |
	        v
	JetStream stream STOREFRONT_EVENTS  (storefront.events.<type>)
	        |
	        v
	Subscriber (durable, queue group) -> Router (poison queue, recoverer, retry)
	        |
	        v
	IngestHandler -> database.Store.AppendRecord

Deduplication happens twice: JetStream drops republished messages with the
same Nats-Msg-Id inside the stream's duplicate window, and the store ignores
any event id it has already recorded.

# Components

  - EmbeddedServer: in-process nats-server with JetStream for single-node runs
  - StreamInitializer: creates or updates the stream before clients bind
  - Publisher: validates and publishes StorefrontEvent values
  - Subscriber: durable JetStream consumer bound to the stream
  - Router: Watermill router with poison queue, Recoverer and Retry middleware
  - IngestHandler: decode, validate, normalize and append

# Failure Handling

Malformed JSON and events that fail validation are acknowledged and counted
on basket_events_rejected_total{reason}. Store errors are returned to the
router, retried with exponential backoff and finally published to
DeadLetterSubject.

# Testing

Unit tests drive the router and publisher over Watermill's gochannel
pub/sub. TestEmbeddedPipeline runs the full NATS path and is skipped with
-short.
*/
package eventprocessor
