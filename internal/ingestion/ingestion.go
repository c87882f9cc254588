// Package ingestion implements the message-bus consumer collaborator of §6:
// it reads JSON-encoded TelemetryEvents from a Kafka topic (default
// "llm.telemetry"), validates the §3 invariants, and submits accepted
// events to the engine. Malformed messages are dropped with a counter
// increment; nothing downstream ever sees them. Grounded on
// github.com/segmentio/kafka-go, the library the retrieved llm-sentinel
// producer example and asearer-iot-realtime-platform both use for the same
// transport, mirrored here for the consumer side.
package ingestion

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/errs"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/model"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/telemetry/logging"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/telemetry/metrics"
)

// Submitter is the subset of engine.Engine the consumer depends on, narrowed
// for testability.
type Submitter interface {
	Submit(ctx context.Context, event model.TelemetryEvent) error
}

// Reader is the subset of *kafka.Reader used by Consumer.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config configures the Kafka consumer group.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

func (c Config) withDefaults() Config {
	if c.Topic == "" {
		c.Topic = "llm.telemetry"
	}
	if c.GroupID == "" {
		c.GroupID = "sentinel"
	}
	return c
}

// Consumer pulls telemetry off the bus and feeds the engine. Its Run loop is
// the one blocking/suspension point on the ingestion side (§5): FetchMessage
// is a suspension point, decode/validate is CPU-bound.
type Consumer struct {
	reader  Reader
	engine  Submitter
	logger  logging.Logger
	metrics metrics.Provider
}

// NewConsumer constructs a Consumer against a fresh kafka.Reader for cfg.
func NewConsumer(cfg Config, engine Submitter, logger logging.Logger, prov metrics.Provider) *Consumer {
	cfg = cfg.withDefaults()
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
	})
	return NewConsumerWithReader(reader, engine, logger, prov)
}

// NewConsumerWithReader constructs a Consumer over an already-built Reader,
// used by tests to substitute an in-memory fake.
func NewConsumerWithReader(reader Reader, engine Submitter, logger logging.Logger, prov metrics.Provider) *Consumer {
	return &Consumer{reader: reader, engine: engine, logger: logger, metrics: prov}
}

// Run consumes until ctx is cancelled or the reader returns a terminal
// error. Each message is decoded, validated, and submitted to the engine;
// a valid event's offset is committed only once it is submitted, so a crash
// before commit re-delivers the message rather than silently dropping it.
// Malformed or invalid messages are committed without being submitted.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return errs.Wrap(errs.KindTransport, "ingestion: fetch message: %w", err)
		}
		if c.handle(ctx, msg) {
			if err := c.reader.CommitMessages(ctx, msg); err != nil && c.logger != nil {
				c.logger.Error("ingestion: commit failed", "err", err)
			}
		}
	}
}

// handle decodes and validates one message, submitting it to the engine.
// It reports whether the message's offset should be committed: true once
// the event is submitted, and also for a malformed or invalid message
// (retrying a message that will never parse only wedges the partition);
// false when the engine rejects the event, so its offset stays uncommitted.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) bool {
	var event model.TelemetryEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.reject("decode_error")
		return true
	}
	if err := event.Validate(); err != nil {
		c.reject("validation_error")
		return true
	}
	if err := c.engine.Submit(ctx, event); err != nil {
		if c.logger != nil {
			c.logger.Error("ingestion: submit failed", "service_id", event.ServiceID, "err", err)
		}
		return false
	}
	return true
}

func (c *Consumer) reject(reason string) {
	if c.metrics != nil {
		c.metrics.IncEventsRejected(reason)
	}
}

// Close releases the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
