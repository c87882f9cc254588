package alerting

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/model"
)

// KafkaWriter is the subset of *kafka.Writer used by BusSink, narrowed for
// testability.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// BusSink publishes anomaly records as JSON onto a Kafka topic whose name
// encodes the routing key of §6 (`<prefix>.<severity>`), for downstream
// consumers (SIEMs, incident automation) that prefer a log rather than a
// webhook push. Grounded on the retrieved llm-sentinel producer example's
// use of segmentio/kafka-go for the inverse direction (telemetry
// ingestion); this sink reuses the same writer library for anomaly egress.
type BusSink struct {
	name   string
	prefix string
	writer KafkaWriter
	retry  RetryPolicy
}

// NewBusSink constructs a BusSink publishing under prefix via writer,
// retrying write failures per retry (§4.6) the same as WebhookSink.
func NewBusSink(name, prefix string, writer KafkaWriter, retry RetryPolicy) *BusSink {
	return &BusSink{name: name, prefix: prefix, writer: writer, retry: retry.withDefaults()}
}

func (b *BusSink) Name() string { return b.name }

// routingKey renders the `<prefix>.<severity>` routing key of §6.
func (b *BusSink) routingKey(record model.AnomalyRecord) string {
	return b.prefix + "." + string(record.Severity)
}

func (b *BusSink) Send(ctx context.Context, record model.AnomalyRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("alerting: marshal anomaly: %w", err)
	}

	msg := kafka.Message{
		Topic: b.routingKey(record),
		Key:   []byte(record.ServiceID + "/" + record.ModelID),
		Value: payload,
	}

	policy := b.retry.backOff(ctx)
	return backoff.Retry(func() error {
		return b.writer.WriteMessages(ctx, msg)
	}, policy)
}
