// Command producer is a synthetic telemetry generator: it publishes
// model.TelemetryEvent JSON onto the same Kafka topic ingestion.Consumer
// reads from, simulating both steady-state and injected-anomaly LLM
// traffic so the detection pipeline can be exercised end to end without a
// real LLM-serving fleet behind it. Grounded on the retrieved
// globalbusinessadvisors-llm-sentinel producer example, reshaped onto this
// repo's own TelemetryEvent field names and Kafka writer configuration.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/model"
)

// Producer publishes TelemetryEvents to a Kafka topic.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer builds a Producer against the given brokers and topic.
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
	log.Printf("producer: connected to brokers %v, topic %q", brokers, topic)
	return &Producer{writer: writer, topic: topic}
}

// Send marshals and publishes one event, keyed by its request ID so retries
// and reordering within a partition stay scoped to the same request.
func (p *Producer) Send(ctx context.Context, event model.TelemetryEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("producer: marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.RequestID),
		Value: value,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("producer: write message: %w", err)
	}
	return nil
}

// Close releases the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

var (
	models   = []string{"gpt-4", "gpt-3.5-turbo", "claude-3-opus", "claude-3-sonnet"}
	services = []string{"chat-api", "completion-api", "assistant-api"}
)

func newRequestID() string {
	return fmt.Sprintf("req-%d-%d", time.Now().UnixMilli(), rand.Intn(10000))
}

func costFor(model string, promptTokens, completionTokens int64) float64 {
	if strings.Contains(model, "gpt-4") {
		return float64(promptTokens)*0.00003 + float64(completionTokens)*0.00006
	}
	return float64(promptTokens)*0.000001 + float64(completionTokens)*0.000002
}

// simulateNormal emits steady-state traffic: latency and token counts drawn
// from a narrow band so per-key baselines warm quickly and stay tight.
func simulateNormal(ctx context.Context, p *Producer, n int) {
	log.Printf("producer: simulating %d normal events", n)
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		latencyMs := 500.0 + rand.Float64()*2500.0
		promptTokens := int64(50 + rand.Intn(450))
		completionTokens := int64(100 + rand.Intn(700))
		modelID := models[rand.Intn(len(models))]

		event := model.TelemetryEvent{
			Timestamp:        time.Now().UTC(),
			ServiceID:        services[rand.Intn(len(services))],
			ModelID:          modelID,
			LatencyMs:        latencyMs,
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			Cost:             costFor(modelID, promptTokens, completionTokens),
			UserID:           fmt.Sprintf("user-%d", rand.Intn(100)),
			SessionID:        fmt.Sprintf("session-%d", rand.Intn(50)),
			RequestID:        newRequestID(),
			Metadata: map[string]any{
				"region":      []string{"us-east-1", "us-west-2", "eu-west-1"}[rand.Intn(3)],
				"api_version": "v1",
			},
		}

		if err := p.Send(ctx, event); err != nil {
			log.Printf("producer: send error: %v", err)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

type anomalyKind struct {
	name string
	desc string
}

var anomalyKinds = []anomalyKind{
	{"high_latency", "extremely high latency"},
	{"high_tokens", "unusually high token count"},
	{"high_cost", "abnormally high cost"},
	{"suspicious_pattern", "suspicious usage pattern"},
}

// simulateAnomalous emits anomalous traffic; every kind except
// suspicious_pattern (which stays inside the normal ranges and differs only
// in its metadata) lies well outside the normal band, to drive the
// zscore/iqr/mad/cusum detectors once a
// baseline has warmed on simulateNormal traffic for the same key.
func simulateAnomalous(ctx context.Context, p *Producer, n int) {
	log.Printf("producer: simulating %d anomalous events", n)
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		kind := anomalyKinds[rand.Intn(len(anomalyKinds))]
		var latencyMs float64
		var promptTokens, completionTokens int64

		switch kind.name {
		case "high_latency":
			latencyMs = 20000.0 + rand.Float64()*40000.0
			promptTokens = int64(100 + rand.Intn(400))
			completionTokens = int64(200 + rand.Intn(600))
		case "high_tokens":
			latencyMs = 5000.0 + rand.Float64()*10000.0
			promptTokens = int64(5000 + rand.Intn(10000))
			completionTokens = int64(8000 + rand.Intn(12000))
		case "high_cost":
			latencyMs = 8000.0 + rand.Float64()*12000.0
			promptTokens = int64(8000 + rand.Intn(7000))
			completionTokens = int64(10000 + rand.Intn(15000))
		default: // suspicious_pattern
			latencyMs = 1000.0 + rand.Float64()*2000.0
			promptTokens = int64(50 + rand.Intn(150))
			completionTokens = int64(50 + rand.Intn(150))
		}

		event := model.TelemetryEvent{
			Timestamp:        time.Now().UTC(),
			ServiceID:        "chat-api",
			ModelID:          "gpt-4",
			LatencyMs:        latencyMs,
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			Cost:             costFor("gpt-4", promptTokens, completionTokens),
			UserID:           "user-suspicious",
			SessionID:        fmt.Sprintf("session-anomaly-%d", i),
			RequestID:        newRequestID(),
			Metadata: map[string]any{
				"anomaly_type": kind.name,
				"description":  kind.desc,
				"simulated":    true,
			},
		}

		if err := p.Send(ctx, event); err != nil {
			log.Printf("producer: send error: %v", err)
		}
		log.Printf("producer: sent anomalous event: %s", kind.name)
		time.Sleep(500 * time.Millisecond)
	}
}

func main() {
	brokersFlag := flag.String("brokers", "localhost:9092", "Comma-separated list of Kafka brokers")
	topicFlag := flag.String("topic", "llm.telemetry", "Kafka topic name")
	normalEvents := flag.Int("normal-events", 20, "Number of normal events to generate per batch")
	anomalousEvents := flag.Int("anomalous-events", 5, "Number of anomalous events to generate per batch")
	continuous := flag.Bool("continuous", false, "Run continuously, looping batches until interrupted")
	flag.Parse()

	brokers := strings.Split(*brokersFlag, ",")
	producer := NewProducer(brokers, *topicFlag)
	defer producer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("producer: received interrupt, shutting down")
		cancel()
	}()

	if *continuous {
		log.Println("producer: running continuously (Ctrl+C to stop)")
		for ctx.Err() == nil {
			simulateNormal(ctx, producer, *normalEvents)
			simulateAnomalous(ctx, producer, *anomalousEvents)
			log.Println("producer: waiting 10s before next batch")
			select {
			case <-ctx.Done():
			case <-time.After(10 * time.Second):
			}
		}
		return
	}

	simulateNormal(ctx, producer, *normalEvents)
	simulateAnomalous(ctx, producer, *anomalousEvents)
	log.Println("producer: finished generating events")
}
