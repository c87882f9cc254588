package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/model"
)

type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	idx       int
	committed []kafka.Message
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idx >= len(f.messages) {
		return kafka.Message{}, context.Canceled
	}
	m := f.messages[f.idx]
	f.idx++
	return m, nil
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error { return nil }

type fakeSubmitter struct {
	mu     sync.Mutex
	events []model.TelemetryEvent
	reject bool
}

func (s *fakeSubmitter) Submit(ctx context.Context, event model.TelemetryEvent) error {
	if s.reject {
		return errors.New("engine: draining")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func validEvent() model.TelemetryEvent {
	return model.TelemetryEvent{
		Timestamp: time.Now(), ServiceID: "s1", ModelID: "m1", LatencyMs: 120,
		PromptTokens: 10, CompletionTokens: 20, Cost: 0.01,
	}
}

func TestConsumerAcceptsValidEvent(t *testing.T) {
	payload, _ := json.Marshal(validEvent())
	reader := &fakeReader{messages: []kafka.Message{{Value: payload}}}
	sub := &fakeSubmitter{}
	c := NewConsumerWithReader(reader, sub, nil, nil)

	err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, sub.events, 1)
	assert.Len(t, reader.committed, 1)
}

func TestConsumerDropsMalformedJSON(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{{Value: []byte("not json")}}}
	sub := &fakeSubmitter{}
	c := NewConsumerWithReader(reader, sub, nil, nil)

	err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sub.events)
	assert.Len(t, reader.committed, 1, "malformed messages are still committed to avoid wedging the partition")
}

func TestConsumerDropsInvalidEvent(t *testing.T) {
	invalid := validEvent()
	invalid.ServiceID = ""
	payload, _ := json.Marshal(invalid)
	reader := &fakeReader{messages: []kafka.Message{{Value: payload}}}
	sub := &fakeSubmitter{}
	c := NewConsumerWithReader(reader, sub, nil, nil)

	err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sub.events)
}
