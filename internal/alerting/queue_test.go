package alerting

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/model"
)

type recordingDispatcher struct {
	mu      sync.Mutex
	records []model.AnomalyRecord
	block   chan struct{} // when non-nil, Dispatch waits on it
}

func (d *recordingDispatcher) Dispatch(_ context.Context, record model.AnomalyRecord) {
	if d.block != nil {
		<-d.block
	}
	d.mu.Lock()
	d.records = append(d.records, record)
	d.mu.Unlock()
}

func (d *recordingDispatcher) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.records)
}

type countingProvider struct {
	dropped int64
}

func (countingProvider) IncEventsIngested()                  {}
func (countingProvider) IncEventsRejected(string)             {}
func (countingProvider) IncAnomaly(string, string)            {}
func (countingProvider) IncDetectorError(string)              {}
func (countingProvider) IncStorageError()                     {}
func (countingProvider) IncAlertSent(string)                  {}
func (countingProvider) IncAlertDeduplicated()                {}
func (countingProvider) IncAlertFailed(string)                {}
func (p *countingProvider) IncAlertQueueDropped()             { atomic.AddInt64(&p.dropped, 1) }
func (countingProvider) IncDedupEvicted()                     {}
func (countingProvider) ObserveDetectionLatency(time.Duration) {}
func (countingProvider) SetBaselineSampleCount(string, int)   {}
func (countingProvider) SetDedupCacheSize(int)                {}
func (countingProvider) Handler() http.Handler                { return nil }

func TestAsyncQueueDeliversWithoutBlockingCaller(t *testing.T) {
	inner := &recordingDispatcher{}
	q := NewAsyncQueue(inner, 8, 2, nil, nil)

	for i := 0; i < 5; i++ {
		q.Dispatch(context.Background(), model.AnomalyRecord{ID: "a"})
	}
	q.Close(time.Second)
	assert.Equal(t, 5, inner.len())
}

func TestAsyncQueueDropsOnOverflowAndCountsMetric(t *testing.T) {
	inner := &recordingDispatcher{block: make(chan struct{})}
	prov := &countingProvider{}
	q := NewAsyncQueue(inner, 1, 1, nil, prov)

	// First Dispatch is picked up by the single worker and blocks on inner.block;
	// the next two fill and then overflow the capacity-1 queue.
	deadline := time.After(time.Second)
	for atomic.LoadInt64(&prov.dropped) == 0 {
		q.Dispatch(context.Background(), model.AnomalyRecord{ID: "x"})
		select {
		case <-deadline:
			t.Fatal("expected at least one dropped anomaly before deadline")
		default:
		}
	}
	close(inner.block)
	q.Close(time.Second)

	assert.GreaterOrEqual(t, atomic.LoadInt64(&prov.dropped), int64(1))
}

func TestAsyncQueueCloseDrainsBufferedRecords(t *testing.T) {
	inner := &recordingDispatcher{}
	q := NewAsyncQueue(inner, 16, 1, nil, nil)

	for i := 0; i < 3; i++ {
		q.Dispatch(context.Background(), model.AnomalyRecord{ID: "b"})
	}
	q.Close(time.Second)
	require.Equal(t, 3, inner.len())
}
