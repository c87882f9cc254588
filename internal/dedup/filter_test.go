package dedup

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/model"
)

type countingProvider struct {
	evicted int
}

func (p *countingProvider) IncEventsIngested()                  {}
func (p *countingProvider) IncEventsRejected(string)             {}
func (p *countingProvider) IncAnomaly(string, string)            {}
func (p *countingProvider) IncDetectorError(string)              {}
func (p *countingProvider) IncStorageError()                     {}
func (p *countingProvider) IncAlertSent(string)                  {}
func (p *countingProvider) IncAlertDeduplicated()                {}
func (p *countingProvider) IncAlertFailed(string)                {}
func (p *countingProvider) IncAlertQueueDropped()                {}
func (p *countingProvider) IncDedupEvicted()                     { p.evicted++ }
func (p *countingProvider) ObserveDetectionLatency(time.Duration) {}
func (p *countingProvider) SetBaselineSampleCount(string, int)   {}
func (p *countingProvider) SetDedupCacheSize(int)                {}
func (p *countingProvider) Handler() http.Handler                { return nil }

type recordingSink struct {
	records []model.AnomalyRecord
}

func (s *recordingSink) Dispatch(ctx context.Context, record model.AnomalyRecord) {
	s.records = append(s.records, record)
}

func anomaly(service string) model.AnomalyRecord {
	return model.AnomalyRecord{
		ServiceID: service, ModelID: "m1", MetricName: "latency_ms",
		Detector: model.DetectorZScore, Severity: model.SeverityHigh,
	}
}

func TestFilterSuppressesDuplicateWithinWindow(t *testing.T) {
	inner := &recordingSink{}
	f := NewFilter(true, 16, time.Minute, inner, nil, nil)

	f.Dispatch(context.Background(), anomaly("s1"))
	f.Dispatch(context.Background(), anomaly("s1"))

	assert.Len(t, inner.records, 1)
}

func TestFilterForwardsAfterWindowExpires(t *testing.T) {
	inner := &recordingSink{}
	f := NewFilter(true, 16, 20*time.Millisecond, inner, nil, nil)

	f.Dispatch(context.Background(), anomaly("s1"))
	time.Sleep(40 * time.Millisecond)
	f.Dispatch(context.Background(), anomaly("s1"))

	assert.Len(t, inner.records, 2)
}

func TestFilterDisabledForwardsEverything(t *testing.T) {
	inner := &recordingSink{}
	f := NewFilter(false, 16, time.Minute, inner, nil, nil)

	f.Dispatch(context.Background(), anomaly("s1"))
	f.Dispatch(context.Background(), anomaly("s1"))

	assert.Len(t, inner.records, 2)
}

// TestFilterCountsEvictionAtCapacity covers §4.5's capacity failure mode:
// evicting the cache's oldest entry at capacity is counted, not silently
// discarded.
func TestFilterCountsEvictionAtCapacity(t *testing.T) {
	inner := &recordingSink{}
	prov := &countingProvider{}
	f := NewFilter(true, 1, time.Minute, inner, nil, prov)

	f.Dispatch(context.Background(), anomaly("s1"))
	f.Dispatch(context.Background(), anomaly("s2")) // evicts s1's entry at capacity 1

	assert.Equal(t, 1, prov.evicted)
}

// TestFilterDeliversHeartbeatDespiteSustainedDuplicates is §8 scenario 4
// scaled down: three identical-fingerprint anomalies arrive at roughly
// t=0, t=window/3, t=window; only the first and last should reach inner —
// the middle, suppressed sighting must not slide the cooldown forward and
// swallow the third delivery too.
func TestFilterDeliversHeartbeatDespiteSustainedDuplicates(t *testing.T) {
	inner := &recordingSink{}
	window := 90 * time.Millisecond
	f := NewFilter(true, 16, window, inner, nil, nil)

	f.Dispatch(context.Background(), anomaly("s1"))
	time.Sleep(30 * time.Millisecond)
	f.Dispatch(context.Background(), anomaly("s1")) // inside the window: suppressed
	time.Sleep(70 * time.Millisecond)               // 100ms since the first dispatch
	f.Dispatch(context.Background(), anomaly("s1")) // past the window: delivered

	assert.Len(t, inner.records, 2)
}
