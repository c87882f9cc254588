package metrics

// OTel-backed Provider implementation. Kept alongside the Prometheus
// provider so deployments standardised on the OpenTelemetry Collector can
// export through an OTLP pipeline instead of scraping /metrics directly,
// mirroring ariadne's dual-provider shape (engine/telemetry/metrics/{prometheus,otel_provider}.go)
// generalized from a pluggable Counter/Gauge/Histogram abstraction down to
// this package's fixed, domain-specific Provider methods.

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// gaugeTracker simulates Set semantics over an UpDownCounter by recording
// the last value per label key and emitting only the delta, the same
// technique ariadne's OTel bridge uses (engine/telemetry/metrics/otel_provider.go).
type gaugeTracker struct {
	mu   sync.Mutex
	last map[string]int64
}

func newGaugeTracker() *gaugeTracker { return &gaugeTracker{last: make(map[string]int64)} }

func (g *gaugeTracker) delta(labelKey string, value int64) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	d := value - g.last[labelKey]
	g.last[labelKey] = value
	return d
}

// OTelProviderOptions configures the meter provider's identity.
type OTelProviderOptions struct {
	ServiceName string
}

// otelProvider implements Provider over an OTel SDK MeterProvider. It has no
// HTTP exposition of its own (metrics flow out via an OTLP exporter
// configured on the MeterProvider by the caller); Handler returns a
// placeholder 404 so wiring code can still treat both providers uniformly.
type otelProvider struct {
	mp *sdkmetric.MeterProvider

	eventsIngested  metric.Int64Counter
	eventsRejected  metric.Int64Counter
	anomalies       metric.Int64Counter
	detectorErrors  metric.Int64Counter
	storageErrors   metric.Int64Counter
	alertsSent      metric.Int64Counter
	alertsDedup     metric.Int64Counter
	alertsFailed    metric.Int64Counter
	alertsQueueDrop metric.Int64Counter
	dedupEvicted    metric.Int64Counter
	detectLatency   metric.Float64Histogram
	baselineSamples metric.Int64UpDownCounter
	dedupCacheSize  metric.Int64UpDownCounter

	baselineGauge *gaugeTracker
	dedupGauge    *gaugeTracker
}

// NewOTelProvider constructs a Provider backed by an OTel MeterProvider. mp
// may be nil, in which case a default (exporter-less) provider is created —
// callers wire real exporters by constructing their own sdkmetric.MeterProvider
// and passing it in.
func NewOTelProvider(mp *sdkmetric.MeterProvider, opts OTelProviderOptions) Provider {
	if mp == nil {
		mp = sdkmetric.NewMeterProvider()
	}
	meter := mp.Meter("llm-sentinel")

	p := &otelProvider{mp: mp, baselineGauge: newGaugeTracker(), dedupGauge: newGaugeTracker()}
	p.eventsIngested, _ = meter.Int64Counter("sentinel.events.ingested")
	p.eventsRejected, _ = meter.Int64Counter("sentinel.events.rejected")
	p.anomalies, _ = meter.Int64Counter("sentinel.anomalies")
	p.detectorErrors, _ = meter.Int64Counter("sentinel.detector.errors")
	p.storageErrors, _ = meter.Int64Counter("sentinel.storage.errors")
	p.alertsSent, _ = meter.Int64Counter("sentinel.alerts.sent")
	p.alertsDedup, _ = meter.Int64Counter("sentinel.alerts.deduplicated")
	p.alertsFailed, _ = meter.Int64Counter("sentinel.alerts.failed")
	p.alertsQueueDrop, _ = meter.Int64Counter("sentinel.alerts.queue_dropped")
	p.dedupEvicted, _ = meter.Int64Counter("sentinel.dedup.evicted")
	p.detectLatency, _ = meter.Float64Histogram("sentinel.detection.latency_seconds")
	p.baselineSamples, _ = meter.Int64UpDownCounter("sentinel.baseline.sample_count")
	p.dedupCacheSize, _ = meter.Int64UpDownCounter("sentinel.dedup.cache_size")
	_ = opts.ServiceName // reserved for future resource attribution
	return p
}

func (p *otelProvider) IncEventsIngested() {
	p.eventsIngested.Add(context.Background(), 1)
}
func (p *otelProvider) IncEventsRejected(reason string) {
	p.eventsRejected.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
}
func (p *otelProvider) IncAnomaly(detector, severity string) {
	p.anomalies.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("detector", detector), attribute.String("severity", severity)))
}
func (p *otelProvider) IncDetectorError(detector string) {
	p.detectorErrors.Add(context.Background(), 1, metric.WithAttributes(attribute.String("detector", detector)))
}
func (p *otelProvider) IncStorageError() {
	p.storageErrors.Add(context.Background(), 1)
}
func (p *otelProvider) IncAlertSent(sink string) {
	p.alertsSent.Add(context.Background(), 1, metric.WithAttributes(attribute.String("sink", sink)))
}
func (p *otelProvider) IncAlertDeduplicated() {
	p.alertsDedup.Add(context.Background(), 1)
}
func (p *otelProvider) IncAlertFailed(sink string) {
	p.alertsFailed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("sink", sink)))
}
func (p *otelProvider) IncAlertQueueDropped() {
	p.alertsQueueDrop.Add(context.Background(), 1)
}
func (p *otelProvider) IncDedupEvicted() {
	p.dedupEvicted.Add(context.Background(), 1)
}
func (p *otelProvider) ObserveDetectionLatency(d time.Duration) {
	p.detectLatency.Record(context.Background(), d.Seconds())
}
func (p *otelProvider) SetBaselineSampleCount(key string, count int) {
	d := p.baselineGauge.delta(key, int64(count))
	if d == 0 {
		return
	}
	p.baselineSamples.Add(context.Background(), d, metric.WithAttributes(attribute.String("key", key)))
}
func (p *otelProvider) SetDedupCacheSize(size int) {
	d := p.dedupGauge.delta("", int64(size))
	if d == 0 {
		return
	}
	p.dedupCacheSize.Add(context.Background(), d)
}
func (p *otelProvider) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "metrics are exported via OTLP, not scraped", http.StatusNotFound)
	})
}
