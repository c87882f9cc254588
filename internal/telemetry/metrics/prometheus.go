package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusProvider implements Provider backed by a Prometheus registry,
// following the shape of ariadne's PrometheusProvider
// (engine/telemetry/metrics/prometheus.go): a private registry, pre-declared
// vectors, and a cached promhttp handler.
type PrometheusProvider struct {
	reg *prom.Registry

	eventsIngested  prom.Counter
	eventsRejected  *prom.CounterVec
	anomalies       *prom.CounterVec
	detectorErrors  *prom.CounterVec
	storageErrors   prom.Counter
	alertsSent      *prom.CounterVec
	alertsDedup     prom.Counter
	alertsFailed    *prom.CounterVec
	alertsQueueDrop prom.Counter
	dedupEvicted    prom.Counter
	detectLatency   prom.Histogram
	baselineSamples *prom.GaugeVec
	dedupCacheSize  prom.Gauge

	handler http.Handler
}

// NewPrometheusProvider constructs a provider against a fresh registry, or
// reg if non-nil (tests share a registry to assert on values).
func NewPrometheusProvider(reg *prom.Registry) *PrometheusProvider {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	p := &PrometheusProvider{
		reg: reg,
		eventsIngested: prom.NewCounter(prom.CounterOpts{
			Name: "sentinel_events_ingested_total", Help: "telemetry events accepted by the engine",
		}),
		eventsRejected: prom.NewCounterVec(prom.CounterOpts{
			Name: "sentinel_events_rejected_total", Help: "telemetry events dropped before reaching the engine",
		}, []string{"reason"}),
		anomalies: prom.NewCounterVec(prom.CounterOpts{
			Name: "sentinel_anomalies_total", Help: "anomaly records produced, by detector and severity",
		}, []string{"detector", "severity"}),
		detectorErrors: prom.NewCounterVec(prom.CounterOpts{
			Name: "sentinel_detector_errors_total", Help: "detector invocations that panicked or errored",
		}, []string{"detector"}),
		storageErrors: prom.NewCounter(prom.CounterOpts{
			Name: "sentinel_storage_errors_total", Help: "persistence writes that failed",
		}),
		alertsSent: prom.NewCounterVec(prom.CounterOpts{
			Name: "sentinel_alerts_sent_total", Help: "alerts successfully dispatched, by sink",
		}, []string{"sink"}),
		alertsDedup: prom.NewCounter(prom.CounterOpts{
			Name: "sentinel_alerts_deduplicated_total", Help: "anomalies suppressed by the dedup cache",
		}),
		alertsFailed: prom.NewCounterVec(prom.CounterOpts{
			Name: "sentinel_alerts_failed_total", Help: "alerts that exhausted retries without delivering",
		}, []string{"sink"}),
		alertsQueueDrop: prom.NewCounter(prom.CounterOpts{
			Name: "sentinel_alerts_queue_dropped_total", Help: "anomalies dropped because the dispatcher queue was full",
		}),
		dedupEvicted: prom.NewCounter(prom.CounterOpts{
			Name: "sentinel_dedup_evicted_total", Help: "dedup cache entries evicted at capacity before their cooldown expired",
		}),
		detectLatency: prom.NewHistogram(prom.HistogramOpts{
			Name: "sentinel_detection_latency_seconds", Help: "per-event detection pipeline latency",
			Buckets: prom.DefBuckets,
		}),
		baselineSamples: prom.NewGaugeVec(prom.GaugeOpts{
			Name: "sentinel_baseline_sample_count", Help: "current sample count per baseline key",
		}, []string{"key"}),
		dedupCacheSize: prom.NewGauge(prom.GaugeOpts{
			Name: "sentinel_dedup_cache_size", Help: "current number of distinct fingerprints held by the dedup cache",
		}),
	}
	for _, c := range []prom.Collector{
		p.eventsIngested, p.eventsRejected, p.anomalies, p.detectorErrors,
		p.storageErrors, p.alertsSent, p.alertsDedup, p.alertsFailed, p.alertsQueueDrop, p.dedupEvicted,
		p.detectLatency, p.baselineSamples, p.dedupCacheSize,
	} {
		_ = reg.Register(c) // best effort; AlreadyRegisteredError is not fatal
	}
	p.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return p
}

func (p *PrometheusProvider) IncEventsIngested()                { p.eventsIngested.Inc() }
func (p *PrometheusProvider) IncEventsRejected(reason string)   { p.eventsRejected.WithLabelValues(reason).Inc() }
func (p *PrometheusProvider) IncAnomaly(detector, severity string) {
	p.anomalies.WithLabelValues(detector, severity).Inc()
}
func (p *PrometheusProvider) IncDetectorError(detector string) { p.detectorErrors.WithLabelValues(detector).Inc() }
func (p *PrometheusProvider) IncStorageError()                 { p.storageErrors.Inc() }
func (p *PrometheusProvider) IncAlertSent(sink string)          { p.alertsSent.WithLabelValues(sink).Inc() }
func (p *PrometheusProvider) IncAlertDeduplicated()             { p.alertsDedup.Inc() }
func (p *PrometheusProvider) IncAlertFailed(sink string)        { p.alertsFailed.WithLabelValues(sink).Inc() }
func (p *PrometheusProvider) IncAlertQueueDropped()             { p.alertsQueueDrop.Inc() }
func (p *PrometheusProvider) IncDedupEvicted()                  { p.dedupEvicted.Inc() }
func (p *PrometheusProvider) ObserveDetectionLatency(d time.Duration) {
	p.detectLatency.Observe(d.Seconds())
}
func (p *PrometheusProvider) SetBaselineSampleCount(key string, count int) {
	p.baselineSamples.WithLabelValues(key).Set(float64(count))
}
func (p *PrometheusProvider) SetDedupCacheSize(size int) { p.dedupCacheSize.Set(float64(size)) }
func (p *PrometheusProvider) Handler() http.Handler      { return p.handler }
