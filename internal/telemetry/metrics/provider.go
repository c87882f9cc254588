// Package metrics defines the detection engine's observability surface:
// counters for events/anomalies/alerts, a histogram for detection latency,
// and gauges for baseline/cache size (§6). Provider is implemented by a
// Prometheus-backed type (the default, matching ariadne's
// engine/telemetry/metrics.Provider + prometheus.go) and by an OTel-backed
// type for installations standardised on the OpenTelemetry Collector.
package metrics

import (
	"net/http"
	"time"
)

// Provider is the narrow interface the engine, dedup cache and dispatcher
// depend on. It intentionally does not expose the underlying registry so
// callers cannot bypass cardinality controls.
type Provider interface {
	IncEventsIngested()
	IncEventsRejected(reason string)
	IncAnomaly(detector, severity string)
	IncDetectorError(detector string)
	IncStorageError()
	IncAlertSent(sink string)
	IncAlertDeduplicated()
	IncAlertFailed(sink string)
	IncAlertQueueDropped()
	IncDedupEvicted()
	ObserveDetectionLatency(d time.Duration)
	SetBaselineSampleCount(key string, count int)
	SetDedupCacheSize(size int)
	// Handler exposes the provider's HTTP /metrics endpoint.
	Handler() http.Handler
}
