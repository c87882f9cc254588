package dedup

import (
	"context"
	"time"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/model"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/telemetry/logging"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/telemetry/metrics"
)

// Sink is the narrow shape of engine.AlertSink, repeated here so this
// package does not import engine (Filter sits between the engine and the
// dispatcher, per §4.4 step 5 / §4.5, not inside either).
type Sink interface {
	Dispatch(ctx context.Context, record model.AnomalyRecord)
}

// Filter wraps an inner Sink with the deduplication cache of §4.5: a
// fingerprint seen within the cooldown window is swallowed before it
// reaches the dispatcher. The anomaly was already persisted upstream by
// storage regardless (§4.5: "drop the anomaly for alerting... still
// stored").
type Filter struct {
	enabled bool
	cache   *Cache
	inner   Sink
	logger  logging.Logger
	metrics metrics.Provider
}

// NewFilter wraps inner with a Cache of the given capacity/cooldown. When
// enabled is false, Dispatch forwards every anomaly unfiltered, matching
// `alerting.deduplication.enabled: false`.
func NewFilter(enabled bool, capacity int, cooldown time.Duration, inner Sink, logger logging.Logger, prov metrics.Provider) *Filter {
	return &Filter{enabled: enabled, cache: New(capacity, cooldown), inner: inner, logger: logger, metrics: prov}
}

// Dispatch implements engine.AlertSink (structurally; this package does
// not import engine to avoid a dependency cycle). A duplicate fingerprint
// within the cooldown window is counted and dropped; everything else is
// forwarded to inner. Evicting the cache's oldest entry at capacity (§4.5)
// is logged and counted rather than silently discarded.
func (f *Filter) Dispatch(ctx context.Context, record model.AnomalyRecord) {
	if f.enabled {
		duplicate, evicted := f.cache.Seen(record.Fingerprint())
		if duplicate {
			if f.metrics != nil {
				f.metrics.IncAlertDeduplicated()
			}
			return
		}
		if evicted {
			if f.logger != nil {
				f.logger.Warn("dedup cache evicted oldest entry at capacity", "capacity", f.cache.Len())
			}
			if f.metrics != nil {
				f.metrics.IncDedupEvicted()
			}
		}
		if f.metrics != nil {
			f.metrics.SetDedupCacheSize(f.cache.Len())
		}
	}
	if f.inner != nil {
		f.inner.Dispatch(ctx, record)
	}
}
