package detectors

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/baseline"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/model"
)

// ZScore flags |zscore(x, mean, stddev)| >= Threshold against a warm
// baseline (§4.3.1).
type ZScore struct {
	Threshold  float64 // default 3.0
	MinSamples int     // per-key warmup override; 0 falls back to 10
	metrics    []string
}

// NewZScore constructs a z-score detector watching the given metrics.
func NewZScore(threshold float64, minSamples int, metrics []string) *ZScore {
	if threshold <= 0 {
		threshold = 3.0
	}
	return &ZScore{Threshold: threshold, MinSamples: minSamples, metrics: metrics}
}

func (d *ZScore) Name() model.Detector { return model.DetectorZScore }
func (d *ZScore) Metrics() []string    { return d.metrics }

func (d *ZScore) Detect(event model.TelemetryEvent, store *baseline.Store, now time.Time) []model.AnomalyRecord {
	var out []model.AnomalyRecord
	for _, metric := range d.metrics {
		observed, ok := event.MetricValue(metric)
		if !ok {
			continue
		}
		key := model.BaselineKey{ServiceID: event.ServiceID, ModelID: event.ModelID, MetricName: metric}
		summary, warm := store.Snapshot(key, d.minSamples())
		if !warm {
			continue
		}
		if summary.StdDev <= 0 {
			// Divide-by-zero guard (§4.1, §9): no spread means no anomaly.
			continue
		}
		z := (observed - summary.Mean) / summary.StdDev
		magnitude := math.Abs(z)
		if magnitude < d.Threshold {
			continue
		}
		rec := newRecord(uuid.NewString(), now, event, metric, d.Name(), observed, summarySnapshot{
			Mean: summary.Mean, StdDev: summary.StdDev, Median: summary.Median,
		})
		rec.Deviation = magnitude
		rec.Severity = model.SeverityForMagnitude(magnitude, d.Threshold)
		rec.Confidence = model.ConfidenceForMagnitude(magnitude, d.Threshold)
		out = append(out, rec)
	}
	return out
}

func (d *ZScore) minSamples() int {
	if d.MinSamples > 0 {
		return d.MinSamples
	}
	return 10
}
