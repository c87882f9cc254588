package detectors

import (
	"time"

	"github.com/google/uuid"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/baseline"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/model"
)

// CUSUM flags a change point once max(S+, S-) >= Threshold*sigma (§4.3.4).
// Unlike the other three detectors it has state beyond the baseline
// snapshot (the running sums), but it never commits a mutation itself:
// Detect only previews the candidate next arm values via
// baseline.Store.PeekCUSUM. The engine commits the same update and resets
// the arms on flag (§4.4 step 4), keeping this detector pure per §4.3.
type CUSUM struct {
	Threshold  float64 // h, default 5.0
	Drift      float64 // kappa, default 0.5
	MinSamples int     // 0 falls back to 20, 2x the shared default of 10 per §9
	metrics    []string
}

// NewCUSUM constructs a CUSUM change-point detector.
func NewCUSUM(threshold, drift float64, minSamples int, metrics []string) *CUSUM {
	if threshold <= 0 {
		threshold = 5.0
	}
	if drift <= 0 {
		drift = 0.5
	}
	return &CUSUM{Threshold: threshold, Drift: drift, MinSamples: minSamples, metrics: metrics}
}

func (d *CUSUM) Name() model.Detector { return model.DetectorCUSUM }
func (d *CUSUM) Metrics() []string    { return d.metrics }

func (d *CUSUM) Detect(event model.TelemetryEvent, store *baseline.Store, now time.Time) []model.AnomalyRecord {
	var out []model.AnomalyRecord
	for _, metric := range d.metrics {
		observed, ok := event.MetricValue(metric)
		if !ok {
			continue
		}
		key := model.BaselineKey{ServiceID: event.ServiceID, ModelID: event.ModelID, MetricName: metric}
		summary, warm := store.Snapshot(key, d.minSamples())
		if !warm || summary.StdDev <= 0 {
			continue
		}
		pos, neg := store.PeekCUSUM(key, observed, summary.Mean, summary.StdDev, d.Drift)
		peak := pos
		if neg > peak {
			peak = neg
		}
		h := d.Threshold * summary.StdDev
		if h <= 0 || peak < h {
			continue
		}
		magnitude := peak / h
		rec := newRecord(uuid.NewString(), now, event, metric, d.Name(), observed, summarySnapshot{
			Mean: summary.Mean, StdDev: summary.StdDev, Median: summary.Median,
		})
		rec.Deviation = magnitude
		rec.Severity = model.SeverityForMagnitude(magnitude, 1.0)
		rec.Confidence = model.ConfidenceForMagnitude(magnitude, 1.0)
		out = append(out, rec)
	}
	return out
}

func (d *CUSUM) minSamples() int {
	if d.MinSamples > 0 {
		return d.MinSamples
	}
	return 20 // 2x the shared default of 10, per §9's CUSUM warmup note
}
