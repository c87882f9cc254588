// Package detectors implements the four statistical anomaly rules described
// in §4.3: z-score, IQR, MAD and CUSUM. Each is pure with respect to the
// baseline store — it reads a snapshot and never mutates the store; the
// engine is responsible for baseline/CUSUM updates after every detector has
// run on an event (§4.4).
package detectors

import (
	"time"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/baseline"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/model"
)

// Detector is the common contract every statistical rule implements.
type Detector interface {
	// Name identifies the detector for metrics labels and AnomalyRecord tags.
	Name() model.Detector
	// Metrics returns the configured metric names this detector watches.
	Metrics() []string
	// Detect evaluates event against the current baseline for each of its
	// configured metrics and returns zero or more AnomalyRecords. Detect
	// must not call any Store method that mutates state.
	Detect(event model.TelemetryEvent, store *baseline.Store, now time.Time) []model.AnomalyRecord
}

// newRecord assembles an AnomalyRecord shared across all four detectors,
// leaving only the detector-specific deviation/severity/confidence/type to
// the caller.
func newRecord(id string, now time.Time, e model.TelemetryEvent, metric string, det model.Detector, observed float64, summary summarySnapshot) model.AnomalyRecord {
	return model.AnomalyRecord{
		ID:             id,
		Timestamp:      now,
		ServiceID:      e.ServiceID,
		ModelID:        e.ModelID,
		Detector:       det,
		MetricName:     metric,
		ObservedValue:  observed,
		BaselineMean:   summary.Mean,
		BaselineStdDev: summary.StdDev,
		BaselineMedian: summary.Median,
		AnomalyType:    model.AnomalyTypeForMetric(metric),
	}
}

// summarySnapshot is the subset of stats.Summary every record snapshots.
type summarySnapshot struct {
	Mean   float64
	StdDev float64
	Median float64
}
