package detectors

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/baseline"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/model"
)

// madScaleFactor rescales MAD to sigma-comparable units under a normal
// distribution assumption (§4.3.3).
const madScaleFactor = 0.6745

// MAD flags a robust score 0.6745*(x-median)/MAD with |score| >= Threshold
// against a warm baseline with a positive MAD (§4.3.3).
type MAD struct {
	Threshold  float64 // default 3.5
	MinSamples int
	metrics    []string
}

// NewMAD constructs a median-absolute-deviation detector.
func NewMAD(threshold float64, minSamples int, metrics []string) *MAD {
	if threshold <= 0 {
		threshold = 3.5
	}
	return &MAD{Threshold: threshold, MinSamples: minSamples, metrics: metrics}
}

func (d *MAD) Name() model.Detector { return model.DetectorMAD }
func (d *MAD) Metrics() []string    { return d.metrics }

func (d *MAD) Detect(event model.TelemetryEvent, store *baseline.Store, now time.Time) []model.AnomalyRecord {
	var out []model.AnomalyRecord
	for _, metric := range d.metrics {
		observed, ok := event.MetricValue(metric)
		if !ok {
			continue
		}
		key := model.BaselineKey{ServiceID: event.ServiceID, ModelID: event.ModelID, MetricName: metric}
		summary, warm := store.Snapshot(key, d.minSamples())
		if !warm || summary.MAD <= 0 {
			continue
		}
		score := madScaleFactor * (observed - summary.Median) / summary.MAD
		magnitude := math.Abs(score)
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

func (d *MAD) minSamples() int {
	if d.MinSamples > 0 {
		return d.MinSamples
	}
	return 10
}
