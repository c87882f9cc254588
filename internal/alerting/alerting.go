// Package alerting implements the engine.AlertSink contract: anomalies are
// fanned out to one or more named sinks, each responsible for its own
// delivery semantics and failure isolation. Grounded on ariadne's
// pipeline stage fan-out (internal/pipeline/pipeline.go), which runs a fixed
// set of output stages per task and isolates one stage's failure from the
// others.
package alerting

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/model"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/telemetry/health"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/telemetry/logging"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/telemetry/metrics"
)

// degradedThreshold is the number of consecutive delivery failures a sink
// must accumulate before its health probe reports Unhealthy, backing the
// Degraded state of §4.7 ("a non-essential sink... failing persistently").
const degradedThreshold = 3

// Sink delivers a single anomaly record to one destination. Implementations
// must not block the caller indefinitely; Send is expected to apply its
// own timeout internally.
type Sink interface {
	Name() string
	Send(ctx context.Context, record model.AnomalyRecord) error
}

// Fanout dispatches every anomaly to every configured Sink concurrently,
// isolating one sink's failure from the others and from the caller.
type Fanout struct {
	sinks     []Sink
	logger    logging.Logger
	metrics   metrics.Provider
	failCount []int64 // consecutive failures, parallel to sinks
}

// New constructs a Fanout over sinks.
func New(logger logging.Logger, prov metrics.Provider, sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks, logger: logger, metrics: prov, failCount: make([]int64, len(sinks))}
}

// Probes returns one health.Probe per configured sink, each reporting
// Unhealthy once that sink has accumulated degradedThreshold consecutive
// failures. The orchestrator feeds these into a health.Evaluator so
// /health/ready reflects §4.7's Degraded/Ready transitions.
func (f *Fanout) Probes() []health.Probe {
	out := make([]health.Probe, 0, len(f.sinks))
	for i, s := range f.sinks {
		name := s.Name()
		idx := i
		out = append(out, health.ProbeFunc(func(ctx context.Context) health.ProbeResult {
			if atomic.LoadInt64(&f.failCount[idx]) >= degradedThreshold {
				return health.Unhealthy(name, "sink failing persistently")
			}
			return health.Healthy(name)
		}))
	}
	return out
}

// Dispatch implements engine.AlertSink. It runs every sink in its own
// goroutine and returns once all of them have finished; the AsyncQueue in
// front of it keeps that wait off the engine's worker goroutines.
func (f *Fanout) Dispatch(ctx context.Context, record model.AnomalyRecord) {
	var wg sync.WaitGroup
	for i, s := range f.sinks {
		wg.Add(1)
		go func(i int, s Sink) {
			defer wg.Done()
			if err := s.Send(ctx, record); err != nil {
				atomic.AddInt64(&f.failCount[i], 1)
				if f.logger != nil {
					f.logger.Error("alert sink delivery failed", "sink", s.Name(), "id", record.ID, "err", err)
				}
				if f.metrics != nil {
					f.metrics.IncAlertFailed(s.Name())
				}
				return
			}
			atomic.StoreInt64(&f.failCount[i], 0)
			if f.metrics != nil {
				f.metrics.IncAlertSent(s.Name())
			}
		}(i, s)
	}
	wg.Wait()
}
