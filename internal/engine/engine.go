// Package engine implements the detection engine orchestration of §4.4: it
// fans each event to all enabled detectors, aggregates their anomalies,
// appends the observed values to the baseline store, advances CUSUM state,
// and emits anomalies downstream, mirroring the worker-pool / bounded-queue
// shape of ariadne's pipeline (github.com/99souls/ariadne engine/internal/pipeline),
// generalized from a web-crawl stage fan-out to a BaselineKey-sharded event
// fan-out.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/baseline"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/detectors"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/model"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/telemetry/logging"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/telemetry/metrics"
)

// Downstream receives detection output: the raw event (for persistence) and
// any anomalies it produced. Both operations are expected to be
// asynchronous/batching and must not block the caller for long (§6).
type Downstream interface {
	WriteTelemetry(ctx context.Context, event model.TelemetryEvent) error
	WriteAnomaly(ctx context.Context, record model.AnomalyRecord) error
}

// AlertSink receives every anomaly the engine produces for dispatch.
// Deduplication and the bounded async dispatch queue both happen above this
// interface (wired at orchestration time, see internal/alerting.AsyncQueue);
// Engine itself always forwards every anomaly it produces to Downstream and
// to AlertSink, and Dispatch must return promptly — it is called from the
// same worker goroutine that processes the next event for this shard (§5).
type AlertSink interface {
	Dispatch(ctx context.Context, record model.AnomalyRecord)
}

// Config tunes the engine's worker pool and queueing.
type Config struct {
	Workers   int // default 4, per §5
	QueueSize int // per-worker bounded queue capacity

	// ExcludeFlaggedSamples resolves the §9 open question: when true, a
	// metric value any detector flagged on this event is not appended to
	// its baseline window, nor does it advance that metric's CUSUM state.
	// Default false preserves the source's unconditional-append behavior.
	ExcludeFlaggedSamples bool
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
	return c
}

// Engine is the streaming detection orchestrator.
type Engine struct {
	cfg        Config
	store      *baseline.Store
	dets       []detectors.Detector
	metricSet  []string // union of all metrics any detector watches
	downstream Downstream
	sink       AlertSink
	logger     logging.Logger
	metrics    metrics.Provider

	queues    []chan model.TelemetryEvent
	wg        sync.WaitGroup
	closeOnce sync.Once
	done      chan struct{}
}

// New constructs an Engine. dets must be the fixed, enabled detector set for
// this process's configuration (§4.4 step 1: detectors and the
// metric-to-detector map are fixed at startup).
func New(cfg Config, store *baseline.Store, dets []detectors.Detector, downstream Downstream, sink AlertSink, logger logging.Logger, prov metrics.Provider) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:        cfg,
		store:      store,
		dets:       dets,
		metricSet:  unionMetrics(dets),
		downstream: downstream,
		sink:       sink,
		logger:     logger,
		metrics:    prov,
		done:       make(chan struct{}),
	}
	e.queues = make([]chan model.TelemetryEvent, cfg.Workers)
	for i := range e.queues {
		e.queues[i] = make(chan model.TelemetryEvent, cfg.QueueSize)
	}
	return e
}

func unionMetrics(dets []detectors.Detector) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, d := range dets {
		for _, m := range d.Metrics() {
			if _, ok := seen[m]; !ok {
				seen[m] = struct{}{}
				out = append(out, m)
			}
		}
	}
	return out
}

// Start launches the worker pool. Each worker owns a disjoint shard of the
// BaselineKey space (via Submit's hash routing), so events sharing a
// BaselineKey are always processed by the same worker, in arrival order
// (§4.4, §5).
func (e *Engine) Start(ctx context.Context) {
	for i := 0; i < e.cfg.Workers; i++ {
		e.wg.Add(1)
		go e.runWorker(ctx, e.queues[i])
	}
}

// Submit routes event to its shard worker, blocking if that worker's queue
// is full (the intentional backpressure of §5: the ingestion producer is
// blocked, not the whole engine). Submit returns ctx.Err() if ctx is
// cancelled while blocked.
func (e *Engine) Submit(ctx context.Context, event model.TelemetryEvent) error {
	// Checked non-blockingly first so a Submit issued after Stop has already
	// been called is rejected deterministically, rather than racing a closed
	// done against a same-iteration queue send.
	select {
	case <-e.done:
		return fmt.Errorf("engine: draining, event rejected")
	default:
	}

	idx := e.shardIndex(event)
	select {
	case e.queues[idx] <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return fmt.Errorf("engine: draining, event rejected")
	}
}

func (e *Engine) shardIndex(event model.TelemetryEvent) int {
	key := model.BaselineKey{ServiceID: event.ServiceID, ModelID: event.ModelID}
	return int(key.ShardHash() % uint64(len(e.queues)))
}

// Stop signals workers to drain their queues and return, then waits for
// them. It does not itself enforce the draining deadline of §4.7; the
// orchestration layer wraps Stop with a deadline. Submit's queue
// channels are never closed (only e.done is): closing a queue a concurrent
// Submit might still be sending on would race a send against a close, which
// panics, so "stop accepting new work" is signalled purely by closing done
// and workers drain whatever is already buffered before returning.
func (e *Engine) Stop() {
	e.closeOnce.Do(func() {
		close(e.done)
	})
	e.wg.Wait()
}

func (e *Engine) runWorker(ctx context.Context, queue chan model.TelemetryEvent) {
	defer e.wg.Done()
	for {
		select {
		case event := <-queue:
			e.processEvent(ctx, event)
		case <-e.done:
			e.drain(ctx, queue)
			return
		}
	}
}

// drain processes whatever is already buffered in queue without blocking,
// once the engine has signalled done.
func (e *Engine) drain(ctx context.Context, queue chan model.TelemetryEvent) {
	for {
		select {
		case event := <-queue:
			e.processEvent(ctx, event)
		default:
			return
		}
	}
}

// processEvent implements §4.4's per-event algorithm. Detection, baseline
// append and CUSUM update are CPU-bound and run sequentially within the
// worker goroutine (§5: non-suspending); only the downstream writes may
// block briefly.
func (e *Engine) processEvent(ctx context.Context, event model.TelemetryEvent) {
	start := time.Now()

	anomalies := e.runDetectors(event)
	flagged := flaggedMetrics(anomalies)

	// CUSUM is committed before the baseline append so it uses the same
	// pre-append mean/stddev the CUSUM detector previewed against.
	e.advanceCUSUM(event, flagged)

	for _, metric := range e.metricSet {
		if e.cfg.ExcludeFlaggedSamples && flagged[metric] {
			continue
		}
		value, ok := event.MetricValue(metric)
		if !ok {
			continue
		}
		key := model.BaselineKey{ServiceID: event.ServiceID, ModelID: event.ModelID, MetricName: metric}
		e.store.Append(key, value, event.Timestamp)
	}

	if e.metrics != nil {
		e.metrics.ObserveDetectionLatency(time.Since(start))
		e.metrics.IncEventsIngested()
		for _, a := range anomalies {
			e.metrics.IncAnomaly(string(a.Detector), string(a.Severity))
		}
	}

	e.emit(ctx, event, anomalies)
}

// runDetectors fans the event to every configured detector, isolating a
// single detector's panic/error so it never affects the others (§4.4 step 2,
// §7 DetectorError).
func (e *Engine) runDetectors(event model.TelemetryEvent) []model.AnomalyRecord {
	var out []model.AnomalyRecord
	for _, d := range e.dets {
		recs := e.safeDetect(d, event)
		out = append(out, recs...)
	}
	return out
}

// flaggedMetrics returns the set of metric names any anomaly in recs was
// raised against, used to honor ExcludeFlaggedSamples.
func flaggedMetrics(recs []model.AnomalyRecord) map[string]bool {
	if len(recs) == 0 {
		return nil
	}
	out := make(map[string]bool, len(recs))
	for _, r := range recs {
		out[r.MetricName] = true
	}
	return out
}

func (e *Engine) safeDetect(d detectors.Detector, event model.TelemetryEvent) (recs []model.AnomalyRecord) {
	defer func() {
		if r := recover(); r != nil {
			if e.metrics != nil {
				e.metrics.IncDetectorError(string(d.Name()))
			}
			if e.logger != nil {
				e.logger.Error("detector panic recovered",
					"detector", d.Name(), "service_id", event.ServiceID, "model_id", event.ModelID, "panic", r)
			}
			recs = nil
		}
	}()
	return d.Detect(event, e.store, time.Now())
}

// advanceCUSUM commits the CUSUM arm update for every metric the CUSUM
// detector watches, on every event, regardless of whether it flagged
// (§4.4 step 4). This is the one piece of mutation the engine performs on
// behalf of a detector, because the CUSUM contract forbids the detector
// itself from mutating the store (§4.3.4 commentary in internal/detectors/cusum.go).
func (e *Engine) advanceCUSUM(event model.TelemetryEvent, flagged map[string]bool) {
	for _, d := range e.dets {
		cu, ok := d.(*detectors.CUSUM)
		if !ok {
			continue
		}
		for _, metric := range cu.Metrics() {
			if e.cfg.ExcludeFlaggedSamples && flagged[metric] {
				continue
			}
			value, ok := event.MetricValue(metric)
			if !ok {
				continue
			}
			key := model.BaselineKey{ServiceID: event.ServiceID, ModelID: event.ModelID, MetricName: metric}
			summary, warm := e.store.Snapshot(key, 0)
			if !warm || summary.StdDev <= 0 {
				continue
			}
			pos, neg := e.store.CommitCUSUM(key, value, summary.Mean, summary.StdDev, cu.Drift)
			peak := pos
			if neg > peak {
				peak = neg
			}
			if peak >= cu.Threshold*summary.StdDev {
				e.store.ResetCUSUM(key)
			}
		}
	}
}

// emit writes the event and its anomalies downstream. Storage and dispatch
// failures are isolated from each other (§4.4 step 5, §7 StorageError).
func (e *Engine) emit(ctx context.Context, event model.TelemetryEvent, anomalies []model.AnomalyRecord) {
	if e.downstream != nil {
		if err := e.downstream.WriteTelemetry(ctx, event); err != nil {
			if e.logger != nil {
				e.logger.Error("telemetry write failed", "service_id", event.ServiceID, "err", err)
			}
			if e.metrics != nil {
				e.metrics.IncStorageError()
			}
		}
	}
	for _, a := range anomalies {
		if e.downstream != nil {
			if err := e.downstream.WriteAnomaly(ctx, a); err != nil {
				if e.logger != nil {
					e.logger.Error("anomaly write failed", "id", a.ID, "err", err)
				}
				if e.metrics != nil {
					e.metrics.IncStorageError()
				}
			}
		}
		if e.sink != nil {
			e.sink.Dispatch(ctx, a)
		}
	}
}
