package alerting

import (
	"context"
	"sync"
	"time"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/model"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/telemetry/logging"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/telemetry/metrics"
)

// Dispatcher is the structural shape every stage between the engine and the
// configured sinks implements: engine.AlertSink and dedup.Filter both satisfy
// it without either package importing the other.
type Dispatcher interface {
	Dispatch(ctx context.Context, record model.AnomalyRecord)
}

// AsyncQueue decouples a detection worker from dispatch latency per §5 ("the
// dispatcher must not block the engine's forward progress"): Dispatch enqueues
// onto a bounded channel and returns immediately, while background workers
// drain it into next. On a full queue the anomaly is dropped and counted
// rather than stalling the caller, matching §5's explicit overflow rule
// ("the engine-to-dispatcher queue may drop on overflow with a metric;
// anomalies lost this way are still persisted by storage" — storage already
// has its own copy via engine.emit before Dispatch is ever called). Grounded
// on the teacher's worker-pool shape (engine/internal/pipeline), narrowed
// here to a single fan-in queue instead of a sharded one: dispatch order
// across different anomalies carries no correctness requirement, unlike the
// engine's per-BaselineKey ordering.
type AsyncQueue struct {
	next    Dispatcher
	queue   chan model.AnomalyRecord
	logger  logging.Logger
	metrics metrics.Provider

	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

// NewAsyncQueue starts workers goroutines (default 2) draining a queue of
// capacity (default 1024) into next.
func NewAsyncQueue(next Dispatcher, capacity, workers int, logger logging.Logger, prov metrics.Provider) *AsyncQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	if workers <= 0 {
		workers = 2
	}
	q := &AsyncQueue{
		next:    next,
		queue:   make(chan model.AnomalyRecord, capacity),
		logger:  logger,
		metrics: prov,
		done:    make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.run()
	}
	return q
}

func (q *AsyncQueue) run() {
	defer q.wg.Done()
	for {
		select {
		case rec := <-q.queue:
			q.next.Dispatch(context.Background(), rec)
		case <-q.done:
			q.drain()
			return
		}
	}
}

func (q *AsyncQueue) drain() {
	for {
		select {
		case rec := <-q.queue:
			q.next.Dispatch(context.Background(), rec)
		default:
			return
		}
	}
}

// Dispatch implements Dispatcher. It never blocks the caller: record is
// either enqueued or dropped.
func (q *AsyncQueue) Dispatch(_ context.Context, record model.AnomalyRecord) {
	select {
	case q.queue <- record:
	default:
		if q.logger != nil {
			q.logger.Warn("dispatch queue full, dropping anomaly", "id", record.ID, "fingerprint", record.Fingerprint())
		}
		if q.metrics != nil {
			q.metrics.IncAlertQueueDropped()
		}
	}
}

// Close signals workers to drain whatever is already buffered and stop,
// returning once they're done or deadline elapses, whichever comes first
// (mirroring engine.Stop's own drain deadline at the orchestration layer).
func (q *AsyncQueue) Close(deadline time.Duration) {
	q.closeOnce.Do(func() { close(q.done) })
	stopped := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(deadline):
		if q.logger != nil {
			q.logger.Warn("dispatch queue drain deadline exceeded", "deadline", deadline)
		}
	}
}
