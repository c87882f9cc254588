// Command sentinel is the CLI entrypoint wiring configuration, ingestion,
// the detection engine, storage, the alert dispatcher and the observability
// HTTP surface together, then driving the §4.7 process state machine
// through signal-triggered graceful drain, the same flag-based CLI shape
// and os/signal + context.WithCancel pattern as ariadne's
// cli/cmd/ariadne/main.go.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/alerting"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/baseline"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/config"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/dedup"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/engine"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/ingestion"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/snapshot"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/storage"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/telemetry/health"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/telemetry/logging"

	internalapi "github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/api"
)

// drainDeadline is the hard deadline for Draining (§4.7 default 30s).
const drainDeadline = 30 * time.Second

func main() {
	var (
		configPath     string
		metricsBackend string
		showVersion    bool
	)
	flag.StringVar(&configPath, "config", "", "Path to the YAML configuration document (sections: ingestion, detection, storage, alerting, api)")
	flag.StringVar(&metricsBackend, "metrics-backend", "prom", "Metrics backend: prom|otel|noop")
	flag.BoolVar(&showVersion, "version", false, "Show version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("sentinel - LLM telemetry anomaly detection pipeline")
		return
	}

	logger := logging.New(slog.Default())

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("fatal: configuration error", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, metricsBackend, logger); err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, metricsBackend string, logger logging.Logger) error {
	prov := buildMetricsProvider(metricsBackend)

	// --- Starting: baselines restored, sinks connected (§4.7) ---
	store := baseline.NewStore(cfg.Detection.Baseline.WindowSize, cfg.Detection.Baseline.IdleTTL())
	if err := snapshot.Restore(cfg.Detection.Baseline.PersistencePath, store); err != nil {
		return err
	}

	dets := buildDetectors(cfg.Detection)
	downstream, queryStore := buildStorage(cfg.Storage)
	fanout := buildAlertSinks(cfg.Alerting, logger, prov)
	sink := dedup.NewFilter(cfg.Alerting.Deduplication.Enabled, cfg.Alerting.Deduplication.Capacity,
		cfg.Alerting.Deduplication.Window(), fanout, logger, prov)
	dispatchQueue := alerting.NewAsyncQueue(sink, cfg.Alerting.DispatchQueueSize, 0, logger, prov)

	eng := engine.New(engine.Config{
		Workers:               cfg.Detection.Workers,
		QueueSize:             cfg.Detection.QueueSize,
		ExcludeFlaggedSamples: cfg.Detection.Baseline.ExcludeFlaggedSamples,
	}, store, dets, downstream, dispatchQueue, logger, prov)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng.Start(ctx)
	go runBaselineUpdater(ctx, store, cfg.Detection.Baseline.UpdateInterval(), prov)

	consumer := ingestion.NewConsumer(ingestion.Config{
		Brokers: cfg.Ingestion.Brokers, Topic: cfg.Ingestion.Topic, GroupID: cfg.Ingestion.GroupID,
	}, eng, logger, prov)

	evaluator := health.NewEvaluator(5*time.Second, fanout.Probes()...)
	apiServer := internalapi.New(queryStore, queryStore, store, evaluator, prov)

	servers := startHTTPServers(cfg.API, apiServer)

	// --- Ready: normal operation ---
	logger.Info("sentinel ready", "workers", cfg.Detection.Workers, "detectors", len(dets))

	ingestDone := make(chan error, 1)
	go func() { ingestDone <- consumer.Run(ctx) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	select {
	case <-sigCh:
		logger.Info("shutdown signal received; draining")
	case err := <-ingestDone:
		if err != nil {
			logger.Error("ingestion stopped unexpectedly", "err", err)
		}
	}

	return drain(cancel, eng, consumer, store, dispatchQueue, cfg.Detection.Baseline.PersistencePath, servers, logger)
}

// drain implements §4.7's Draining state: stop pulling new events, flush
// the worker queues, flush the dispatcher, snapshot baselines, then stop,
// bounded by a hard deadline that aborts with a logged warning if exceeded.
func drain(cancel context.CancelFunc, eng *engine.Engine, consumer *ingestion.Consumer, store *baseline.Store,
	dispatchQueue *alerting.AsyncQueue, persistencePath string, servers []*http.Server, logger logging.Logger) error {
	cancel()
	_ = consumer.Close()

	deadline := time.Now().Add(drainDeadline)
	done := make(chan struct{})
	go func() {
		eng.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Until(deadline)):
		logger.Error("drain deadline exceeded; forcing shutdown", "deadline", drainDeadline)
	}

	dispatchQueue.Close(time.Until(deadline))

	if err := snapshot.Write(persistencePath, store); err != nil {
		logger.Error("baseline snapshot write failed", "err", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	for _, srv := range servers {
		_ = srv.Shutdown(shutdownCtx)
	}

	logger.Info("sentinel stopped")
	return nil
}

// buildStorage wires the engine's write-side persistence collaborator and
// the API's read-side store. storage.backend: noop discards every write
// (engine.Downstream becomes storage.Noop{}), so the anomaly and telemetry
// queries answer empty rather than silently re-enabling persistence (the
// baselines endpoint reads the baseline store and is unaffected); the
// default "memory" backend uses the same bounded in-memory store for both
// sides.
func buildStorage(cfg config.Storage) (engine.Downstream, *storage.Store) {
	queryStore := storage.New(cfg.Capacity)
	if cfg.Backend == "noop" {
		return storage.Noop{}, queryStore
	}
	return queryStore, queryStore
}

// startHTTPServers launches the listener configured in api.addr, serving
// health, metrics and the query endpoints from one mux.
func startHTTPServers(cfg config.API, apiServer *internalapi.Server) []*http.Server {
	var servers []*http.Server
	if cfg.Addr != "" {
		srv := &http.Server{Addr: cfg.Addr, Handler: apiServer.Mux}
		go func() { _ = srv.ListenAndServe() }()
		servers = append(servers, srv)
	}
	return servers
}
