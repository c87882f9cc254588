package main

import (
	"context"
	"net/http"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/alerting"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/baseline"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/config"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/detectors"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/telemetry/logging"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/telemetry/metrics"
)

// buildDetectors constructs the fixed, enabled detector set named by
// detection.enabled_detectors (§4.4 step 1: fixed at startup for a given
// configuration).
func buildDetectors(d config.Detection) []detectors.Detector {
	enabled := make(map[string]bool, len(d.EnabledDetectors))
	for _, name := range d.EnabledDetectors {
		enabled[name] = true
	}
	// An unset per-detector min_samples falls back to baseline.min_samples.
	minSamples := func(n int) int {
		if n > 0 {
			return n
		}
		return d.Baseline.MinSamples
	}
	var out []detectors.Detector
	if enabled["zscore"] && d.ZScore.Enabled {
		out = append(out, detectors.NewZScore(d.ZScore.Threshold, minSamples(d.ZScore.MinSamples), d.ZScore.Metrics))
	}
	if enabled["iqr"] && d.IQR.Enabled {
		out = append(out, detectors.NewIQR(d.IQR.Multiplier, minSamples(d.IQR.MinSamples), d.IQR.Metrics))
	}
	if enabled["mad"] && d.MAD.Enabled {
		out = append(out, detectors.NewMAD(d.MAD.Threshold, minSamples(d.MAD.MinSamples), d.MAD.Metrics))
	}
	if enabled["cusum"] && d.CUSUM.Enabled {
		out = append(out, detectors.NewCUSUM(d.CUSUM.Threshold, d.CUSUM.Drift, d.CUSUM.MinSamples, d.CUSUM.Metrics))
	}
	return out
}

// buildMetricsProvider selects the Provider implementation per the
// -metrics-backend flag, following ariadne's CLI -metrics-backend
// prom|otel|noop switch (cli/cmd/ariadne/main.go).
func buildMetricsProvider(backend string) metrics.Provider {
	switch backend {
	case "otel":
		return metrics.NewOTelProvider(nil, metrics.OTelProviderOptions{ServiceName: "llm-sentinel"})
	case "noop":
		return metrics.Noop{}
	default:
		return metrics.NewPrometheusProvider(nil)
	}
}

// buildAlertSinks constructs the topic-bus and/or webhook sinks named by
// alerting.topic_bus / alerting.webhook, each enabled independently (§4.6).
func buildAlertSinks(cfg config.Alerting, logger logging.Logger, prov metrics.Provider) *alerting.Fanout {
	var sinks []alerting.Sink
	if cfg.TopicBus.Enabled {
		writer := &kafka.Writer{
			Addr:         kafka.TCP(cfg.TopicBus.Brokers...),
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		}
		sinks = append(sinks, alerting.NewBusSink("topic_bus", cfg.TopicBus.Prefix, writer, retryPolicy(cfg.TopicBus.Retry)))
	}
	if cfg.Webhook.Enabled {
		client := &http.Client{Timeout: 10 * time.Second}
		secret := []byte(cfg.Webhook.Secret)
		sinks = append(sinks, alerting.NewWebhookSink("webhook", cfg.Webhook.URL, secret, client, retryPolicy(cfg.Webhook.Retry)))
	}
	return alerting.New(logger, prov, sinks...)
}

// retryPolicy translates a config.RetryPolicy into the plain-duration
// alerting.RetryPolicy its sinks build their backoff from (§4.6).
func retryPolicy(cfg config.RetryPolicy) alerting.RetryPolicy {
	return alerting.RetryPolicy{
		InitialDelay: cfg.InitialDelay(),
		Multiplier:   cfg.BackoffMultiplier(),
		MaxDelay:     cfg.MaxDelay(),
		MaxAttempts:  cfg.MaxAttemptCount(),
	}
}

// runBaselineUpdater is the §4.2 periodic background task: it walks every
// known key to refresh the exported sample-count gauge and sweep idle keys,
// off the event path entirely (it reads via Keys/Snapshot, and EvictIdle
// briefly takes the shard and per-key locks to drop idle entries). A
// non-positive interval disables the ticker, matching update_interval_secs: 0.
func runBaselineUpdater(ctx context.Context, store *baseline.Store, interval time.Duration, prov metrics.Provider) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, key := range store.Keys() {
				if summary, ok := store.Snapshot(key, 0); ok {
					prov.SetBaselineSampleCount(key.String(), summary.Count)
				}
			}
			store.EvictIdle(now)
		}
	}
}
