// Package api implements the HTTP query, health and metrics surface of §6:
// GET /api/v1/anomalies, /api/v1/telemetry, /api/v1/baselines read from the
// storage tier; /health/live and /health/ready report process/sink
// liveness; /metrics exposes the configured metrics.Provider's exposition
// format. Handler shape (plain http.Handler closures returning JSON
// envelopes) follows ariadne's engine/adapters/telemetryhttp package.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/model"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/stats"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/storage"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/telemetry/health"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/telemetry/metrics"
)

// AnomalyReader is the read side of the storage tier the anomaly endpoint
// needs.
type AnomalyReader interface {
	ListAnomalies(q storage.AnomalyQuery) []model.AnomalyRecord
}

// TelemetryReader is the read side of the storage tier the telemetry
// endpoint needs.
type TelemetryReader interface {
	ListTelemetry(q storage.TelemetryQuery) []model.TelemetryEvent
}

// BaselineReader exposes the live baseline store for the baselines endpoint.
type BaselineReader interface {
	Keys() []model.BaselineKey
	Snapshot(key model.BaselineKey, minSamples int) (stats.Summary, bool)
}

// Server bundles every handler §6 names behind one *http.ServeMux, the
// teacher's bare net/http approach rather than a router framework.
type Server struct {
	Mux *http.ServeMux
}

// New wires every endpoint. evaluator may be nil (the readiness endpoint
// then answers healthy with 200); prov may be nil (metrics endpoint answers 404, matching
// metrics.Noop.Handler).
func New(anomalies AnomalyReader, telemetry TelemetryReader, baselines BaselineReader, evaluator *health.Evaluator, prov metrics.Provider) *Server {
	mux := http.NewServeMux()
	s := &Server{Mux: mux}

	mux.HandleFunc("/api/v1/anomalies", s.handleAnomalies(anomalies))
	mux.HandleFunc("/api/v1/telemetry", s.handleTelemetry(telemetry))
	mux.HandleFunc("/api/v1/baselines", s.handleBaselines(baselines))
	mux.Handle("/health/live", handleLive())
	mux.Handle("/health/ready", handleReady(evaluator))
	if prov != nil {
		mux.Handle("/metrics", prov.Handler())
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleAnomalies(reader AnomalyReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		query := storage.AnomalyQuery{
			ServiceID: q.Get("service"),
			ModelID:   q.Get("model"),
			Severity:  model.Severity(q.Get("severity")),
			Since:     sinceFromHours(q.Get("hours")),
			Limit:     parseIntDefault(q.Get("limit"), 100),
		}
		records := reader.ListAnomalies(query)
		writeJSON(w, http.StatusOK, envelope{Count: len(records), Items: records})
	}
}

func (s *Server) handleTelemetry(reader TelemetryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		query := storage.TelemetryQuery{
			ServiceID: q.Get("service"),
			ModelID:   q.Get("model"),
			Since:     sinceFromHours(q.Get("hours")),
			Limit:     parseIntDefault(q.Get("limit"), 100),
		}
		events := reader.ListTelemetry(query)
		writeJSON(w, http.StatusOK, envelope{Count: len(events), Items: events})
	}
}

func (s *Server) handleBaselines(reader BaselineReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		service := q.Get("service")
		modelID := q.Get("model")
		minSamples := parseIntDefault(q.Get("min_samples"), 1)

		out := make([]baselineView, 0)
		for _, key := range reader.Keys() {
			if service != "" && key.ServiceID != service {
				continue
			}
			if modelID != "" && key.ModelID != modelID {
				continue
			}
			summary, warm := reader.Snapshot(key, minSamples)
			if !warm {
				continue
			}
			out = append(out, baselineView{Key: key, Summary: summary})
		}
		writeJSON(w, http.StatusOK, envelope{Count: len(out), Items: out})
	}
}

func handleLive() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "live"})
	})
}

func handleReady(evaluator *health.Evaluator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if evaluator == nil {
			writeJSON(w, http.StatusOK, health.Snapshot{Overall: health.StatusHealthy, Generated: time.Now()})
			return
		}
		snap := evaluator.Evaluate(r.Context())
		status := http.StatusOK
		if snap.Overall == health.StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, snap)
	})
}

type envelope struct {
	Count int `json:"count"`
	Items any `json:"items"`
}

type baselineView struct {
	Key     model.BaselineKey `json:"key"`
	Summary stats.Summary     `json:"summary"`
}

func parseIntDefault(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// sinceFromHours turns the "hours" query parameter of §6 into a cutoff
// timestamp; an empty or invalid value means "no lower bound".
func sinceFromHours(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	hours, err := strconv.ParseFloat(raw, 64)
	if err != nil || hours <= 0 {
		return time.Time{}
	}
	return time.Now().Add(-time.Duration(hours * float64(time.Hour)))
}
