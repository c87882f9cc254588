// Package model defines the data types shared across the detection pipeline:
// inbound telemetry events, baseline keys, and outbound anomaly records.
package model

import (
	"errors"
	"math"
	"time"
)

// TelemetryEvent is a single per-request observation emitted by an LLM
// service. Instances are immutable once constructed and are never mutated
// by detectors.
type TelemetryEvent struct {
	Timestamp        time.Time              `json:"timestamp"`
	ServiceID        string                 `json:"service_id"`
	ModelID          string                 `json:"model_id"`
	LatencyMs        float64                `json:"latency_ms"`
	PromptTokens     int64                  `json:"prompt_tokens"`
	CompletionTokens int64                  `json:"completion_tokens"`
	Cost             float64                `json:"cost"`
	UserID           string                 `json:"user_id,omitempty"`
	SessionID        string                 `json:"session_id,omitempty"`
	RequestID        string                 `json:"request_id,omitempty"`
	Metadata         map[string]any         `json:"metadata,omitempty"`
}

// TotalTokens returns the sum of prompt and completion tokens.
func (e TelemetryEvent) TotalTokens() int64 {
	return e.PromptTokens + e.CompletionTokens
}

var (
	errEmptyServiceID = errors.New("model: service_id must not be empty")
	errEmptyModelID   = errors.New("model: model_id must not be empty")
	errNonFinite      = errors.New("model: numeric field is not finite")
	errNegative       = errors.New("model: numeric field must be non-negative")
	errZeroTimestamp  = errors.New("model: timestamp must be present")
)

// Validate enforces the invariants of §3: numeric fields finite and
// non-negative, identifiers present, timestamp set. Upstream ingestion
// rejects events failing this check before they reach the engine.
func (e TelemetryEvent) Validate() error {
	if e.ServiceID == "" {
		return errEmptyServiceID
	}
	if e.ModelID == "" {
		return errEmptyModelID
	}
	if e.Timestamp.IsZero() {
		return errZeroTimestamp
	}
	for _, v := range []float64{e.LatencyMs, e.Cost, float64(e.PromptTokens), float64(e.CompletionTokens)} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errNonFinite
		}
		if v < 0 {
			return errNegative
		}
	}
	return nil
}

// MetricValue extracts the observed value for a named metric, mirroring the
// configurable metric set of §3 (latency_ms, total_tokens, cost by default;
// others admissible as the set is driven by configuration).
func (e TelemetryEvent) MetricValue(metric string) (float64, bool) {
	switch metric {
	case "latency_ms":
		return e.LatencyMs, true
	case "total_tokens":
		return float64(e.TotalTokens()), true
	case "cost":
		return e.Cost, true
	default:
		return 0, false
	}
}
