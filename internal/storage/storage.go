// Package storage implements the engine.Downstream persistence contract and
// the read side that backs the query API: an append-only, bounded, in-memory
// store for telemetry events and anomaly records. Shaped after ariadne's
// resources/manager.go bounded-cache pattern (fixed capacity, oldest-evicts),
// generalized from resource handles to timestamped domain records.
package storage

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/model"
)

// Store is an in-memory, capacity-bounded implementation of engine.Downstream
// plus the read queries the API needs. It is the default storage backend;
// production deployments wire a real database behind the same interfaces
// (Non-goal: this package does not implement one).
type Store struct {
	mu           sync.RWMutex
	capacity     int
	telemetry    *list.List // of model.TelemetryEvent, newest at back
	anomalies    *list.List // of model.AnomalyRecord, newest at back
}

// New constructs a Store retaining up to capacity records of each kind.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = 10000
	}
	return &Store{
		capacity:  capacity,
		telemetry: list.New(),
		anomalies: list.New(),
	}
}

// WriteTelemetry appends event, evicting the oldest retained event if the
// store is at capacity.
func (s *Store) WriteTelemetry(_ context.Context, event model.TelemetryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.telemetry.PushBack(event)
	if s.telemetry.Len() > s.capacity {
		s.telemetry.Remove(s.telemetry.Front())
	}
	return nil
}

// WriteAnomaly appends record, evicting the oldest retained record if the
// store is at capacity.
func (s *Store) WriteAnomaly(_ context.Context, record model.AnomalyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anomalies.PushBack(record)
	if s.anomalies.Len() > s.capacity {
		s.anomalies.Remove(s.anomalies.Front())
	}
	return nil
}

// AnomalyQuery filters the anomaly listing endpoint. Since, when non-zero,
// excludes records older than it (the "hours" query parameter of §6).
type AnomalyQuery struct {
	ServiceID string
	ModelID   string
	Severity  model.Severity
	Since     time.Time
	Limit     int
}

// ListAnomalies returns the most recent anomalies matching q, newest first.
func (s *Store) ListAnomalies(q AnomalyQuery) []model.AnomalyRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := q.Limit
	if limit <= 0 || limit > s.anomalies.Len() {
		limit = s.anomalies.Len()
	}

	out := make([]model.AnomalyRecord, 0, limit)
	for e := s.anomalies.Back(); e != nil && len(out) < limit; e = e.Prev() {
		rec := e.Value.(model.AnomalyRecord)
		if q.ServiceID != "" && rec.ServiceID != q.ServiceID {
			continue
		}
		if q.ModelID != "" && rec.ModelID != q.ModelID {
			continue
		}
		if q.Severity != "" && rec.Severity != q.Severity {
			continue
		}
		if !q.Since.IsZero() && rec.Timestamp.Before(q.Since) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// TelemetryQuery filters the telemetry listing endpoint. Since, when
// non-zero, excludes events older than it (the "hours" query parameter of
// §6).
type TelemetryQuery struct {
	ServiceID string
	ModelID   string
	Since     time.Time
	Limit     int
}

// ListTelemetry returns the most recent events matching q, newest first.
func (s *Store) ListTelemetry(q TelemetryQuery) []model.TelemetryEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := q.Limit
	if limit <= 0 || limit > s.telemetry.Len() {
		limit = s.telemetry.Len()
	}

	out := make([]model.TelemetryEvent, 0, limit)
	for e := s.telemetry.Back(); e != nil && len(out) < limit; e = e.Prev() {
		ev := e.Value.(model.TelemetryEvent)
		if q.ServiceID != "" && ev.ServiceID != q.ServiceID {
			continue
		}
		if q.ModelID != "" && ev.ModelID != q.ModelID {
			continue
		}
		if !q.Since.IsZero() && ev.Timestamp.Before(q.Since) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Noop discards every write; it has no query methods. Used when persistence
// is disabled in configuration.
type Noop struct{}

func (Noop) WriteTelemetry(context.Context, model.TelemetryEvent) error { return nil }
func (Noop) WriteAnomaly(context.Context, model.AnomalyRecord) error   { return nil }
