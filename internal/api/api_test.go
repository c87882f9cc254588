package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/baseline"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/model"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/storage"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/telemetry/health"
)

func TestHandleAnomaliesFiltersBySeverity(t *testing.T) {
	store := storage.New(100)
	ctx := context.Background()
	_ = store.WriteAnomaly(ctx, model.AnomalyRecord{ID: "1", ServiceID: "s1", Severity: model.SeverityLow})
	_ = store.WriteAnomaly(ctx, model.AnomalyRecord{ID: "2", ServiceID: "s1", Severity: model.SeverityCritical})

	srv := New(store, store, baseline.NewStore(1000, 0), nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/anomalies?severity=critical", nil)
	rec := httptest.NewRecorder()
	srv.Mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"2"`)
	assert.NotContains(t, rec.Body.String(), `"id":"1"`)
}

func TestHandleAnomaliesFiltersByHours(t *testing.T) {
	store := storage.New(100)
	ctx := context.Background()
	_ = store.WriteAnomaly(ctx, model.AnomalyRecord{ID: "old", ServiceID: "s1", Timestamp: time.Now().Add(-3 * time.Hour)})
	_ = store.WriteAnomaly(ctx, model.AnomalyRecord{ID: "recent", ServiceID: "s1", Timestamp: time.Now()})

	srv := New(store, store, baseline.NewStore(1000, 0), nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/anomalies?hours=1", nil)
	rec := httptest.NewRecorder()
	srv.Mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"recent"`)
	assert.NotContains(t, rec.Body.String(), `"id":"old"`)
}

func TestHandleBaselinesOnlyReturnsWarmKeys(t *testing.T) {
	store := baseline.NewStore(1000, 0)
	key := model.BaselineKey{ServiceID: "s1", ModelID: "m1", MetricName: "latency_ms"}
	for i := 0; i < 5; i++ {
		store.Append(key, 100, time.Now())
	}
	srv := New(storage.New(100), storage.New(100), store, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/baselines?min_samples=10", nil)
	rec := httptest.NewRecorder()
	srv.Mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":0`)
}

func TestHandleReadyUnhealthyReturns503(t *testing.T) {
	evaluator := health.NewEvaluator(0, health.ProbeFunc(func(ctx context.Context) health.ProbeResult {
		return health.Unhealthy("sink", "all sinks down")
	}))
	srv := New(storage.New(10), storage.New(10), baseline.NewStore(10, 0), evaluator, nil)
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	srv.Mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleLiveAlwaysOK(t *testing.T) {
	srv := New(storage.New(10), storage.New(10), baseline.NewStore(10, 0), nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	srv.Mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
