package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEvent() TelemetryEvent {
	return TelemetryEvent{
		Timestamp:        time.Now(),
		ServiceID:        "svc",
		ModelID:          "model",
		LatencyMs:        120,
		PromptTokens:     10,
		CompletionTokens: 20,
		Cost:             0.01,
	}
}

func TestValidateAcceptsWellFormedEvent(t *testing.T) {
	assert.NoError(t, validEvent().Validate())
}

func TestValidateRejectsMissingIdentifiers(t *testing.T) {
	e := validEvent()
	e.ServiceID = ""
	assert.Error(t, e.Validate())

	e = validEvent()
	e.ModelID = ""
	assert.Error(t, e.Validate())
}

func TestValidateRejectsZeroTimestamp(t *testing.T) {
	e := validEvent()
	e.Timestamp = time.Time{}
	assert.Error(t, e.Validate())
}

func TestValidateRejectsNonFiniteOrNegative(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*TelemetryEvent)
	}{
		{"negative latency", func(e *TelemetryEvent) { e.LatencyMs = -1 }},
		{"negative cost", func(e *TelemetryEvent) { e.Cost = -0.01 }},
		{"nan latency", func(e *TelemetryEvent) { e.LatencyMs = nan() }},
		{"inf cost", func(e *TelemetryEvent) { e.Cost = inf() }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := validEvent()
			tc.mutate(&e)
			assert.Error(t, e.Validate())
		})
	}
}

func nan() float64 { var z float64; return z / z }
func inf() float64 { var z float64; return 1 / z }

func TestTotalTokensSumsPromptAndCompletion(t *testing.T) {
	e := validEvent()
	assert.Equal(t, int64(30), e.TotalTokens())
}

func TestMetricValueExtractsConfiguredMetrics(t *testing.T) {
	e := validEvent()

	v, ok := e.MetricValue("latency_ms")
	require.True(t, ok)
	assert.Equal(t, 120.0, v)

	v, ok = e.MetricValue("total_tokens")
	require.True(t, ok)
	assert.Equal(t, 30.0, v)

	v, ok = e.MetricValue("cost")
	require.True(t, ok)
	assert.Equal(t, 0.01, v)

	_, ok = e.MetricValue("unknown_metric")
	assert.False(t, ok)
}

func TestSeverityForMagnitudeIsMonotonic(t *testing.T) {
	threshold := 3.0
	assert.Equal(t, SeverityLow, SeverityForMagnitude(threshold*1.1, threshold))
	assert.Equal(t, SeverityMedium, SeverityForMagnitude(threshold*1.8, threshold))
	assert.Equal(t, SeverityHigh, SeverityForMagnitude(threshold*2.5, threshold))
	assert.Equal(t, SeverityCritical, SeverityForMagnitude(threshold*10, threshold))

	rank := map[Severity]int{SeverityLow: 0, SeverityMedium: 1, SeverityHigh: 2, SeverityCritical: 3}
	prev := -1
	for _, m := range []float64{1.1, 1.6, 1.9, 2.1, 2.9, 3.1, 10} {
		sev := SeverityForMagnitude(threshold*m, threshold)
		require.GreaterOrEqual(t, rank[sev], prev)
		prev = rank[sev]
	}
}

func TestConfidenceForMagnitudeIsClamped(t *testing.T) {
	assert.Equal(t, 0.5, ConfidenceForMagnitude(1.0, 1.0))
	assert.Equal(t, 0.99, ConfidenceForMagnitude(1000.0, 1.0))
	c := ConfidenceForMagnitude(2.0, 1.0)
	assert.True(t, c >= 0.5 && c <= 0.99)
}

func TestAnomalyTypeForMetricMapsKnownMetrics(t *testing.T) {
	assert.Equal(t, AnomalyLatencySpike, AnomalyTypeForMetric("latency_ms"))
	assert.Equal(t, AnomalyTokenUsageSpike, AnomalyTypeForMetric("total_tokens"))
	assert.Equal(t, AnomalyCostAnomaly, AnomalyTypeForMetric("cost"))
	assert.Equal(t, AnomalyGeneric, AnomalyTypeForMetric("something_else"))
}

func TestFingerprintIgnoresTimestampAndValue(t *testing.T) {
	a := AnomalyRecord{
		ServiceID: "svc", ModelID: "model", MetricName: "latency_ms",
		Detector: DetectorZScore, Severity: SeverityHigh,
		Timestamp: time.Now(), ObservedValue: 100, Deviation: 5,
	}
	b := a
	b.Timestamp = time.Now().Add(time.Hour)
	b.ObservedValue = 99999
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

// Serialising and deserialising an AnomalyRecord through the JSON form is an
// identity (§8 round-trip property).
func TestAnomalyRecordJSONRoundTrip(t *testing.T) {
	orig := AnomalyRecord{
		ID: "abc123", Timestamp: time.Now().UTC().Truncate(time.Millisecond),
		ServiceID: "svc", ModelID: "model", Detector: DetectorCUSUM,
		MetricName: "cost", ObservedValue: 1.23,
		BaselineMean: 1.0, BaselineStdDev: 0.1, BaselineMedian: 0.99,
		Deviation: 2.5, Severity: SeverityMedium, Confidence: 0.7,
		AnomalyType: AnomalyCostAnomaly,
	}

	raw, err := json.Marshal(orig)
	require.NoError(t, err)

	var decoded AnomalyRecord
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, orig, decoded)
}

func TestBaselineKeyShardHashIsStableAndIgnoresMetric(t *testing.T) {
	a := BaselineKey{ServiceID: "svc", ModelID: "model", MetricName: "latency_ms"}
	b := BaselineKey{ServiceID: "svc", ModelID: "model", MetricName: "cost"}
	assert.Equal(t, a.ShardHash(), b.ShardHash())
	assert.Equal(t, a.ShardHash(), a.ShardHash())
}

func TestBaselineKeyString(t *testing.T) {
	k := BaselineKey{ServiceID: "svc", ModelID: "model", MetricName: "latency_ms"}
	assert.Equal(t, "svc/model/latency_ms", k.String())
}
