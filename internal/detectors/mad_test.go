package detectors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/baseline"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/model"
)

func TestMADFlagsRobustOutlier(t *testing.T) {
	store := baseline.NewStore(1000, 0)
	d := NewMAD(3.5, 10, []string{"latency_ms"})
	key := model.BaselineKey{ServiceID: "s1", ModelID: "m1", MetricName: "latency_ms"}
	samples := []float64{100, 102, 98, 101, 99, 100, 103, 97, 100, 101, 99, 100}
	for _, v := range samples {
		store.Append(key, v, time.Now())
	}
	recs := d.Detect(evt(400), store, time.Now())
	assert.Len(t, recs, 1)
	assert.Equal(t, model.DetectorMAD, recs[0].Detector)
}

func TestMADZeroGuard(t *testing.T) {
	store := baseline.NewStore(1000, 0)
	d := NewMAD(3.5, 10, []string{"latency_ms"})
	key := model.BaselineKey{ServiceID: "s1", ModelID: "m1", MetricName: "latency_ms"}
	for i := 0; i < 12; i++ {
		store.Append(key, 100, time.Now())
	}
	recs := d.Detect(evt(1000), store, time.Now())
	assert.Empty(t, recs, "MAD=0 baseline must never flag")
}
