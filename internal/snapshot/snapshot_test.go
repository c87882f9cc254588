package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/baseline"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/model"
)

func TestWriteRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "baselines.json")

	store := baseline.NewStore(1000, 0)
	key := model.BaselineKey{ServiceID: "s1", ModelID: "m1", MetricName: "latency_ms"}
	for i := 0; i < 20; i++ {
		store.Append(key, float64(100+i), time.Now())
	}
	store.CommitCUSUM(key, 110, 100, 5, 0.5)

	require.NoError(t, Write(path, store))

	restored := baseline.NewStore(1000, 0)
	require.NoError(t, Restore(path, restored))

	summary, warm := restored.Snapshot(key, 10)
	require.True(t, warm)
	assert.Equal(t, 20, summary.Count)

	_, pos, neg, ok := restored.Export(key)
	require.True(t, ok)
	assert.Greater(t, pos, 0.0)
	assert.Equal(t, 0.0, neg)
}

func TestRestoreMissingFileIsNotError(t *testing.T) {
	store := baseline.NewStore(1000, 0)
	err := Restore(filepath.Join(t.TempDir(), "does-not-exist.json"), store)
	assert.NoError(t, err)
}

func TestRestoreMalformedFileIsStateError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	store := baseline.NewStore(1000, 0)
	err := Restore(path, store)
	assert.Error(t, err)
}
