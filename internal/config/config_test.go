package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsMatchSpecValues(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "llm.telemetry", cfg.Ingestion.Topic)
	assert.Equal(t, []string{"zscore", "iqr", "mad", "cusum"}, cfg.Detection.EnabledDetectors)
	assert.Equal(t, 1000, cfg.Detection.Baseline.WindowSize)
	assert.Equal(t, 10, cfg.Detection.Baseline.MinSamples)
	assert.False(t, cfg.Detection.Baseline.ExcludeFlaggedSamples)
	assert.Equal(t, 3.0, cfg.Detection.ZScore.Threshold)
	assert.Equal(t, 1.5, cfg.Detection.IQR.Multiplier)
	assert.Equal(t, 3.5, cfg.Detection.MAD.Threshold)
	assert.Equal(t, 5.0, cfg.Detection.CUSUM.Threshold)
	assert.Equal(t, 0.5, cfg.Detection.CUSUM.Drift)
	assert.Equal(t, 20, cfg.Detection.CUSUM.MinSamples)
	assert.Equal(t, 300, cfg.Alerting.Deduplication.WindowSecs)
	assert.True(t, cfg.Alerting.Deduplication.Enabled)
	assert.Equal(t, 1024, cfg.Alerting.DispatchQueueSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
detection:
  zscore:
    threshold: 4.5
  workers: 8
alerting:
  deduplication:
    window_secs: 120
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4.5, cfg.Detection.ZScore.Threshold)
	assert.Equal(t, 8, cfg.Detection.Workers)
	assert.Equal(t, 120, cfg.Alerting.Deduplication.WindowSecs)
	// Untouched sections keep their defaults.
	assert.Equal(t, 1000, cfg.Detection.Baseline.WindowSize)
	assert.Equal(t, "llm.telemetry", cfg.Ingestion.Topic)
}

func TestLoadInterpolatesEnvVars(t *testing.T) {
	t.Setenv("SENTINEL_WEBHOOK_SECRET", "s3cr3t")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
alerting:
  webhook:
    enabled: true
    url: https://example.test/hook
    secret: "${SENTINEL_WEBHOOK_SECRET}"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", cfg.Alerting.Webhook.Secret)
}

func TestLoadRejectsUnknownDetector(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
detection:
  enabled_detectors: ["zscore", "bogus"]
`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestValidateRejectsDegenerateValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero window size", func(c *Config) { c.Detection.Baseline.WindowSize = 0 }},
		{"zero min samples", func(c *Config) { c.Detection.Baseline.MinSamples = 0 }},
		{"zero workers", func(c *Config) { c.Detection.Workers = 0 }},
		{"negative dedup window", func(c *Config) { c.Alerting.Deduplication.WindowSecs = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestRetryPolicyDefaultsWhenUnset(t *testing.T) {
	var r RetryPolicy
	assert.Equal(t, time.Second, r.InitialDelay())
	assert.Equal(t, 30*time.Second, r.MaxDelay())
}

func TestDeduplicationWindowConvertsSeconds(t *testing.T) {
	d := Deduplication{WindowSecs: 300}
	assert.Equal(t, 5*time.Minute, d.Window())
}

func TestBaselineIdleTTLDisabledByDefault(t *testing.T) {
	var b BaselineConfig
	assert.Equal(t, time.Duration(0), b.IdleTTL())
}
