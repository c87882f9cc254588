// Package config loads the structured YAML document described in §6: five
// sections (ingestion, detection, storage, alerting, api), each with the
// defaults named throughout §4. Loading follows ariadne's
// gopkg.in/yaml.v3 + os.ReadFile idiom (engine/internal/runtime/runtime.go);
// environment-variable interpolation for secrets uses the same "${VAR}"
// convention common across the wider Go ecosystem for this concern.
package config

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/errs"
)

// Ingestion configures the message-bus consumer (§6 "Input").
type Ingestion struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

// BaselineConfig configures the rolling window and warmup thresholds (§4.2).
type BaselineConfig struct {
	WindowSize         int    `yaml:"window_size"`
	MinSamples         int    `yaml:"min_samples"`
	UpdateIntervalSecs int    `yaml:"update_interval_secs"`
	PersistencePath    string `yaml:"persistence_path"`
	IdleTTLSecs        int    `yaml:"idle_ttl_secs"`
	// ExcludeFlaggedSamples resolves the §9 open question: when true, a
	// metric value that any detector flagged as anomalous is not appended
	// to its baseline window or CUSUM state. Default false preserves the
	// source's original "always append" behavior (§4.4 step 3, §9).
	ExcludeFlaggedSamples bool `yaml:"exclude_flagged_samples"`
}

// ZScoreConfig configures the z-score detector (§4.3.1).
type ZScoreConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Threshold  float64  `yaml:"threshold"`
	MinSamples int      `yaml:"min_samples"`
	Metrics    []string `yaml:"metrics"`
}

// IQRConfig configures the IQR detector (§4.3.2).
type IQRConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Multiplier float64  `yaml:"multiplier"`
	MinSamples int      `yaml:"min_samples"`
	Metrics    []string `yaml:"metrics"`
}

// MADConfig configures the MAD detector (§4.3.3).
type MADConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Threshold  float64  `yaml:"threshold"`
	MinSamples int      `yaml:"min_samples"`
	Metrics    []string `yaml:"metrics"`
}

// CUSUMConfig configures the CUSUM detector (§4.3.4).
type CUSUMConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Threshold  float64  `yaml:"threshold"`
	Drift      float64  `yaml:"drift"`
	MinSamples int      `yaml:"min_samples"`
	Metrics    []string `yaml:"metrics"`
}

// Detection groups everything under the `detection` section.
type Detection struct {
	EnabledDetectors []string       `yaml:"enabled_detectors"`
	Baseline         BaselineConfig `yaml:"baseline"`
	ZScore           ZScoreConfig   `yaml:"zscore"`
	IQR              IQRConfig      `yaml:"iqr"`
	MAD              MADConfig      `yaml:"mad"`
	CUSUM            CUSUMConfig    `yaml:"cusum"`
	Workers          int            `yaml:"workers"`
	QueueSize        int            `yaml:"queue_size"`
}

// Storage configures the persistence collaborator (§6 "Persistence").
type Storage struct {
	Backend  string `yaml:"backend"` // "memory" (default) or "noop"
	Capacity int    `yaml:"capacity"`
}

// Deduplication configures the alert-fingerprint cache (§4.5).
type Deduplication struct {
	Enabled    bool `yaml:"enabled"`
	WindowSecs int  `yaml:"window_secs"`
	Capacity   int  `yaml:"capacity"`
}

// RetryPolicy configures a sink's exponential backoff (§4.6).
type RetryPolicy struct {
	InitialDelayMs int     `yaml:"initial_delay_ms"`
	Multiplier     float64 `yaml:"multiplier"`
	MaxDelayMs     int     `yaml:"max_delay_ms"`
	MaxAttempts    int     `yaml:"max_attempts"`
}

// TopicBus configures the topic-bus alert sink (§6 "Outbound alerts").
type TopicBus struct {
	Enabled bool        `yaml:"enabled"`
	Brokers []string    `yaml:"brokers"`
	Prefix  string      `yaml:"prefix"`
	Retry   RetryPolicy `yaml:"retry"`
}

// Webhook configures the webhook alert sink (§6 "Outbound alerts").
type Webhook struct {
	Enabled bool        `yaml:"enabled"`
	URL     string      `yaml:"url"`
	Secret  string      `yaml:"secret"`
	Retry   RetryPolicy `yaml:"retry"`
}

// Alerting groups dedup and both sinks under the `alerting` section.
// DispatchQueueSize bounds the engine-to-dispatcher queue of §5; anomalies
// submitted once it is full are dropped (counted, not persisted again —
// storage already has its own copy from the engine's write path).
type Alerting struct {
	Deduplication      Deduplication `yaml:"deduplication"`
	TopicBus           TopicBus      `yaml:"topic_bus"`
	Webhook            Webhook       `yaml:"webhook"`
	DispatchQueueSize  int           `yaml:"dispatch_queue_size"`
}

// API configures the observability/query HTTP surface (§6): health, metrics
// and the query endpoints are all served from one listener, the way the
// teacher's telemetryhttp adapters are mounted onto a single mux.
type API struct {
	Addr string `yaml:"addr"`
}

// Config is the top-level document, mirroring spec.md §6 section-for-section.
type Config struct {
	Ingestion Ingestion `yaml:"ingestion"`
	Detection Detection `yaml:"detection"`
	Storage   Storage   `yaml:"storage"`
	Alerting  Alerting  `yaml:"alerting"`
	API       API       `yaml:"api"`
}

// Defaults returns a Config populated with every §4/§6 default value.
func Defaults() Config {
	return Config{
		Ingestion: Ingestion{Topic: "llm.telemetry", GroupID: "sentinel"},
		Detection: Detection{
			EnabledDetectors: []string{"zscore", "iqr", "mad", "cusum"},
			Baseline: BaselineConfig{
				WindowSize:         1000,
				MinSamples:         10,
				UpdateIntervalSecs: 60,
			},
			ZScore: ZScoreConfig{Enabled: true, Threshold: 3.0, Metrics: []string{"latency_ms", "total_tokens", "cost"}},
			IQR:    IQRConfig{Enabled: true, Multiplier: 1.5, Metrics: []string{"latency_ms", "total_tokens", "cost"}},
			MAD:    MADConfig{Enabled: true, Threshold: 3.5, Metrics: []string{"latency_ms", "total_tokens", "cost"}},
			CUSUM: CUSUMConfig{
				Enabled: true, Threshold: 5.0, Drift: 0.5,
				MinSamples: 20, // 2x shared default per §9
				Metrics:    []string{"latency_ms", "total_tokens", "cost"},
			},
			Workers:   4,
			QueueSize: 1024,
		},
		Storage: Storage{Backend: "memory", Capacity: 10000},
		Alerting: Alerting{
			Deduplication: Deduplication{Enabled: true, WindowSecs: 300, Capacity: 10000},
			TopicBus: TopicBus{
				Prefix: "anomaly",
				Retry:  RetryPolicy{InitialDelayMs: 1000, Multiplier: 2.0, MaxDelayMs: 30000, MaxAttempts: 3},
			},
			Webhook: Webhook{
				Retry: RetryPolicy{InitialDelayMs: 1000, Multiplier: 2.0, MaxDelayMs: 30000, MaxAttempts: 3},
			},
			DispatchQueueSize: 1024,
		},
		API: API{Addr: ":8080"},
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// interpolateEnv replaces every "${VAR}" occurrence with os.Getenv("VAR"),
// the convention §6 specifies for sensitive values (URLs, tokens, secrets).
func interpolateEnv(raw []byte) []byte {
	return envVarPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		name := envVarPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// Load reads, env-interpolates and parses the YAML document at path, merging
// it over Defaults(). A malformed or semantically invalid document is a
// ConfigError, which is fatal at startup per §7.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errs.Wrap(errs.KindConfig, "config: read %s: %w", path, err)
	}
	raw = interpolateEnv(raw)
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errs.Wrap(errs.KindConfig, "config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces the semantic invariants Load and the hot-reload watcher
// both need: enabled detectors must be a recognised name, and sections must
// not contain degenerate numeric values.
func (c Config) Validate() error {
	known := map[string]bool{"zscore": true, "iqr": true, "mad": true, "cusum": true}
	for _, d := range c.Detection.EnabledDetectors {
		if !known[d] {
			return errs.Wrap(errs.KindConfig, "config: unknown detector %q in enabled_detectors", d)
		}
	}
	if c.Detection.Baseline.WindowSize <= 0 {
		return errs.Wrap(errs.KindConfig, "config: detection.baseline.window_size must be positive")
	}
	if c.Detection.Baseline.MinSamples <= 0 {
		return errs.Wrap(errs.KindConfig, "config: detection.baseline.min_samples must be positive")
	}
	if c.Detection.Workers <= 0 {
		return errs.Wrap(errs.KindConfig, "config: detection.workers must be positive")
	}
	if c.Alerting.Deduplication.WindowSecs < 0 {
		return errs.Wrap(errs.KindConfig, "config: alerting.deduplication.window_secs must not be negative")
	}
	return nil
}

// Window returns the configured dedup TTL as a time.Duration.
func (d Deduplication) Window() time.Duration {
	return time.Duration(d.WindowSecs) * time.Second
}

// UpdateInterval returns the configured background recompute period.
func (b BaselineConfig) UpdateInterval() time.Duration {
	return time.Duration(b.UpdateIntervalSecs) * time.Second
}

// IdleTTL returns the configured idle-key eviction TTL, or 0 (disabled) when
// unset, per §4.2's default.
func (b BaselineConfig) IdleTTL() time.Duration {
	return time.Duration(b.IdleTTLSecs) * time.Second
}

// WithDefaults returns a copy of this policy with every unset (non-positive)
// field replaced by its default.
func (r RetryPolicy) WithDefaults() RetryPolicy {
	if r.InitialDelayMs <= 0 {
		r.InitialDelayMs = 1000
	}
	if r.Multiplier <= 0 {
		r.Multiplier = 2.0
	}
	if r.MaxDelayMs <= 0 {
		r.MaxDelayMs = 30000
	}
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = 3
	}
	return r
}

func (r RetryPolicy) InitialDelay() time.Duration { return r.WithDefaults().initialDelay() }
func (r RetryPolicy) MaxDelay() time.Duration      { return r.WithDefaults().maxDelay() }
func (r RetryPolicy) MaxAttemptCount() int         { return r.WithDefaults().MaxAttempts }
func (r RetryPolicy) BackoffMultiplier() float64   { return r.WithDefaults().Multiplier }

func (r RetryPolicy) initialDelay() time.Duration {
	return time.Duration(r.InitialDelayMs) * time.Millisecond
}
func (r RetryPolicy) maxDelay() time.Duration {
	return time.Duration(r.MaxDelayMs) * time.Millisecond
}

func (r RetryPolicy) String() string {
	d := r.WithDefaults()
	return fmt.Sprintf("initial=%s multiplier=%.1f max=%s attempts=%d",
		d.initialDelay(), d.Multiplier, d.maxDelay(), d.MaxAttempts)
}
