package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/errs"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/telemetry/logging"
)

// Hot is the subset of Config that may change without a restart: detector
// thresholds and the dedup window. Everything else (ingestion topic, worker
// count, storage backend) is frozen at Starting per §11's hot-reload note.
type Hot struct {
	ZScore   ZScoreConfig
	IQR      IQRConfig
	MAD      MADConfig
	CUSUM    CUSUMConfig
	Dedup    Deduplication
}

func (c Config) hot() Hot {
	return Hot{ZScore: c.Detection.ZScore, IQR: c.Detection.IQR, MAD: c.Detection.MAD, CUSUM: c.Detection.CUSUM, Dedup: c.Alerting.Deduplication}
}

// Watcher watches path for writes and re-parses it, handing the
// hot-reloadable half (Hot) to a subscriber. Built on fsnotify, ariadne's
// config-reload dependency (engine/internal/runtime's HotReloadSystem).
type Watcher struct {
	path   string
	logger logging.Logger
	fsw    *fsnotify.Watcher

	mu  sync.RWMutex
	cur Hot

	onChange func(Hot)
}

// NewWatcher starts watching path, applying initial to the cached state. It
// does not read the file itself; callers already have a loaded Config from
// Load; NewWatcher only reacts to subsequent writes.
func NewWatcher(path string, initial Config, logger logging.Logger, onChange func(Hot)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errs.Wrap(errs.KindConfig, "config: start watcher: %w", err)
	}
	if err := fsw.Add(path); err != nil {
		_ = fsw.Close()
		return nil, errs.Wrap(errs.KindConfig, "config: watch %s: %w", path, err)
	}
	w := &Watcher{path: path, logger: logger, fsw: fsw, cur: initial.hot(), onChange: onChange}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Error("config watcher error", "err", err)
			}
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		if w.logger != nil {
			w.logger.Error("config hot-reload failed, keeping previous values", "err", err)
		}
		return
	}
	hot := cfg.hot()
	w.mu.Lock()
	w.cur = hot
	w.mu.Unlock()
	if w.logger != nil {
		w.logger.Info("config hot-reloaded", "path", w.path)
	}
	if w.onChange != nil {
		w.onChange(hot)
	}
}

// Current returns the most recently applied hot-reloadable configuration.
func (w *Watcher) Current() Hot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cur
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
