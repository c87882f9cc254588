// Package snapshot persists and restores the baseline store to/from the
// file named by `baseline.persistence_path` (§6): a JSON map from
// stringified BaselineKey to {samples, cusum_pos, cusum_neg}. Restore
// happens at Starting; write happens at Draining (§4.7). A schema mismatch
// on restore is a StateError and aborts startup with a clear diagnostic, per
// §7's StateError policy.
package snapshot

import (
	"encoding/json"
	"os"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/baseline"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/errs"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/model"
)

// entry is the on-disk representation of one BaselineKey's state.
type entry struct {
	ServiceID  string    `json:"service_id"`
	ModelID    string    `json:"model_id"`
	MetricName string    `json:"metric_name"`
	Samples    []float64 `json:"samples"`
	CUSUMPos   float64   `json:"cusum_pos"`
	CUSUMNeg   float64   `json:"cusum_neg"`
}

// document is the top-level file format: a self-contained map from
// stringified BaselineKey (BaselineKey.String) to that key's entry, one per
// known BaselineKey (§3 "Lifecycles").
type document struct {
	Version int              `json:"version"`
	Entries map[string]entry `json:"entries"`
}

const formatVersion = 1

// Write serialises every known key in store to path. If path is empty,
// Write is a no-op (persistence disabled).
func Write(path string, store *baseline.Store) error {
	if path == "" {
		return nil
	}
	doc := document{Version: formatVersion, Entries: make(map[string]entry)}
	for _, key := range store.Keys() {
		samples, pos, neg, ok := store.Export(key)
		if !ok {
			continue
		}
		doc.Entries[key.String()] = entry{
			ServiceID: key.ServiceID, ModelID: key.ModelID, MetricName: key.MetricName,
			Samples: samples, CUSUMPos: pos, CUSUMNeg: neg,
		}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return errs.Wrap(errs.KindState, "snapshot: marshal: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return errs.Wrap(errs.KindState, "snapshot: write %s: %w", path, err)
	}
	return nil
}

// Restore reads path and repopulates store. Missing files are not an error
// (fresh start); a present-but-unreadable-or-malformed file is a StateError
// that aborts startup per §6/§7.
func Restore(path string, store *baseline.Store) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errs.Wrap(errs.KindState, "snapshot: read %s: %w", path, err)
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return errs.Wrap(errs.KindState, "snapshot: parse %s: %w", path, err)
	}
	if doc.Version != formatVersion {
		return errs.Wrap(errs.KindState, "snapshot: %s has unsupported version %d (want %d)", path, doc.Version, formatVersion)
	}
	for _, e := range doc.Entries {
		key := model.BaselineKey{ServiceID: e.ServiceID, ModelID: e.ModelID, MetricName: e.MetricName}
		store.Restore(key, e.Samples, e.CUSUMPos, e.CUSUMNeg)
	}
	return nil
}
