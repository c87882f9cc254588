package baseline

import (
	"sync"
	"time"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/model"
	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/stats"
)

// defaultShardCount controls lock striping across the key space. The source
// assumes a lock-striped associative container (§9 design notes); a fixed
// power-of-two shard count over a hashed key keeps append/read contention
// independent across unrelated (service, model, metric) triples.
const defaultShardCount = 64

type entry struct {
	mu         sync.RWMutex
	window     *Window
	cusum      CUSUMState
	summary    stats.Summary
	dirty      bool
	lastUpdate time.Time
}

func (e *entry) recomputeLocked() {
	if e.dirty {
		e.summary = e.window.Summary()
		e.dirty = false
	}
}

type shard struct {
	mu      sync.RWMutex
	entries map[model.BaselineKey]*entry
}

// Store is the concurrent mapping BaselineKey -> (window, cached summary,
// CUSUM state) described in §4.2. Many goroutines may append to different
// keys in parallel; append/read access to the same key is serialized
// through that key's entry lock.
type Store struct {
	shards       []*shard
	windowCap    int
	idleTTL      time.Duration // 0 disables idle-key eviction (default)
}

// NewStore constructs a Store with the given window capacity (§3 default
// 1000) and an optional idle-key TTL (0 = disabled, per §4.2 default).
func NewStore(windowCapacity int, idleTTL time.Duration) *Store {
	shards := make([]*shard, defaultShardCount)
	for i := range shards {
		shards[i] = &shard{entries: make(map[model.BaselineKey]*entry)}
	}
	return &Store{shards: shards, windowCap: windowCapacity, idleTTL: idleTTL}
}

func (s *Store) shardFor(key model.BaselineKey) *shard {
	return s.shards[key.ShardHash()%uint64(len(s.shards))]
}

// getOrCreate returns the entry for key, creating it under the shard write
// lock if absent.
func (s *Store) getOrCreate(key model.BaselineKey) *entry {
	sh := s.shardFor(key)
	sh.mu.RLock()
	e, ok := sh.entries[key]
	sh.mu.RUnlock()
	if ok {
		return e
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e, ok = sh.entries[key]; ok {
		return e
	}
	e = &entry{window: NewWindow(s.windowCap)}
	sh.entries[key] = e
	return e
}

// lookup returns the entry for key without creating it.
func (s *Store) lookup(key model.BaselineKey) (*entry, bool) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	e, ok := sh.entries[key]
	return e, ok
}

// Snapshot returns the current BaselineSummary for key if it exists and has
// at least minSamples samples (warm per §4.2); otherwise a zero Summary and
// false. Each
// caller supplies its own minSamples so different detectors (e.g. CUSUM) may
// require a higher warmup per §9's open question resolution.
func (s *Store) Snapshot(key model.BaselineKey, minSamples int) (stats.Summary, bool) {
	e, ok := s.lookup(key)
	if !ok {
		return stats.Summary{}, false
	}
	e.mu.Lock()
	e.recomputeLocked()
	summary := e.summary
	e.mu.Unlock()
	if summary.Count < minSamples {
		return stats.Summary{}, false
	}
	return summary, true
}

// Append adds value to key's window, evicting the oldest sample if at
// capacity, and invalidates the cached summary. Atomic with respect to
// concurrent Snapshot calls on the same key: readers see either the
// pre- or post-append state, never a torn view.
func (s *Store) Append(key model.BaselineKey, value float64, ts time.Time) {
	e := s.getOrCreate(key)
	e.mu.Lock()
	e.window.Append(value)
	e.dirty = true
	e.lastUpdate = ts
	e.mu.Unlock()
}

// PeekCUSUM computes the candidate next (pos, neg) arm values for key given
// observation x and baseline (mu, sigma), without committing them. This is
// the read the CUSUM detector uses to decide whether to flag — it keeps the
// detector pure with respect to the store (§4.3's purity contract): the
// mutation is applied separately, by the engine, via CommitCUSUM.
func (s *Store) PeekCUSUM(key model.BaselineKey, x, mu, sigma, kappa float64) (pos, neg float64) {
	e, ok := s.lookup(key)
	if !ok {
		cs := CUSUMState{}
		return cs.Update(x, mu, sigma, kappa)
	}
	e.mu.RLock()
	cs := e.cusum
	e.mu.RUnlock()
	return cs.Update(x, mu, sigma, kappa)
}

// CommitCUSUM applies the same update PeekCUSUM previewed, persisting the
// new arm values. Called once per event by the engine (§4.4 step 4),
// regardless of whether the CUSUM detector flagged.
func (s *Store) CommitCUSUM(key model.BaselineKey, x, mu, sigma, kappa float64) (pos, neg float64) {
	e := s.getOrCreate(key)
	e.mu.Lock()
	pos, neg = e.cusum.Update(x, mu, sigma, kappa)
	e.mu.Unlock()
	return pos, neg
}

// ResetCUSUM zeroes both arms for key. Called by the engine immediately
// after the CUSUM detector flags (§4.3.4, testable property 5).
func (s *Store) ResetCUSUM(key model.BaselineKey) {
	e, ok := s.lookup(key)
	if !ok {
		return
	}
	e.mu.Lock()
	e.cusum.Reset()
	e.mu.Unlock()
}

// Keys returns a snapshot of all known keys, for the background recompute
// task and for snapshot-to-disk export. It never blocks event-path
// operations for long: each shard is locked only long enough to copy keys.
func (s *Store) Keys() []model.BaselineKey {
	var out []model.BaselineKey
	for _, sh := range s.shards {
		sh.mu.RLock()
		for k := range sh.entries {
			out = append(out, k)
		}
		sh.mu.RUnlock()
	}
	return out
}

// Export returns the raw sample slice and CUSUM arms for key, used by the
// snapshot-to-disk writer. The returned slice is a defensive copy.
func (s *Store) Export(key model.BaselineKey) (samples []float64, cusumPos, cusumNeg float64, ok bool) {
	e, found := s.lookup(key)
	if !found {
		return nil, 0, 0, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.window.Snapshot(), e.cusum.Pos, e.cusum.Neg, true
}

// Restore repopulates key's window and CUSUM arms from a prior export,
// typically during startup restore of a persisted snapshot (§6).
func (s *Store) Restore(key model.BaselineKey, samples []float64, cusumPos, cusumNeg float64) {
	e := s.getOrCreate(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.window = NewWindow(s.windowCap)
	for _, v := range samples {
		e.window.Append(v)
	}
	e.dirty = true
	e.cusum = CUSUMState{Pos: cusumPos, Neg: cusumNeg}
	e.lastUpdate = time.Now()
}

// EvictIdle removes keys whose last update is older than the store's idle
// TTL. A no-op when idleTTL is zero (the default, per §4.2). Intended to be
// driven by a periodic background task, never from the event path.
func (s *Store) EvictIdle(now time.Time) (evicted int) {
	if s.idleTTL <= 0 {
		return 0
	}
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, e := range sh.entries {
			e.mu.RLock()
			idle := now.Sub(e.lastUpdate)
			e.mu.RUnlock()
			if idle > s.idleTTL {
				delete(sh.entries, k)
				evicted++
			}
		}
		sh.mu.Unlock()
	}
	return evicted
}
