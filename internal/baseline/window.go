// Package baseline implements the bounded rolling-sample window and the
// concurrent baseline store described in §4.2: a
// mapping from BaselineKey to (window, cached summary, CUSUM state) that
// many goroutines append to and read from concurrently.
package baseline

import "github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/stats"

// Window is a bounded FIFO of recent samples. It is not safe for concurrent
// use on its own; callers (the Store's per-key entry) serialize access.
type Window struct {
	samples  []float64
	capacity int
	next     int // index to overwrite once full
	full     bool
}

// NewWindow constructs a Window with the given capacity (default 1000 per
// §3; a non-positive capacity is rejected by the caller's config validation,
// not here).
func NewWindow(capacity int) *Window {
	return &Window{
		samples:  make([]float64, 0, capacity),
		capacity: capacity,
	}
}

// Append adds a sample, evicting the oldest once the window is at capacity.
func (w *Window) Append(v float64) {
	if len(w.samples) < w.capacity {
		w.samples = append(w.samples, v)
		return
	}
	w.samples[w.next] = v
	w.next = (w.next + 1) % w.capacity
	w.full = true
}

// Count returns the number of samples currently held (monotonically
// non-decreasing up to capacity).
func (w *Window) Count() int {
	return len(w.samples)
}

// Snapshot returns a defensive copy of the current sample contents in
// insertion order, oldest first, also after the window has wrapped, so
// re-appending the result rebuilds a window with the same eviction order.
func (w *Window) Snapshot() []float64 {
	out := make([]float64, 0, len(w.samples))
	out = append(out, w.samples[w.next:]...)
	out = append(out, w.samples[:w.next]...)
	return out
}

// Summary recomputes a stats.Summary over the current contents. The Store
// caches this; Window itself is stateless with respect to caching.
func (w *Window) Summary() stats.Summary {
	return stats.Compute(w.samples)
}
