// Package dedup suppresses repeated alerts for the same AlertFingerprint
// within a cooldown window. It is the same bounded-cache-plus-TTL shape as
// ariadne's engine/resources/manager.go LRU (a container/list-backed,
// oldest-eviction cache with a background sweeper), rebuilt here on top of
// the generic expirable LRU from hashicorp/golang-lru since the fingerprint
// keys are fixed-size structs rather than ariadne's resource handles.
package dedup

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/model"
)

// Cache suppresses AlertFingerprints seen within the last cooldown period,
// the window measured from the last *delivered* alert, not the last
// sighting (§4.5: "update timestamp and allow through" only fires on the
// allow-through branch).
type Cache struct {
	cache *lru.LRU[model.AlertFingerprint, time.Time]
}

// New constructs a Cache holding up to capacity distinct fingerprints, each
// expiring cooldown after its most recently delivered sighting.
func New(capacity int, cooldown time.Duration) *Cache {
	return &Cache{cache: lru.NewLRU[model.AlertFingerprint, time.Time](capacity, nil, cooldown)}
}

// Seen reports whether fp is already present within the cooldown window
// (and thus should be suppressed as a duplicate) and whether admitting a
// fresh entry evicted the cache's oldest entry at capacity. A suppressed
// duplicate does not touch the cache at all: only the allow-through branch
// stores/refreshes the timestamp, so a sustained stream of identical
// fingerprints still delivers a heartbeat every cooldown rather than being
// refreshed into permanent suppression.
func (c *Cache) Seen(fp model.AlertFingerprint) (duplicate, evicted bool) {
	if _, ok := c.cache.Get(fp); ok {
		return true, false
	}
	return false, c.cache.Add(fp, time.Now())
}

// Len reports the approximate number of fingerprints currently cached.
func (c *Cache) Len() int {
	return c.cache.Len()
}
