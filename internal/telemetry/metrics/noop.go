package metrics

import (
	"net/http"
	"time"
)

// Noop implements Provider with no-ops, used when metrics are disabled in
// configuration or in tests that don't assert on metric values.
type Noop struct{}

func (Noop) IncEventsIngested()                      {}
func (Noop) IncEventsRejected(string)                 {}
func (Noop) IncAnomaly(string, string)                {}
func (Noop) IncDetectorError(string)                  {}
func (Noop) IncStorageError()                         {}
func (Noop) IncAlertSent(string)                      {}
func (Noop) IncAlertDeduplicated()                    {}
func (Noop) IncAlertFailed(string)                    {}
func (Noop) IncAlertQueueDropped()                    {}
func (Noop) IncDedupEvicted()                         {}
func (Noop) ObserveDetectionLatency(time.Duration)     {}
func (Noop) SetBaselineSampleCount(string, int)       {}
func (Noop) SetDedupCacheSize(int)                    {}
func (Noop) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "metrics disabled", http.StatusNotFound)
	})
}
