package model

import "fmt"

// BaselineKey identifies one (service, model, metric) baseline. Equality is
// structural; it is used directly as a map key throughout the baseline
// store.
type BaselineKey struct {
	ServiceID  string
	ModelID    string
	MetricName string
}

// String renders the key for logging, metrics labels, and snapshot files.
func (k BaselineKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.ServiceID, k.ModelID, k.MetricName)
}

// ShardHash returns a stable, cheap hash used to shard engine workers so
// that every event sharing a BaselineKey lands on the same worker (§4.4/§5).
func (k BaselineKey) ShardHash() uint64 {
	var h uint64 = 1469598103934665603 // FNV-1a offset basis
	for _, s := range [2]string{k.ServiceID, k.ModelID} {
		for i := 0; i < len(s); i++ {
			h ^= uint64(s[i])
			h *= 1099511628211 // FNV-1a prime
		}
	}
	return h
}
