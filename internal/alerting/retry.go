package alerting

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy is the plain-duration form of config.RetryPolicy (§4.6): the
// alerting package doesn't import config to avoid a dependency cycle, so
// cmd/sentinel/build.go translates one into the other the same way it turns
// every other config section into concrete constructor arguments.
type RetryPolicy struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	MaxAttempts  int
}

// DefaultRetryPolicy matches config.RetryPolicy's zero-value defaults
// (§4.6: 1s initial delay, 2x multiplier, 30s cap, 3 attempts).
var DefaultRetryPolicy = RetryPolicy{
	InitialDelay: time.Second,
	Multiplier:   2.0,
	MaxDelay:     30 * time.Second,
	MaxAttempts:  3,
}

// withDefaults fills in any zero field with DefaultRetryPolicy's value.
func (r RetryPolicy) withDefaults() RetryPolicy {
	if r.InitialDelay <= 0 {
		r.InitialDelay = DefaultRetryPolicy.InitialDelay
	}
	if r.Multiplier <= 0 {
		r.Multiplier = DefaultRetryPolicy.Multiplier
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = DefaultRetryPolicy.MaxDelay
	}
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	return r
}

// backOff builds a cenkalti/backoff policy from r's InitialDelay, Multiplier
// and MaxDelay, bounded to MaxAttempts total tries via backoff.WithMaxRetries
// (which counts *retries*, hence MaxAttempts-1) and cancelled by ctx.
func (r RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	d := r.withDefaults()
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = d.InitialDelay
	exp.Multiplier = d.Multiplier
	exp.MaxInterval = d.MaxDelay
	exp.MaxElapsedTime = 0 // bounded by attempt count, not elapsed wall time

	bounded := backoff.WithMaxRetries(exp, uint64(d.MaxAttempts-1))
	return backoff.WithContext(bounded, ctx)
}
