package lmstfy

import (
	"math/rand/v2"
	"time"
)

// BackoffPolicy defines how long a Worker pauses after consecutive failed
// consume calls. The client itself never retries.
type BackoffPolicy struct {
	// InitialInterval is the pause after the first failure.
	// Default: 1 second.
	InitialInterval time.Duration

	// Coefficient is the multiplier applied after every further failure.
	// Default: 2.0 (exponential backoff).
	Coefficient float64

	// MaxInterval caps the pause.
	// Default: 30 seconds.
	MaxInterval time.Duration

	// Jitter spreads pauses over [interval/2, interval] so that workers
	// sharing a failed server do not reconnect in lockstep.
	// Default: true.
	Jitter bool
}

// DefaultBackoffPolicy returns the worker's default backoff policy.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		InitialInterval: 1 * time.Second,
		Coefficient:     2.0,
		MaxInterval:     30 * time.Second,
		Jitter:          true,
	}
}

// interval returns the pause after the given number of consecutive
// failures, starting at 1.
func (p BackoffPolicy) interval(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	d := float64(p.InitialInterval)
	coefficient := p.Coefficient
	if coefficient < 1 {
		coefficient = 1
	}
	for i := 1; i < failures; i++ {
		d *= coefficient
		if p.MaxInterval > 0 && d >= float64(p.MaxInterval) {
			break
		}
	}
	if p.MaxInterval > 0 && d > float64(p.MaxInterval) {
		d = float64(p.MaxInterval)
	}
	if p.Jitter && d > 0 {
		d = d/2 + rand.Float64()*d/2
	}
	return time.Duration(d)
}
