package application

import (
	"math/rand/v2"
	"time"
)

// Default backoff bounds for the poll loop.
const (
	backoffFloor   = 5 * time.Second
	backoffCeiling = 5 * time.Minute
)

// Backoff computes exponential wait times for repeated poll failures. The
// base doubles from the floor on every Next call up to the ceiling, and each
// returned wait is scaled by 0.8-1.2x jitter, clamped into [floor, ceiling].
// Reset returns the base to the floor after any successful cycle.
type Backoff struct {
	floor   time.Duration
	ceiling time.Duration
	current time.Duration
}

// NewBackoff creates a Backoff starting at the floor.
func NewBackoff(floor, ceiling time.Duration) *Backoff {
	return &Backoff{floor: floor, ceiling: ceiling, current: floor}
}

// Next returns the jittered wait for the current failure and advances the
// base for the next one.
func (b *Backoff) Next() time.Duration {
	wait := jitter(b.current, 0.8, 1.2)
	if wait < b.floor {
		wait = b.floor
	}
	if wait > b.ceiling {
		wait = b.ceiling
	}

	b.current *= 2
	if b.current > b.ceiling {
		b.current = b.ceiling
	}

	return wait
}

// Reset returns the base wait to the floor.
func (b *Backoff) Reset() {
	b.current = b.floor
}

// JitterHint scales a server-provided retry hint by +/-10% so a fleet of
// pollers rate-limited at the same instant does not retry in lockstep.
func JitterHint(hint time.Duration) time.Duration {
	return jitter(hint, 0.9, 1.1)
}

func jitter(d time.Duration, lo, hi float64) time.Duration {
	factor := lo + rand.Float64()*(hi-lo)
	return time.Duration(float64(d) * factor)
}
