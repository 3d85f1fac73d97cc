// Package retry models the acquisition retry policy: an attempt ceiling and
// exponential backoff. Cooldown eligibility uses the deterministic delay so
// the differ stays a pure function; in-run waits add full jitter so parallel
// clients do not retry in lockstep.
package retry

import (
	"math/rand"
	"time"
)

// Policy describes how failed acquisitions are retried.
type Policy struct {
	// Ceiling is the maximum number of attempts before an entry is left
	// failed pending manual intervention (or a raised ceiling).
	Ceiling int
	// BaseDelay is the cooldown after the first failure.
	BaseDelay time.Duration
	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration
	// Rand returns a value in [0, 1). Defaults to math/rand. Injected in
	// tests for deterministic jitter.
	Rand func() float64
}

// Exhausted reports whether an entry with the given attempt count is past the
// ceiling and must not be retried.
func (p Policy) Exhausted(attempts int) bool {
	return p.Ceiling > 0 && attempts >= p.Ceiling
}

// Delay returns the deterministic cooldown after the given attempt count:
// BaseDelay doubled per prior attempt, capped at MaxDelay.
func (p Policy) Delay(attempts int) time.Duration {
	if attempts <= 0 || p.BaseDelay <= 0 {
		return 0
	}
	delay := p.BaseDelay
	for i := 1; i < attempts; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Jittered returns Delay(attempts) scaled by a random factor in [0.5, 1.0],
// for in-run pacing between consecutive failures.
func (p Policy) Jittered(attempts int) time.Duration {
	delay := p.Delay(attempts)
	if delay <= 0 {
		return 0
	}
	random := p.Rand
	if random == nil {
		random = rand.Float64
	}
	return time.Duration((0.5 + random()/2) * float64(delay))
}

// Eligible reports whether a failed entry may be retried at the given moment.
func (p Policy) Eligible(attempts int, lastAttempt, now time.Time) bool {
	if p.Exhausted(attempts) {
		return false
	}
	if lastAttempt.IsZero() {
		return true
	}
	return !now.Before(lastAttempt.Add(p.Delay(attempts)))
}
