package retry

import (
	"math/rand"
	"time"
)

// Backoff parameters. Delays grow exponentially with attempt count, capped at
// MaxDelay, with up to JitterWindow of added randomness so synchronized
// failures do not redeliver in lockstep.
const (
	BaseDelay    = 5 * time.Second
	MaxDelay     = 1 * time.Hour
	JitterWindow = 1 * time.Second
)

// Delay returns the backoff for a failed attempt, including jitter:
// min(BaseDelay * 2^attempt, MaxDelay) + uniform(0, JitterWindow).
func Delay(attempt int) time.Duration {
	return cappedDelay(attempt) + time.Duration(rand.Int63n(int64(JitterWindow)))
}

// cappedDelay is the deterministic part of the backoff.
func cappedDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// 2^30 * 5s already exceeds MaxDelay by far; clamp before shifting to
	// avoid overflow on large attempt counts.
	if attempt > 30 {
		return MaxDelay
	}
	d := BaseDelay << uint(attempt)
	if d > MaxDelay || d < 0 {
		return MaxDelay
	}
	return d
}
