// Package backoff provides the retry delay schedule used by the client.
package backoff

import "time"

// Strategy defines the interface for backoff calculation algorithms.
type Strategy interface {
	// Delay returns the delay before the retry at the given 0-based retry
	// index.
	Delay(retry int, base time.Duration) time.Duration
}

// Exponential implements strict exponential doubling: base * 2^retry, with
// no jitter and no cap. Callers rely on the exact schedule.
type Exponential struct{}

// Delay implements the Strategy interface.
func (Exponential) Delay(retry int, base time.Duration) time.Duration {
	if retry < 0 {
		retry = 0
	}
	// Clamp the shift so the multiplication cannot overflow int64.
	if retry > 30 {
		retry = 30
	}
	d := base << uint(retry)
	if d < 0 {
		return base << 30
	}
	return d
}
