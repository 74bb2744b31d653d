package service

import "time"

// pollBackoffBase is the first delay after a failed invoice check.
const pollBackoffBase = 5 * time.Second

// RetryPolicy bounds how often an operation is attempted and how long to wait
// between attempts.
type RetryPolicy struct {
	MaxAttempts int // total attempts, including the first
	Backoff     func(failures int) time.Duration
}

// NewBoundedRetry allows the first attempt plus retries more.
func NewBoundedRetry(retries int) RetryPolicy {
	if retries < 0 {
		retries = 0
	}
	return RetryPolicy{
		MaxAttempts: retries + 1,
		Backoff:     func(int) time.Duration { return 0 },
	}
}

// Allows reports whether attempt (1-based) may run.
func (p RetryPolicy) Allows(attempt int) bool {
	return attempt <= p.MaxAttempts
}

// Delay returns the wait after the given number of consecutive failures.
func (p RetryPolicy) Delay(failures int) time.Duration {
	if p.Backoff == nil {
		return 0
	}
	return p.Backoff(failures)
}

// ExponentialBackoff doubles base per failure, capped at max.
func ExponentialBackoff(base, max time.Duration) func(int) time.Duration {
	return func(failures int) time.Duration {
		if failures <= 0 {
			return 0
		}
		d := base
		for i := 1; i < failures; i++ {
			d *= 2
			if d >= max {
				return max
			}
		}
		if d > max {
			return max
		}
		return d
	}
}
