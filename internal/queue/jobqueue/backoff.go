package jobqueue

import (
	"math"
	"time"
)

// DefaultMaxAttempts is the number of attempts (including the first) before
// a transiently-failing job is discarded.
const DefaultMaxAttempts = 3

// baseBackoff and the doubling below produce the sequence required by
// §4.2: 500ms, 1000ms, 2000ms, ... (>=2x growth per attempt).
const baseBackoff = 500 * time.Millisecond

// Backoff returns the delay before retrying a job that has already been
// attempted `attempt` times (attempt=1 after the first failure, etc.).
// Unlike the teacher's ExponentialBackoff this carries no jitter: the
// retry delays are part of the documented contract and tests assert on
// the exact sequence.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	multiple := math.Pow(2, float64(attempt-1))
	return time.Duration(float64(baseBackoff) * multiple)
}
