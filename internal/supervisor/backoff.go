package supervisor

import "time"

// Backoff returns the retry delay after the given consecutive-failure count:
// the base delay doubled per additional failure, capped at max. Failure
// counts below one are treated as one.
func Backoff(failures int, base, max time.Duration) time.Duration {
	if failures < 1 {
		failures = 1
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
