package monitor

import "time"

const (
	backoffBase     = 10 * time.Second
	backoffMax      = 60 * time.Second
	backoffMaxShift = 3
)

// backoffDelay returns the wait after the given number of consecutive
// failures: 10s, 20s, 40s, then capped at 60s.
func backoffDelay(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	shift := failures - 1
	if shift > backoffMaxShift {
		shift = backoffMaxShift
	}
	delay := backoffBase << shift
	if delay > backoffMax {
		delay = backoffMax
	}
	return delay
}
