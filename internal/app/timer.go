package app

import "time"

// RemainingSeconds is total minus whole elapsed seconds since start, clamped at 0.
func RemainingSeconds(start, now time.Time, total time.Duration) int {
	elapsed := int(now.Sub(start) / time.Second)
	remaining := int(total/time.Second) - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
