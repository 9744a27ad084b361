package syncengine

import (
	"math/rand"
	"time"
)

// fullJitterBackoff returns a delay in [0, min(max, base*2^attempt)),
// following the "full jitter" strategy: every retrying worker backs off a
// different amount so a transient outage doesn't cause every reconnect to
// land on the IMAP server in the same instant.
func fullJitterBackoff(base, max time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	cap := float64(max)
	exp := float64(base) * float64(uint64(1)<<uint(minInt(attempt, 30)))
	if exp > cap || exp <= 0 {
		exp = cap
	}
	return time.Duration(rand.Float64() * exp)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
