package executor

import (
	"math"
	"math/rand"
	"time"
)

// backoffConfig mirrors the retry schedule named for command execution:
// base 250ms, factor 2, +-20% jitter, capped at 3 attempts.
type backoffConfig struct {
	BaseDelay  time.Duration
	Factor     float64
	MaxAttempts int
	Jitter     float64
}

func defaultBackoff() backoffConfig {
	return backoffConfig{BaseDelay: 250 * time.Millisecond, Factor: 2, MaxAttempts: 3, Jitter: 0.2}
}

// delay returns the backoff duration before attempt number n (1-indexed).
func (c backoffConfig) delay(n int, rng *rand.Rand) time.Duration {
	base := float64(c.BaseDelay) * math.Pow(c.Factor, float64(n-1))
	if c.Jitter <= 0 {
		return time.Duration(base)
	}
	spread := base * c.Jitter
	jittered := base - spread + rng.Float64()*2*spread
	if jittered < 0 {
		jittered = 0
	}
	return time.Duration(jittered)
}
