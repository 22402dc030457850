package security

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the per-Principal token bucket.
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

// rateLimiter holds one token bucket per Principal ID, generalized from a
// single shared bucket into a per-principal map. Unlike a blocking
// Wait()-based limiter, Allow reports immediately — rate-limit acquisition
// is non-blocking with a wait-or-fail policy (spec §9).
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	cfg     RateLimitConfig
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RequestsPerMinute
	}
	return &rateLimiter{buckets: make(map[string]*rate.Limiter), cfg: cfg}
}

func (l *rateLimiter) bucketFor(principalID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[principalID]
	if !ok {
		rps := rate.Limit(float64(l.cfg.RequestsPerMinute) / 60.0)
		b = rate.NewLimiter(rps, l.cfg.Burst)
		l.buckets[principalID] = b
	}
	return b
}

// Allow consumes one token for principalID. On exhaustion it returns false
// and an estimate of how long until the next token is available, used for
// the `retry_after_ms` hint (spec §4.5, §7).
func (l *rateLimiter) Allow(principalID string) (bool, time.Duration) {
	b := l.bucketFor(principalID)
	if b.Allow() {
		return true, 0
	}
	reservation := b.Reserve()
	delay := reservation.Delay()
	reservation.Cancel()
	return false, delay
}
