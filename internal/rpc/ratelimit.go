package rpc

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// limiterIdleTTL is how long an idle client's bucket is kept.
	limiterIdleTTL = 10 * time.Minute
	// limiterSweepEvery bounds how often idle buckets are swept.
	limiterSweepEvery = 5 * time.Minute
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter enforces a per-IP token bucket. Idle buckets are swept
// lazily on the request path, so no goroutine outlives the server.
type rateLimiter struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	limiters  map[string]*ipLimiter
	lastSweep time.Time
	now       func() time.Time
}

// newRateLimiter returns nil when rps is not positive (unlimited).
func newRateLimiter(rps float64, burst int) *rateLimiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &rateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*ipLimiter),
		now:      time.Now,
	}
}

// allow reports whether a request from ip may proceed.
func (rl *rateLimiter) allow(ip string) bool {
	if rl == nil {
		return true
	}
	now := rl.now()

	rl.mu.Lock()
	if now.Sub(rl.lastSweep) >= limiterSweepEvery {
		for k, l := range rl.limiters {
			if now.Sub(l.lastSeen) > limiterIdleTTL {
				delete(rl.limiters, k)
			}
		}
		rl.lastSweep = now
	}
	l, ok := rl.limiters[ip]
	if !ok {
		l = &ipLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.limiters[ip] = l
	}
	l.lastSeen = now
	rl.mu.Unlock()

	return l.limiter.AllowN(now, 1)
}

// size returns the number of tracked clients.
func (rl *rateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// retryAfter returns the whole seconds until one token is refilled.
func (rl *rateLimiter) retryAfter() int {
	secs := int(math.Ceil(1 / float64(rl.rps)))
	if secs < 1 {
		return 1
	}
	return secs
}
