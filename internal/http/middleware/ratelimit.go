package middleware

import (
	"net/http"
	"sync"
	"time"
)

// Sweep cadence for idle per-IP buckets. Webhook traffic arrives from a
// small set of Meta egress addresses, so the map stays small in practice.
const (
	bucketSweepInterval = 5 * time.Minute
	bucketIdleCutoff    = 10 * time.Minute
)

// RateLimiter applies a token-bucket budget per client IP. It shields the
// public webhook endpoints from delivery retry storms without slowing a
// normal conversation, where turns arrive seconds apart.
type RateLimiter struct {
	mu     sync.Mutex
	perIP  map[string]*ipBucket
	refill float64 // tokens added per second
	burst  float64 // bucket capacity
}

type ipBucket struct {
	tokens float64
	seen   time.Time
}

// NewRateLimiter allows ratePerSec sustained requests with the given burst
// headroom, tracked independently per IP.
func NewRateLimiter(ratePerSec float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		perIP:  make(map[string]*ipBucket),
		refill: ratePerSec,
		burst:  float64(burst),
	}
	go rl.sweep()
	return rl
}

// Allow consumes one token for ip and reports whether the request may
// proceed.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.perIP[ip]
	if !ok {
		b = &ipBucket{tokens: rl.burst, seen: now}
		rl.perIP[ip] = b
	}

	b.tokens += now.Sub(b.seen).Seconds() * rl.refill
	if b.tokens > rl.burst {
		b.tokens = rl.burst
	}
	b.seen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweep drops buckets idle long enough to be full again, bounding memory
// across many distinct caller IPs.
func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(bucketSweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-bucketIdleCutoff)
		rl.mu.Lock()
		for ip, b := range rl.perIP {
			if b.seen.Before(cutoff) {
				delete(rl.perIP, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimit rejects requests over the per-IP budget with 429 Too Many
// Requests. The client IP comes from X-Real-Ip when chi's RealIP middleware
// has resolved it, falling back to the connection address.
func RateLimit(ratePerSec float64, burst int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(ratePerSec, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			if xri := r.Header.Get("X-Real-Ip"); xri != "" {
				ip = xri
			}
			if !limiter.Allow(ip) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
