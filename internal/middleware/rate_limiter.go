package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mroshb/word_game/pkg/errors"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per key (player id or client IP).
type RateLimiter struct {
	limiters map[string]*keyLimit
	mu       sync.Mutex

	perSecond rate.Limit
	burst     int
	idleAfter time.Duration
	stop      chan struct{}
	stopOnce  sync.Once
}

type keyLimit struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter. Buckets unused for idleAfter are
// dropped by a background sweep until Stop is called.
func NewRateLimiter(perSecond, burst int, idleAfter time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limiters:  make(map[string]*keyLimit),
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		idleAfter: idleAfter,
		stop:      make(chan struct{}),
	}

	// Start cleanup goroutine
	go rl.cleanup()

	return rl
}

// Allow spends one token from key's bucket.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limit, exists := rl.limiters[key]
	if !exists {
		limit = &keyLimit{limiter: rate.NewLimiter(rl.perSecond, rl.burst)}
		rl.limiters[key] = limit
	}
	limit.lastSeen = time.Now()
	return limit.limiter.Allow()
}

// Check is Allow returning RATE_LIMIT_EXCEEDED instead of false.
func (rl *RateLimiter) Check(key string) error {
	if !rl.Allow(key) {
		return errors.New(errors.ErrCodeRateLimitExceeded, "too many requests, slow down")
	}
	return nil
}

// Tokens returns the tokens currently available to key.
func (rl *RateLimiter) Tokens(key string) float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limit, exists := rl.limiters[key]
	if !exists {
		return float64(rl.burst)
	}
	return limit.limiter.Tokens()
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// cleanup removes idle entries
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evictIdle(time.Now())
		}
	}
}

func (rl *RateLimiter) evictIdle(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, limit := range rl.limiters {
		if now.Sub(limit.lastSeen) > rl.idleAfter {
			delete(rl.limiters, key)
		}
	}
}

// Reset clears all rate limits (useful for testing)
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.limiters = make(map[string]*keyLimit)
}

// PerIP throttles every request by client address.
func (rl *RateLimiter) PerIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(ClientIP(r)) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimitExceeded, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP prefers the first X-Forwarded-For hop, then RemoteAddr.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
