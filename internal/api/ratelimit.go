package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// rateLimiter is a token bucket refilled continuously at perMinute/60
// tokens per second, holding at most perMinute tokens.
type rateLimiter struct {
	mu sync.Mutex

	capacity   float64
	refillRate float64 // tokens per second

	tokens   float64
	lastTime time.Time
	now      func() time.Time
}

func newRateLimiter(perMinute int) *rateLimiter {
	rl := &rateLimiter{
		capacity:   float64(perMinute),
		refillRate: float64(perMinute) / 60.0,
		now:        time.Now,
	}
	rl.tokens = rl.capacity
	rl.lastTime = rl.now()
	return rl
}

// allow takes a token if one is available. When none is, it returns how
// long until the next one.
func (rl *rateLimiter) allow() (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()

	if rl.tokens >= 1 {
		rl.tokens--
		return true, 0
	}
	deficit := 1 - rl.tokens
	return false, time.Duration(deficit / rl.refillRate * float64(time.Second))
}

func (rl *rateLimiter) refill() {
	now := rl.now()
	elapsed := now.Sub(rl.lastTime).Seconds()

	if elapsed > 0 {
		rl.tokens += elapsed * rl.refillRate
		if rl.tokens > rl.capacity {
			rl.tokens = rl.capacity
		}
		rl.lastTime = now
	}
}

// limit rejects requests with 429 once the bucket is empty.
func (rl *rateLimiter) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := rl.allow()
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
			writeError(w, http.StatusTooManyRequests, "Too many sessions created, retry later")
			return
		}
		next.ServeHTTP(w, r)
	})
}
