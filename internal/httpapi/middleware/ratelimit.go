package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// tokenBucket holds up to burst tokens and refills at rate per second.
type tokenBucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a per-key token bucket. Buckets idle for longer than ttl are
// evicted on a later call.
type Limiter struct {
	rate  float64 // tokens per second
	burst float64
	ttl   time.Duration

	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	lastSweep time.Time
	now       func() time.Time
}

func NewLimiter(reqPerMin, burst int, ttl time.Duration) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		rate:    float64(reqPerMin) / 60.0,
		burst:   float64(burst),
		ttl:     ttl,
		buckets: make(map[string]*tokenBucket),
		now:     time.Now,
	}
}

// Allow takes one token for key. When none is left it reports false and how
// long until the next token.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	tb := l.buckets[key]
	if tb == nil {
		tb = &tokenBucket{tokens: l.burst, last: now}
		l.buckets[key] = tb
	}
	elapsed := now.Sub(tb.last).Seconds()
	tb.tokens = math.Min(l.burst, tb.tokens+elapsed*l.rate)
	tb.last = now

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true, 0
	}
	wait := time.Duration((1.0 - tb.tokens) / l.rate * float64(time.Second))
	return false, wait
}

// Len is the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// sweep runs at most once per ttl. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	if l.ttl <= 0 || now.Sub(l.lastSweep) < l.ttl {
		return
	}
	for k, tb := range l.buckets {
		if now.Sub(tb.last) > l.ttl {
			delete(l.buckets, k)
		}
	}
	l.lastSweep = now
}

// Handler rejects requests over the limit with 429 and a Retry-After hint.
func (l *Limiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := l.Allow(clientIP(r))
		if !ok {
			secs := int(math.Ceil(wait.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit limits by client IP.
// Example: RateLimit(120, 60) => 120 req/min with burst 60. Zero disables.
func RateLimit(reqPerMin int, burst int) func(http.Handler) http.Handler {
	if reqPerMin <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return NewLimiter(reqPerMin, burst, 10*time.Minute).Handler
}

func clientIP(r *http.Request) string {
	// honor X-Forwarded-For if behind a proxy
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
