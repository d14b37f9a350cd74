package httpapi

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

const bucketPruneInterval = time.Minute

type RateLimitConfig struct {
	IPPerMinute      int
	IPBurst          int
	SessionPerMinute int
	SessionBurst     int
	// TrustProxy reads the client IP from X-Forwarded-For. Enable it only
	// behind a proxy that overwrites the header.
	TrustProxy bool
}

// RateLimiter applies a token bucket per client IP and another per portal session.
type RateLimiter struct {
	ipLimiter      *tokenLimiter
	sessionLimiter *tokenLimiter
	trustProxy     bool
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		ipLimiter:      newTokenLimiter(cfg.IPPerMinute, cfg.IPBurst),
		sessionLimiter: newTokenLimiter(cfg.SessionPerMinute, cfg.SessionBurst),
		trustProxy:     cfg.TrustProxy,
	}
}

// Middleware limits requests per client IP. It runs before authentication.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ip := clientIP(r, l.trustProxy); ip != "" && !l.ipLimiter.allow(ip) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionMiddleware limits requests per authenticated session. It must run
// inside AuthMiddleware; requests without a restored session pass through.
func (l *RateLimiter) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if info, ok := authFromContext(r.Context()); ok && !l.sessionLimiter.allow(info.Session.SessionID) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type tokenLimiter struct {
	mu        sync.Mutex
	rate      float64
	burst     float64
	bucket    map[string]*bucket
	lastPrune time.Time
	now       func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

func newTokenLimiter(perMinute, burst int) *tokenLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = 20
	}
	return &tokenLimiter{
		rate:   float64(perMinute) / 60.0,
		burst:  float64(burst),
		bucket: make(map[string]*bucket),
		now:    time.Now,
	}
}

func (l *tokenLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPrune) >= bucketPruneInterval {
		l.pruneLocked(now)
	}
	b, ok := l.bucket[key]
	if !ok {
		l.bucket[key] = &bucket{tokens: l.burst - 1, last: now}
		return true
	}
	elapsed := now.Sub(b.last).Seconds()
	b.tokens = min(l.burst, b.tokens+elapsed*l.rate)
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// pruneLocked drops buckets that have refilled completely. A new bucket starts
// full, so dropping one does not change any decision.
func (l *tokenLimiter) pruneLocked(now time.Time) {
	l.lastPrune = now
	for key, b := range l.bucket {
		if b.tokens+now.Sub(b.last).Seconds()*l.rate >= l.burst {
			delete(l.bucket, key)
		}
	}
}

func clientIP(r *http.Request, trustProxy bool) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); trustProxy && forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
