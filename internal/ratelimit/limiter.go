// Package ratelimit implements per-key admission limiting on top of
// golang.org/x/time/rate token buckets: burst == the window's request
// budget, refill rate == budget/window. A burst at a fresh key is capped at
// the budget like a fixed-window counter, but tokens refill continuously
// rather than resetting at a window boundary, so any span of one window
// can admit up to about twice the budget. It is not a fixed-window counter.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter holds one token bucket per key (e.g. "tier|clientIP").
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*keyedLimiter
	limit    int
	window   time.Duration
}

type keyedLimiter struct {
	rl          *rate.Limiter
	lastAllowed time.Time
}

// New builds a Limiter admitting at most limit requests per window, per
// key.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limiters: make(map[string]*keyedLimiter),
		limit:    limit,
		window:   window,
	}
}

func (l *Limiter) getOrCreate(key string) *keyedLimiter {
	l.mu.RLock()
	kl, ok := l.limiters[key]
	l.mu.RUnlock()
	if ok {
		return kl
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if kl, ok := l.limiters[key]; ok {
		return kl
	}
	rps := float64(l.limit) / l.window.Seconds()
	kl = &keyedLimiter{rl: rate.NewLimiter(rate.Limit(rps), l.limit)}
	l.limiters[key] = kl
	return kl
}

// Allow reports whether a request for key is admitted right now.
func (l *Limiter) Allow(key string) bool {
	kl := l.getOrCreate(key)
	allowed := kl.rl.Allow()
	if allowed {
		l.mu.Lock()
		kl.lastAllowed = time.Now()
		l.mu.Unlock()
	}
	return allowed
}

// Status reports the limit/remaining/reset triple used for RateLimit-*
// response headers.
type Status struct {
	Limit     int
	Remaining int
	ResetUnix int64
}

// Status returns the current admission status for key without consuming a
// token.
func (l *Limiter) Status(key string) Status {
	kl := l.getOrCreate(key)
	tokens := int(kl.rl.Tokens())
	if tokens < 0 {
		tokens = 0
	}
	if tokens > l.limit {
		tokens = l.limit
	}
	resetAt := time.Now().Add(l.window)
	return Status{Limit: l.limit, Remaining: tokens, ResetUnix: resetAt.Unix()}
}

// Reset clears all per-key buckets, used by tests and window-rollover
// scenarios.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters = make(map[string]*keyedLimiter)
}
