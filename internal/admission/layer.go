package admission

import (
	"net/http"
	"time"

	"github.com/cryptoscreen/screenerd/internal/ratelimit"
)

// Decision is the outcome of admitting (or rejecting) one request.
type Decision struct {
	Allowed      bool
	Tier         Tier
	Limit        int
	Remaining    int
	ResetUnix    int64
	RetryAfter   time.Duration
	RejectReason string // "blocked" | "rate_limited" | "validation_failed"
}

// Layer is the tiered admission controller: rate limiting, validation, and
// per-IP violation tracking with temporary blocking.
type Layer struct {
	limiters       map[Tier]*ratelimit.Limiter
	violations     *ViolationTracker
	trustedProxies []string
	devMode        bool
}

// NewLayer builds a Layer with one rate limiter per tier from TierLimits.
func NewLayer(trustedProxies []string, devMode bool) *Layer {
	l := &Layer{
		limiters:       make(map[Tier]*ratelimit.Limiter),
		violations:     NewViolationTracker(),
		trustedProxies: trustedProxies,
		devMode:        devMode,
	}
	for tier, cfg := range TierLimits {
		l.limiters[tier] = ratelimit.New(cfg.Limit, cfg.Window)
	}
	return l
}

// Stop drains the background violation-decay sweep.
func (l *Layer) Stop() {
	l.violations.Stop()
}

// Admit resolves the client IP, checks exemptions/blocks/rate limit for
// the request's tier, and returns a Decision. It does not perform body
// validation — call ValidateSymbolParam/ValidateParam on parsed
// parameters separately and report failures via RecordValidationFailure.
func (l *Layer) Admit(r *http.Request) Decision {
	if IsExempt(r.URL.Path) {
		return Decision{Allowed: true, Tier: TierGeneral}
	}

	ip := ResolveClientIP(r, l.trustedProxies)
	if IsLoopback(ip) || (l.devMode && IsPrivateNetwork(ip)) {
		return Decision{Allowed: true, Tier: ClassifyTier(r.URL.Path)}
	}

	if until, blocked := l.violations.IsBlocked(ip); blocked {
		return Decision{
			Allowed:      false,
			RejectReason: "blocked",
			RetryAfter:   time.Until(until),
		}
	}

	tier := ClassifyTier(r.URL.Path)
	limiter := l.limiters[tier]
	key := string(tier) + "|" + ip

	if !limiter.Allow(key) {
		l.violations.RecordRateLimitHit(ip)
		status := limiter.Status(key)
		return Decision{
			Allowed:      false,
			Tier:         tier,
			Limit:        status.Limit,
			Remaining:    0,
			ResetUnix:    status.ResetUnix,
			RetryAfter:   time.Until(time.Unix(status.ResetUnix, 0)),
			RejectReason: "rate_limited",
		}
	}

	status := limiter.Status(key)
	return Decision{
		Allowed:   true,
		Tier:      tier,
		Limit:     status.Limit,
		Remaining: status.Remaining,
		ResetUnix: status.ResetUnix,
	}
}

// RecordValidationFailure attributes a validation failure to the
// requesting IP for violation-threshold tracking.
func (l *Layer) RecordValidationFailure(r *http.Request) {
	ip := ResolveClientIP(r, l.trustedProxies)
	l.violations.RecordValidationFailure(ip)
}

// RecordSuspiciousActivity attributes a suspicious-activity flag to the
// requesting IP.
func (l *Layer) RecordSuspiciousActivity(r *http.Request) {
	ip := ResolveClientIP(r, l.trustedProxies)
	l.violations.RecordSuspiciousActivity(ip)
}

// ViolationSnapshot exposes masked (production) or raw (development)
// per-IP violation records for metrics surfaces.
func (l *Layer) ViolationSnapshot() map[string]IPViolationRecord {
	return l.violations.Snapshot(!l.devMode)
}
