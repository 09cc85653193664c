// Package admission implements tiered request admission control: per-tier
// rate limiting, input validation, and per-IP violation tracking with
// temporary blocking.
package admission

import (
	"strings"
	"time"
)

// Tier names a rate-limit bucket.
type Tier string

const (
	TierGeneral              Tier = "general"
	TierSensitive            Tier = "sensitive"
	TierAIAnalysis           Tier = "ai_analysis"
	TierConfluenceScreening  Tier = "confluence_screening"
	TierAuth                 Tier = "auth"
)

// TierLimit is the (limit, window) budget for one tier.
type TierLimit struct {
	Limit  int
	Window time.Duration
}

// TierLimits is the fixed tier table from the component design.
var TierLimits = map[Tier]TierLimit{
	TierGeneral:             {Limit: 100, Window: 60 * time.Second},
	TierSensitive:           {Limit: 10, Window: 60 * time.Second},
	TierAIAnalysis:          {Limit: 5, Window: 60 * time.Second},
	TierConfluenceScreening: {Limit: 3, Window: 60 * time.Second},
	TierAuth:                {Limit: 5, Window: 60 * time.Second},
}

var sensitiveMarkers = []string{"complete", "orderbook", "multi-exchange"}
var aiMarkers = []string{"ai", "signal", "screener", "analysis"}
var confluenceMarkers = []string{"screener/run", "screener/multi"}
var authMarkers = []string{"auth", "login", "token"}
var exemptMarkers = []string{"health", "metrics", "openapi", "static"}

// ClassifyTier maps a request path to a rate-limit tier, checking the most
// specific tiers first.
func ClassifyTier(path string) Tier {
	lower := strings.ToLower(path)
	switch {
	case containsAny(lower, confluenceMarkers):
		return TierConfluenceScreening
	case containsAny(lower, aiMarkers):
		return TierAIAnalysis
	case containsAny(lower, authMarkers):
		return TierAuth
	case containsAny(lower, sensitiveMarkers):
		return TierSensitive
	default:
		return TierGeneral
	}
}

// IsExempt reports whether path never passes through admission control
// regardless of tier.
func IsExempt(path string) bool {
	return containsAny(strings.ToLower(path), exemptMarkers)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
