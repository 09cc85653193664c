// Package screening implements the ScreeningEngine: per-symbol fetch,
// indicator computation, layer scoring, and result aggregation, fanned
// out concurrently with cache dedup and circuit-breaker protection.
package screening

import (
	"fmt"

	"github.com/cryptoscreen/screenerd/internal/market"
)

const (
	minSymbols = 1
	minLimit   = 100
	maxLimit   = 2000
)

// Request is a ScreenerRequest: a set of symbols evaluated on one
// timeframe with at most limit most-recent candles each.
type Request struct {
	Symbols        []string
	Timeframe      market.Timeframe
	Limit          int
	EnabledLayers  map[string]bool
}

// Validate reports the first schema violation found, matching the
// VALIDATION_ERROR contract: malformed requests never reach downstream
// services.
func (r Request) Validate() error {
	if len(r.Symbols) < minSymbols {
		return fmt.Errorf("symbols must be a non-empty set")
	}
	seen := make(map[string]bool, len(r.Symbols))
	for _, s := range r.Symbols {
		if s == "" {
			return fmt.Errorf("symbol cannot be empty")
		}
		if seen[s] {
			return fmt.Errorf("duplicate symbol %q", s)
		}
		seen[s] = true
	}
	if !market.ValidTimeframe(string(r.Timeframe)) {
		return fmt.Errorf("invalid timeframe %q", r.Timeframe)
	}
	if r.Limit < minLimit || r.Limit > maxLimit {
		return fmt.Errorf("limit must be in [%d,%d], got %d", minLimit, maxLimit, r.Limit)
	}
	return nil
}

// cacheKey is the dedup key for one symbol's evaluation: symbol |
// timeframe | limit.
func cacheKey(symbol string, tf market.Timeframe, limit int) string {
	return fmt.Sprintf("%s|%s|%d", symbol, tf, limit)
}
