package screening

import (
	"time"

	"github.com/cryptoscreen/screenerd/internal/scoring"
)

// SymbolResult is one symbol's outcome in a run. Label is always set;
// Result is non-nil only for symbols that made it through the full
// pipeline. Reason explains a HOLD that isn't a scored result (either
// "insufficient data" or an upstream/circuit failure message). IsError
// distinguishes the latter, since DataInsufficient is explicitly not an
// error class for counters.
type SymbolResult struct {
	Symbol    string
	Label     scoring.Label
	Result    *scoring.ConfluenceResult
	Reason    string
	IsError   bool
	FromCache bool
}

// Stats summarizes one run.
type Stats struct {
	TotalSymbols   int
	BuyCount       int
	SellCount      int
	HoldCount      int
	ErrorCount     int
	AvgScore       float64
	ProcessingTime time.Duration
}

// Response is the ScreenerResponse returned to callers.
type Response struct {
	RunID     string
	Timestamp time.Time
	Results   []SymbolResult
	Stats     Stats
}
