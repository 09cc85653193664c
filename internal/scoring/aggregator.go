package scoring

import (
	"fmt"
	"math"
)

// Weights holds the fixed per-layer weights for the canonical 3-weight
// taxonomy.
type Weights struct {
	SMC         float64
	Indicators  float64
	Derivatives float64
}

// DefaultWeights matches the component-design defaults.
var DefaultWeights = Weights{SMC: 1.0, Indicators: 0.6, Derivatives: 0.5}

// Thresholds holds the normalized-score cutoffs that decide BUY/SELL/HOLD.
type Thresholds struct {
	Buy  int
	Sell int
}

// DefaultThresholds matches the component-design defaults.
var DefaultThresholds = Thresholds{Buy: 65, Sell: 35}

// MTFInput is the optional multi-timeframe tilt. When HTFAligned is true
// and the normalized score is at least 80, the aggregator qualifies
// riskLevel as low; the sign of Tilt is not checked for this.
type MTFInput struct {
	Tilt       float64 // appliedTilt in [-10, 10], added to total before normalization
	HTFAligned bool
	Reason     string
}

// Aggregator applies the canonical 3-weight taxonomy to per-symbol layer
// scores and derives the 8-layer breakdown as a presentation-only
// projection. It holds no mutable state; Aggregate is a pure function of
// its arguments.
type Aggregator struct {
	Weights    Weights
	Thresholds Thresholds
}

// NewAggregator builds an Aggregator with the given weights/thresholds,
// falling back to defaults for zero values.
func NewAggregator(w Weights, th Thresholds) *Aggregator {
	if w == (Weights{}) {
		w = DefaultWeights
	}
	if th == (Thresholds{}) {
		th = DefaultThresholds
	}
	return &Aggregator{Weights: w, Thresholds: th}
}

// Aggregate computes a ConfluenceResult from layer inputs. It is a pure
// function: identical in and mtf produce a byte-identical result.
func (a *Aggregator) Aggregate(in Inputs, mtf *MTFInput) ConfluenceResult {
	canonical := CanonicalLayers{
		SMC:         ScoreSMC(in, 30),
		Indicators:  ScoreIndicators(in),
		Derivatives: ScoreDerivatives(in),
	}

	total := a.Weights.SMC*float64(canonical.SMC.Score) +
		a.Weights.Indicators*float64(canonical.Indicators.Score) +
		a.Weights.Derivatives*float64(canonical.Derivatives.Score)

	appliedTilt := 0.0
	mtfReason := ""
	if mtf != nil {
		appliedTilt = clampFloat(mtf.Tilt, -10, 10)
		total += appliedTilt
		mtfReason = mtf.Reason
	}

	normalized := clampInt((total+30)/60*100, 0, 100)

	label := Hold
	switch {
	case normalized >= a.Thresholds.Buy:
		label = Buy
	case normalized <= a.Thresholds.Sell:
		label = Sell
	}

	confidence := clampInt(math.Abs(float64(normalized)-50)*2, 0, 100)

	risk := RiskMedium
	if normalized <= 30 {
		risk = RiskHigh
	}
	confluenceScore := float64(normalized) / 100.0
	if mtf != nil && mtf.HTFAligned && confluenceScore >= 0.80 && normalized > 30 {
		risk = RiskLow
	}

	layers := EightLayerBreakdown{
		PriceAction: ScorePriceAction(in),
		EMA:         ScoreEMA(in),
		RSIMACD:     ScoreRSIMACD(in),
		Funding:     ScoreFunding(in),
		OI:          ScoreOI(in),
		CVD:         ScoreCVD(in),
		Fibonacci:   ScoreFibonacci(in),
		SMC:         ScoreSMC(in, 12),
	}

	summary := fmt.Sprintf("SMC:%d IND:%d DER:%d → %d",
		canonical.SMC.Score, canonical.Indicators.Score, canonical.Derivatives.Score, normalized)

	return ConfluenceResult{
		TotalScore:      total,
		NormalizedScore: normalized,
		Label:           label,
		Confidence:      confidence,
		RiskLevel:       risk,
		Canonical:       canonical,
		Layers:          layers,
		Summary:         summary,
		MTFReason:       mtfReason,
		AppliedTilt:     appliedTilt,
	}
}
