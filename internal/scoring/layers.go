package scoring

import (
	"fmt"
	"math"

	"github.com/cryptoscreen/screenerd/internal/indicators"
	"github.com/cryptoscreen/screenerd/internal/market"
)

// Inputs bundles the indicator kernel outputs a symbol's layer scorers
// consume. Absent derivatives are represented by indicators.InterpretDerivatives
// zero-value semantics, not an error.
type Inputs struct {
	Candles []market.Candle
	EMAFast float64 // e.g. EMA20
	EMASlow float64 // e.g. EMA50
	RSI     float64
	ADX     float64
	SMC     indicators.SMCResult
	Fib     indicators.FibResult
	FibOK   bool
	CVD     indicators.CVDResult
	Deriv   indicators.DerivResult
}

func clampInt(v float64, lo, hi int) int {
	r := int(math.Round(v))
	if r < lo {
		return lo
	}
	if r > hi {
		return hi
	}
	return r
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// emaRaw is the EMA-fast-vs-slow bias in [-1, 1], derived from the relative
// spread between the two averages.
func emaRaw(in Inputs) float64 {
	if in.EMASlow == 0 {
		return 0
	}
	spreadPct := (in.EMAFast - in.EMASlow) / in.EMASlow
	return clampFloat(spreadPct*20, -1, 1)
}

// rsiRaw maps RSI(0..100) onto [-1, 1] centered at 50.
func rsiRaw(in Inputs) float64 {
	return clampFloat((in.RSI-50)/50, -1, 1)
}

// smcRaw maps SMC bias/strength onto [-1, 1].
func smcRaw(in Inputs) float64 {
	switch in.SMC.Bias {
	case indicators.SMCBullish:
		return clampFloat(in.SMC.Strength/10, 0, 1)
	case indicators.SMCBearish:
		return -clampFloat(in.SMC.Strength/10, 0, 1)
	default:
		return 0
	}
}

// priceActionRaw reads the net direction of the trailing window of closes,
// independent of the EMA crossover read.
func priceActionRaw(in Inputs) float64 {
	n := len(in.Candles)
	lookback := 10
	if n < lookback+1 {
		return 0
	}
	first := in.Candles[n-1-lookback].Close
	last := in.Candles[n-1].Close
	if first == 0 {
		return 0
	}
	return clampFloat((last-first)/first*10, -1, 1)
}

// fundingRaw maps the derivatives funding read onto [-1, 1]: a stretched
// positive funding rate caps upside (bearish lean), a stretched negative
// funding rate floors downside (bullish lean).
func fundingRaw(in Inputs) float64 {
	switch in.Deriv.Funding {
	case indicators.FundingContrarianCap:
		return -clampFloat(math.Abs(in.Deriv.FundingRate)/0.0015, 0, 1)
	case indicators.FundingContrarianFloor:
		return clampFloat(math.Abs(in.Deriv.FundingRate)/0.0015, 0, 1)
	default:
		return 0
	}
}

// oiRaw maps open-interest buildup/unwind onto [-1, 1], signed by the
// prevailing price-action direction (buildup/unwind is trend-confirming,
// not independently directional).
func oiRaw(in Inputs) float64 {
	if in.Deriv.OI == indicators.OIFlat {
		return 0
	}
	trendSign := 1.0
	if priceActionRaw(in) < 0 {
		trendSign = -1.0
	}
	magnitude := clampFloat(math.Abs(in.Deriv.OIChangePct)/5, 0, 1)
	if in.Deriv.OI == indicators.OIUnwind {
		trendSign = -trendSign
	}
	return trendSign * magnitude
}

// cvdRaw maps the CVD dominant side onto [-1, 1].
func cvdRaw(in Inputs) float64 {
	switch in.CVD.DominantSide {
	case indicators.CVDBuyers:
		return 0.6
	case indicators.CVDSellers:
		return -0.6
	default:
		return 0
	}
}

// fibRaw maps a golden-zone touch onto [-1, 1], signed by the trailing
// price-action direction (priceActionRaw): a touch while that is
// non-negative is bullish, otherwise bearish.
func fibRaw(in Inputs) float64 {
	if !in.FibOK || !in.Fib.GoldenZoneHit {
		return 0
	}
	if in.Fib.SwingHigh > in.Fib.SwingLow && priceActionRaw(in) >= 0 {
		return 0.6
	}
	return -0.6
}

func reason(format string, args ...interface{}) []string {
	return []string{fmt.Sprintf(format, args...)}
}

// ScoreSMC is the SMC layer scorer, band [-30, 30] in the canonical
// taxonomy, [-12, 12] in the 8-layer presentation projection.
func ScoreSMC(in Inputs, band int) LayerScore {
	raw := smcRaw(in)
	return LayerScore{
		Score:      clampInt(raw*float64(band), -band, band),
		Reasons:    reason("SMC bias %s strength %.1f: %s", in.SMC.Bias, in.SMC.Strength, in.SMC.Reason),
		Confidence: math.Abs(raw),
	}
}

// ScoreIndicators combines EMA, RSI, and ADX into the canonical
// "indicators" super-layer, band [-20, 20].
func ScoreIndicators(in Inputs) LayerScore {
	conviction := 0.5 + 0.5*clampFloat(in.ADX/100, 0, 1)
	raw := clampFloat((emaRaw(in)+rsiRaw(in))/2*conviction, -1, 1)
	return LayerScore{
		Score:      clampInt(raw*20, -20, 20),
		Reasons:    reason("EMA spread %.4f, RSI %.1f, ADX proxy %.1f", emaRaw(in), in.RSI, in.ADX),
		Confidence: math.Abs(raw),
	}
}

// ScoreDerivatives combines funding and OI into the canonical
// "derivatives" super-layer, band [-15, 15].
func ScoreDerivatives(in Inputs) LayerScore {
	raw := clampFloat((fundingRaw(in)+oiRaw(in))/2, -1, 1)
	return LayerScore{
		Score:      clampInt(raw*15, -15, 15),
		Reasons:    reason("derivatives: %s", in.Deriv.Reason),
		Confidence: math.Abs(raw),
	}
}

// ScoreEMA is the EMA sub-layer of the 8-layer presentation, band [-12, 12].
func ScoreEMA(in Inputs) LayerScore {
	raw := emaRaw(in)
	return LayerScore{Score: clampInt(raw*12, -12, 12), Reasons: reason("EMA fast/slow spread"), Confidence: math.Abs(raw)}
}

// ScoreRSIMACD is the RSI/MACD sub-layer of the 8-layer presentation, band
// [-12, 12].
func ScoreRSIMACD(in Inputs) LayerScore {
	raw := rsiRaw(in)
	return LayerScore{Score: clampInt(raw*12, -12, 12), Reasons: reason("RSI %.1f", in.RSI), Confidence: math.Abs(raw)}
}

// ScoreFunding is the funding sub-layer, band [-12, 12].
func ScoreFunding(in Inputs) LayerScore {
	raw := fundingRaw(in)
	return LayerScore{Score: clampInt(raw*12, -12, 12), Reasons: reason("funding rate %.5f", in.Deriv.FundingRate), Confidence: math.Abs(raw)}
}

// ScoreOI is the open-interest sub-layer, band [-12, 12].
func ScoreOI(in Inputs) LayerScore {
	raw := oiRaw(in)
	return LayerScore{Score: clampInt(raw*12, -12, 12), Reasons: reason("OI change %.2f%%, state %s", in.Deriv.OIChangePct, in.Deriv.OI), Confidence: math.Abs(raw)}
}

// ScoreCVD is the CVD sub-layer, band [-12, 12].
func ScoreCVD(in Inputs) LayerScore {
	raw := cvdRaw(in)
	return LayerScore{Score: clampInt(raw*12, -12, 12), Reasons: reason("CVD dominant side %s", in.CVD.DominantSide), Confidence: math.Abs(raw)}
}

// ScoreFibonacci is the Fibonacci sub-layer, band [-12, 12].
func ScoreFibonacci(in Inputs) LayerScore {
	raw := fibRaw(in)
	reasons := reason("no golden-zone touch")
	if in.FibOK && in.Fib.GoldenZoneHit {
		reasons = reason("close inside golden zone [%.4f, %.4f]", in.Fib.GoldenZoneLow, in.Fib.GoldenZoneHigh)
	}
	return LayerScore{Score: clampInt(raw*12, -12, 12), Reasons: reasons, Confidence: math.Abs(raw)}
}

// ScorePriceAction is the price-action sub-layer, band [-12, 12].
func ScorePriceAction(in Inputs) LayerScore {
	raw := priceActionRaw(in)
	return LayerScore{Score: clampInt(raw*12, -12, 12), Reasons: reason("10-bar close trend %.4f", raw), Confidence: math.Abs(raw)}
}
