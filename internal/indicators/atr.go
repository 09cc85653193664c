package indicators

import "github.com/cryptoscreen/screenerd/internal/market"

// ATR computes the average true range over the last period candles as an
// SMA of true range, per the screening-proxy semantics (not Wilder
// smoothing). ok is false when len(candles) <= period.
func ATR(candles []market.Candle, period int) (value float64, ok bool) {
	if period < 1 || len(candles) <= period {
		return 0, false
	}
	start := len(candles) - period
	var sum float64
	for i := start; i < len(candles); i++ {
		sum += trueRange(candles, i)
	}
	return sum / float64(period), true
}

func trueRange(candles []market.Candle, i int) float64 {
	c := candles[i]
	hl := c.High - c.Low
	if i == 0 {
		return hl
	}
	prevClose := candles[i-1].Close
	hc := absFloat(c.High - prevClose)
	lc := absFloat(c.Low - prevClose)
	tr := hl
	if hc > tr {
		tr = hc
	}
	if lc > tr {
		tr = lc
	}
	return tr
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// ADXProxy is the light normalization proxy documented in the component
// design: min(100, max(0, 2*atr/lastClose*100)). It is explicitly not
// Wilder ADX — a screening-only substitute.
func ADXProxy(atr, lastClose float64) float64 {
	if lastClose == 0 {
		return 0
	}
	v := 2 * atr / lastClose * 100
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
