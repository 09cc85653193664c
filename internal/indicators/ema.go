// Package indicators implements the pure indicator kernels the layer
// scorers build on: EMA, RSI, ATR, an ADX proxy, SMC swing-structure bias,
// Fibonacci zones, cumulative volume delta, and derivatives interpretation.
// Every kernel is a pure function of its inputs and returns ok=false when
// there is not enough data to produce a meaningful value.
package indicators

// EMA returns the exponential moving average of closes over period, seeded
// at the first value, recursing ema[i] = v*k + ema[i-1]*(1-k) with
// k = 2/(period+1). ok is false when len(closes) < period.
func EMA(closes []float64, period int) (value float64, ok bool) {
	series, ok := EMASeries(closes, period)
	if !ok {
		return 0, false
	}
	return series[len(series)-1], true
}

// EMASeries returns the full EMA series aligned with closes (same length),
// seeded at closes[0]. ok is false when len(closes) < period or period < 1.
func EMASeries(closes []float64, period int) ([]float64, bool) {
	if period < 1 || len(closes) < period {
		return nil, false
	}
	k := 2.0 / float64(period+1)
	out := make([]float64, len(closes))
	out[0] = closes[0]
	for i := 1; i < len(closes); i++ {
		out[i] = closes[i]*k + out[i-1]*(1-k)
	}
	return out, true
}
