package screening

import (
	"github.com/cryptoscreen/screenerd/internal/indicators"
	"github.com/cryptoscreen/screenerd/internal/market"
	"github.com/cryptoscreen/screenerd/internal/scoring"
)

const (
	emaFastPeriod = 20
	emaSlowPeriod = 50
	rsiPeriod     = 14
	atrPeriod     = 14

	// minWarmupCandles is the largest indicator warm-up requirement;
	// symbols with fewer candles resolve to HOLD with "insufficient data".
	minWarmupCandles = emaSlowPeriod
)

// buildInputs runs every indicator kernel over candles/deriv and packages
// the result as scoring.Inputs. ok is false when candles fail the warm-up
// requirement (fewer than minWarmupCandles periods).
func buildInputs(candles []market.Candle, deriv market.Derivatives) (scoring.Inputs, bool) {
	if len(candles) < minWarmupCandles {
		return scoring.Inputs{}, false
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	emaFast, _ := indicators.EMA(closes, emaFastPeriod)
	emaSlow, _ := indicators.EMA(closes, emaSlowPeriod)
	rsi, _ := indicators.RSI(closes, rsiPeriod)
	atr, _ := indicators.ATR(candles, atrPeriod)
	adx := indicators.ADXProxy(atr, closes[len(closes)-1])

	smc, _ := indicators.SMC(candles)
	fib, fibOK := indicators.Fibonacci(candles)
	cvd, _ := indicators.CVD(candles)
	derivResult := indicators.InterpretDerivatives(deriv)

	return scoring.Inputs{
		Candles: candles,
		EMAFast: emaFast,
		EMASlow: emaSlow,
		RSI:     rsi,
		ADX:     adx,
		SMC:     smc,
		Fib:     fib,
		FibOK:   fibOK,
		CVD:     cvd,
		Deriv:   derivResult,
	}, true
}
