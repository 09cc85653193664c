package indicators

// RSI computes the Wilder-style relative strength index over period,
// seeding simple averages on the first `period` diffs: 100 when avgLoss is
// zero, otherwise 100 - 100/(1+rs). ok is false when len(closes) <= period.
func RSI(closes []float64, period int) (value float64, ok bool) {
	if period < 1 || len(closes) <= period {
		return 0, false
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		diff := closes[i] - closes[i-1]
		if diff > 0 {
			gainSum += diff
		} else {
			lossSum += -diff
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)

	for i := period + 1; i < len(closes); i++ {
		diff := closes[i] - closes[i-1]
		var gain, loss float64
		if diff > 0 {
			gain = diff
		} else {
			loss = -diff
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}
