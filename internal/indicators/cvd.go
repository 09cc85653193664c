package indicators

import "github.com/cryptoscreen/screenerd/internal/market"

// CVDSide is the dominant aggressor side read off the CVD slope.
type CVDSide string

const (
	CVDBuyers   CVDSide = "buyers"
	CVDSellers  CVDSide = "sellers"
	CVDBalanced CVDSide = "balanced"
)

// CVDResult carries the cumulative volume delta series' final value, its
// recent slope, and the dominant side derived from that slope.
type CVDResult struct {
	Value      float64
	Slope      float64
	DominantSide CVDSide
}

// cvdSlopeLookback is how many trailing bars are averaged to find the
// recent CVD slope.
const cvdSlopeLookback = 10

// balancedSlopeEpsilon is the fraction of average bar volume below which
// the slope is considered flat (balanced).
const balancedSlopeEpsilon = 0.05

// CVD computes the running cumulative volume delta: sum of
// sign(close-open)*volume, and classifies the dominant side from the slope
// of the trailing cvdSlopeLookback bars.
func CVD(candles []market.Candle) (CVDResult, bool) {
	if len(candles) < 2 {
		return CVDResult{}, false
	}

	series := make([]float64, len(candles))
	var running float64
	var volSum float64
	for i, c := range candles {
		delta := c.Volume
		if c.Close < c.Open {
			delta = -c.Volume
		} else if c.Close == c.Open {
			delta = 0
		}
		running += delta
		series[i] = running
		volSum += c.Volume
	}

	lookback := cvdSlopeLookback
	if lookback > len(series)-1 {
		lookback = len(series) - 1
	}
	slope := (series[len(series)-1] - series[len(series)-1-lookback]) / float64(lookback)

	avgVolume := volSum / float64(len(candles))
	epsilon := avgVolume * balancedSlopeEpsilon

	side := CVDBalanced
	switch {
	case slope > epsilon:
		side = CVDBuyers
	case slope < -epsilon:
		side = CVDSellers
	}

	return CVDResult{
		Value:        series[len(series)-1],
		Slope:        slope,
		DominantSide: side,
	}, true
}
