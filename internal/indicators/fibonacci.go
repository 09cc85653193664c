package indicators

import "github.com/cryptoscreen/screenerd/internal/market"

// FibLevel is one retracement level of a Fibonacci zone.
type FibLevel struct {
	Ratio float64
	Price float64
}

// FibResult carries the retracement levels computed from the most recent
// swing-point pair and whether the golden zone [0.618, 0.786] is active.
type FibResult struct {
	SwingHigh      float64
	SwingLow       float64
	Levels         []FibLevel
	GoldenZoneLow  float64
	GoldenZoneHigh float64
	GoldenZoneHit  bool
}

var fibRatios = []float64{0.236, 0.382, 0.5, 0.618, 0.786}

// Fibonacci locates the most recent swing high and swing low and derives
// retracement levels between them. The golden zone is active when the
// latest close falls inside [0.618, 0.786] of the swing range (direction
// normalized so GoldenZoneLow <= GoldenZoneHigh regardless of trend).
func Fibonacci(candles []market.Candle) (FibResult, bool) {
	if len(candles) < swingWindow*2+2 {
		return FibResult{}, false
	}

	highIdx, lowIdx := -1, -1
	for i := len(candles) - swingWindow - 1; i >= swingWindow; i-- {
		if highIdx == -1 && isSwingHigh(candles, i) {
			highIdx = i
		}
		if lowIdx == -1 && isSwingLow(candles, i) {
			lowIdx = i
		}
		if highIdx != -1 && lowIdx != -1 {
			break
		}
	}
	if highIdx == -1 || lowIdx == -1 {
		return FibResult{}, false
	}

	swingHigh := candles[highIdx].High
	swingLow := candles[lowIdx].Low
	span := swingHigh - swingLow
	if span <= 0 {
		return FibResult{}, false
	}

	downtrend := highIdx < lowIdx

	levels := make([]FibLevel, 0, len(fibRatios))
	for _, r := range fibRatios {
		var price float64
		if downtrend {
			price = swingHigh - span*r
		} else {
			price = swingLow + span*r
		}
		levels = append(levels, FibLevel{Ratio: r, Price: price})
	}

	var zoneA, zoneB float64
	if downtrend {
		zoneA = swingHigh - span*0.618
		zoneB = swingHigh - span*0.786
	} else {
		zoneA = swingLow + span*0.618
		zoneB = swingLow + span*0.786
	}
	zoneLow, zoneHigh := zoneA, zoneB
	if zoneLow > zoneHigh {
		zoneLow, zoneHigh = zoneHigh, zoneLow
	}

	lastClose := candles[len(candles)-1].Close
	hit := lastClose >= zoneLow && lastClose <= zoneHigh

	return FibResult{
		SwingHigh:      swingHigh,
		SwingLow:       swingLow,
		Levels:         levels,
		GoldenZoneLow:  zoneLow,
		GoldenZoneHigh: zoneHigh,
		GoldenZoneHit:  hit,
	}, true
}
