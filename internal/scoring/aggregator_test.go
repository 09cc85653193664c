package scoring

import (
	"testing"

	"github.com/cryptoscreen/screenerd/internal/indicators"
	"github.com/cryptoscreen/screenerd/internal/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bullishInputs() Inputs {
	oi := 2.0
	funding := 0.0
	return Inputs{
		EMAFast: 105,
		EMASlow: 100,
		RSI:     62,
		ADX:     30,
		SMC:     indicators.SMCResult{Bias: indicators.SMCBullish, Strength: 8, Reason: "break of structure"},
		CVD:     indicators.CVDResult{DominantSide: indicators.CVDBuyers},
		Deriv:   indicators.InterpretDerivatives(market.Derivatives{OpenInterestChangePct: &oi, FundingRate: &funding}),
	}
}

func bearishInputs() Inputs {
	oi := -2.0
	funding := 0.0
	return Inputs{
		EMAFast: 95,
		EMASlow: 100,
		RSI:     40,
		ADX:     30,
		SMC:     indicators.SMCResult{Bias: indicators.SMCBearish, Strength: 8, Reason: "break of structure"},
		CVD:     indicators.CVDResult{DominantSide: indicators.CVDSellers},
		Deriv:   indicators.InterpretDerivatives(market.Derivatives{OpenInterestChangePct: &oi, FundingRate: &funding}),
	}
}

func TestAggregateSingleBuyScenario(t *testing.T) {
	agg := NewAggregator(DefaultWeights, DefaultThresholds)
	result := agg.Aggregate(bullishInputs(), nil)

	assert.Equal(t, Buy, result.Label)
	assert.GreaterOrEqual(t, result.NormalizedScore, 65)
	assert.Contains(t, result.Summary, "SMC:")
}

func TestAggregateSingleSellScenario(t *testing.T) {
	agg := NewAggregator(DefaultWeights, DefaultThresholds)
	result := agg.Aggregate(bearishInputs(), nil)

	assert.Equal(t, Sell, result.Label)
	assert.LessOrEqual(t, result.NormalizedScore, 35)
}

func TestAggregateBoundsAndLabelRule(t *testing.T) {
	agg := NewAggregator(DefaultWeights, DefaultThresholds)
	for _, in := range []Inputs{bullishInputs(), bearishInputs(), {}} {
		result := agg.Aggregate(in, nil)
		assert.GreaterOrEqual(t, result.NormalizedScore, 0)
		assert.LessOrEqual(t, result.NormalizedScore, 100)
		assert.GreaterOrEqual(t, result.Confidence, 0)
		assert.LessOrEqual(t, result.Confidence, 100)

		switch {
		case result.NormalizedScore >= agg.Thresholds.Buy:
			assert.Equal(t, Buy, result.Label)
		case result.NormalizedScore <= agg.Thresholds.Sell:
			assert.Equal(t, Sell, result.Label)
		default:
			assert.Equal(t, Hold, result.Label)
		}
	}
}

func TestAggregateIsPure(t *testing.T) {
	agg := NewAggregator(DefaultWeights, DefaultThresholds)
	in := bullishInputs()
	a := agg.Aggregate(in, nil)
	b := agg.Aggregate(in, nil)
	assert.Equal(t, a, b)
}

func TestAggregateRiskLevelHighAtLowScore(t *testing.T) {
	agg := NewAggregator(DefaultWeights, DefaultThresholds)
	result := agg.Aggregate(bearishInputs(), nil)
	if result.NormalizedScore <= 30 {
		assert.Equal(t, RiskHigh, result.RiskLevel)
	}
}

func TestAggregateRiskLevelLowRequiresHTFAlignmentAndHighScore(t *testing.T) {
	agg := NewAggregator(DefaultWeights, DefaultThresholds)
	in := bullishInputs()

	withoutMTF := agg.Aggregate(in, nil)
	assert.NotEqual(t, RiskLow, withoutMTF.RiskLevel)

	withMTF := agg.Aggregate(in, &MTFInput{Tilt: 5, HTFAligned: true, Reason: "HTF uptrend confirms"})
	if withMTF.NormalizedScore/100.0 >= 0.80 {
		assert.Equal(t, RiskLow, withMTF.RiskLevel)
	}
}

func TestAggregateMTFTiltNeverFlipsPolarityAlone(t *testing.T) {
	agg := NewAggregator(DefaultWeights, DefaultThresholds)
	in := Inputs{} // fully neutral
	base := agg.Aggregate(in, nil)
	require.Equal(t, Hold, base.Label)

	tilted := agg.Aggregate(in, &MTFInput{Tilt: 10, HTFAligned: true})
	assert.LessOrEqual(t, tilted.NormalizedScore, base.NormalizedScore+int(10.0/60*100)+1)
}
