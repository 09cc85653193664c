package indicators

import "github.com/cryptoscreen/screenerd/internal/market"

// OIState is the read on open-interest change.
type OIState string

const (
	OIBuildup OIState = "buildup"
	OIUnwind  OIState = "unwind"
	OIFlat    OIState = "flat"
)

// FundingBias is the contrarian read on the funding rate.
type FundingBias string

const (
	FundingContrarianCap   FundingBias = "contrarian_cap"
	FundingContrarianFloor FundingBias = "contrarian_floor"
	FundingNeutral         FundingBias = "neutral"
)

// DerivResult is the interpreted open-interest and funding-rate context.
type DerivResult struct {
	OI          OIState
	Funding     FundingBias
	OIChangePct float64
	FundingRate float64
	Reason      string
}

// oiBuildupThresholdPct is the minimum |oiChangePct| to call it buildup or
// unwind rather than flat.
const oiBuildupThresholdPct = 1.0

// fundingExtremeRate is the |fundingRate| beyond which funding is read as a
// contrarian signal rather than neutral.
const fundingExtremeRate = 0.0005

// InterpretDerivatives reads the optional open-interest-change and
// funding-rate fields. Absent fields are reported as neutral/flat, which is
// not an error — the derivatives layer simply contributes 0 in that case.
func InterpretDerivatives(d market.Derivatives) DerivResult {
	res := DerivResult{OI: OIFlat, Funding: FundingNeutral}

	if d.OpenInterestChangePct != nil {
		res.OIChangePct = *d.OpenInterestChangePct
		switch {
		case res.OIChangePct >= oiBuildupThresholdPct:
			res.OI = OIBuildup
		case res.OIChangePct <= -oiBuildupThresholdPct:
			res.OI = OIUnwind
		}
	}

	if d.FundingRate != nil {
		res.FundingRate = *d.FundingRate
		switch {
		case res.FundingRate >= fundingExtremeRate:
			res.Funding = FundingContrarianCap
		case res.FundingRate <= -fundingExtremeRate:
			res.Funding = FundingContrarianFloor
		}
	}

	switch {
	case res.OI == OIBuildup && res.Funding == FundingContrarianCap:
		res.Reason = "OI buildup with stretched positive funding"
	case res.OI == OIUnwind && res.Funding == FundingContrarianFloor:
		res.Reason = "OI unwind with stretched negative funding"
	case res.OI != OIFlat:
		res.Reason = string(res.OI) + " in open interest"
	case res.Funding != FundingNeutral:
		res.Reason = "funding rate at a contrarian extreme"
	default:
		res.Reason = "no derivatives signal"
	}

	return res
}
