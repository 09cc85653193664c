package httpapi

import (
	"github.com/cryptoscreen/screenerd/internal/scoring"
	"github.com/cryptoscreen/screenerd/internal/screening"
)

func layerScoreToDTO(l scoring.LayerScore) layerScoreDTO {
	return layerScoreDTO{Score: l.Score, Reasons: l.Reasons, Confidence: l.Confidence}
}

func confluenceResultToDTO(r scoring.ConfluenceResult) confluenceResultDTO {
	return confluenceResultDTO{
		TotalScore:      r.TotalScore,
		NormalizedScore: r.NormalizedScore,
		Label:           string(r.Label),
		Confidence:      r.Confidence,
		RiskLevel:       string(r.RiskLevel),
		Canonical: canonicalLayersDTO{
			SMC:         layerScoreToDTO(r.Canonical.SMC),
			Indicators:  layerScoreToDTO(r.Canonical.Indicators),
			Derivatives: layerScoreToDTO(r.Canonical.Derivatives),
		},
		Layers: eightLayerDTO{
			PriceAction: layerScoreToDTO(r.Layers.PriceAction),
			EMA:         layerScoreToDTO(r.Layers.EMA),
			RSIMACD:     layerScoreToDTO(r.Layers.RSIMACD),
			Funding:     layerScoreToDTO(r.Layers.Funding),
			OI:          layerScoreToDTO(r.Layers.OI),
			CVD:         layerScoreToDTO(r.Layers.CVD),
			Fibonacci:   layerScoreToDTO(r.Layers.Fibonacci),
			SMC:         layerScoreToDTO(r.Layers.SMC),
		},
		Summary:     r.Summary,
		MTFReason:   r.MTFReason,
		AppliedTilt: r.AppliedTilt,
	}
}

func symbolResultToDTO(r screening.SymbolResult) symbolResultDTO {
	dto := symbolResultDTO{
		Symbol:    r.Symbol,
		Label:     string(r.Label),
		Reason:    r.Reason,
		IsError:   r.IsError,
		FromCache: r.FromCache,
	}
	if r.Result != nil {
		result := confluenceResultToDTO(*r.Result)
		dto.Result = &result
	}
	return dto
}

func responseToDTO(resp screening.Response) runResponseDTO {
	results := make([]symbolResultDTO, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = symbolResultToDTO(r)
	}
	return runResponseDTO{
		RunID:     resp.RunID,
		Timestamp: resp.Timestamp,
		Results:   results,
		Stats: statsDTO{
			TotalSymbols:   resp.Stats.TotalSymbols,
			BuyCount:       resp.Stats.BuyCount,
			SellCount:      resp.Stats.SellCount,
			HoldCount:      resp.Stats.HoldCount,
			ErrorCount:     resp.Stats.ErrorCount,
			AvgScore:       resp.Stats.AvgScore,
			ProcessingTime: resp.Stats.ProcessingTime.Milliseconds(),
		},
	}
}
