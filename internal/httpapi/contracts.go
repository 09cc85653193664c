package httpapi

import "time"

// runRequestBody is the wire shape of POST /api/screener/run's body.
type runRequestBody struct {
	Symbols       []string        `json:"symbols"`
	Timeframe     string          `json:"timeframe"`
	Limit         int             `json:"limit"`
	EnabledLayers map[string]bool `json:"enabledLayers,omitempty"`
}

type layerScoreDTO struct {
	Score      int      `json:"score"`
	Reasons    []string `json:"reasons,omitempty"`
	Confidence float64  `json:"confidence"`
}

type eightLayerDTO struct {
	PriceAction layerScoreDTO `json:"priceAction"`
	EMA         layerScoreDTO `json:"ema"`
	RSIMACD     layerScoreDTO `json:"rsiMacd"`
	Funding     layerScoreDTO `json:"funding"`
	OI          layerScoreDTO `json:"oi"`
	CVD         layerScoreDTO `json:"cvd"`
	Fibonacci   layerScoreDTO `json:"fibonacci"`
	SMC         layerScoreDTO `json:"smc"`
}

type canonicalLayersDTO struct {
	SMC         layerScoreDTO `json:"smc"`
	Indicators  layerScoreDTO `json:"indicators"`
	Derivatives layerScoreDTO `json:"derivatives"`
}

type confluenceResultDTO struct {
	TotalScore      float64            `json:"totalScore"`
	NormalizedScore int                `json:"normalizedScore"`
	Label           string             `json:"label"`
	Confidence      int                `json:"confidence"`
	RiskLevel       string             `json:"riskLevel"`
	Canonical       canonicalLayersDTO `json:"canonical"`
	Layers          eightLayerDTO      `json:"layers"`
	Summary         string             `json:"summary"`
	MTFReason       string             `json:"mtfReason,omitempty"`
	AppliedTilt     float64            `json:"appliedTilt,omitempty"`
}

type symbolResultDTO struct {
	Symbol    string               `json:"symbol"`
	Label     string               `json:"label"`
	Result    *confluenceResultDTO `json:"result,omitempty"`
	Reason    string               `json:"reason,omitempty"`
	IsError   bool                 `json:"isError,omitempty"`
	FromCache bool                 `json:"fromCache"`
}

type statsDTO struct {
	TotalSymbols   int     `json:"totalSymbols"`
	BuyCount       int     `json:"buyCount"`
	SellCount      int     `json:"sellCount"`
	HoldCount      int     `json:"holdCount"`
	ErrorCount     int     `json:"errorCount"`
	AvgScore       float64 `json:"avgScore"`
	ProcessingTime int64   `json:"processingTimeMs"`
}

type runResponseDTO struct {
	RunID     string            `json:"runId"`
	Timestamp time.Time         `json:"timestamp"`
	Results   []symbolResultDTO `json:"results"`
	Stats     statsDTO          `json:"stats"`
}

type errorBody struct {
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
	Details    string `json:"details,omitempty"`
	RetryAfter int64  `json:"retryAfter,omitempty"`
	Tier       string `json:"tier,omitempty"`
}

type healthBody struct {
	OK        bool            `json:"ok"`
	TS        time.Time       `json:"ts"`
	Providers map[string]bool `json:"providers,omitempty"`
}

type supportedSymbolsBody struct {
	Symbols []string `json:"symbols"`
}
