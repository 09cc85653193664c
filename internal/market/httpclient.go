package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// HTTPClient fetches OHLC candles from a REST venue shaped like Kraken/
// Binance's public klines endpoint. It performs no admission control itself
// — callers are expected to front it with a circuit breaker and a rate
// limiter, the way internal/net/client wraps provider HTTP clients in the
// teacher repo.
type HTTPClient struct {
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
}

// NewHTTPClient builds a client against baseURL with sane request timeouts.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		UserAgent: "screenerd/1.0 (+confluence-screener)",
	}
}

// Fetch implements Client against the configured venue.
func (c *HTTPClient) Fetch(ctx context.Context, symbol string, timeframe Timeframe, limit int) ([]Candle, Derivatives, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", string(timeframe))
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/candles?"+q.Encode(), nil)
	if err != nil {
		return nil, Derivatives{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, Derivatives{}, fmt.Errorf("upstream fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, Derivatives{}, &UpstreamError{StatusCode: resp.StatusCode}
	}

	var body struct {
		Candles []struct {
			OpenTime int64   `json:"openTime"`
			Open     float64 `json:"open"`
			High     float64 `json:"high"`
			Low      float64 `json:"low"`
			Close    float64 `json:"close"`
			Volume   float64 `json:"volume"`
		} `json:"candles"`
		OpenInterestChangePct *float64 `json:"openInterestChangePct,omitempty"`
		FundingRate           *float64 `json:"fundingRate,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, Derivatives{}, fmt.Errorf("decode upstream body: %w", err)
	}

	candles := make([]Candle, 0, len(body.Candles))
	for _, row := range body.Candles {
		candles = append(candles, Candle{
			OpenTime: time.UnixMilli(row.OpenTime).UTC(),
			Open:     row.Open,
			High:     row.High,
			Low:      row.Low,
			Close:    row.Close,
			Volume:   row.Volume,
		})
	}

	log.Debug().Str("symbol", symbol).Str("timeframe", string(timeframe)).Int("count", len(candles)).Msg("market: fetched candles")

	return candles, Derivatives{
		OpenInterestChangePct: body.OpenInterestChangePct,
		FundingRate:           body.FundingRate,
	}, nil
}

// UpstreamError wraps a non-2xx HTTP status so breaker/retry classification
// can distinguish 5xx/408/429 (retry-able) from other 4xx (not).
type UpstreamError struct {
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}

// Retryable reports whether this failure should count against a circuit
// breaker / retry policy per spec: 5xx, 408, and 429 are retry-able; other
// 4xx are not.
func (e *UpstreamError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 408 || e.StatusCode == 429
}
