package market

import (
	"context"
	"fmt"
)

// FakeClient is a deterministic in-memory Client for tests. Series is keyed
// by symbol; Fetch returns the last limit candles of the configured series
// unmodified, and the configured derivatives snapshot (if any) for that
// symbol. FailWith, if set for a symbol, is returned instead of data.
type FakeClient struct {
	Series      map[string][]Candle
	Derivatives map[string]Derivatives
	FailWith    map[string]error
}

// NewFakeClient returns an empty FakeClient ready for Set calls.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		Series:      make(map[string][]Candle),
		Derivatives: make(map[string]Derivatives),
		FailWith:    make(map[string]error),
	}
}

// Set registers the candle series and derivatives snapshot for a symbol.
func (f *FakeClient) Set(symbol string, candles []Candle, deriv Derivatives) {
	f.Series[symbol] = candles
	f.Derivatives[symbol] = deriv
}

// SetFailure forces Fetch to return err for symbol.
func (f *FakeClient) SetFailure(symbol string, err error) {
	f.FailWith[symbol] = err
}

// Fetch implements Client.
func (f *FakeClient) Fetch(ctx context.Context, symbol string, timeframe Timeframe, limit int) ([]Candle, Derivatives, error) {
	if err := ctx.Err(); err != nil {
		return nil, Derivatives{}, err
	}
	if err, ok := f.FailWith[symbol]; ok {
		return nil, Derivatives{}, err
	}
	series, ok := f.Series[symbol]
	if !ok {
		return nil, Derivatives{}, fmt.Errorf("fake client: no series configured for %s", symbol)
	}
	if limit > 0 && limit < len(series) {
		series = series[len(series)-limit:]
	}
	out := make([]Candle, len(series))
	copy(out, series)
	return out, f.Derivatives[symbol], nil
}
