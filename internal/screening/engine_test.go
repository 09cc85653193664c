package screening

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptoscreen/screenerd/internal/cache"
	"github.com/cryptoscreen/screenerd/internal/circuit"
	"github.com/cryptoscreen/screenerd/internal/market"
	"github.com/cryptoscreen/screenerd/internal/scoring"
	"github.com/cryptoscreen/screenerd/internal/signals"
)

func uptrendCandles(n int) []market.Candle {
	out := make([]market.Candle, n)
	price := 100.0
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		open := price
		price += 0.5
		close := price
		out[i] = market.Candle{
			OpenTime: base.Add(time.Duration(i) * time.Hour),
			Open:     open,
			High:     close + 0.2,
			Low:      open - 0.2,
			Close:    close,
			Volume:   10 + float64(i%5),
		}
	}
	return out
}

func newTestEngine(client market.Client, eventLog signals.EventLog) *Engine {
	breaker := circuit.New("test-fetch", circuit.DefaultConfig)
	resultCache := cache.New[scoring.ConfluenceResult](cache.DefaultConfig)
	runCache := cache.New[Response](cache.DefaultConfig)
	e := NewEngine(client, breaker, scoring.NewAggregator(scoring.DefaultWeights, scoring.DefaultThresholds),
		resultCache, runCache, eventLog, nil, nil, time.Minute)
	e.RetryPolicy = circuit.RetryPolicy{MaxAttempts: 1, Base: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond}
	return e
}

func TestRunScoresEachSymbolDeterministicOrder(t *testing.T) {
	client := market.NewFakeClient()
	client.Set("BTC-USD", uptrendCandles(60), market.Derivatives{})
	client.Set("ETH-USD", uptrendCandles(60), market.Derivatives{})

	e := newTestEngine(client, signals.NullEventLog{})
	resp, err := e.Run(context.Background(), Request{
		Symbols: []string{"BTC-USD", "ETH-USD"}, Timeframe: market.TF1h, Limit: 200,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "BTC-USD", resp.Results[0].Symbol)
	assert.Equal(t, "ETH-USD", resp.Results[1].Symbol)
	assert.Equal(t, 2, resp.Stats.TotalSymbols)
	assert.NotEmpty(t, resp.RunID)
}

func TestRunInsufficientDataYieldsHold(t *testing.T) {
	client := market.NewFakeClient()
	client.Set("NEW-USD", uptrendCandles(10), market.Derivatives{})

	e := newTestEngine(client, signals.NullEventLog{})
	resp, err := e.Run(context.Background(), Request{Symbols: []string{"NEW-USD"}, Timeframe: market.TF1h, Limit: 200})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, scoring.Hold, resp.Results[0].Label)
	assert.Equal(t, "insufficient data", resp.Results[0].Reason)
	assert.Nil(t, resp.Results[0].Result)
	assert.False(t, resp.Results[0].IsError)
}

type nonRetryableErr struct{ msg string }

func (e nonRetryableErr) Error() string    { return e.msg }
func (e nonRetryableErr) Retryable() bool { return false }

func TestRunUpstreamFailureIsErrorHold(t *testing.T) {
	client := market.NewFakeClient()
	client.SetFailure("BAD-USD", nonRetryableErr{"boom"})

	e := newTestEngine(client, signals.NullEventLog{})
	resp, err := e.Run(context.Background(), Request{Symbols: []string{"BAD-USD"}, Timeframe: market.TF1h, Limit: 200})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.True(t, resp.Results[0].IsError)
	assert.Equal(t, scoring.Hold, resp.Results[0].Label)
	assert.Equal(t, 1, resp.Stats.ErrorCount)
	assert.Equal(t, 0, resp.Stats.HoldCount)
}

func TestRunValidationErrorShortCircuits(t *testing.T) {
	client := market.NewFakeClient()
	e := newTestEngine(client, signals.NullEventLog{})
	_, err := e.Run(context.Background(), Request{Symbols: nil, Timeframe: market.TF1h, Limit: 200})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestRunCacheDedupSecondCallDoesNotRefetch(t *testing.T) {
	client := market.NewFakeClient()
	client.Set("BTC-USD", uptrendCandles(60), market.Derivatives{})
	e := newTestEngine(client, signals.NullEventLog{})
	req := Request{Symbols: []string{"BTC-USD"}, Timeframe: market.TF1h, Limit: 200}

	first, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Results[0].FromCache)

	second, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Results[0].FromCache)
	assert.Equal(t, first.Results[0].Result.NormalizedScore, second.Results[0].Result.NormalizedScore)
}

func TestRunCircuitOpensAfterRepeatedFailures(t *testing.T) {
	client := market.NewFakeClient()
	client.SetFailure("BAD-USD", errors.New("transient"))
	e := newTestEngine(client, signals.NullEventLog{})

	req := Request{Symbols: []string{"BAD-USD"}, Timeframe: market.TF1h, Limit: 200}
	for i := 0; i < int(circuit.DefaultConfig.FailureThreshold); i++ {
		_, err := e.Run(context.Background(), req)
		require.NoError(t, err)
	}
	resp, err := e.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "circuit open", resp.Results[0].Reason)
}

func TestFanoutConcurrencyBounds(t *testing.T) {
	assert.Equal(t, int64(4), fanoutConcurrency(2))
	assert.Equal(t, int64(10), fanoutConcurrency(20))
	assert.Equal(t, int64(16), fanoutConcurrency(100))
}
