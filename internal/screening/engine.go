package screening

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/cryptoscreen/screenerd/internal/cache"
	"github.com/cryptoscreen/screenerd/internal/circuit"
	"github.com/cryptoscreen/screenerd/internal/market"
	"github.com/cryptoscreen/screenerd/internal/obsmetrics"
	"github.com/cryptoscreen/screenerd/internal/scoring"
	"github.com/cryptoscreen/screenerd/internal/signals"
)

const (
	maxFanoutConcurrency = 16
	rulesVersion         = "confluence-v1"
	defaultSignalRR      = 1.5
	defaultSignalExpiry  = 60 // minutes
)

// MTFProvider supplies the optional multi-timeframe tilt for a symbol.
// Nil is a valid Engine field meaning the MTF extension is disabled.
type MTFProvider interface {
	Bias(ctx context.Context, symbol string, tf market.Timeframe) (*scoring.MTFInput, error)
}

// Engine is the ScreeningEngine: fetch -> indicators -> layer scores ->
// aggregate, with per-symbol circuit breaking, retry, and result cache
// dedup, fanned out with bounded concurrency.
type Engine struct {
	Client      market.Client
	Breaker     *circuit.Breaker
	RetryPolicy circuit.RetryPolicy
	Aggregator  *scoring.Aggregator
	ResultCache cache.TypedCache[scoring.ConfluenceResult]
	RunCache    cache.TypedCache[Response]
	EventLog    signals.EventLog
	Metrics     *obsmetrics.Registry
	MTF         MTFProvider
	CacheTTL    time.Duration
}

// NewEngine wires an Engine from its dependencies, defaulting CacheTTL to
// 20s when zero.
func NewEngine(client market.Client, breaker *circuit.Breaker, agg *scoring.Aggregator,
	resultCache cache.TypedCache[scoring.ConfluenceResult], runCache cache.TypedCache[Response],
	eventLog signals.EventLog, metrics *obsmetrics.Registry, mtf MTFProvider, cacheTTL time.Duration) *Engine {
	if cacheTTL <= 0 {
		cacheTTL = 20 * time.Second
	}
	return &Engine{
		Client:      client,
		Breaker:     breaker,
		RetryPolicy: circuit.DefaultRetryPolicy,
		Aggregator:  agg,
		ResultCache: resultCache,
		RunCache:    runCache,
		EventLog:    eventLog,
		Metrics:     metrics,
		MTF:         mtf,
		CacheTTL:    cacheTTL,
	}
}

// fanoutConcurrency computes min(max(4, symbols*0.5), 16).
func fanoutConcurrency(symbols int) int64 {
	n := int64(math.Max(4, float64(symbols)*0.5))
	if n > maxFanoutConcurrency {
		n = maxFanoutConcurrency
	}
	return n
}

// Run executes one ScreenerRequest: validate, dedup via cache, bounded
// concurrent fan-out, per-symbol circuit-protected fetch and scoring,
// then response assembly with deterministic ordering matching
// req.Symbols.
func (e *Engine) Run(ctx context.Context, req Request) (Response, error) {
	if err := req.Validate(); err != nil {
		return Response{}, validationError{err}
	}

	start := time.Now()
	results := make([]SymbolResult, len(req.Symbols))

	sem := semaphore.NewWeighted(fanoutConcurrency(len(req.Symbols)))
	var wg sync.WaitGroup
	for i, symbol := range req.Symbols {
		i, symbol := i, symbol
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = SymbolResult{Symbol: symbol, Label: scoring.Hold, Reason: "request cancelled", IsError: true}
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = e.runOne(ctx, symbol, req.Timeframe, req.Limit)
		}()
	}
	wg.Wait()

	resp := Response{
		RunID:     uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Results:   results,
		Stats:     computeStats(results, time.Since(start)),
	}

	if e.RunCache != nil {
		e.RunCache.Set(resp.RunID, resp, e.CacheTTL)
	}
	if e.Metrics != nil {
		outcome := "success"
		if resp.Stats.ErrorCount == len(req.Symbols) && len(req.Symbols) > 0 {
			outcome = "all_errors"
		}
		e.Metrics.ScreenRequests.WithLabelValues(outcome).Inc()
		e.Metrics.ScreenDuration.WithLabelValues(outcome).Observe(resp.Stats.ProcessingTime.Seconds())
		e.Metrics.SymbolsScreened.Add(float64(len(req.Symbols)))
	}

	return resp, nil
}

func (e *Engine) runOne(ctx context.Context, symbol string, tf market.Timeframe, limit int) SymbolResult {
	key := cacheKey(symbol, tf, limit)

	if e.ResultCache != nil {
		if cached, ok := e.ResultCache.Get(key); ok {
			if e.Metrics != nil {
				e.Metrics.CacheHits.WithLabelValues("symbol").Inc()
			}
			label := cached.Label
			result := cached
			return SymbolResult{Symbol: symbol, Label: label, Result: &result, FromCache: true}
		}
		if e.Metrics != nil {
			e.Metrics.CacheMisses.WithLabelValues("symbol").Inc()
		}
	}

	candles, deriv, err := e.fetch(ctx, symbol, tf, limit)
	if err != nil {
		if e.Metrics != nil {
			e.Metrics.UpstreamErrors.WithLabelValues("market_data", classifyFetchError(err)).Inc()
		}
		return SymbolResult{Symbol: symbol, Label: scoring.Hold, Reason: err.Error(), IsError: true}
	}

	inputs, ok := buildInputs(candles, deriv)
	if !ok {
		return SymbolResult{Symbol: symbol, Label: scoring.Hold, Reason: "insufficient data"}
	}

	var mtf *scoring.MTFInput
	if e.MTF != nil {
		if m, err := e.MTF.Bias(ctx, symbol, tf); err == nil {
			mtf = m
		}
	}

	result := e.Aggregator.Aggregate(inputs, mtf)

	if e.ResultCache != nil {
		e.ResultCache.Set(key, result, e.CacheTTL)
	}
	if e.Metrics != nil {
		e.Metrics.ConfluenceScore.WithLabelValues(string(result.Label)).Observe(float64(result.NormalizedScore))
	}

	e.emitSignal(ctx, symbol, result)

	return SymbolResult{Symbol: symbol, Label: result.Label, Result: &result}
}

// fetch runs MarketDataClient.fetch through the circuit breaker and the
// retry policy, in that order: retry absorbs transient failures before a
// failure is finally recorded against the breaker.
func (e *Engine) fetch(ctx context.Context, symbol string, tf market.Timeframe, limit int) ([]market.Candle, market.Derivatives, error) {
	type fetchResult struct {
		candles []market.Candle
		deriv   market.Derivatives
	}

	res, err := circuit.ExecuteTyped(e.Breaker, func() (fetchResult, error) {
		r, err := circuit.Retry(ctx, e.RetryPolicy, func() (fetchResult, error) {
			candles, deriv, err := e.Client.Fetch(ctx, symbol, tf, limit)
			return fetchResult{candles: candles, deriv: deriv}, err
		})
		return r, err
	})
	return res.candles, res.deriv, err
}

func classifyFetchError(err error) string {
	if err == circuit.ErrCircuitOpen {
		return "circuit_open"
	}
	return "upstream"
}

// emitSignal logs a Published event for non-HOLD labels. Errors are the
// EventLog implementation's responsibility to swallow.
func (e *Engine) emitSignal(ctx context.Context, symbol string, result scoring.ConfluenceResult) {
	if e.EventLog == nil || result.Label == scoring.Hold {
		return
	}
	side := signals.Long
	if result.Label == scoring.Sell {
		side = signals.Short
	}
	_ = e.EventLog.Publish(ctx, signals.Published{
		SignalID:        uuid.New().String(),
		Symbol:          symbol,
		Side:            side,
		ConfluenceScore: float64(result.NormalizedScore) / 100.0,
		RRTarget:        defaultSignalRR,
		ExpiryMinutes:   defaultSignalExpiry,
		RulesVersion:    rulesVersion,
		TSPublished:     time.Now().UTC(),
	})
}

func computeStats(results []SymbolResult, elapsed time.Duration) Stats {
	stats := Stats{TotalSymbols: len(results), ProcessingTime: elapsed}
	var scoreSum float64
	var scoredCount int
	for _, r := range results {
		if r.IsError {
			stats.ErrorCount++
			continue
		}
		switch r.Label {
		case scoring.Buy:
			stats.BuyCount++
		case scoring.Sell:
			stats.SellCount++
		default:
			stats.HoldCount++
		}
		if r.Result != nil {
			scoreSum += float64(r.Result.NormalizedScore)
			scoredCount++
		}
	}
	if scoredCount > 0 {
		stats.AvgScore = scoreSum / float64(scoredCount)
	}
	return stats
}

// validationError marks a Request.Validate failure so callers (httpapi)
// can map it to VALIDATION_ERROR without inspecting error text.
type validationError struct{ err error }

func (v validationError) Error() string { return v.err.Error() }
func (v validationError) Unwrap() error { return v.err }

// IsValidationError reports whether err originated from Request.Validate.
func IsValidationError(err error) bool {
	_, ok := err.(validationError)
	return ok
}
