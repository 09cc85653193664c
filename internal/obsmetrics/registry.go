// Package obsmetrics holds the Prometheus metric definitions for the
// screening service: request latency, cache performance, circuit-breaker
// state, admission decisions, and confluence score distribution.
package obsmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every metric the service exposes on /metrics.
type Registry struct {
	ScreenDuration   *prometheus.HistogramVec
	ScreenRequests   *prometheus.CounterVec
	SymbolsScreened  prometheus.Counter
	InsufficientData *prometheus.CounterVec

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	UpstreamErrors  *prometheus.CounterVec
	CircuitState    *prometheus.GaugeVec
	RetryAttempts   *prometheus.CounterVec

	AdmissionRejections *prometheus.CounterVec
	IPBlocks            prometheus.Counter

	ConfluenceScore *prometheus.HistogramVec

	registerer prometheus.Registerer
}

// New builds and registers a Registry against reg. Pass
// prometheus.DefaultRegisterer unless tests need isolation.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		ScreenDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "screener_run_duration_seconds",
				Help:    "Duration of a screener run request, end to end.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
			},
			[]string{"result"},
		),
		ScreenRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screener_run_requests_total",
				Help: "Total number of screener run requests by outcome.",
			},
			[]string{"result"},
		),
		SymbolsScreened: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "screener_symbols_screened_total",
				Help: "Total number of symbol evaluations performed.",
			},
		),
		InsufficientData: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screener_insufficient_data_total",
				Help: "Total number of symbols that resolved to HOLD due to insufficient candle history.",
			},
			[]string{"symbol"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screener_cache_hits_total",
				Help: "Total cache hits by cache tier.",
			},
			[]string{"tier"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screener_cache_misses_total",
				Help: "Total cache misses by cache tier.",
			},
			[]string{"tier"},
		),
		UpstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screener_upstream_errors_total",
				Help: "Total upstream market data errors by provider and class.",
			},
			[]string{"provider", "class"},
		),
		CircuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "screener_circuit_state",
				Help: "Circuit breaker state per provider (0=closed, 1=half-open, 2=open).",
			},
			[]string{"provider"},
		),
		RetryAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screener_retry_attempts_total",
				Help: "Total retry attempts by provider.",
			},
			[]string{"provider"},
		),
		AdmissionRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screener_admission_rejections_total",
				Help: "Total requests rejected by the admission layer, by reason.",
			},
			[]string{"reason", "tier"},
		),
		IPBlocks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "screener_ip_blocks_total",
				Help: "Total number of IPs auto-blocked for repeated violations.",
			},
		),
		ConfluenceScore: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "screener_confluence_score",
				Help:    "Distribution of normalized confluence scores produced.",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
			[]string{"label"},
		),
		registerer: reg,
	}

	reg.MustRegister(
		r.ScreenDuration, r.ScreenRequests, r.SymbolsScreened, r.InsufficientData,
		r.CacheHits, r.CacheMisses,
		r.UpstreamErrors, r.CircuitState, r.RetryAttempts,
		r.AdmissionRejections, r.IPBlocks,
		r.ConfluenceScore,
	)

	return r
}

// Handler returns the promhttp handler serving this registry's metrics
// when reg is also a prometheus.Gatherer (as DefaultRegisterer is), or the
// default global handler otherwise.
func (r *Registry) Handler() http.Handler {
	if gatherer, ok := r.registerer.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

// CircuitStateValue maps a circuit.State string to the gauge's numeric encoding.
func CircuitStateValue(state string) float64 {
	switch state {
	case "closed":
		return 0
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return -1
	}
}
