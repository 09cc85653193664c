// Package circuit fronts the market-data client (and other outbound
// sub-services) with a closed/open/half-open circuit breaker built on
// sony/gobreaker, translating its sentinel errors into ErrCircuitOpen and
// adding the retry/backoff policy the component design calls for.
package circuit

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned by Execute when the breaker is open or the
// half-open probe budget is exhausted.
var ErrCircuitOpen = errors.New("circuit open")

// Config tunes one Breaker instance.
type Config struct {
	FailureThreshold uint32        // consecutive failures that trip closed -> open
	ResetTimeout     time.Duration // time open before a half-open probe is admitted
	HalfOpenMaxCalls uint32        // concurrent probes admitted while half-open
}

// DefaultConfig matches the component-design defaults: 5 consecutive
// failures trips the breaker, up to 3 half-open probes are admitted, and
// 3 consecutive successful probes close it (both via gobreaker's MaxRequests).
var DefaultConfig = Config{FailureThreshold: 5, ResetTimeout: 30 * time.Second, HalfOpenMaxCalls: 3}

// Breaker wraps a gobreaker.CircuitBreaker. Successive successes in
// half-open close it once HalfOpenMaxCalls probes have all succeeded; any
// half-open failure reopens it immediately — both handled internally by
// gobreaker's state machine.
type Breaker struct {
	cb   *gobreaker.CircuitBreaker
	name string
}

// New builds a named Breaker. name is surfaced in Stats; no state-change
// hook is installed.
func New(name string, cfg Config) *Breaker {
	if cfg.FailureThreshold == 0 {
		cfg = DefaultConfig
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenMaxCalls,
		Interval:    0,
		Timeout:     cfg.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings), name: name}
}

// Execute runs fn iff admission is allowed. A rejected call returns
// ErrCircuitOpen without invoking fn.
func (b *Breaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}
	return result, nil
}

// State reports the breaker's current state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Name returns the breaker's identifier.
func (b *Breaker) Name() string {
	return b.name
}

// Counts exposes gobreaker's rolling counters for metrics/diagnostics.
func (b *Breaker) Counts() gobreaker.Counts {
	return b.cb.Counts()
}

// ExecuteTyped runs a typed operation through a Breaker. Go methods cannot
// carry their own type parameters, so this is a free function rather than
// a Breaker method.
func ExecuteTyped[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	raw, err := b.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return zero, err
	}
	return raw.(T), nil
}

// InterceptHTTPStatus classifies an HTTP status code for a breaker fronting
// an HTTP response path: 200-399 is success, >=500 is failure, other 4xx
// (besides 429) is neither and should not be reported to the breaker at
// all — callers check the bool before recording.
func InterceptHTTPStatus(status int) (success bool, counts bool) {
	switch {
	case status >= 200 && status < 400:
		return true, true
	case status >= 500, status == 429:
		return false, true
	default:
		return false, false
	}
}
