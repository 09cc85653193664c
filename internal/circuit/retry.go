package circuit

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy is the exponential-backoff-with-jitter policy used for
// retry-able upstream failures (network errors, HTTP 5xx/408/429) before a
// failure is finally recorded against the breaker.
type RetryPolicy struct {
	MaxAttempts int
	Base        time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

// DefaultRetryPolicy matches the component-design defaults.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Base: 200 * time.Millisecond, Multiplier: 2.0, MaxDelay: 5 * time.Second}

// delay returns base*multiplier^attempt clamped to maxDelay, jittered by
// +/-50%. rnd is injected so tests can make the jitter deterministic.
func (p RetryPolicy) delay(attempt int, rnd *rand.Rand) time.Duration {
	raw := float64(p.Base) * math.Pow(p.Multiplier, float64(attempt))
	if raw > float64(p.MaxDelay) {
		raw = float64(p.MaxDelay)
	}
	jitter := 1 + (rnd.Float64()*2-1)*0.5 // in [0.5, 1.5]
	return time.Duration(raw * jitter)
}

// Retryable is implemented by errors that know whether they should count
// against a retry budget (e.g. market.UpstreamError).
type Retryable interface {
	Retryable() bool
}

// Retry runs fn up to policy.MaxAttempts times, backing off between
// attempts, stopping early on a non-retryable error or context
// cancellation. The last error (or result) is returned.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func() (T, error)) (T, error) {
	var zero T
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if r, ok := err.(Retryable); ok && !r.Retryable() {
			return zero, err
		}
		if attempt == policy.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(policy.delay(attempt, rnd)):
		}
	}
	return zero, lastErr
}
