package admission

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyTier(t *testing.T) {
	assert.Equal(t, TierConfluenceScreening, ClassifyTier("/api/screener/run"))
	assert.Equal(t, TierConfluenceScreening, ClassifyTier("/api/screener/multi"))
	assert.Equal(t, TierAIAnalysis, ClassifyTier("/api/screener/supported-symbols"))
	assert.Equal(t, TierSensitive, ClassifyTier("/api/orderbook/depth"))
	assert.Equal(t, TierAuth, ClassifyTier("/api/auth/login"))
	assert.Equal(t, TierGeneral, ClassifyTier("/api/anything-else"))
}

func TestIsExempt(t *testing.T) {
	assert.True(t, IsExempt("/health"))
	assert.True(t, IsExempt("/metrics"))
	assert.False(t, IsExempt("/api/screener/run"))
}

func TestValidSymbol(t *testing.T) {
	assert.True(t, ValidSymbol("BTC-USDT"))
	assert.True(t, ValidSymbol("SOL/USDC"))
	assert.False(t, ValidSymbol("this-symbol-is-way-too-long-to-be-valid"))
	assert.False(t, ValidSymbol("bad;symbol"))
}

func TestValidateParamCatchesSQLi(t *testing.T) {
	assert.Equal(t, FailureSQLSignature, ValidateParam("1' OR '1'='1"))
}

func TestValidateParamCatchesXSS(t *testing.T) {
	assert.Equal(t, FailureXSSSignature, ValidateParam("<script>alert(1)</script>"))
}

func TestValidateParamTooLong(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'a'
	}
	assert.Equal(t, FailureTooLong, ValidateParam(string(long)))
}

func TestMaskIPv4(t *testing.T) {
	assert.Equal(t, "xx.xx.3.4", MaskIP("1.2.3.4"))
}

func TestViolationTrackerBlocksAtThreshold(t *testing.T) {
	tracker := NewViolationTracker()
	defer tracker.Stop()

	var tripped bool
	for i := 0; i < rateLimitHitsThreshold; i++ {
		tripped = tracker.RecordRateLimitHit("9.9.9.9")
	}
	assert.True(t, tripped)

	_, blocked := tracker.IsBlocked("9.9.9.9")
	assert.True(t, blocked)
}

func TestViolationTrackerNotBlockedBelowThreshold(t *testing.T) {
	tracker := NewViolationTracker()
	defer tracker.Stop()
	tracker.RecordRateLimitHit("8.8.8.8")
	_, blocked := tracker.IsBlocked("8.8.8.8")
	assert.False(t, blocked)
}

func TestLayerAdmitCountWithinLimitPlusOne(t *testing.T) {
	layer := NewLayer(nil, true)
	defer layer.Stop()

	req := httptest.NewRequest(http.MethodPost, "/api/screener/run", nil)
	req.RemoteAddr = "203.0.113.5:12345"

	allowed := 0
	var rejectedAt = -1
	for i := 0; i < 6; i++ {
		d := layer.Admit(req)
		if d.Allowed {
			allowed++
		} else if rejectedAt == -1 {
			rejectedAt = i
		}
	}
	limit := TierLimits[TierConfluenceScreening].Limit
	assert.LessOrEqual(t, allowed, limit+1)
	require.GreaterOrEqual(t, rejectedAt, 0)
}

func TestLayerAdmitExemptsLoopback(t *testing.T) {
	layer := NewLayer(nil, false)
	defer layer.Stop()

	req := httptest.NewRequest(http.MethodPost, "/api/screener/run", nil)
	req.RemoteAddr = "127.0.0.1:12345"

	for i := 0; i < 10; i++ {
		d := layer.Admit(req)
		assert.True(t, d.Allowed)
	}
}

func TestLayerAdmitExemptPath(t *testing.T) {
	layer := NewLayer(nil, false)
	defer layer.Stop()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "203.0.113.9:1"
	d := layer.Admit(req)
	assert.True(t, d.Allowed)
}

func TestResolveClientIPTrustsProxyOnlyWhenConfigured(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.99")

	untrusted := ResolveClientIP(req, nil)
	assert.Equal(t, "10.0.0.1", untrusted)

	trusted := ResolveClientIP(req, []string{"10.0.0.1"})
	assert.Equal(t, "203.0.113.99", trusted)
}

func TestDecayWindowConstants(t *testing.T) {
	assert.Equal(t, 15*time.Minute, decayWindow)
	assert.Equal(t, 30*time.Minute, blockDuration)
}
