package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptoscreen/screenerd/internal/admission"
	"github.com/cryptoscreen/screenerd/internal/cache"
	"github.com/cryptoscreen/screenerd/internal/circuit"
	"github.com/cryptoscreen/screenerd/internal/market"
	"github.com/cryptoscreen/screenerd/internal/scoring"
	"github.com/cryptoscreen/screenerd/internal/screening"
	"github.com/cryptoscreen/screenerd/internal/signals"
)

func upCandles(n int) []market.Candle {
	out := make([]market.Candle, n)
	price := 100.0
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		price += 0.3
		out[i] = market.Candle{OpenTime: base.Add(time.Duration(i) * time.Hour), Open: price - 0.3, High: price + 0.1, Low: price - 0.4, Close: price, Volume: 5}
	}
	return out
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	client := market.NewFakeClient()
	client.Set("BTC-USD", upCandles(60), market.Derivatives{})

	breakers := circuit.NewManager()
	breaker := breakers.AddProvider("test", circuit.DefaultConfig)
	resultCache := cache.New[scoring.ConfluenceResult](cache.DefaultConfig)
	runCache := cache.New[screening.Response](cache.DefaultConfig)
	engine := screening.NewEngine(client, breaker, scoring.NewAggregator(scoring.DefaultWeights, scoring.DefaultThresholds),
		resultCache, runCache, signals.NullEventLog{}, nil, nil, time.Minute)

	admissionLayer := admission.NewLayer(nil, true)
	t.Cleanup(admissionLayer.Stop)

	return NewServer(DefaultServerConfig(), engine, admissionLayer, nil, nil, breakers, []string{"test-key"}, []string{"BTC-USD"})
}

func TestHealthEndpointRequiresNoAuth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/screener/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body healthBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.OK)
	assert.True(t, body.Providers["test"])
}

func TestHealthEndpointReportsOpenBreakerAsUnhealthy(t *testing.T) {
	s := newTestServer(t)
	b := s.breakers.GetBreaker("test")
	require.NotNil(t, b)

	failing := func() (interface{}, error) { return nil, assert.AnError }
	for i := 0; i < int(circuit.DefaultConfig.FailureThreshold); i++ {
		_, _ = b.Execute(failing)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/screener/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body healthBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.OK)
	assert.False(t, body.Providers["test"])
}

func TestRunRequiresAPIKey(t *testing.T) {
	s := newTestServer(t)
	payload, _ := json.Marshal(runRequestBody{Symbols: []string{"BTC-USD"}, Timeframe: "1h", Limit: 200})
	req := httptest.NewRequest(http.MethodPost, "/api/screener/run", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRunSucceedsWithValidKey(t *testing.T) {
	s := newTestServer(t)
	payload, _ := json.Marshal(runRequestBody{Symbols: []string{"BTC-USD"}, Timeframe: "1h", Limit: 200})
	req := httptest.NewRequest(http.MethodPost, "/api/screener/run", bytes.NewReader(payload))
	req.Header.Set("X-API-Key", "test-key")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body runResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.RunID)
	assert.Len(t, body.Results, 1)
}

func TestRunValidationErrorOnBadTimeframe(t *testing.T) {
	s := newTestServer(t)
	payload, _ := json.Marshal(runRequestBody{Symbols: []string{"BTC-USD"}, Timeframe: "7h", Limit: 200})
	req := httptest.NewRequest(http.MethodPost, "/api/screener/run", bytes.NewReader(payload))
	req.Header.Set("X-API-Key", "test-key")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION_ERROR", body.Error)
}

func TestGetRunByIDRoundTrips(t *testing.T) {
	s := newTestServer(t)
	payload, _ := json.Marshal(runRequestBody{Symbols: []string{"BTC-USD"}, Timeframe: "1h", Limit: 200})
	req := httptest.NewRequest(http.MethodPost, "/api/screener/run", bytes.NewReader(payload))
	req.Header.Set("X-API-Key", "test-key")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var created runResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	getReq := httptest.NewRequest(http.MethodGet, "/api/screener/"+created.RunID, nil)
	getReq.Header.Set("X-API-Key", "test-key")
	getRec := httptest.NewRecorder()
	s.router.ServeHTTP(getRec, getReq)
	assert.Equal(t, http.StatusOK, getRec.Code)
}

func TestGetRunUnknownIDIs404(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/screener/does-not-exist", nil)
	req.Header.Set("X-API-Key", "test-key")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSupportedSymbolsEndpoint(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/screener/supported-symbols", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body supportedSymbolsBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Symbols, "BTC-USD")
}

func TestRateLimitHeadersArePresent(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/screener/supported-symbols", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("RateLimit-Limit"))
}
