package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"SCREENER_API_KEYS", "SCREENER_UPSTREAM_BASE_URL", "SCREENER_CACHE_TTL_SECONDS",
		"SCREENER_BUY_THRESHOLD", "SCREENER_SELL_THRESHOLD", "SCREENER_WEIGHT_SMC",
		"SCREENER_WEIGHT_INDICATORS", "SCREENER_WEIGHT_DERIVATIVES", "SCREENER_DATABASE_URL",
		"SCREENER_EVENT_LOGGING_ENABLED", "SCREENER_NOTIFIER_WEBHOOK_URL", "SCREENER_LOG_LEVEL",
		"SCREENER_TIMEZONE", "SCREENER_TRUSTED_PROXIES", "SCREENER_DEV_MODE", "SCREENER_HTTP_PORT",
		"SCREENER_REDIS_ADDR",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, cfg.CacheTTL)
	assert.Equal(t, 65, cfg.BuyThreshold)
	assert.Equal(t, 35, cfg.SellThreshold)
	assert.Equal(t, 1.0, cfg.Weights.SMC)
	assert.Equal(t, 0.6, cfg.Weights.Indicators)
	assert.Equal(t, 0.5, cfg.Weights.Derivatives)
	assert.False(t, cfg.EventLoggingEnabled)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadParsesRedisAddr(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCREENER_REDIS_ADDR", "localhost:6379")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadParsesAPIKeysCSV(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCREENER_API_KEYS", "key-a, key-b ,key-c")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"key-a", "key-b", "key-c"}, cfg.APIKeys)
}

func TestValidateRejectsBuyBelowSell(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCREENER_BUY_THRESHOLD", "30")
	t.Setenv("SCREENER_SELL_THRESHOLD", "40")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRejectsEventLoggingWithoutDatabase(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCREENER_EVENT_LOGGING_ENABLED", "true")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRejectsInvalidTimezone(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCREENER_TIMEZONE", "Not/AZone")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFileOverlaysWeightsAndThresholds(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	dir := t.TempDir()
	path := dir + "/screener.yaml"
	content := "buy_threshold: 70\nsell_threshold: 30\nweights:\n  smc: 2.0\n  indicators: 1.0\n  derivatives: 0.25\nsupported_symbols:\n  - BTC-USD\n  - ETH-USD\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	require.NoError(t, LoadFile(path, cfg))
	assert.Equal(t, 70, cfg.BuyThreshold)
	assert.Equal(t, 30, cfg.SellThreshold)
	assert.Equal(t, 2.0, cfg.Weights.SMC)
	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, cfg.SupportedSymbols)
}

func TestLoadFileMissingPathIsNoop(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	original := *cfg

	require.NoError(t, LoadFile("/nonexistent/path/screener.yaml", cfg))
	assert.Equal(t, original.BuyThreshold, cfg.BuyThreshold)
}
