// Package config loads the screening service's configuration from
// environment variables, following the "everything operational is an
// env var, everything structural is a flag" split used across the rest
// of the platform.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the fully resolved, validated runtime configuration.
type Config struct {
	// APIKeys authorize POST /api/screener/* via X-API-Key.
	APIKeys []string

	// UpstreamBaseURL is the market data provider's REST base URL.
	UpstreamBaseURL string

	// CacheTTL is the default screener result cache TTL.
	CacheTTL time.Duration

	// BuyThreshold / SellThreshold gate the ConfluenceAggregator label.
	BuyThreshold  int
	SellThreshold int

	// Weights are the canonical three-layer aggregation weights.
	Weights Weights

	// DatabaseURL, if set, enables the Postgres-backed signal event log
	// and weekly scorecard. Empty means NullEventLog / no scorecard.
	DatabaseURL string

	// EventLoggingEnabled gates signal lifecycle persistence even when
	// DatabaseURL is set, per the feature-flag requirement.
	EventLoggingEnabled bool

	// NotifierWebhookURL, if set, routes alerts/scorecard notifications
	// to a webhook instead of the log-only notifier.
	NotifierWebhookURL string

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string

	// Timezone is the configured process timezone name. Validate checks
	// that it loads as an IANA zone; nothing else reads it (the scorecard
	// pins Asia/Jakarta, and log timestamps are not converted to it).
	Timezone string

	// TrustedProxies is the set of IPs/CIDRs allowed to set
	// X-Forwarded-For / X-Real-IP for client IP resolution.
	TrustedProxies []string

	// DevMode relaxes admission exemptions for private-network callers.
	DevMode bool

	// HTTPPort is the listen port for the HTTP API.
	HTTPPort int

	// SupportedSymbols is the fixed catalog served by GET
	// /api/screener/supported-symbols.
	SupportedSymbols []string

	// RedisAddr, if set, backs the result/run caches with a shared Redis
	// instance instead of the in-process SmartCache — opt-in so a single
	// screenerd instance needs nothing beyond the default config.
	RedisAddr string
}

// Weights holds the canonical aggregation weights, overridable per
// deployment but defaulting to the values in the scoring package.
type Weights struct {
	SMC         float64 `yaml:"smc"`
	Indicators  float64 `yaml:"indicators"`
	Derivatives float64 `yaml:"derivatives"`
}

// Load resolves Config from the process environment, applying defaults
// for anything unset and validating the result.
func Load() (*Config, error) {
	cfg := &Config{
		APIKeys:         splitCSV(os.Getenv("SCREENER_API_KEYS")),
		UpstreamBaseURL: getEnvDefault("SCREENER_UPSTREAM_BASE_URL", "https://api.binance.com"),
		LogLevel:        getEnvDefault("SCREENER_LOG_LEVEL", "info"),
		Timezone:        getEnvDefault("SCREENER_TIMEZONE", "UTC"),
		DatabaseURL:     os.Getenv("SCREENER_DATABASE_URL"),
		NotifierWebhookURL: os.Getenv("SCREENER_NOTIFIER_WEBHOOK_URL"),
		TrustedProxies:  splitCSV(os.Getenv("SCREENER_TRUSTED_PROXIES")),
		RedisAddr:       os.Getenv("SCREENER_REDIS_ADDR"),
	}
	cfg.SupportedSymbols = splitCSV(getEnvDefault("SCREENER_SUPPORTED_SYMBOLS",
		"BTC-USD,ETH-USD,SOL-USD,BNB-USD,XRP-USD,ADA-USD,DOGE-USD,AVAX-USD,LINK-USD,DOT-USD"))

	var err error
	if cfg.CacheTTL, err = getEnvDurationSeconds("SCREENER_CACHE_TTL_SECONDS", 20*time.Second); err != nil {
		return nil, err
	}
	if cfg.BuyThreshold, err = getEnvInt("SCREENER_BUY_THRESHOLD", 65); err != nil {
		return nil, err
	}
	if cfg.SellThreshold, err = getEnvInt("SCREENER_SELL_THRESHOLD", 35); err != nil {
		return nil, err
	}
	if cfg.Weights.SMC, err = getEnvFloat("SCREENER_WEIGHT_SMC", 1.0); err != nil {
		return nil, err
	}
	if cfg.Weights.Indicators, err = getEnvFloat("SCREENER_WEIGHT_INDICATORS", 0.6); err != nil {
		return nil, err
	}
	if cfg.Weights.Derivatives, err = getEnvFloat("SCREENER_WEIGHT_DERIVATIVES", 0.5); err != nil {
		return nil, err
	}
	if cfg.HTTPPort, err = getEnvInt("SCREENER_HTTP_PORT", 8090); err != nil {
		return nil, err
	}
	if cfg.EventLoggingEnabled, err = getEnvBool("SCREENER_EVENT_LOGGING_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.DevMode, err = getEnvBool("SCREENER_DEV_MODE", false); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// yamlOverlay is the optional file-based override of the weights/
// thresholds/cache-ttl/supported-symbols fields, following the same
// "defaults, then env, then an optional deployment file" layering the
// teacher's own provider config uses — here the file is the last,
// most-specific layer instead of the first.
type yamlOverlay struct {
	BuyThreshold     *int      `yaml:"buy_threshold"`
	SellThreshold    *int      `yaml:"sell_threshold"`
	CacheTTLSeconds  *int      `yaml:"cache_ttl_seconds"`
	SupportedSymbols []string  `yaml:"supported_symbols"`
	Weights          *Weights  `yaml:"weights"`
}

// LoadFile applies an optional YAML overlay on top of an already-loaded
// Config, re-validating the result. Fields absent from the file are left
// untouched. A missing path is not an error — the overlay is optional.
func LoadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var overlay yamlOverlay
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if overlay.BuyThreshold != nil {
		cfg.BuyThreshold = *overlay.BuyThreshold
	}
	if overlay.SellThreshold != nil {
		cfg.SellThreshold = *overlay.SellThreshold
	}
	if overlay.CacheTTLSeconds != nil {
		cfg.CacheTTL = time.Duration(*overlay.CacheTTLSeconds) * time.Second
	}
	if len(overlay.SupportedSymbols) > 0 {
		cfg.SupportedSymbols = overlay.SupportedSymbols
	}
	if overlay.Weights != nil {
		cfg.Weights = *overlay.Weights
	}

	return cfg.Validate()
}

// Validate checks internal consistency of a resolved Config.
func (c *Config) Validate() error {
	if c.UpstreamBaseURL == "" {
		return fmt.Errorf("upstream base url cannot be empty")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", c.CacheTTL)
	}
	if c.BuyThreshold <= c.SellThreshold {
		return fmt.Errorf("buy threshold (%d) must be greater than sell threshold (%d)", c.BuyThreshold, c.SellThreshold)
	}
	if c.BuyThreshold < 0 || c.BuyThreshold > 100 || c.SellThreshold < 0 || c.SellThreshold > 100 {
		return fmt.Errorf("thresholds must be within [0,100]")
	}
	if c.Weights.SMC < 0 || c.Weights.Indicators < 0 || c.Weights.Derivatives < 0 {
		return fmt.Errorf("layer weights cannot be negative")
	}
	if c.EventLoggingEnabled && c.DatabaseURL == "" {
		return fmt.Errorf("event logging enabled but no database url configured")
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http port out of range: %d", c.HTTPPort)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid float %q: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: invalid bool %q: %w", key, v, err)
	}
	return b, nil
}

func getEnvDurationSeconds(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer seconds %q: %w", key, v, err)
	}
	return time.Duration(secs) * time.Second, nil
}
