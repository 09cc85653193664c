// Command screenerd runs the multi-symbol confluence screening service:
// an HTTP API backed by a bounded-concurrency scoring pipeline, plus a
// scorecard subcommand for the weekly calibration report.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cryptoscreen/screenerd/internal/admission"
	"github.com/cryptoscreen/screenerd/internal/alerts"
	"github.com/cryptoscreen/screenerd/internal/cache"
	"github.com/cryptoscreen/screenerd/internal/circuit"
	"github.com/cryptoscreen/screenerd/internal/config"
	"github.com/cryptoscreen/screenerd/internal/httpapi"
	screenlog "github.com/cryptoscreen/screenerd/internal/log"
	"github.com/cryptoscreen/screenerd/internal/market"
	"github.com/cryptoscreen/screenerd/internal/notify"
	"github.com/cryptoscreen/screenerd/internal/obsmetrics"
	"github.com/cryptoscreen/screenerd/internal/scorecard"
	"github.com/cryptoscreen/screenerd/internal/scoring"
	"github.com/cryptoscreen/screenerd/internal/screening"
	"github.com/cryptoscreen/screenerd/internal/signals"
	signalspg "github.com/cryptoscreen/screenerd/internal/signals/postgres"
)

const (
	appName = "screenerd"
	version = "v0.1.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Multi-symbol confluence screening service",
		Version: version,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP screening API",
		RunE:  runServe,
	}
	serveCmd.Flags().String("config", "", "Optional YAML file overlaying weights/thresholds/cache-ttl/supported-symbols")

	scorecardCmd := &cobra.Command{
		Use:   "scorecard",
		Short: "Weekly calibration scorecard commands",
	}
	scorecardRunCmd := &cobra.Command{
		Use:   "run",
		Short: "Compute and persist the scorecard for a week",
		RunE:  runScorecardOnce,
	}
	scorecardRunCmd.Flags().String("week", "", "Week start date (YYYY-MM-DD, Asia/Jakarta); defaults to the current week")
	scorecardRunCmd.Flags().String("config", "", "Optional YAML file overlaying weights/thresholds/cache-ttl/supported-symbols")
	scorecardCmd.AddCommand(scorecardRunCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations",
		RunE:  runMigrate,
	}

	rootCmd.AddCommand(serveCmd, scorecardCmd, migrateCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("screenerd: fatal")
		os.Exit(1)
	}
}

// bootstrap is the set of components shared by every subcommand that
// touches the scoring pipeline.
type bootstrap struct {
	cfg       *config.Config
	db        *sqlx.DB
	eventLog  signals.EventLog
	notifier  notify.Notifier
	metrics   *obsmetrics.Registry
}

func newBootstrap(configPath string) (*bootstrap, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if configPath != "" {
		if err := config.LoadFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}
	screenlog.Setup(cfg.LogLevel, cfg.DevMode)

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.NotifierWebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.NotifierWebhookURL)
	}

	b := &bootstrap{cfg: cfg, notifier: notifier, metrics: obsmetrics.New(prometheus.DefaultRegisterer)}

	var eventLog signals.EventLog = signals.NullEventLog{}
	if cfg.EventLoggingEnabled && cfg.DatabaseURL != "" {
		sqlDB, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		b.db = sqlx.NewDb(sqlDB, "postgres")
		eventLog = signalspg.Guard(signalspg.New(b.db, 5*time.Second))
	}
	b.eventLog = eventLog

	return b, nil
}

// newCaches builds the result/run caches, switching to a Redis-backed
// DistributedSmartCache when cfg.RedisAddr is set so multiple screenerd
// instances behind a load balancer share dedup/result state instead of
// each keeping its own in-process LRU.
func newCaches(cfg *config.Config) (cache.TypedCache[scoring.ConfluenceResult], cache.TypedCache[screening.Response]) {
	if cfg.RedisAddr == "" {
		return cache.New[scoring.ConfluenceResult](cache.DefaultConfig), cache.New[screening.Response](cache.DefaultConfig)
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("screenerd: using redis-backed distributed cache")
	backend := cache.NewRedisCache(cfg.RedisAddr)
	return cache.NewDistributedSmartCache[scoring.ConfluenceResult](backend), cache.NewDistributedSmartCache[screening.Response](backend)
}

func (b *bootstrap) close() {
	if b.db != nil {
		_ = b.db.Close()
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	b, err := newBootstrap(configPath)
	if err != nil {
		return err
	}
	defer b.close()
	cfg := b.cfg

	client := market.NewHTTPClient(cfg.UpstreamBaseURL)
	breakers := circuit.NewManager()
	breaker := breakers.AddProvider("market_data", circuit.DefaultConfig)
	aggregator := scoring.NewAggregator(
		scoring.Weights{SMC: cfg.Weights.SMC, Indicators: cfg.Weights.Indicators, Derivatives: cfg.Weights.Derivatives},
		scoring.Thresholds{Buy: cfg.BuyThreshold, Sell: cfg.SellThreshold},
	)
	resultCache, runCache := newCaches(cfg)

	engine := screening.NewEngine(client, breaker, aggregator, resultCache, runCache, b.eventLog, b.metrics, nil, cfg.CacheTTL)

	admissionLayer := admission.NewLayer(cfg.TrustedProxies, cfg.DevMode)
	defer admissionLayer.Stop()

	alerter := alerts.New(b.notifier, envName(cfg))

	serverCfg := httpapi.DefaultServerConfig()
	serverCfg.Port = cfg.HTTPPort
	server := httpapi.NewServer(serverCfg, engine, admissionLayer, alerter, b.metrics, breakers, cfg.APIKeys, cfg.SupportedSymbols)

	stopScorecard := make(chan struct{})
	if b.db != nil {
		go runScorecardScheduler(b, stopScorecard)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("screenerd: shutdown signal received")
	case err := <-serverErr:
		close(stopScorecard)
		return fmt.Errorf("server error: %w", err)
	}
	close(stopScorecard)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("screenerd: shutdown error")
		return err
	}
	log.Info().Msg("screenerd: shutdown complete")
	return nil
}

// runScorecardScheduler fires the weekly scorecard once per day at the
// same wall-clock tick, relying on Generate's idempotent upsert to make
// redundant runs within a week harmless.
func runScorecardScheduler(b *bootstrap, stop <-chan struct{}) {
	repo := signalspg.NewScorecardRepo(signalspg.New(b.db, 5*time.Second))
	adapter := signalspg.NewScorecardAdapter(repo)
	gen := scorecard.New(adapter, adapter, b.notifier)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			weekStart := scorecard.CurrentWeekStart(time.Now())
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			_, err := gen.Generate(ctx, weekStart)
			cancel()
			if err != nil {
				log.Error().Err(err).Msg("screenerd: scheduled scorecard generation failed")
			}
		}
	}
}

func runScorecardOnce(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	b, err := newBootstrap(configPath)
	if err != nil {
		return err
	}
	defer b.close()
	if b.db == nil {
		return fmt.Errorf("scorecard run requires SCREENER_DATABASE_URL and SCREENER_EVENT_LOGGING_ENABLED=true")
	}

	weekFlag, _ := cmd.Flags().GetString("week")
	weekStart := scorecard.CurrentWeekStart(time.Now())
	if weekFlag != "" {
		parsed, err := time.Parse("2006-01-02", weekFlag)
		if err != nil {
			return fmt.Errorf("invalid --week %q: %w", weekFlag, err)
		}
		weekStart = scorecard.CurrentWeekStart(parsed)
	}

	repo := signalspg.NewScorecardRepo(signalspg.New(b.db, 10*time.Second))
	adapter := signalspg.NewScorecardAdapter(repo)
	gen := scorecard.New(adapter, adapter, b.notifier)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	result, err := gen.Generate(ctx, weekStart)
	if err != nil {
		return fmt.Errorf("generate scorecard: %w", err)
	}

	log.Info().
		Time("week_start", result.WeekStart).
		Bool("monotonic", result.MonotonicOK).
		Int("bins", len(result.Bins)).
		Msg("screenerd: scorecard generated")
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	return fmt.Errorf("screenerd migrate: no migration runner wired in this build; apply db/migrations/*.sql directly")
}

func envName(cfg *config.Config) string {
	if cfg.DevMode {
		return "development"
	}
	return "production"
}

