// Package httpapi exposes the screening service's HTTP surface: health,
// run/multi, cached-run lookup, supported symbols, and a websocket
// streaming enrichment, fronted by the admission layer and a standard
// logging/timeout/CORS middleware chain.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/cryptoscreen/screenerd/internal/admission"
	"github.com/cryptoscreen/screenerd/internal/alerts"
	"github.com/cryptoscreen/screenerd/internal/circuit"
	"github.com/cryptoscreen/screenerd/internal/obsmetrics"
	"github.com/cryptoscreen/screenerd/internal/screening"
)

// ServerConfig holds listener and timeout settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestDeadline time.Duration // overall per-request deadline, default 30s
}

// DefaultServerConfig matches the component design's defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8090,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    35 * time.Second,
		IdleTimeout:     60 * time.Second,
		RequestDeadline: 30 * time.Second,
	}
}

// Server is the screening service's HTTP server.
type Server struct {
	router    *mux.Router
	server    *http.Server
	config    ServerConfig
	engine    *screening.Engine
	admission *admission.Layer
	alerter   *alerts.ErrorAlerter
	metrics   *obsmetrics.Registry
	breakers  *circuit.Manager
	apiKeys   map[string]bool
	supported []string
}

// NewServer builds a Server wired against engine and the shared
// ambient-stack components. breakers may be nil; handleHealth then reports
// no provider breakdown.
func NewServer(cfg ServerConfig, engine *screening.Engine, admissionLayer *admission.Layer,
	alerter *alerts.ErrorAlerter, metrics *obsmetrics.Registry, breakers *circuit.Manager,
	apiKeys []string, supportedSymbols []string) *Server {
	keys := make(map[string]bool, len(apiKeys))
	for _, k := range apiKeys {
		keys[k] = true
	}

	s := &Server{
		router:    mux.NewRouter(),
		config:    cfg,
		engine:    engine,
		admission: admissionLayer,
		alerter:   alerter,
		metrics:   metrics,
		breakers:  breakers,
		apiKeys:   keys,
		supported: supportedSymbols,
	}
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.timeoutMiddleware)
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.admissionMiddleware)

	api := s.router.PathPrefix("/api/screener").Subrouter()
	api.Use(s.jsonContentTypeMiddleware)

	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	api.HandleFunc("/run", s.requireAPIKey(s.handleRun)).Methods(http.MethodPost)
	api.HandleFunc("/multi", s.requireAPIKey(s.handleRun)).Methods(http.MethodPost)
	api.HandleFunc("/supported-symbols", s.handleSupportedSymbols).Methods(http.MethodGet)
	api.HandleFunc("/stream", s.requireAPIKey(s.handleStream)).Methods(http.MethodGet)
	api.HandleFunc("/{runId}", s.requireAPIKey(s.handleGetRun)).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
}

// Start begins serving. Blocks until the listener errors or closes.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("screener: http server starting")
	return s.server.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("screener: http server shutting down")
	return s.server.Shutdown(ctx)
}

type ctxKey string

const ctxKeyRequestID ctxKey = "request_id"

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		dur := time.Since(start)

		log.Info().
			Str("request_id", fmt.Sprint(r.Context().Value(ctxKeyRequestID))).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", dur).
			Msg("request handled")

		if s.alerter != nil && rec.status >= 400 {
			s.alerter.Record(rec.status, r.URL.Path)
		}
	})
}

func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline := s.config.RequestDeadline
		if deadline <= 0 {
			deadline = 30 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), deadline)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// admissionMiddleware applies tiered rate limiting/IP-blocking and sets
// the RateLimit-* response headers on every admission-controlled route.
func (s *Server) admissionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.admission == nil {
			next.ServeHTTP(w, r)
			return
		}
		decision := s.admission.Admit(r)

		w.Header().Set("RateLimit-Limit", strconv.Itoa(decision.Limit))
		w.Header().Set("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		w.Header().Set("RateLimit-Reset", strconv.FormatInt(decision.ResetUnix, 10))
		w.Header().Set("RateLimit-Policy", string(decision.Tier))
		w.Header().Set("X-RateLimit-Tier", string(decision.Tier))

		if !decision.Allowed {
			if s.metrics != nil {
				s.metrics.AdmissionRejections.WithLabelValues(decision.RejectReason, string(decision.Tier)).Inc()
				if decision.RejectReason == "blocked" {
					s.metrics.IPBlocks.Inc()
				}
			}
			writeError(w, http.StatusTooManyRequests, errorBody{
				Error:      "RATE_LIMITED",
				Message:    "too many requests",
				RetryAfter: int64(decision.RetryAfter.Seconds()),
				Tier:       string(decision.Tier),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" || !s.apiKeys[key] {
			writeError(w, http.StatusUnauthorized, errorBody{Error: "UNAUTHORIZED", Message: "missing or unknown API key"})
			return
		}
		next(w, r)
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, errorBody{Error: "NOT_FOUND", Message: "no such route: " + r.URL.Path})
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = writeJSON(w, body)
}
