// Package server is the HTTP face of the pricing service.
//
// Every price request goes through the result cache and is counted by
// ServiceMetrics. The /antifragile endpoints classify those live metrics:
// a cold cache makes throughput concave in load, a hot one makes it convex.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alexshd/antifragile/internal/cache"
	"github.com/alexshd/antifragile/internal/drift"
	"github.com/alexshd/antifragile/internal/logging"
	"github.com/alexshd/antifragile/internal/metrics"
	"github.com/alexshd/antifragile/internal/pricing"
)

// Config holds the collaborators of a Server.
type Config struct {
	Calculator *pricing.Calculator
	Cache      cache.Store[pricing.Result]
	Metrics    *metrics.ServiceMetrics

	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// Confirmations is how many consecutive disagreeing status checks
	// commit a new classification. Defaults to drift.DefaultConfirmations.
	Confirmations int

	Logger *slog.Logger
}

// Server serves the pricing API and its classification endpoints.
type Server struct {
	calc     *pricing.Calculator
	cache    cache.Store[pricing.Result]
	metrics  *metrics.ServiceMetrics
	gatherer prometheus.Gatherer
	logger   *slog.Logger

	// statusMu serializes Refresh+Observe so the view stays pinned for the
	// whole convexity test.
	statusMu sync.Mutex
	view     *metrics.View
	watcher  *drift.Watcher
}

// New creates a Server. The watcher starts from the classification of the
// metrics as they are now.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	confirmations := cfg.Confirmations
	if confirmations <= 0 {
		confirmations = drift.DefaultConfirmations
	}

	s := &Server{
		calc:     cfg.Calculator,
		cache:    cfg.Cache,
		metrics:  cfg.Metrics,
		gatherer: gatherer,
		logger:   logger,
		view:     metrics.NewView(cfg.Metrics),
	}

	s.watcher = drift.New(s.view, cfg.Metrics.OperatingPoint(), cfg.Metrics.Delta(),
		drift.WithConfirmations(confirmations),
		drift.WithLogger(logging.Component(logger, "drift")),
		drift.WithOnCommit(cfg.Metrics.SetClassification),
	)

	return s
}

// Handler returns the routed handler with request id, panic recovery and
// request logging applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.handleHealth)
	r.Post("/price", s.handlePrice)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/antifragile", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/curve", s.handleCurve)
		r.Get("/history", s.handleHistory)
	})
	r.Get("/cache/stats", s.handleCacheStats)

	return r
}

// Watcher exposes the drift watcher for status reporting.
func (s *Server) Watcher() *drift.Watcher {
	return s.watcher
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		level := slog.LevelDebug
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
