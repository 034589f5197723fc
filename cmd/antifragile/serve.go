package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/alexshd/antifragile/internal/cache"
	"github.com/alexshd/antifragile/internal/config"
	"github.com/alexshd/antifragile/internal/logging"
	"github.com/alexshd/antifragile/internal/metrics"
	"github.com/alexshd/antifragile/internal/pricing"
	"github.com/alexshd/antifragile/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the adaptive pricing service",
	Long: `Starts the pricing API. Results are cached, and the service classifies
its own throughput curve at /antifragile/status as the cache warms up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadServeConfig(cmd)
		if err != nil {
			return err
		}

		logger, err := newLogger(cmd, cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runServe(ctx, cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("config", "c", "", "Path to a YAML config file")
	serveCmd.Flags().StringP("addr", "a", "", "Listen address (overrides config)")
	serveCmd.Flags().String("cache", "", "Cache backend: memory or redis (overrides config)")
	serveCmd.Flags().String("redis-addr", "", "Redis address (overrides config)")
}

func loadServeConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		cfg.Server.Addr = v
	}
	if v, _ := cmd.Flags().GetString("cache"); v != "" {
		cfg.Cache.Backend = v
	}
	if v, _ := cmd.Flags().GetString("redis-addr"); v != "" {
		cfg.Cache.Redis.Addr = v
	}

	return cfg, cfg.Validate()
}

// newStore opens the configured cache. The returned close func releases
// backend connections.
func newStore(ctx context.Context, cfg config.CacheConfig) (cache.Store[pricing.Result], func() error, error) {
	opts := []cache.Option{
		cache.WithTTL(cfg.TTL),
		cache.WithCapacity(cfg.Capacity),
	}

	switch cfg.Backend {
	case config.BackendRedis:
		opts = append(opts, cache.WithPrefix(cfg.Redis.Prefix))
		store := cache.NewRedis[pricing.Result](cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		return store, store.Close, nil
	default:
		return cache.NewMemory[pricing.Result](opts...), func() error { return nil }, nil
	}
}

func metricsConfig(cfg config.AnalysisConfig) metrics.Config {
	return metrics.Config{
		Delta:         cfg.Delta,
		LoadScale:     cfg.LoadScale,
		MinLoad:       cfg.MinLoad,
		HistoryEvery:  cfg.HistoryEvery,
		HistoryCap:    cfg.HistoryCap,
		HistoryDrain:  cfg.HistoryDrain,
		LatencyWindow: cfg.LatencyWindow,
	}
}

// newHandler wires the service together on reg.
func newHandler(cfg config.Config, store cache.Store[pricing.Result], reg *prometheus.Registry, logger *slog.Logger) (http.Handler, error) {
	m, err := metrics.New(metricsConfig(cfg.Analysis), reg)
	if err != nil {
		return nil, err
	}

	srv := server.New(server.Config{
		Calculator:    pricing.NewCalculator(cfg.Pricing.BaseDelay, cfg.Pricing.JitterModulus),
		Cache:         store,
		Metrics:       m,
		Gatherer:      reg,
		Confirmations: cfg.Analysis.DriftConfirmations,
		Logger:        logging.Component(logger, "server"),
	})
	return srv.Handler(), nil
}

func runServe(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, closeStore, err := newStore(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("cache close failed", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	handler, err := newHandler(cfg, store, reg, logger)
	if err != nil {
		return err
	}

	cleanupCtx, cancelCleanup := context.WithCancel(ctx)
	defer cancelCleanup()
	go cache.RunCleanup(cleanupCtx, store, cfg.Cache.CleanupInterval, logging.Component(logger, "cache"))

	srv := &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     handler,
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("pricing service starting",
			"addr", srv.Addr,
			"cache", cfg.Cache.Backend,
			"ttl", cfg.Cache.TTL,
			"capacity", cfg.Cache.Capacity)
		logger.Info("antifragile status at /antifragile/status")
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown did not complete", "error", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("close server: %w", err)
			}
		}
		logger.Info("pricing service stopped")
		return nil
	}
}
