// Package config loads the service configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Cache    CacheConfig    `yaml:"cache"`
	Pricing  PricingConfig  `yaml:"pricing"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type CacheConfig struct {
	Backend         string        `yaml:"backend"`
	TTL             time.Duration `yaml:"ttl"`
	Capacity        int           `yaml:"capacity"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	Redis           RedisConfig   `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// PricingConfig controls the simulated computation cost.
type PricingConfig struct {
	BaseDelay     time.Duration `yaml:"base_delay"`
	JitterModulus int           `yaml:"jitter_modulus"`
}

// AnalysisConfig controls how live metrics are classified.
type AnalysisConfig struct {
	// Delta is the perturbation applied around the normalized load.
	Delta float64 `yaml:"delta"`
	// LoadScale converts requests/sec into the load stressor (load = rps / LoadScale).
	LoadScale float64 `yaml:"load_scale"`
	// MinLoad floors the operating point so an idle service is still probed.
	MinLoad float64 `yaml:"min_load"`

	HistoryEvery int `yaml:"history_every"`
	HistoryCap   int `yaml:"history_cap"`
	HistoryDrain int `yaml:"history_drain"`

	// DriftConfirmations is how many consecutive disagreeing checks commit a
	// new classification.
	DriftConfirmations int `yaml:"drift_confirmations"`
	LatencyWindow      int `yaml:"latency_window"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the configuration the demo service runs with when
// no file is given.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":3000",
			ReadTimeout:     10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			Backend:         BackendMemory,
			TTL:             300 * time.Second,
			Capacity:        10_000,
			CleanupInterval: 60 * time.Second,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "antifragile:price:",
			},
		},
		Pricing: PricingConfig{
			BaseDelay:     5 * time.Millisecond,
			JitterModulus: 10,
		},
		Analysis: AnalysisConfig{
			Delta:              0.1,
			LoadScale:          100,
			MinLoad:            0.1,
			HistoryEvery:       100,
			HistoryCap:         1000,
			HistoryDrain:       100,
			DriftConfirmations: 3,
			LatencyWindow:      1000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "tint",
		},
	}
}

// Load reads path, expands environment references and decodes it over
// DefaultConfig. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// Parse expands environment references in data and decodes it into cfg.
// Fields absent from data keep their current values.
func Parse(data []byte, cfg *Config) error {
	expanded, err := ExpandEnv(string(data))
	if err != nil {
		return err
	}
	return yaml.Unmarshal([]byte(expanded), cfg)
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case c.Server.Addr == "":
		return fmt.Errorf("%w: server.addr is empty", ErrInvalidConfig)
	case c.Cache.Backend != BackendMemory && c.Cache.Backend != BackendRedis:
		return fmt.Errorf("%w: cache.backend %q (expected memory or redis)", ErrInvalidConfig, c.Cache.Backend)
	case c.Cache.Capacity <= 0:
		return fmt.Errorf("%w: cache.capacity must be positive", ErrInvalidConfig)
	case c.Cache.TTL <= 0:
		return fmt.Errorf("%w: cache.ttl must be positive", ErrInvalidConfig)
	case c.Cache.CleanupInterval <= 0:
		return fmt.Errorf("%w: cache.cleanup_interval must be positive", ErrInvalidConfig)
	case c.Cache.Backend == BackendRedis && c.Cache.Redis.Addr == "":
		return fmt.Errorf("%w: cache.redis.addr is required for the redis backend", ErrInvalidConfig)
	case c.Pricing.JitterModulus <= 0:
		return fmt.Errorf("%w: pricing.jitter_modulus must be positive", ErrInvalidConfig)
	case c.Analysis.Delta <= 0:
		return fmt.Errorf("%w: analysis.delta must be positive", ErrInvalidConfig)
	case c.Analysis.LoadScale <= 0:
		return fmt.Errorf("%w: analysis.load_scale must be positive", ErrInvalidConfig)
	case c.Analysis.HistoryEvery <= 0:
		return fmt.Errorf("%w: analysis.history_every must be positive", ErrInvalidConfig)
	case c.Analysis.HistoryDrain <= 0 || c.Analysis.HistoryDrain > c.Analysis.HistoryCap:
		return fmt.Errorf("%w: analysis.history_drain must be in (0, history_cap]", ErrInvalidConfig)
	case c.Analysis.DriftConfirmations <= 0:
		return fmt.Errorf("%w: analysis.drift_confirmations must be positive", ErrInvalidConfig)
	case c.Analysis.LatencyWindow <= 0:
		return fmt.Errorf("%w: analysis.latency_window must be positive", ErrInvalidConfig)
	}
	return nil
}
