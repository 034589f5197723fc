package metrics

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alexshd/antifragile"
	"github.com/prometheus/client_golang/prometheus"
)

// Config controls history sampling and how load is normalized.
type Config struct {
	Delta        float64 // perturbation for classification
	LoadScale    float64 // load = rps / LoadScale
	MinLoad      float64 // floor on the operating point
	HistoryEvery int     // record an entry every N requests
	HistoryCap   int
	HistoryDrain int // entries dropped once HistoryCap is exceeded

	LatencyWindow int
}

// DefaultConfig returns the service defaults: an entry every 100 requests,
// at most 1000 kept, load = max(rps/100, 0.1), Δ = 0.1.
func DefaultConfig() Config {
	return Config{
		Delta:         0.1,
		LoadScale:     100,
		MinLoad:       0.1,
		HistoryEvery:  100,
		HistoryCap:    1000,
		HistoryDrain:  100,
		LatencyWindow: 1000,
	}
}

// Stats is the current view of the service counters.
type Stats struct {
	TotalRequests     uint64        `json:"total_requests"`
	CacheHits         uint64        `json:"cache_hits"`
	CacheMisses       uint64        `json:"cache_misses"`
	CacheHitRate      float64       `json:"cache_hit_rate"`
	AvgResponseTimeMs float64       `json:"avg_response_time_ms"`
	RequestsPerSecond float64       `json:"requests_per_second"`
	P50               time.Duration `json:"p50_ns"`
	P99               time.Duration `json:"p99_ns"`
	TailRatio         float64       `json:"tail_ratio"`
}

// Snapshot returns the counters as a classifiable Snapshot.
func (s Stats) Snapshot() Snapshot {
	return Snapshot{
		TotalRequests:     s.TotalRequests,
		CacheHits:         s.CacheHits,
		CacheMisses:       s.CacheMisses,
		AvgResponseTimeMs: s.AvgResponseTimeMs,
	}
}

// ServiceMetrics counts requests, cache outcomes and response times, exports
// them to Prometheus and keeps a classification history.
//
// All methods are safe for concurrent use.
type ServiceMetrics struct {
	cfg   Config
	start time.Time
	now   func() time.Time

	totalRequests atomic.Uint64
	cacheHits     atomic.Uint64
	cacheMisses   atomic.Uint64
	totalMicros   atomic.Uint64

	latency *LatencyWindow
	history *History

	requests       prometheus.Counter
	hits           prometheus.Counter
	misses         prometheus.Counter
	responseTime   prometheus.Histogram
	hitRatio       prometheus.Gauge
	avgResponse    prometheus.Gauge
	classification prometheus.Gauge
}

// Option configures ServiceMetrics.
type Option func(*ServiceMetrics)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *ServiceMetrics) {
		m.now = now
	}
}

// New creates ServiceMetrics and registers its collectors with reg.
func New(cfg Config, reg prometheus.Registerer, opts ...Option) (*ServiceMetrics, error) {
	m := &ServiceMetrics{
		cfg:     cfg,
		now:     time.Now,
		latency: NewLatencyWindow(cfg.LatencyWindow),
		history: NewHistory(cfg.HistoryCap, cfg.HistoryDrain),

		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricing_requests_total",
			Help: "Price requests served.",
		}),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricing_cache_hits_total",
			Help: "Price requests answered from the cache.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricing_cache_misses_total",
			Help: "Price requests that had to be computed.",
		}),
		responseTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pricing_response_time_seconds",
			Help:    "Time to answer a price request.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		}),
		hitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pricing_cache_hit_ratio",
			Help: "Fraction of requests answered from the cache.",
		}),
		avgResponse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pricing_avg_response_time_ms",
			Help: "Mean response time in milliseconds.",
		}),
		classification: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "antifragile_classification_rank",
			Help: "Current classification rank: 0 fragile, 1 robust, 2 antifragile.",
		}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.start = m.now()
	m.classification.Set(float64(antifragile.DefaultTriad.Rank()))

	for _, c := range []prometheus.Collector{
		m.requests, m.hits, m.misses, m.responseTime,
		m.hitRatio, m.avgResponse, m.classification,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	return m, nil
}

// RecordRequest counts one served request. Every HistoryEvery requests it
// classifies the current snapshot and appends it to the history.
func (m *ServiceMetrics) RecordRequest(d time.Duration) {
	count := m.totalRequests.Add(1)
	m.totalMicros.Add(uint64(d.Microseconds()))
	m.latency.Record(d)

	m.requests.Inc()
	m.responseTime.Observe(d.Seconds())

	st := m.Stats()
	m.hitRatio.Set(st.CacheHitRate)
	m.avgResponse.Set(st.AvgResponseTimeMs)

	if m.cfg.HistoryEvery > 0 && count%uint64(m.cfg.HistoryEvery) == 0 {
		m.recordHistory(st)
	}
}

func (m *ServiceMetrics) RecordCacheHit() {
	m.cacheHits.Add(1)
	m.hits.Inc()
}

func (m *ServiceMetrics) RecordCacheMiss() {
	m.cacheMisses.Add(1)
	m.misses.Inc()
}

// SetClassification exports t as the current classification rank.
func (m *ServiceMetrics) SetClassification(t antifragile.Triad) {
	m.classification.Set(float64(t.Rank()))
}

// Stats returns the current counters. Rates are 0 before the first request.
func (m *ServiceMetrics) Stats() Stats {
	total := m.totalRequests.Load()
	hits := m.cacheHits.Load()
	misses := m.cacheMisses.Load()
	micros := m.totalMicros.Load()

	st := Stats{
		TotalRequests: total,
		CacheHits:     hits,
		CacheMisses:   misses,
		P50:           m.latency.P50(),
		P99:           m.latency.P99(),
		TailRatio:     m.latency.TailRatio(),
	}

	if total > 0 {
		st.CacheHitRate = float64(hits) / float64(total)
		st.AvgResponseTimeMs = float64(micros) / float64(total) / 1000
	}
	if elapsed := m.now().Sub(m.start).Seconds(); elapsed > 0 {
		st.RequestsPerSecond = float64(total) / elapsed
	}

	return st
}

// Snapshot returns the current counters as a classifiable Snapshot.
func (m *ServiceMetrics) Snapshot() Snapshot {
	return m.Stats().Snapshot()
}

// OperatingPoint returns the normalized load for the current request rate.
func (m *ServiceMetrics) OperatingPoint() float64 {
	return NormalizedLoad(m.Stats().RequestsPerSecond, m.cfg.LoadScale, m.cfg.MinLoad)
}

// Delta returns the configured perturbation.
func (m *ServiceMetrics) Delta() float64 {
	return m.cfg.Delta
}

// Classify classifies the current snapshot at the current operating point.
func (m *ServiceMetrics) Classify() antifragile.Triad {
	st := m.Stats()
	at := NormalizedLoad(st.RequestsPerSecond, m.cfg.LoadScale, m.cfg.MinLoad)
	return antifragile.Classify[float64, float64](st.Snapshot(), at, m.cfg.Delta)
}

// History returns a copy of the recorded entries, oldest first.
func (m *ServiceMetrics) History() []HistoryEntry {
	return m.history.Entries()
}

func (m *ServiceMetrics) recordHistory(st Stats) {
	at := NormalizedLoad(st.RequestsPerSecond, m.cfg.LoadScale, m.cfg.MinLoad)
	m.history.Append(HistoryEntry{
		Timestamp:         m.now().UTC(),
		TotalRequests:     st.TotalRequests,
		CacheHitRate:      st.CacheHitRate,
		AvgResponseTimeMs: st.AvgResponseTimeMs,
		Load:              at,
		Classification:    antifragile.Classify[float64, float64](st.Snapshot(), at, m.cfg.Delta),
	})
}
