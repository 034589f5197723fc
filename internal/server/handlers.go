package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/alexshd/antifragile"
	"github.com/alexshd/antifragile/internal/drift"
	"github.com/alexshd/antifragile/internal/metrics"
	"github.com/alexshd/antifragile/internal/pricing"
)

const (
	maxBodyBytes = 64 << 10

	defaultCurvePoints = 20
	maxCurvePoints     = 1000
	defaultCurveLoad   = 2.0
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

type priceResponse struct {
	Price             float64 `json:"price"`
	Currency          string  `json:"currency"`
	CacheHit          bool    `json:"cache_hit"`
	ComputationTimeMs float64 `json:"computation_time_ms"`
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	var req pricing.Query
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		s.logger.Debug("price: invalid body", "error", err)
		return
	}

	q := req.Normalize()
	if err := q.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	start := time.Now()
	key := q.Key()

	result, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		// A failing cache degrades to computing every request.
		s.logger.Warn("cache get failed", "key", key, "error", err)
		hit = false
	}

	if hit {
		s.metrics.RecordCacheHit()
	} else {
		s.metrics.RecordCacheMiss()

		result, err = s.calc.Calculate(ctx, q)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "price calculation canceled")
			return
		}
		if err := s.cache.Set(ctx, key, result); err != nil {
			s.logger.Warn("cache set failed", "key", key, "error", err)
		}
	}

	elapsed := time.Since(start)
	s.metrics.RecordRequest(elapsed)

	writeJSON(w, http.StatusOK, priceResponse{
		Price:             result.TotalPrice,
		Currency:          "USD",
		CacheHit:          hit,
		ComputationTimeMs: float64(elapsed.Microseconds()) / 1000,
	})
}

type currentMetrics struct {
	TotalRequests     uint64  `json:"total_requests"`
	CacheHitRate      float64 `json:"cache_hit_rate"`
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	P50Ms             float64 `json:"p50_ms"`
	P99Ms             float64 `json:"p99_ms"`
}

type convexityAnalysis struct {
	Load        float64 `json:"load"`
	Delta       float64 `json:"delta"`
	Exponent    float64 `json:"exponent"`
	Gap         float64 `json:"gap"`
	Observed    string  `json:"observed"`
	CurveShape  string  `json:"curve_shape"`
	Explanation string  `json:"explanation"`
}

type statusResponse struct {
	Classification antifragile.Triad `json:"classification"`
	Rank           uint8             `json:"rank"`
	Description    string            `json:"description"`
	Metrics        currentMetrics    `json:"metrics"`
	Analysis       convexityAnalysis `json:"analysis"`
	Drift          drift.Decision    `json:"drift"`
}

func explain(t antifragile.Triad) string {
	switch t {
	case antifragile.Antifragile:
		return "Cache is hot. System benefits from stress."
	case antifragile.Robust:
		return "Cache is warming. System scales proportionally."
	default:
		return "Cache is cold. System degrades under load."
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.metrics.Stats()
	at := s.metrics.OperatingPoint()
	delta := s.metrics.Delta()

	s.statusMu.Lock()
	snap := s.view.Refresh()
	conv := antifragile.Probe[float64, float64](s.view, at, delta)
	decision := s.watcher.Observe(at, delta)
	s.statusMu.Unlock()

	committed := decision.Current

	writeJSON(w, http.StatusOK, statusResponse{
		Classification: committed,
		Rank:           committed.Rank(),
		Description:    committed.Describe(),
		Metrics: currentMetrics{
			TotalRequests:     st.TotalRequests,
			CacheHitRate:      st.CacheHitRate,
			AvgResponseTimeMs: st.AvgResponseTimeMs,
			RequestsPerSecond: st.RequestsPerSecond,
			P50Ms:             float64(st.P50.Microseconds()) / 1000,
			P99Ms:             float64(st.P99.Microseconds()) / 1000,
		},
		Analysis: convexityAnalysis{
			Load:        at,
			Delta:       delta,
			Exponent:    snap.Exponent(),
			Gap:         conv.Gap(),
			Observed:    conv.Classify().String(),
			CurveShape:  committed.Shape(),
			Explanation: explain(committed),
		},
		Drift: decision,
	})
}

type curveResponse struct {
	Exponent   float64              `json:"exponent"`
	CurveShape string               `json:"curve_shape"`
	Points     []metrics.CurvePoint `json:"points"`
}

func (s *Server) handleCurve(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "points", defaultCurvePoints)
	if err != nil || n < 1 || n > maxCurvePoints {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("points must be an integer in [1, %d]", maxCurvePoints))
		return
	}
	maxLoad, err := queryFloat(r, "max_load", defaultCurveLoad)
	if err != nil || maxLoad <= 0 {
		writeError(w, http.StatusBadRequest, "max_load must be a positive number")
		return
	}

	snap := s.metrics.Snapshot()
	shape := antifragile.Classify[float64, float64](snap, s.metrics.OperatingPoint(), s.metrics.Delta())

	writeJSON(w, http.StatusOK, curveResponse{
		Exponent:   snap.Exponent(),
		CurveShape: fmt.Sprintf("%s (%s)", shape.Shape(), shape.Name()),
		Points:     snap.CurveData(n, maxLoad),
	})
}

type historyResponse struct {
	Entries []metrics.HistoryEntry    `json:"entries"`
	Counts  map[antifragile.Triad]int `json:"counts"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries := s.metrics.History()

	counts := make(map[antifragile.Triad]int, len(antifragile.AllTriads()))
	for _, e := range entries {
		counts[e.Classification]++
	}
	if entries == nil {
		entries = []metrics.HistoryEntry{}
	}

	writeJSON(w, http.StatusOK, historyResponse{Entries: entries, Counts: counts})
}

type cacheStatsResponse struct {
	Entries   int     `json:"entries"`
	TotalHits uint64  `json:"total_hits"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	HitRate   float64 `json:"hit_rate"`
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	cs, err := s.cache.Stats(r.Context())
	if err != nil {
		s.logger.Error("cache stats failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "cache unavailable")
		return
	}
	st := s.metrics.Stats()

	writeJSON(w, http.StatusOK, cacheStatsResponse{
		Entries:   cs.Entries,
		TotalHits: cs.TotalHits,
		Hits:      st.CacheHits,
		Misses:    st.CacheMisses,
		HitRate:   st.CacheHitRate,
	})
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}

func queryFloat(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}
