// Package metrics records the pricing service's traffic and models it as a
// system that can be classified for antifragility.
package metrics

import (
	"math"

	"github.com/alexshd/antifragile"
)

// Model constants for Snapshot.Payoff.
const (
	// noDataHitRate is assumed before any request has been served.
	noDataHitRate = 0.5
	// fastResponseMs is the average below which throughput is capped.
	fastResponseMs = 0.001
	maxThroughput  = 10_000.0
	minLoad        = 0.001

	baseExponent  = 1.1
	exponentRange = 0.4
)

// Snapshot is a point-in-time copy of the service counters.
//
// As a System it maps a normalized request load to effective throughput
// capacity:
//
//	payoff(load) = base · (1 + hit) · max(|load|, 0.001)^(1.1 + 0.4·hit)
//
// where base = 1000 / avg_ms (10000 when avg_ms ≤ 0.001) and hit is the
// observed cache hit rate (0.5 with no data). The exponent stays above 1, so
// the curve is convex wherever load is away from the clamp, and a warmer
// cache bends it harder.
type Snapshot struct {
	TotalRequests     uint64  `json:"total_requests"`
	CacheHits         uint64  `json:"cache_hits"`
	CacheMisses       uint64  `json:"cache_misses"`
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
}

var _ antifragile.System[float64, float64] = Snapshot{}

// HitRate returns hits/requests, or 0.5 when nothing has been served.
func (s Snapshot) HitRate() float64 {
	if s.TotalRequests == 0 {
		return noDataHitRate
	}
	return float64(s.CacheHits) / float64(s.TotalRequests)
}

// BaseThroughput returns the requests/sec a single worker could sustain at
// the observed average response time.
func (s Snapshot) BaseThroughput() float64 {
	if s.AvgResponseTimeMs > fastResponseMs {
		return 1000 / s.AvgResponseTimeMs
	}
	return maxThroughput
}

// Exponent returns the convexity exponent, 1.1 for a cold cache up to 1.5
// for a perfect one.
func (s Snapshot) Exponent() float64 {
	return baseExponent + s.HitRate()*exponentRange
}

// Payoff returns the effective throughput capacity at load.
func (s Snapshot) Payoff(load float64) float64 {
	load = math.Max(math.Abs(load), minLoad)
	hit := s.HitRate()
	return s.BaseThroughput() * (1 + hit) * math.Pow(load, s.Exponent())
}

// CurvePoint is one sample of the payoff curve.
type CurvePoint struct {
	Load   float64 `json:"load"`
	Payoff float64 `json:"payoff"`
}

// CurveData samples Payoff at n evenly spaced loads in (0, maxLoad].
func (s Snapshot) CurveData(n int, maxLoad float64) []CurvePoint {
	if n <= 0 {
		return nil
	}
	points := make([]CurvePoint, n)
	for i := range points {
		load := maxLoad * float64(i+1) / float64(n)
		points[i] = CurvePoint{Load: load, Payoff: s.Payoff(load)}
	}
	return points
}

// NormalizedLoad converts a request rate into the load stressor:
// max(rps/scale, floor).
func NormalizedLoad(rps, scale, floor float64) float64 {
	if scale <= 0 {
		return floor
	}
	return math.Max(rps/scale, floor)
}
