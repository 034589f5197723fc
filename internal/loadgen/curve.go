package loadgen

import (
	"cmp"
	"slices"

	"github.com/alexshd/antifragile"
)

// Point is one measured (concurrency, throughput) pair.
type Point struct {
	N          float64 `json:"n"`
	Throughput float64 `json:"throughput"`
}

// Curve is measured throughput as a function of concurrency.
//
// Between measured levels it interpolates linearly; outside them it extends
// the nearest segment. No model is fitted, so classifying a Curve at a
// measured level with Δ equal to the level spacing compares raw
// measurements.
type Curve struct {
	points []Point
}

var _ antifragile.System[float64, float64] = Curve{}

// NewCurve builds a Curve from results. Repeated levels are averaged.
func NewCurve(results []Result) Curve {
	byN := make(map[int][]float64)
	for _, r := range results {
		byN[r.N] = append(byN[r.N], r.Throughput)
	}

	points := make([]Point, 0, len(byN))
	for n, tps := range byN {
		var sum float64
		for _, tp := range tps {
			sum += tp
		}
		points = append(points, Point{N: float64(n), Throughput: sum / float64(len(tps))})
	}
	slices.SortFunc(points, func(a, b Point) int { return cmp.Compare(a.N, b.N) })

	return Curve{points: points}
}

// Points returns the measured points in ascending N.
func (c Curve) Points() []Point {
	return slices.Clone(c.points)
}

// Payoff returns the interpolated throughput at concurrency n.
func (c Curve) Payoff(n float64) float64 {
	switch len(c.points) {
	case 0:
		return 0
	case 1:
		return c.points[0].Throughput
	}

	i, _ := slices.BinarySearchFunc(c.points, n, func(p Point, n float64) int {
		return cmp.Compare(p.N, n)
	})
	// Pick the segment [i-1, i], clamped to the first and last segments.
	i = max(1, min(i, len(c.points)-1))

	a, b := c.points[i-1], c.points[i]
	slope := (b.Throughput - a.Throughput) / (b.N - a.N)
	return a.Throughput + slope*(n-a.N)
}

// LevelClassification is the shape of the curve around one interior level.
type LevelClassification struct {
	N              float64           `json:"n"`
	Delta          float64           `json:"delta"`
	Classification antifragile.Triad `json:"classification"`
}

// ClassifyLevels classifies the curve at every interior measured level,
// using the distance to the nearer neighbour as Δ. Throughput differences
// within epsilon count as equal.
func (c Curve) ClassifyLevels(epsilon float64) []LevelClassification {
	if len(c.points) < 3 {
		return nil
	}

	out := make([]LevelClassification, 0, len(c.points)-2)
	for i := 1; i < len(c.points)-1; i++ {
		n := c.points[i].N
		delta := min(n-c.points[i-1].N, c.points[i+1].N-n)
		out = append(out, LevelClassification{
			N:              n,
			Delta:          delta,
			Classification: antifragile.ClassifyWithTolerance[float64, float64](c, n, delta, epsilon),
		})
	}
	return out
}
