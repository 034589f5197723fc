package antifragile

import (
	"fmt"
	"strings"
	"testing"
)

// AssertClassification verifies sys classifies as want at (at, delta).
//
// On failure the message includes the three sampled payoffs and the gap
// between sum and twin, so the curvature that produced the result is visible.
func AssertClassification[S Stressor, P Payoff](t *testing.T, sys System[S, P], at, delta S, want Triad) {
	t.Helper()

	c := Probe(sys, at, delta)
	got := c.Classify()
	if got != want {
		t.Errorf("Classification mismatch at x=%v, Δ=%v: got %s, want %s\n"+
			"  f(x-Δ)=%v  f(x)=%v  f(x+Δ)=%v\n"+
			"  sum=%v  twin=%v  gap=%v",
			at, delta, got.Name(), want.Name(),
			c.Minus, c.At, c.Plus, c.Sum, c.Twin, c.Gap())
		return
	}

	t.Logf("✓ %s at x=%v, Δ=%v (%s, gap=%v)", got.Name(), at, delta, got.Shape(), c.Gap())
}

// AssertAntifragile verifies sys is convex at (at, delta).
//
// Mathematical property:
//
//	f(x+Δ) + f(x-Δ) > 2·f(x)
func AssertAntifragile[S Stressor, P Payoff](t *testing.T, sys System[S, P], at, delta S) {
	t.Helper()
	AssertClassification(t, sys, at, delta, Antifragile)
}

// AssertFragile verifies sys is concave at (at, delta).
//
// Mathematical property:
//
//	f(x+Δ) + f(x-Δ) < 2·f(x)
func AssertFragile[S Stressor, P Payoff](t *testing.T, sys System[S, P], at, delta S) {
	t.Helper()
	AssertClassification(t, sys, at, delta, Fragile)
}

// AssertRobust verifies sys is linear at (at, delta) within epsilon.
// Pass a zero epsilon for an exact check.
func AssertRobust[S Stressor, P Payoff](t *testing.T, sys System[S, P], at, delta S, epsilon P) {
	t.Helper()

	c := Probe(sys, at, delta)
	if got := c.ClassifyWithin(epsilon); got != Robust {
		t.Errorf("Not robust at x=%v, Δ=%v: got %s (gap=%v, ε=%v)",
			at, delta, got.Name(), c.Gap(), epsilon)
		return
	}

	t.Logf("✓ Robust at x=%v, Δ=%v (gap=%v, ε=%v)", at, delta, c.Gap(), epsilon)
}

// AssertConvexity verifies sys classifies as want at every operating point.
//
// Classification is local, so a single point says little about a range.
// Listing the points that matter pins the shape across them.
func AssertConvexity[S Stressor, P Payoff](t *testing.T, sys System[S, P], points []S, delta S, want Triad) {
	t.Helper()

	var failures []string
	for _, at := range points {
		c := Probe(sys, at, delta)
		if got := c.Classify(); got != want {
			failures = append(failures, fmt.Sprintf(
				"  x=%v: %s (sum=%v, twin=%v)", at, got.Name(), c.Sum, c.Twin))
		}
	}

	if len(failures) > 0 {
		t.Errorf("Shape not %s (want %s) at %d of %d points:\n%s",
			want.Shape(), want.Name(), len(failures), len(points), strings.Join(failures, "\n"))
		return
	}

	t.Logf("✓ %s across %d points (Δ=%v)", want.Name(), len(points), delta)
}
