// Package antifragile classifies how a system responds to stress.
//
// # Overview
//
// A system is anything that turns a stress level into an outcome. antifragile
// perturbs the stress symmetrically around an operating point and compares the
// outcomes with a discrete convexity test, a finite-difference form of
// Jensen's inequality:
//
//	f(x+Δ) + f(x-Δ)  vs  2·f(x)
//
// The result is one of three categories, ordered by desirability:
//
//   - Fragile:     sum < 2·f(x)  (concave, harmed by volatility)
//   - Robust:      sum = 2·f(x)  (linear, unaffected by volatility)
//   - Antifragile: sum > 2·f(x)  (convex, benefits from volatility)
//
// # Architecture
//
// The package components:
//
//   - system.go     - The System contract (stress → outcome) and PayoffFunc adapter
//   - analysis.go   - Convexity test, tolerance variant, derived queries
//   - triad.go      - The Triad classification and its conversions
//   - verified.go   - Verified wrapper caching a classification
//   - assertions.go - Test helpers for classification properties
//
// # Quick Start
//
// Implement System for your type:
//
//	type OptionsPortfolio struct {
//	    VegaExposure float64
//	}
//
//	func (p OptionsPortfolio) Payoff(volatility float64) float64 {
//	    return p.VegaExposure * volatility * volatility
//	}
//
//	portfolio := OptionsPortfolio{VegaExposure: 1.0}
//	antifragile.Classify(portfolio, 0.2, 0.05) // Antifragile
//
// Plain functions work through Func:
//
//	sqrt := antifragile.Func(math.Sqrt)
//	antifragile.Classify(sqrt, 10.0, 1.0) // Fragile
//
// # Tolerance
//
// Floating-point payoffs almost never tie exactly. ClassifyWithTolerance treats
// |sum - 2·f(x)| ≤ ε as linear:
//
//	nearlyLinear := antifragile.Func(func(x float64) float64 {
//	    return 2*x + 1e-10*x*x
//	})
//
//	antifragile.Classify(nearlyLinear, 10.0, 1.0)                    // Antifragile
//	antifragile.ClassifyWithTolerance(nearlyLinear, 10.0, 1.0, 1e-6) // Robust
//
// Tolerance only ever demotes a result to Robust. It never moves the boundary
// between Fragile and Antifragile.
//
// # Locality
//
// The test certifies behaviour at one (x, Δ) pair. A function that is not
// globally convex may classify differently at another operating point or with
// another Δ. Picking meaningful points is the caller's job.
//
// # Verified
//
// Verified pairs a system with a classification computed once:
//
//	v := antifragile.Check(portfolio, 0.2, 0.05)
//	v.Classification()         // cached, no recomputation
//	v.StillHolds(0.5, 0.05)    // compare at another point, no mutation
//	v.ReVerify(0.5, 0.05)      // explicit recompute and overwrite
//
// # Wire format
//
// A Triad serializes as its lowercase token ("fragile", "robust",
// "antifragile") through encoding.TextMarshaler, and may also be exchanged as
// its rank (0, 1, 2). Both round-trip exactly.
//
// # Concurrency
//
// Every function here is pure: three payoff evaluations and a comparison. The
// package holds no state and takes no locks. Verified is mutated only through
// ReVerify, and callers synchronize that themselves. Classifying one system
// from several goroutines is safe when its Payoff is safe for concurrent
// reads.
//
// # Testing
//
// Use assertions to pin classification properties in tests:
//
//	func TestPortfolio(t *testing.T) {
//	    antifragile.AssertAntifragile(t, portfolio, 0.2, 0.05)
//	    antifragile.AssertConvexity(t, portfolio, []float64{0.1, 0.2, 0.4}, 0.05, antifragile.Antifragile)
//	}
//
// # See Also
//
//   - cmd/antifragile - CLI: classify shapes, serve the pricing demo, stress it
//   - examples/       - Working code samples
package antifragile
