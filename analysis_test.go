package antifragile

import (
	"math"
	"testing"
)

// Fixture systems.

type squareSystem struct{}

func (squareSystem) Payoff(x float64) float64 { return x * x }

type sqrtSystem struct{}

func (sqrtSystem) Payoff(x float64) float64 { return math.Sqrt(math.Abs(x)) }

type affineSystem struct{ slope, intercept float64 }

func (a affineSystem) Payoff(x float64) float64 { return a.slope*x + a.intercept }

type intSquare struct{}

func (intSquare) Payoff(x int) int { return x * x }

type intAffine struct{ slope, intercept int }

func (a intAffine) Payoff(x int) int { return a.slope*x + a.intercept }

type unsignedSquare struct{}

func (unsignedSquare) Payoff(x uint) uint { return x * x }

// tripled compares against 3·f(x) instead of 2·f(x).
type tripled struct{ squareSystem }

func (tripled) Twin(p float64) float64 { return 3 * p }

func TestClassify_Scenarios(t *testing.T) {
	tests := []struct {
		name string
		sys  System[float64, float64]
		want Triad
	}{
		{"square", squareSystem{}, Antifragile},
		{"sqrt", sqrtSystem{}, Fragile},
		{"affine", affineSystem{slope: 2, intercept: 5}, Robust},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.sys, 10.0, 1.0); got != tt.want {
				t.Errorf("Classify(10, 1) = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestProbe_SquareSamples(t *testing.T) {
	c := Probe[float64, float64](squareSystem{}, 10.0, 1.0)

	if c.Minus != 81 || c.At != 100 || c.Plus != 121 {
		t.Errorf("Samples = (%v, %v, %v), want (81, 100, 121)", c.Minus, c.At, c.Plus)
	}
	if c.Sum != 202 || c.Twin != 200 {
		t.Errorf("sum=%v twin=%v, want 202 and 200", c.Sum, c.Twin)
	}
	if c.Gap() != 2 {
		t.Errorf("Gap() = %v, want 2", c.Gap())
	}
}

func TestProbe_EvaluationOrder(t *testing.T) {
	var seen []float64
	sys := Func(func(x float64) float64 {
		seen = append(seen, x)
		return x
	})

	Probe(sys, 5.0, 2.0)

	want := []float64{3, 5, 7}
	if len(seen) != len(want) {
		t.Fatalf("Evaluated %d times, want 3", len(seen))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("Evaluation %d at %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestClassify_SquareEverywhere(t *testing.T) {
	for _, at := range []int{-1000, -10, -1, 0, 1, 7, 10, 1000} {
		for _, delta := range []int{-3, -1, 1, 2, 5, 50} {
			if got := Classify[int, int](intSquare{}, at, delta); got != Antifragile {
				t.Errorf("x² at x=%d, Δ=%d: %s, want antifragile", at, delta, got)
			}
		}
	}

	for _, at := range []float64{-10, -0.5, 0, 2.5, 10} {
		for _, delta := range []float64{0.5, 1, 2} {
			if got := Classify[float64, float64](squareSystem{}, at, delta); got != Antifragile {
				t.Errorf("x² at x=%v, Δ=%v: %s, want antifragile", at, delta, got)
			}
		}
	}
}

func TestClassify_NegativeOperatingPoint(t *testing.T) {
	if got := Classify[float64, float64](squareSystem{}, -10.0, 1.0); got != Antifragile {
		t.Errorf("x² at x=-10: %s, want antifragile", got)
	}
}

func TestClassify_SqrtFragile(t *testing.T) {
	cases := []struct{ at, delta float64 }{
		{10, 1}, {1, 1}, {4, 0.5}, {100, 10}, {2, 2}, {50, 0.25},
	}

	for _, c := range cases {
		if got := Classify[float64, float64](sqrtSystem{}, c.at, c.delta); got != Fragile {
			t.Errorf("√x at x=%v, Δ=%v: %s, want fragile", c.at, c.delta, got)
		}
	}
}

func TestClassify_AffineRobust(t *testing.T) {
	systems := []intAffine{{2, 5}, {-3, 7}, {0, 42}, {1, 0}}

	for _, sys := range systems {
		for _, at := range []int{-100, -1, 0, 3, 10} {
			for _, delta := range []int{-2, 0, 1, 9} {
				if got := Classify[int, int](sys, at, delta); got != Robust {
					t.Errorf("%dx+%d at x=%d, Δ=%d: %s, want robust",
						sys.slope, sys.intercept, at, delta, got)
				}
			}
		}
	}

	for _, at := range []float64{-10, 0, 10, 1000} {
		for _, delta := range []float64{0.5, 1, 2} {
			sys := affineSystem{slope: 2, intercept: 5}
			if got := Classify[float64, float64](sys, at, delta); got != Robust {
				t.Errorf("2x+5 at x=%v, Δ=%v: %s, want robust", at, delta, got)
			}
		}
	}
}

func TestClassify_ZeroDelta(t *testing.T) {
	systems := map[string]System[float64, float64]{
		"square": squareSystem{},
		"sqrt":   sqrtSystem{},
		"sin":    Func(math.Sin),
		"exp":    Func(math.Exp),
		"cube":   Func(func(x float64) float64 { return x * x * x }),
	}

	for name, sys := range systems {
		for _, at := range []float64{-7.3, 0, 0.1, 10, 1e6} {
			if got := Classify(sys, at, 0); got != Robust {
				t.Errorf("%s at x=%v, Δ=0: %s, want robust", name, at, got)
			}
		}
	}
}

func TestClassify_CubeDependsOnPoint(t *testing.T) {
	cube := Func(func(x float64) float64 { return x * x * x })

	if got := Classify(cube, 10.0, 1.0); got != Antifragile {
		t.Errorf("x³ at x=10: %s, want antifragile", got)
	}
	if got := Classify(cube, -10.0, 1.0); got != Fragile {
		t.Errorf("x³ at x=-10: %s, want fragile", got)
	}
	if got := Classify(cube, 0.0, 1.0); got != Robust {
		t.Errorf("x³ at x=0: %s, want robust", got)
	}
}

func TestClassifyWithTolerance_NearlyLinear(t *testing.T) {
	nearlyLinear := Func(func(x float64) float64 {
		return 2*x + 1e-10*x*x
	})

	if got := Classify(nearlyLinear, 10.0, 1.0); got != Antifragile {
		t.Errorf("Strict: %s, want antifragile", got)
	}

	if got := ClassifyWithTolerance(nearlyLinear, 10.0, 1.0, 1e-6); got != Robust {
		t.Errorf("Tolerant: %s, want robust", got)
	}
}

func TestClassifyWithTolerance_KeepsClearResults(t *testing.T) {
	if got := ClassifyWithTolerance[float64, float64](squareSystem{}, 10.0, 1.0, 1e-6); got != Antifragile {
		t.Errorf("x² with ε=1e-6: %s, want antifragile", got)
	}
	if got := ClassifyWithTolerance[float64, float64](sqrtSystem{}, 10.0, 1.0, 1e-6); got != Fragile {
		t.Errorf("√x with ε=1e-6: %s, want fragile", got)
	}
	if got := ClassifyWithTolerance[float64, float64](squareSystem{}, 10.0, 1.0, 0); got != Antifragile {
		t.Errorf("x² with ε=0: %s, want antifragile", got)
	}
}

func TestClassifyWithTolerance_Boundary(t *testing.T) {
	// gap for x² is exactly 2·Δ², here 2.
	if got := ClassifyWithTolerance[int, int](intSquare{}, 10, 1, 2); got != Robust {
		t.Errorf("ε = gap: %s, want robust", got)
	}
	if got := ClassifyWithTolerance[int, int](intSquare{}, 10, 1, 1); got != Antifragile {
		t.Errorf("ε < gap: %s, want antifragile", got)
	}
}

func TestClassifyWithTolerance_Unsigned(t *testing.T) {
	if got := Classify[uint, uint](unsignedSquare{}, 10, 1); got != Antifragile {
		t.Errorf("Unsigned x²: %s, want antifragile", got)
	}
	if got := ClassifyWithTolerance[uint, uint](unsignedSquare{}, 10, 1, 2); got != Robust {
		t.Errorf("Unsigned x² with ε=2: %s, want robust", got)
	}
	if got := ClassifyWithTolerance[uint, uint](unsignedSquare{}, 10, 1, 1); got != Antifragile {
		t.Errorf("Unsigned x² with ε=1: %s, want antifragile", got)
	}
}

func TestTwin_Override(t *testing.T) {
	if got := Twin[float64, float64](squareSystem{}, 4); got != 8 {
		t.Errorf("Default Twin(4) = %v, want 8", got)
	}
	if got := Twin[float64, float64](tripled{}, 4); got != 12 {
		t.Errorf("Overridden Twin(4) = %v, want 12", got)
	}

	// 202 < 300
	if got := Classify[float64, float64](tripled{}, 10.0, 1.0); got != Fragile {
		t.Errorf("x² against 3·f(x): %s, want fragile", got)
	}
}

func TestIsAntifragile(t *testing.T) {
	if !IsAntifragile[float64, float64](squareSystem{}, 10.0, 1.0) {
		t.Errorf("x² should be antifragile")
	}
	if IsAntifragile[float64, float64](sqrtSystem{}, 10.0, 1.0) {
		t.Errorf("√x should not be antifragile")
	}
	if IsAntifragile[float64, float64](affineSystem{2, 5}, 10.0, 1.0) {
		t.Errorf("2x+5 should not be antifragile")
	}
}

func TestGainsFromStress(t *testing.T) {
	// Concave but increasing.
	if !GainsFromStress[float64, float64](sqrtSystem{}, 1.0, 4.0) {
		t.Errorf("√x should gain from 1 → 4")
	}

	decay := Func(func(x float64) float64 { return -x })
	if GainsFromStress(decay, 1.0, 4.0) {
		t.Errorf("-x should not gain from 1 → 4")
	}

	flat := affineSystem{slope: 0, intercept: 3}
	if GainsFromStress[float64, float64](flat, 1.0, 4.0) {
		t.Errorf("Constant should not gain from stress")
	}
}

func TestIsStable(t *testing.T) {
	// |√4 - √1| = 1
	if !IsStable[float64, float64](sqrtSystem{}, 1.0, 4.0, 1.0) {
		t.Errorf("Expected stable at threshold 1")
	}
	if IsStable[float64, float64](sqrtSystem{}, 1.0, 4.0, 0.5) {
		t.Errorf("Expected unstable at threshold 0.5")
	}

	// Order of low/high must not matter, even for unsigned payoffs.
	if !IsStable[uint, uint](unsignedSquare{}, 3, 2, 5) {
		t.Errorf("Expected |4-9| ≤ 5")
	}
	if IsStable[uint, uint](unsignedSquare{}, 3, 2, 4) {
		t.Errorf("Expected |4-9| > 4")
	}
}
