package antifragile

import (
	"encoding/json"
	"testing"
)

type portfolio struct {
	Name string  `json:"name"`
	Vega float64 `json:"vega"`
}

func (p portfolio) Payoff(vol float64) float64 { return p.Vega * vol * vol }

func (p portfolio) Exposure() float64 { return p.Vega }

type cubeSystem struct{}

func (cubeSystem) Payoff(x float64) float64 { return x * x * x }

func TestVerified_CachesClassification(t *testing.T) {
	sys := squareSystem{}
	v := Check[float64, float64](sys, 10.0, 1.0)

	direct := Classify[float64, float64](sys, 10.0, 1.0)
	if v.Classification() != direct {
		t.Errorf("Classification() = %s, direct = %s", v.Classification(), direct)
	}

	if !v.StillHolds(10.0, 1.0) {
		t.Errorf("StillHolds at the checked point should be true")
	}
}

func TestVerified_StillHoldsDoesNotMutate(t *testing.T) {
	v := Check[float64, float64](cubeSystem{}, 10.0, 1.0)
	if !v.IsAntifragile() {
		t.Fatalf("x³ at 10 should be antifragile, got %s", v.Classification())
	}

	if v.StillHolds(-10.0, 1.0) {
		t.Errorf("x³ at -10 should disagree with antifragile")
	}
	if v.Classification() != Antifragile {
		t.Errorf("StillHolds mutated the stored value: %s", v.Classification())
	}
}

func TestVerified_ReVerify(t *testing.T) {
	v := Check[float64, float64](cubeSystem{}, 10.0, 1.0)

	got := v.ReVerify(-10.0, 1.0)
	if got != Fragile {
		t.Errorf("ReVerify(-10, 1) = %s, want fragile", got)
	}
	if v.Classification() != Fragile || !v.IsFragile() {
		t.Errorf("Stored value not updated: %s", v.Classification())
	}
	if !v.StillHolds(-10.0, 1.0) {
		t.Errorf("StillHolds should agree after ReVerify")
	}

	v.ReVerify(0.0, 1.0)
	if !v.IsRobust() {
		t.Errorf("x³ at 0 should be robust, got %s", v.Classification())
	}
}

func TestVerified_Tolerance(t *testing.T) {
	nearlyLinear := Func(func(x float64) float64 { return 2*x + 1e-10*x*x })

	v := CheckWithTolerance(nearlyLinear, 10.0, 1.0, 1e-6)
	if !v.IsRobust() {
		t.Errorf("CheckWithTolerance = %s, want robust", v.Classification())
	}

	// The strict check sees the tiny convex term.
	if v.StillHolds(10.0, 1.0) {
		t.Errorf("Strict StillHolds should disagree with the tolerant result")
	}

	if got := v.ReVerifyWithTolerance(10.0, 1.0, 0); got != Antifragile {
		t.Errorf("ReVerifyWithTolerance(ε=0) = %s, want antifragile", got)
	}
}

func TestVerified_TransparentAccess(t *testing.T) {
	p := portfolio{Name: "vol-long", Vega: 2}
	v := Check[float64, float64](p, 0.2, 0.05)

	if got := v.Payoff(3); got != 18 {
		t.Errorf("Payoff(3) = %v, want 18", got)
	}

	inner, ok := InnerAs[portfolio](v)
	if !ok {
		t.Fatalf("InnerAs[portfolio] failed")
	}
	if inner.Exposure() != 2 {
		t.Errorf("Exposure() = %v, want 2", inner.Exposure())
	}

	if _, ok := InnerAs[squareSystem](v); ok {
		t.Errorf("InnerAs[squareSystem] should fail")
	}

	if v.Inner() != System[float64, float64](p) {
		t.Errorf("Inner() returned a different value")
	}
}

func TestVerified_IsASystem(t *testing.T) {
	v := Check[float64, float64](tripled{}, 10.0, 1.0)
	if !v.IsFragile() {
		t.Fatalf("x² against 3·f(x) should be fragile, got %s", v.Classification())
	}

	// Classifying the wrapper must honour the inner Twin override.
	var sys System[float64, float64] = v
	if got := Classify(sys, 10.0, 1.0); got != Fragile {
		t.Errorf("Classify(verified) = %s, want fragile", got)
	}

	// A wrapper can itself be wrapped.
	outer := Check(sys, 10.0, 1.0)
	if outer.Classification() != v.Classification() {
		t.Errorf("Nested classification %s != %s", outer.Classification(), v.Classification())
	}
}

func TestVerified_String(t *testing.T) {
	v := Check[float64, float64](squareSystem{}, 10.0, 1.0)
	if v.String() != "verified antifragile" {
		t.Errorf("String() = %q", v.String())
	}
}

func TestVerified_JSON(t *testing.T) {
	v := Check[float64, float64](portfolio{Name: "vol-long", Vega: 1.5}, 0.2, 0.05)

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	want := `{"system":{"name":"vol-long","vega":1.5},"classification":"antifragile"}`
	if string(data) != want {
		t.Errorf("Marshal = %s\nwant      %s", data, want)
	}
}
