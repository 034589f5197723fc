package antifragile

import "encoding/json"

// Verified pairs a system with a classification computed once.
//
// The only way to build one is Check (or CheckWithTolerance), and the stored
// classification changes only through ReVerify. Verified is itself a System:
// Payoff and Twin delegate to the wrapped value, so it can be passed anywhere
// the inner system could.
//
// Verified is not safe for concurrent ReVerify calls.
type Verified[S Stressor, P Payoff] struct {
	inner          System[S, P]
	classification Triad
}

// Check classifies sys at (at, delta) and wraps the result.
func Check[S Stressor, P Payoff](sys System[S, P], at, delta S) *Verified[S, P] {
	return &Verified[S, P]{
		inner:          sys,
		classification: Classify(sys, at, delta),
	}
}

// CheckWithTolerance is Check using ClassifyWithTolerance.
func CheckWithTolerance[S Stressor, P Payoff](sys System[S, P], at, delta S, epsilon P) *Verified[S, P] {
	return &Verified[S, P]{
		inner:          sys,
		classification: ClassifyWithTolerance(sys, at, delta, epsilon),
	}
}

// Classification returns the stored result without recomputing.
func (v *Verified[S, P]) Classification() Triad {
	return v.classification
}

// ReVerify recomputes the classification at (at, delta) and stores it.
func (v *Verified[S, P]) ReVerify(at, delta S) Triad {
	v.classification = Classify(v.inner, at, delta)
	return v.classification
}

// ReVerifyWithTolerance recomputes with ClassifyWithTolerance and stores it.
func (v *Verified[S, P]) ReVerifyWithTolerance(at, delta S, epsilon P) Triad {
	v.classification = ClassifyWithTolerance(v.inner, at, delta, epsilon)
	return v.classification
}

// StillHolds reports whether classifying at (at, delta) agrees with the
// stored result. The stored value is left untouched, so this can be used to
// watch for drift without committing to it.
func (v *Verified[S, P]) StillHolds(at, delta S) bool {
	return Classify(v.inner, at, delta) == v.classification
}

func (v *Verified[S, P]) IsAntifragile() bool { return v.classification.IsAntifragile() }
func (v *Verified[S, P]) IsFragile() bool     { return v.classification.IsFragile() }
func (v *Verified[S, P]) IsRobust() bool      { return v.classification.IsRobust() }

// Payoff delegates to the wrapped system.
func (v *Verified[S, P]) Payoff(stressor S) P {
	return v.inner.Payoff(stressor)
}

// Twin delegates to the wrapped system's doubling.
func (v *Verified[S, P]) Twin(p P) P {
	return Twin(v.inner, p)
}

// Inner returns the wrapped system for read-only use.
func (v *Verified[S, P]) Inner() System[S, P] {
	return v.inner
}

// InnerAs returns the wrapped system as its concrete type T.
func InnerAs[T System[S, P], S Stressor, P Payoff](v *Verified[S, P]) (T, bool) {
	t, ok := v.inner.(T)
	return t, ok
}

// String returns e.g. "verified antifragile".
func (v *Verified[S, P]) String() string {
	return "verified " + v.classification.String()
}

// MarshalJSON encodes {"system": inner, "classification": "token"}.
func (v *Verified[S, P]) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		System         System[S, P] `json:"system"`
		Classification Triad        `json:"classification"`
	}{
		System:         v.inner,
		Classification: v.classification,
	})
}
