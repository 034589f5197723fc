package antifragile

// Convexity holds the samples of one convexity test:
//
//	Minus = f(x-Δ), At = f(x), Plus = f(x+Δ)
//	Sum   = Plus + Minus
//	Twin  = Twin(At)
type Convexity[P Payoff] struct {
	Minus P
	At    P
	Plus  P
	Sum   P
	Twin  P
}

// Classify applies the exact comparison:
//
//	Sum > Twin → Antifragile
//	Sum < Twin → Fragile
//	otherwise  → Robust
func (c Convexity[P]) Classify() Triad {
	switch {
	case c.Sum > c.Twin:
		return Antifragile
	case c.Sum < c.Twin:
		return Fragile
	default:
		return Robust
	}
}

// ClassifyWithin treats |Sum - Twin| ≤ epsilon as Robust and otherwise applies
// the exact comparison. epsilon must be non-negative.
func (c Convexity[P]) ClassifyWithin(epsilon P) Triad {
	if absDiff(c.Sum, c.Twin) <= epsilon {
		return Robust
	}
	if c.Sum > c.Twin {
		return Antifragile
	}
	return Fragile
}

// Gap returns |Sum - Twin|, the size of the discrete second difference.
func (c Convexity[P]) Gap() P {
	return absDiff(c.Sum, c.Twin)
}

// Probe samples sys at at-delta, at and at+delta, in that order.
func Probe[S Stressor, P Payoff](sys System[S, P], at, delta S) Convexity[P] {
	minus := sys.Payoff(at - delta)
	fx := sys.Payoff(at)
	plus := sys.Payoff(at + delta)

	return Convexity[P]{
		Minus: minus,
		At:    fx,
		Plus:  plus,
		Sum:   plus + minus,
		Twin:  Twin(sys, fx),
	}
}

// Classify places sys on the Triad at operating point at using Taleb's
// convexity test:
//
//	f(at+delta) + f(at-delta)  vs  Twin(f(at))
//
// The comparison is exact. A zero delta always yields Robust. For
// floating-point payoffs, where exact ties are rare, prefer
// ClassifyWithTolerance.
func Classify[S Stressor, P Payoff](sys System[S, P], at, delta S) Triad {
	return Probe(sys, at, delta).Classify()
}

// ClassifyWithTolerance is Classify with outcomes within epsilon of each
// other treated as equal.
//
// Tolerance only demotes a result to Robust; it never moves the boundary
// between Fragile and Antifragile. Behaviour for a negative epsilon is
// unspecified.
func ClassifyWithTolerance[S Stressor, P Payoff](sys System[S, P], at, delta S, epsilon P) Triad {
	return Probe(sys, at, delta).ClassifyWithin(epsilon)
}

// IsAntifragile reports whether sys is convex at (at, delta).
func IsAntifragile[S Stressor, P Payoff](sys System[S, P], at, delta S) bool {
	return Classify(sys, at, delta) == Antifragile
}

// GainsFromStress reports whether payoff(high) > payoff(low).
//
// This is a monotonicity check, not a convexity test. A learning system, or a
// cache that warms up, can gain from stress while being mathematically
// concave.
func GainsFromStress[S Stressor, P Payoff](sys System[S, P], low, high S) bool {
	return sys.Payoff(high) > sys.Payoff(low)
}

// IsStable reports whether |payoff(high) - payoff(low)| ≤ threshold.
func IsStable[S Stressor, P Payoff](sys System[S, P], low, high S, threshold P) bool {
	return absDiff(sys.Payoff(high), sys.Payoff(low)) <= threshold
}

// absDiff returns |a - b| without relying on signed arithmetic, so unsigned
// payoffs never wrap.
func absDiff[P Payoff](a, b P) P {
	if a >= b {
		return a - b
	}
	return b - a
}
