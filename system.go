package antifragile

import "golang.org/x/exp/constraints"

// Stressor is the type of applied stress (load, volatility, perturbation).
// It must support copy, addition and subtraction.
type Stressor interface {
	constraints.Integer | constraints.Float
}

// Payoff is the type of outcome a system produces under stress.
// It must support copy, addition, subtraction and ordering.
//
// Floating-point payoffs may carry NaN. Comparisons involving NaN are
// unordered and the resulting classification is unspecified.
type Payoff interface {
	constraints.Integer | constraints.Float
}

// System is anything whose outcome can be measured under stress.
//
// Payoff must be deterministic: the convexity test samples it three times and
// assumes the same stressor always produces the same payoff.
type System[S Stressor, P Payoff] interface {
	Payoff(stressor S) P
}

// Twinner is implemented by systems with their own doubling of a payoff.
//
// The convexity test compares f(x+Δ) + f(x-Δ) against Twin(f(x)). Without an
// override Twin is p + p.
type Twinner[P Payoff] interface {
	Twin(p P) P
}

// PayoffFunc adapts an ordinary function into a System.
type PayoffFunc[S Stressor, P Payoff] func(S) P

// Payoff calls f(stressor).
func (f PayoffFunc[S, P]) Payoff(stressor S) P {
	return f(stressor)
}

// Func wraps f as a System, inferring the stressor and payoff types.
func Func[S Stressor, P Payoff](f func(S) P) PayoffFunc[S, P] {
	return PayoffFunc[S, P](f)
}

// Twin doubles p the way sys does: sys.Twin(p) when sys implements Twinner,
// p + p otherwise.
func Twin[S Stressor, P Payoff](sys System[S, P], p P) P {
	if t, ok := sys.(Twinner[P]); ok {
		return t.Twin(p)
	}
	return p + p
}
