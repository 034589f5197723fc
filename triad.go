package antifragile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Triad is the three-way response to volatility.
//
// Values are ordered by desirability: Fragile < Robust < Antifragile. The
// underlying byte is the rank, so ordering, equality, map keys and
// slices.Sort all agree with Rank.
type Triad uint8

const (
	Fragile     Triad = iota // Harmed by volatility (concave) - least desirable
	Robust                   // Unaffected by volatility (linear) - neutral
	Antifragile              // Benefits from volatility (convex) - most desirable
)

// DefaultTriad is the neutral classification used when none has been
// computed. Note that the zero value of Triad is Fragile, not DefaultTriad.
const DefaultTriad = Robust

// AllTriads returns every variant in desirability order:
// [Fragile, Robust, Antifragile].
func AllTriads() []Triad {
	return []Triad{Fragile, Robust, Antifragile}
}

// TriadFromUint8 converts a rank back to a Triad.
// Values outside {0, 1, 2} return *InvalidTriadValueError.
func TriadFromUint8(b uint8) (Triad, error) {
	if b > uint8(Antifragile) {
		return DefaultTriad, &InvalidTriadValueError{Value: b}
	}
	return Triad(b), nil
}

// ParseTriad converts a token to a Triad, ignoring case.
// Anything other than "fragile", "robust" or "antifragile" returns
// ErrParseTriad.
func ParseTriad(s string) (Triad, error) {
	switch {
	case strings.EqualFold(s, "antifragile"):
		return Antifragile, nil
	case strings.EqualFold(s, "fragile"):
		return Fragile, nil
	case strings.EqualFold(s, "robust"):
		return Robust, nil
	default:
		return DefaultTriad, ErrParseTriad
	}
}

// Rank returns the desirability rank: Fragile=0, Robust=1, Antifragile=2.
func (t Triad) Rank() uint8 {
	return uint8(t)
}

// IsAntifragile reports whether t is the best classification.
func (t Triad) IsAntifragile() bool { return t == Antifragile }

// IsFragile reports whether t is the worst classification.
func (t Triad) IsFragile() bool { return t == Fragile }

// IsRobust reports whether t is the neutral classification.
func (t Triad) IsRobust() bool { return t == Robust }

// Opposite swaps Antifragile and Fragile. Robust is its own opposite.
func (t Triad) Opposite() Triad {
	switch t {
	case Antifragile:
		return Fragile
	case Fragile:
		return Antifragile
	default:
		return t
	}
}

// Compare returns -1, 0 or +1 as t ranks below, equal to or above other.
func (t Triad) Compare(other Triad) int {
	switch {
	case t < other:
		return -1
	case t > other:
		return 1
	default:
		return 0
	}
}

// String returns the canonical lowercase token.
func (t Triad) String() string {
	switch t {
	case Fragile:
		return "fragile"
	case Robust:
		return "robust"
	case Antifragile:
		return "antifragile"
	default:
		return "Triad(" + strconv.Itoa(int(t)) + ")"
	}
}

// Name returns the capitalized variant name, e.g. "Antifragile".
func (t Triad) Name() string {
	switch t {
	case Fragile:
		return "Fragile"
	case Robust:
		return "Robust"
	case Antifragile:
		return "Antifragile"
	default:
		return t.String()
	}
}

// Describe returns a human-readable explanation of the classification.
func (t Triad) Describe() string {
	switch t {
	case Fragile:
		return "Fragile (harmed by volatility)"
	case Robust:
		return "Robust (unaffected by volatility)"
	case Antifragile:
		return "Antifragile (benefits from volatility)"
	default:
		return t.String()
	}
}

// Shape names the payoff curvature behind t: concave, linear or convex.
func (t Triad) Shape() string {
	switch t {
	case Fragile:
		return "concave"
	case Antifragile:
		return "convex"
	default:
		return "linear"
	}
}

// MarshalText encodes t as its canonical token.
func (t Triad) MarshalText() ([]byte, error) {
	if t > Antifragile {
		return nil, &InvalidTriadValueError{Value: uint8(t)}
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a token accepted by ParseTriad.
func (t *Triad) UnmarshalText(text []byte) error {
	v, err := ParseTriad(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// UnmarshalJSON accepts either the token ("robust") or the rank (1).
func (t *Triad) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return t.UnmarshalText([]byte(s))
	}

	n, err := strconv.ParseUint(string(data), 10, 8)
	if err != nil {
		return fmt.Errorf("invalid triad rank %s: %w", data, err)
	}
	v, err := TriadFromUint8(uint8(n))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
