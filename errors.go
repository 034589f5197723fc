package antifragile

import (
	"errors"
	"fmt"
)

// ErrParseTriad is returned when a string is not one of "fragile", "robust"
// or "antifragile". The input is a closed set of three tokens, so the error
// deliberately carries no detail about the rejected string.
var ErrParseTriad = errors.New(`invalid triad string (expected "antifragile", "fragile", or "robust")`)

// InvalidTriadValueError is returned when a byte outside {0, 1, 2} is
// converted to a Triad.
type InvalidTriadValueError struct {
	Value uint8
}

func (e *InvalidTriadValueError) Error() string {
	return fmt.Sprintf("invalid triad value: %d (expected 0, 1, or 2)", e.Value)
}
