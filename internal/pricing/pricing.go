// Package pricing computes product prices for the demo service.
//
// The calculation is deliberately slow so that caching it changes how the
// service responds to load.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Request limits enforced by Validate.
const (
	MaxQuantity     = 100_000
	MaxProductIDLen = 128
	MaxOptions      = 20
)

// ErrInvalidQuery is wrapped by every Validate failure.
var ErrInvalidQuery = errors.New("invalid price query")

// Query is one product configuration to price.
type Query struct {
	ProductID string   `json:"product_id"`
	Quantity  uint32   `json:"quantity"`
	Options   []string `json:"options"`
}

// Result is a computed price breakdown.
type Result struct {
	BasePrice        float64 `json:"base_price"`
	QuantityDiscount float64 `json:"quantity_discount"`
	OptionsCost      float64 `json:"options_cost"`
	TotalPrice       float64 `json:"total_price"`
}

// Validate rejects queries outside the request limits.
func (q Query) Validate() error {
	switch {
	case q.Quantity == 0:
		return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidQuery)
	case q.Quantity > MaxQuantity:
		return fmt.Errorf("%w: quantity %d exceeds %d", ErrInvalidQuery, q.Quantity, MaxQuantity)
	case q.ProductID == "":
		return fmt.Errorf("%w: product_id is required", ErrInvalidQuery)
	case len(q.ProductID) > MaxProductIDLen:
		return fmt.Errorf("%w: product_id longer than %d bytes", ErrInvalidQuery, MaxProductIDLen)
	case len(q.Options) > MaxOptions:
		return fmt.Errorf("%w: %d options exceeds %d", ErrInvalidQuery, len(q.Options), MaxOptions)
	}
	return nil
}

// Normalize returns q with the product id trimmed and options sorted.
// Options are additive, so their order never changes the price.
func (q Query) Normalize() Query {
	out := Query{
		ProductID: strings.TrimSpace(q.ProductID),
		Quantity:  q.Quantity,
		Options:   slices.Clone(q.Options),
	}
	slices.Sort(out.Options)
	return out
}

// Key is a stable cache key. Queries that normalize to the same value share
// a key.
func (q Query) Key() string {
	n := q.Normalize()

	var b strings.Builder
	b.WriteString(n.ProductID)
	b.WriteByte('|')
	b.WriteString(strconv.FormatUint(uint64(n.Quantity), 10))
	for _, opt := range n.Options {
		b.WriteByte('|')
		b.WriteString(opt)
	}
	return b.String()
}

var basePrices = map[string]float64{
	"widget-001":  10.00,
	"widget-002":  15.00,
	"gadget-001":  25.00,
	"gadget-002":  35.00,
	"premium-001": 100.00,
	"premium-002": 150.00,
}

const defaultBasePrice = 20.00

// BasePrice returns the unit price of productID.
func BasePrice(productID string) float64 {
	if p, ok := basePrices[productID]; ok {
		return p
	}
	return defaultBasePrice
}

// DiscountRate returns the volume discount for quantity.
func DiscountRate(quantity uint32) float64 {
	switch {
	case quantity <= 10:
		return 0
	case quantity <= 50:
		return 0.05
	case quantity <= 100:
		return 0.10
	case quantity <= 500:
		return 0.15
	default:
		return 0.20
	}
}

// OptionsCost returns the per-unit surcharge of options. Unknown options
// cost nothing.
func OptionsCost(options []string, basePrice float64) float64 {
	var cost float64
	for _, opt := range options {
		switch opt {
		case "express-shipping":
			cost += 5.00 + basePrice*0.02
		case "gift-wrap":
			cost += 3.00
		case "insurance":
			cost += basePrice * 0.05
		case "priority-support":
			cost += 10.00
		case "extended-warranty":
			cost += basePrice * 0.15
		}
	}
	return cost
}

// Compute prices q without any simulated delay.
func Compute(q Query) Result {
	base := BasePrice(q.ProductID)
	subtotal := base * float64(q.Quantity)
	discount := subtotal * DiscountRate(q.Quantity)
	options := OptionsCost(q.Options, base) * float64(q.Quantity)

	return Result{
		BasePrice:        base,
		QuantityDiscount: discount,
		OptionsCost:      options,
		TotalPrice:       math.Round((subtotal-discount+options)*100) / 100,
	}
}

// Calculator prices queries with a simulated computation cost.
type Calculator struct {
	BaseDelay     time.Duration
	JitterModulus int
}

// NewCalculator returns a Calculator costing baseDelay plus
// len(product_id) % jitterModulus milliseconds per query.
func NewCalculator(baseDelay time.Duration, jitterModulus int) *Calculator {
	if jitterModulus <= 0 {
		jitterModulus = 1
	}
	return &Calculator{BaseDelay: baseDelay, JitterModulus: jitterModulus}
}

// Delay returns the simulated cost of pricing q.
func (c *Calculator) Delay(q Query) time.Duration {
	jitter := time.Duration(len(q.ProductID)%c.JitterModulus) * time.Millisecond
	return c.BaseDelay + jitter
}

// Calculate prices q after its simulated delay. It returns ctx.Err() if the
// context ends first.
func (c *Calculator) Calculate(ctx context.Context, q Query) (Result, error) {
	timer := time.NewTimer(c.Delay(q))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-timer.C:
	}

	return Compute(q), nil
}
