package metrics

import (
	"sync/atomic"

	"github.com/alexshd/antifragile"
)

// View is a System over the live service, pinned to one snapshot at a time.
//
// Payoff reads the pinned snapshot, so the three samples of a convexity test
// always see the same counters. Refresh moves the pin to the latest values.
type View struct {
	metrics *ServiceMetrics
	pinned  atomic.Pointer[Snapshot]
}

var (
	_ antifragile.System[float64, float64] = (*View)(nil)
)

// NewView creates a view pinned to the current snapshot of m.
func NewView(m *ServiceMetrics) *View {
	v := &View{metrics: m}
	v.Refresh()
	return v
}

// Refresh pins the latest snapshot and returns it.
func (v *View) Refresh() Snapshot {
	s := v.metrics.Snapshot()
	v.pinned.Store(&s)
	return s
}

// Snapshot returns the pinned snapshot.
func (v *View) Snapshot() Snapshot {
	return *v.pinned.Load()
}

// Payoff evaluates the pinned snapshot at load.
func (v *View) Payoff(load float64) float64 {
	return v.pinned.Load().Payoff(load)
}
