package metrics

import (
	"slices"
	"sync"
	"time"
)

// LatencyWindow keeps the most recent response times in a ring buffer and
// answers percentile queries over them.
//
// The tail ratio P99/P50 is the quickest check on whether the mean can be
// trusted: a ratio near 1 means latencies are tight, a large ratio means a
// few slow requests dominate the average.
type LatencyWindow struct {
	mu          sync.RWMutex
	samples     []time.Duration
	writeIndex  int
	sampleCount int64
}

// NewLatencyWindow creates a window over the last size samples
// (1000 when size <= 0).
func NewLatencyWindow(size int) *LatencyWindow {
	if size <= 0 {
		size = 1000
	}
	return &LatencyWindow{samples: make([]time.Duration, size)}
}

// Record adds one sample, overwriting the oldest once the window is full.
func (w *LatencyWindow) Record(latency time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.samples[w.writeIndex] = latency
	w.writeIndex = (w.writeIndex + 1) % len(w.samples)
	w.sampleCount++
}

// Count returns the total number of samples ever recorded.
func (w *LatencyWindow) Count() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.sampleCount
}

func (w *LatencyWindow) P50() time.Duration  { return w.Percentile(0.50) }
func (w *LatencyWindow) P99() time.Duration  { return w.Percentile(0.99) }
func (w *LatencyWindow) P999() time.Duration { return w.Percentile(0.999) }

// Percentile returns the p-th percentile (0 ≤ p ≤ 1) of the window, or 0
// when it is empty.
func (w *LatencyWindow) Percentile(p float64) time.Duration {
	w.mu.RLock()
	n := w.effective()
	sorted := slices.Clone(w.samples[:n])
	w.mu.RUnlock()

	if n == 0 {
		return 0
	}
	slices.Sort(sorted)

	index := int(float64(n-1) * p)
	index = max(0, min(index, n-1))
	return sorted[index]
}

// Mean returns the average of the window.
func (w *LatencyWindow) Mean() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()

	n := w.effective()
	if n == 0 {
		return 0
	}

	var sum time.Duration
	for _, s := range w.samples[:n] {
		sum += s
	}
	return sum / time.Duration(n)
}

// TailRatio returns P99/P50, or 1 while there is no median to divide by.
func (w *LatencyWindow) TailRatio() float64 {
	p50 := w.P50()
	if p50 == 0 {
		return 1
	}
	return float64(w.P99()) / float64(p50)
}

// effective must be called with mu held.
func (w *LatencyWindow) effective() int {
	if w.sampleCount < int64(len(w.samples)) {
		return int(w.sampleCount)
	}
	return len(w.samples)
}
