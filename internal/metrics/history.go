package metrics

import (
	"slices"
	"sync"
	"time"

	"github.com/alexshd/antifragile"
	"github.com/google/uuid"
)

// HistoryEntry is one classification of the service, taken from a snapshot.
type HistoryEntry struct {
	ID                string            `json:"id"`
	Timestamp         time.Time         `json:"timestamp"`
	TotalRequests     uint64            `json:"total_requests"`
	CacheHitRate      float64           `json:"cache_hit_rate"`
	AvgResponseTimeMs float64           `json:"avg_response_time_ms"`
	Load              float64           `json:"load"`
	Classification    antifragile.Triad `json:"classification"`
}

// History is a bounded, append-only list of entries. When it grows past
// its cap the oldest drain entries are dropped in one go.
type History struct {
	mu      sync.RWMutex
	entries []HistoryEntry
	limit   int
	drain   int
}

// NewHistory creates a history holding at most capacity entries.
func NewHistory(capacity, drain int) *History {
	if capacity <= 0 {
		capacity = 1000
	}
	if drain <= 0 || drain > capacity {
		drain = max(1, capacity/10)
	}
	return &History{limit: capacity, drain: drain}
}

// Append stores e, assigning an ID when it has none.
func (h *History) Append(e HistoryEntry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, e)
	if len(h.entries) > h.limit {
		h.entries = slices.Delete(h.entries, 0, h.drain)
	}
}

// Entries returns a copy, oldest first.
func (h *History) Entries() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.entries)
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Counts tallies entries per classification.
func (h *History) Counts() map[antifragile.Triad]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	counts := make(map[antifragile.Triad]int, 3)
	for _, e := range h.entries {
		counts[e.Classification]++
	}
	return counts
}
