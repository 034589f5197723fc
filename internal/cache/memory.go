package cache

import (
	"context"
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	createdAt time.Time
	hits      uint64
}

// Memory is an in-process Store.
type Memory[V any] struct {
	mu      sync.RWMutex
	entries map[string]*entry[V]
	cfg     settings
}

var _ Store[int] = (*Memory[int])(nil)

// NewMemory creates an empty in-memory store.
func NewMemory[V any](opts ...Option) *Memory[V] {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Memory[V]{
		entries: make(map[string]*entry[V]),
		cfg:     cfg,
	}
}

func (m *Memory[V]) expired(e *entry[V], now time.Time) bool {
	return now.Sub(e.createdAt) >= m.cfg.ttl
}

// Get returns the live value for key and counts the hit.
func (m *Memory[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return zero, false, nil
	}
	if m.expired(e, m.cfg.now()) {
		delete(m.entries, key)
		return zero, false, nil
	}

	e.hits++
	return e.value, true, nil
}

// Set stores value under key with a fresh TTL.
func (m *Memory[V]) Set(ctx context.Context, key string, value V) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return ErrInvalidKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.cfg.now()
	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.cfg.capacity {
		m.removeExpired(now)
		if len(m.entries) >= m.cfg.capacity {
			m.evictOldest()
		}
	}

	m.entries[key] = &entry[V]{value: value, createdAt: now}
	return nil
}

// Stats sums hit counts over the live entries.
func (m *Memory[V]) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	st := Stats{Entries: len(m.entries)}
	for _, e := range m.entries {
		st.TotalHits += e.hits
	}
	return st, nil
}

// Cleanup drops expired entries.
func (m *Memory[V]) Cleanup(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.removeExpired(m.cfg.now()), nil
}

// Clear drops every entry.
func (m *Memory[V]) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.entries)
	return nil
}

// removeExpired must be called with mu held.
func (m *Memory[V]) removeExpired(now time.Time) int {
	removed := 0
	for k, e := range m.entries {
		if m.expired(e, now) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}

// evictOldest must be called with mu held.
func (m *Memory[V]) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for k, e := range m.entries {
		if !found || e.createdAt.Before(oldest) {
			oldestKey, oldest, found = k, e.createdAt, true
		}
	}
	if found {
		delete(m.entries, oldestKey)
	}
}
