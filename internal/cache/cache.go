// Package cache holds computed results for a bounded time.
//
// Under repeated load more queries hit the cache, so responses get cheaper as
// traffic grows. Both backends expire entries after a TTL and stay under a
// capacity ceiling by first dropping expired entries and then the oldest one.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Defaults used when no option overrides them.
const (
	DefaultTTL      = 300 * time.Second
	DefaultCapacity = 10_000
	DefaultPrefix   = "antifragile:price:"
)

// ErrInvalidKey is returned for empty keys.
var ErrInvalidKey = errors.New("cache: invalid key")

// Stats is a point-in-time view of a store.
type Stats struct {
	Entries   int    `json:"entries"`
	TotalHits uint64 `json:"total_hits"`
}

// Store is a TTL cache of V keyed by string.
type Store[V any] interface {
	// Get returns the live value for key. Expired entries are misses.
	Get(ctx context.Context, key string) (V, bool, error)
	// Set stores value, evicting expired and then oldest entries at capacity.
	Set(ctx context.Context, key string, value V) error
	Stats(ctx context.Context) (Stats, error)
	// Cleanup removes expired entries and reports how many went.
	Cleanup(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

type settings struct {
	ttl      time.Duration
	capacity int
	prefix   string
	now      func() time.Time
}

func defaultSettings() settings {
	return settings{
		ttl:      DefaultTTL,
		capacity: DefaultCapacity,
		prefix:   DefaultPrefix,
		now:      time.Now,
	}
}

// Option configures a store.
type Option func(*settings)

// WithTTL sets how long an entry stays live.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithCapacity sets the maximum number of entries.
func WithCapacity(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithPrefix sets the key prefix. Only the Redis store uses it.
func WithPrefix(prefix string) Option {
	return func(s *settings) {
		s.prefix = prefix
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}

// RunCleanup calls store.Cleanup every interval until ctx is done.
func RunCleanup[V any](ctx context.Context, store Store[V], interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.Cleanup(ctx)
			if err != nil {
				logger.Warn("cache cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Debug("cache cleanup", "removed", removed)
			}
		}
	}
}
