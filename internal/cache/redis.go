package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store shared between service instances.
//
// Values are JSON-encoded under prefix+key with a PX expiry. A sorted set at
// prefix+"index" scores each key by its creation time in microseconds; it
// backs capacity eviction and Cleanup. prefix+"hits" counts hits.
type Redis[V any] struct {
	client redis.UniversalClient
	cfg    settings
}

var _ Store[int] = (*Redis[int])(nil)

// NewRedis connects to addr.
func NewRedis[V any](addr, password string, db int, opts ...Option) *Redis[V] {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisFromClient[V](client, opts...)
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient[V any](client redis.UniversalClient, opts ...Option) *Redis[V] {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Redis[V]{client: client, cfg: cfg}
}

func (r *Redis[V]) key(k string) string { return r.cfg.prefix + k }
func (r *Redis[V]) indexKey() string    { return r.cfg.prefix + "index" }
func (r *Redis[V]) hitsKey() string     { return r.cfg.prefix + "hits" }

func (r *Redis[V]) nowScore() float64 {
	return float64(r.cfg.now().UnixMicro())
}

// Ping checks the connection.
func (r *Redis[V]) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *Redis[V]) Close() error {
	return r.client.Close()
}

// Get returns the live value for key and counts the hit.
func (r *Redis[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V

	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		// Redis expired the value; drop it from the index too.
		if err := r.client.ZRem(ctx, r.indexKey(), key).Err(); err != nil {
			return zero, false, fmt.Errorf("failed to unindex %s: %w", key, err)
		}
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("failed to get from redis: %w", err)
	}

	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}

	if err := r.client.Incr(ctx, r.hitsKey()).Err(); err != nil {
		return zero, false, fmt.Errorf("failed to count hit: %w", err)
	}
	return v, true, nil
}

// Set stores value under key with a fresh TTL.
func (r *Redis[V]) Set(ctx context.Context, key string, value V) error {
	if key == "" {
		return ErrInvalidKey
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	if err := r.makeRoom(ctx, key); err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(key), data, r.cfg.ttl)
	pipe.ZAdd(ctx, r.indexKey(), redis.Z{Score: r.nowScore(), Member: key})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// makeRoom frees a slot for a new key when the index is full.
func (r *Redis[V]) makeRoom(ctx context.Context, key string) error {
	err := r.client.ZScore(ctx, r.indexKey(), key).Err()
	if err == nil {
		return nil // overwrite, no new slot needed
	}
	if !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to look up %s: %w", key, err)
	}

	size, err := r.client.ZCard(ctx, r.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to size index: %w", err)
	}
	if size < int64(r.cfg.capacity) {
		return nil
	}

	removed, err := r.Cleanup(ctx)
	if err != nil {
		return err
	}
	if size-int64(removed) < int64(r.cfg.capacity) {
		return nil
	}

	oldest, err := r.client.ZPopMin(ctx, r.indexKey(), 1).Result()
	if err != nil {
		return fmt.Errorf("failed to evict: %w", err)
	}
	for _, z := range oldest {
		if err := r.client.Del(ctx, r.key(fmt.Sprint(z.Member))).Err(); err != nil {
			return fmt.Errorf("failed to evict %v: %w", z.Member, err)
		}
	}
	return nil
}

// Stats reports indexed entries and hits counted since the last Clear.
func (r *Redis[V]) Stats(ctx context.Context) (Stats, error) {
	size, err := r.client.ZCard(ctx, r.indexKey()).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("failed to size index: %w", err)
	}

	hits, err := r.client.Get(ctx, r.hitsKey()).Uint64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Stats{}, fmt.Errorf("failed to read hits: %w", err)
	}

	return Stats{Entries: int(size), TotalHits: hits}, nil
}

// Cleanup removes index entries older than the TTL along with their values.
func (r *Redis[V]) Cleanup(ctx context.Context) (int, error) {
	cutoff := strconv.FormatInt(r.cfg.now().Add(-r.cfg.ttl).UnixMicro(), 10)

	stale, err := r.client.ZRangeByScore(ctx, r.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: cutoff,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to scan index: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	keys := make([]string, len(stale))
	members := make([]any, len(stale))
	for i, k := range stale {
		keys[i] = r.key(k)
		members[i] = k
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.ZRem(ctx, r.indexKey(), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to clean up: %w", err)
	}
	return len(stale), nil
}

// Clear removes every entry, the index and the hit counter.
func (r *Redis[V]) Clear(ctx context.Context) error {
	members, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to scan index: %w", err)
	}

	keys := []string{r.indexKey(), r.hitsKey()}
	for _, m := range members {
		keys = append(keys, r.key(m))
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear: %w", err)
	}
	return nil
}
