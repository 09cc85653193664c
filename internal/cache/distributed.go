package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// TypedCache is the Get/Set surface both SmartCache and
// DistributedSmartCache implement, letting callers (the screening Engine)
// take either without caring which backs it.
type TypedCache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T, ttl time.Duration)
}

// BytesCache is the narrow byte-oriented cache contract the distributed
// backend and the in-process SmartCache's Redis mirror both satisfy.
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)
}

// RedisCache adapts a redis client to BytesCache. Failures are logged and
// treated as a miss/no-op, never returned to the caller — cache backend
// outages must not fail request paths.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache dials addr. Connection errors surface only on first use.
func NewRedisCache(addr string) *RedisCache {
	return &RedisCache{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	v, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Str("key", key).Msg("cache: redis get failed")
		}
		return nil, false
	}
	return v, true
}

func (r *RedisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	if err := r.client.Set(ctx, key, val, ttl).Err(); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("cache: redis set failed")
	}
}

// DistributedSmartCache wraps a BytesCache and (de)serializes typed values
// through it via JSON, giving SmartCache's Get/Set surface without the
// local LRU/eviction bookkeeping — eviction is left to Redis's own memory
// policy in this mode.
type DistributedSmartCache[T any] struct {
	backend BytesCache
	timeout time.Duration
}

// NewDistributedSmartCache builds a distributed cache over backend.
func NewDistributedSmartCache[T any](backend BytesCache) *DistributedSmartCache[T] {
	return &DistributedSmartCache[T]{backend: backend, timeout: 500 * time.Millisecond}
}

func (d *DistributedSmartCache[T]) Get(key string) (T, bool) {
	var zero T
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	raw, ok := d.backend.Get(ctx, key)
	if !ok {
		return zero, false
	}
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return zero, false
	}
	return value, true
}

func (d *DistributedSmartCache[T]) Set(key string, value T, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	d.backend.Set(ctx, key, raw, ttl)
}
