package rbac

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache backend errors. Both are internal: callers degrade instead of failing
// the request.
var (
	// ErrCacheMiss indicates the key is absent.
	ErrCacheMiss = errors.New("rbac: cache miss")
	// ErrCacheUnavailable indicates the backing store cannot be reached.
	ErrCacheUnavailable = errors.New("rbac: cache unavailable")
)

// CacheBackend is the volatile store behind the permission cache. Keys are
// strings, values opaque bytes. Implementations must be safe for concurrent
// use; each operation is an independent single-key access.
type CacheBackend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

const backendOpTimeout = 5 * time.Second

// RedisBackend implements CacheBackend over a Redis client. Every operation
// carries a 5 second timeout; transport failures surface as
// ErrCacheUnavailable so callers fall back to recomputation.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend wraps an established Redis client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, backendOpTimeout)
	defer cancel()

	value, err := b.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("%w: get %s: %v", ErrCacheUnavailable, key, err)
	}
	return value, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, backendOpTimeout)
	defer cancel()

	if err := b.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrCacheUnavailable, key, err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, backendOpTimeout)
	defer cancel()

	if err := b.client.Del(ctx, key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: delete %s: %v", ErrCacheUnavailable, key, err)
	}
	return nil
}

// DeleteByPrefix evicts every key under prefix using SCAN, so a large keyspace
// never blocks the store the way KEYS would.
func (b *RedisBackend) DeleteByPrefix(ctx context.Context, prefix string) error {
	ctx, cancel := context.WithTimeout(ctx, backendOpTimeout)
	defer cancel()

	iter := b.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%w: scan %s: %v", ErrCacheUnavailable, prefix, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := b.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: delete prefix %s: %v", ErrCacheUnavailable, prefix, err)
	}
	return nil
}

var _ CacheBackend = (*RedisBackend)(nil)

// NoopBackend is the always-miss backend used when no cache store is
// configured. Reads miss, writes succeed silently.
type NoopBackend struct{}

func (NoopBackend) Get(context.Context, string) ([]byte, error)            { return nil, ErrCacheMiss }
func (NoopBackend) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NoopBackend) Delete(context.Context, string) error                   { return nil }
func (NoopBackend) DeleteByPrefix(context.Context, string) error           { return nil }

var _ CacheBackend = NoopBackend{}
