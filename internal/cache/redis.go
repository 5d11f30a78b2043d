package cache

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
)

var _ ReferenceCache = (*RedisCache)(nil)

// RedisCache keeps snapshots in Redis with a jittered TTL so terminals that
// loaded together do not all expire together.
type RedisCache struct {
	client  redis.UniversalClient
	baseTTL time.Duration
	jitter  time.Duration
}

// NewRedisCache returns a RedisCache. A zero ttl defaults to five minutes.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{
		client:  client,
		baseTTL: ttl,
		jitter:  ttl / 5,
	}
}

func (r *RedisCache) Get(ctx context.Context, key string) (*Reference, error) {
	data, err := r.client.Get(ctx, cacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	ref, err := decodeReference(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal reference failed: %w", err)
	}
	return ref, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, ref *Reference) error {
	ttl := r.baseTTL
	if r.jitter > 0 {
		ttl += rand.N(r.jitter)
	}
	if err := r.client.Set(ctx, cacheKey(key), encodeReference(ref), ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, cacheKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func cacheKey(key string) string {
	return "pos:reference:" + key
}
