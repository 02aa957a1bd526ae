package credential

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is returned when the backend has no client.
var ErrRedisUnavailable = errors.New("redis unavailable")

// RedisBackend stores entries as plain string keys. Multi-key writes run inside a single
// MULTI/EXEC transaction.
type RedisBackend struct {
	redis redis.UniversalClient
	ttl   time.Duration
}

// NewRedisBackend returns a backend on the given client. A positive ttl expires every
// written key; zero keeps keys until removed.
//
//	Performance: 1 round-trip per Load, Store, and Remove.
func NewRedisBackend(client redis.UniversalClient, ttl time.Duration) *RedisBackend {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisBackend{redis: client, ttl: ttl}
}

func (r *RedisBackend) Load(ctx context.Context, keys ...string) (map[string]string, error) {
	if r == nil || r.redis == nil {
		return nil, ErrRedisUnavailable
	}
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	vals, err := r.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		if i >= len(keys) || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			out[keys[i]] = s
		}
	}
	return out, nil
}

func (r *RedisBackend) Store(ctx context.Context, values map[string]string) error {
	if r == nil || r.redis == nil {
		return ErrRedisUnavailable
	}
	if len(values) == 0 {
		return nil
	}

	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, k, v, r.ttl)
		}
		return nil
	})
	return err
}

func (r *RedisBackend) Remove(ctx context.Context, keys ...string) error {
	if r == nil || r.redis == nil {
		return ErrRedisUnavailable
	}
	if len(keys) == 0 {
		return nil
	}
	return r.redis.Del(ctx, keys...).Err()
}
