package kvstore

import (
	"context"
	"errors"

	"taskhub/pkg/cache"
)

// Redis stores values without expiry, like browser local storage.
type Redis struct {
	cache *cache.RedisCache
}

func NewRedis(c *cache.RedisCache) *Redis {
	return &Redis{cache: c}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.cache.GetString(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.cache.SetString(ctx, key, value, 0)
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	return r.cache.Delete(ctx, keys...)
}
