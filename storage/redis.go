package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

var _ Area = (*RedisArea)(nil)

// RedisArea is a durable area backed by Redis. Keys are namespaced with a prefix so several
// profiles can share one instance.
type RedisArea struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

type RedisAreaOption func(*RedisArea)

// WithTTL expires stored values after ttl. Zero keeps them until removed.
func WithTTL(ttl time.Duration) RedisAreaOption {
	return func(r *RedisArea) {
		r.ttl = ttl
	}
}

func NewRedisArea(client *goredis.Client, prefix string, options ...RedisAreaOption) *RedisArea {
	r := &RedisArea{
		client: client,
		prefix: prefix,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *RedisArea) Get(ctx context.Context, key string) (string, bool, error) {
	if r.client == nil {
		return "", false, errors.New("[RedisArea.Get] redis client is nil")
	}
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "[RedisArea.Get] %s", key)
	}
	return v, true, nil
}

func (r *RedisArea) Set(ctx context.Context, key, value string) error {
	if r.client == nil {
		return errors.New("[RedisArea.Set] redis client is nil")
	}
	if err := r.client.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		return errors.Wrapf(err, "[RedisArea.Set] %s", key)
	}
	return nil
}

func (r *RedisArea) Remove(ctx context.Context, key string) error {
	if r.client == nil {
		return errors.New("[RedisArea.Remove] redis client is nil")
	}
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return errors.Wrapf(err, "[RedisArea.Remove] %s", key)
	}
	return nil
}

func (r *RedisArea) key(key string) string {
	return r.prefix + key
}
