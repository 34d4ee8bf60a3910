package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements Store on a redis server.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to the store at the given connection string
// (redis://host:port form). Command timeouts are short so that a slow store
// degrades the routing hints instead of the payment path.
func NewRedis(connString string) (*Redis, error) {
	opts, err := redis.ParseURL(connString)
	if err != nil {
		return nil, fmt.Errorf("parse store connection string: %w", err)
	}
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = time.Second
	opts.WriteTimeout = time.Second

	return &Redis{client: redis.NewClient(opts)}, nil
}

// Ping verifies connectivity. Used at startup only; a failed ping is a
// warning, not a fatal error.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client's connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *Redis) IncrBy(ctx context.Context, key string, delta int64) error {
	return r.client.IncrBy(ctx, key, delta).Err()
}

func (r *Redis) IncrByFloat(ctx context.Context, key string, delta float64) error {
	return r.client.IncrByFloat(ctx, key, delta).Err()
}

func (r *Redis) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}
