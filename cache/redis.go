package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// TTL expires entries automatically; zero keeps them forever.
	TTL time.Duration
}

// RedisBackend implements Backend over a Redis instance.
type RedisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a new Redis backend
func NewRedis(cfg RedisConfig) *RedisBackend {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisBackend{client: client, ttl: cfg.TTL}
}

// NewRedisWithClient wraps an existing client (for tests)
func NewRedisWithClient(client *redis.Client, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, ttl: ttl}
}

func (r *RedisBackend) Write(ctx context.Context, key string, data []byte) error {
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("setting key %s: %w", key, err)
	}
	return nil
}

func (r *RedisBackend) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting key %s: %w", key, err)
	}
	return data, nil
}

func (r *RedisBackend) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := r.client.Keys(ctx, prefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	return keys, nil
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("deleting key %s: %w", key, err)
	}
	return nil
}

func (r *RedisBackend) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("checking key %s: %w", key, err)
	}
	return n > 0, nil
}

// Ping checks connection health
func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
