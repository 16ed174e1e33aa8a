package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// TextCache stores short-lived text blobs keyed by a hash.
type TextCache interface {
	Get(ctx context.Context, hash string) (string, error)
	Set(ctx context.Context, hash, value string, ttl time.Duration) error
}

// RedisClient is a TextCache backed by redis string keys.
type RedisClient struct {
	client *redis.Client
	prefix string
}

// Connect parses a redis URL and verifies the connection.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// NewRedisClient wraps an existing connection. Keys are stored under prefix.
func NewRedisClient(client *redis.Client, prefix string) *RedisClient {
	return &RedisClient{
		client: client,
		prefix: prefix + "text:",
	}
}

func (r *RedisClient) Get(ctx context.Context, hash string) (string, error) {
	value, err := r.client.Get(ctx, r.prefix+hash).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	if err != nil {
		return "", fmt.Errorf("redis get error: %w", err)
	}
	return value, nil
}

func (r *RedisClient) Set(ctx context.Context, hash, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefix+hash, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

// Clear removes every cached entry under the prefix.
func (r *RedisClient) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("error scanning keys: %w", err)
	}

	if len(keys) > 0 {
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("error deleting keys: %w", err)
		}
	}

	return nil
}
