package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "studybuddy:progress:"

// RedisBackend stores snapshots as plain string values. Keys carry no TTL; stale
// progress lives until cleared or overwritten.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects to the given redis:// URL and pings it.
func NewRedisBackend(ctx context.Context, url string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisBackend{client: client}, nil
}

// NewRedisBackendWithClient wraps an existing client.
func NewRedisBackendWithClient(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Load(ctx context.Context, key string) ([]byte, error) {
	doc, err := b.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return doc, err
}

func (b *RedisBackend) Save(ctx context.Context, key string, doc []byte) error {
	return b.client.Set(ctx, redisKeyPrefix+key, doc, 0).Err()
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	n, err := b.client.Del(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases the client.
func (b *RedisBackend) Close() error { return b.client.Close() }
