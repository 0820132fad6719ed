package coupons

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSession stores applied coupon codes in Redis with a TTL.
type RedisSession struct {
	client *redis.Client
}

// NewRedisSession creates a Redis-backed SessionStore.
func NewRedisSession(client *redis.Client) *RedisSession {
	return &RedisSession{client: client}
}

// Get returns the stored value or "" when the key is absent.
func (s *RedisSession) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

// Set stores value under key for ttl.
func (s *RedisSession) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Del removes key.
func (s *RedisSession) Del(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
