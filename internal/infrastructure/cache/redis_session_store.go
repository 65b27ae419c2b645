package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "ussd_session_"

// RedisSessionStore implements SessionStore on Redis with native TTL expiry.
type RedisSessionStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisSessionStore creates a Redis-backed session store sharing an
// existing client.
func NewRedisSessionStore(client *redis.Client, keyPrefix string) *RedisSessionStore {
	if keyPrefix == "" {
		keyPrefix = sessionKeyPrefix
	}
	return &RedisSessionStore{client: client, keyPrefix: keyPrefix}
}

// Get returns the stored value and whether the key exists
func (s *RedisSessionStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read session: %w", err)
	}
	return val, true, nil
}

// Set stores a value with a TTL
func (s *RedisSessionStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Delete removes a key
func (s *RedisSessionStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}

var _ shared.SessionStore = (*RedisSessionStore)(nil)
