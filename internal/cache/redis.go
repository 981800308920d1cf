package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisTimeout       = 5 * time.Second
	defaultRedisRetryAttempts = 3
	defaultRedisRetryInterval = 500 * time.Millisecond
)

// ErrRedisNotReady is returned when no connection could be established.
var ErrRedisNotReady = errors.New("redis: server not ready")

// RedisConfig captures the connection parameters for Redis.
type RedisConfig struct {
	URL           string
	Timeout       time.Duration
	RetryAttempts int
	RetryInterval time.Duration
}

// Connect parses cfg.URL and pings the server, retrying until the attempts
// are exhausted or the timeout expires.
func Connect(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRedisTimeout
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = defaultRedisRetryAttempts
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultRedisRetryInterval
	}

	opts, err := redis.ParseURL(strings.TrimSpace(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	opts.DialTimeout = cfg.Timeout
	opts.ReadTimeout = cfg.Timeout
	opts.WriteTimeout = cfg.Timeout

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout*time.Duration(cfg.RetryAttempts))
	defer cancel()

	var lastErr error
	for range cfg.RetryAttempts {
		client := redis.NewClient(opts)
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}
	return nil, errors.Join(ErrRedisNotReady, lastErr)
}

// RedisStore implements Store on a Redis server.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore wraps a connected client.
func NewRedisStore(client redis.Cmdable) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("cache: redis client is required")
	}
	return &RedisStore{client: client}, nil
}

// IncrementWithTTL increments key and starts its expiry on the first hit of a window.
func (s *RedisStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	key = prefixed(key)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("cache: redis increment: %w", err)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		// first hit of a window, or a key that lost its expiry
		if err := s.client.PExpire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("cache: redis expire: %w", err)
		}
		remaining = window
	}
	return incr.Val(), remaining, nil
}

// Set stores value under key; a non-positive ttl keeps the key forever.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, prefixed(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

// Get returns the value stored under key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, prefixed(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: redis get: %w", err)
	}
	return value, true, nil
}

// Delete removes keys.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, key := range keys {
		full = append(full, prefixed(key))
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("cache: redis delete: %w", err)
	}
	return nil
}

func prefixed(key string) string {
	if strings.HasPrefix(key, KeyPrefix) {
		return key
	}
	return KeyPrefix + key
}
