// Package cache provides the shared counter and key/value store used for
// request throttling, backed by Redis when configured and by the primary
// database otherwise.
package cache

import (
	"context"
	"time"
)

// KeyPrefix namespaces every key the service writes.
const KeyPrefix = "notifier:"

// Store represents a shared cache interface used across the application.
type Store interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}
