package cache

import (
	"context"
	"time"
)

// Store represents a shared keyed cache used across the application.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Increment atomically bumps a counter key and returns the new value.
	// Counter keys never expire; they back the flush invalidation strategy.
	Increment(ctx context.Context, key string) (int64, error)
}
