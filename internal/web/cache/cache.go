// Package cache holds API responses between writes
package cache

import (
	"context"
	"errors"
	"time"
)

// Cache defines the interface for all cache backends
type Cache interface {
	// Get retrieves a value from the cache. A missing key returns ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with a TTL. Zero uses the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from the cache
	Clear(ctx context.Context) error

	// Close releases the backend
	Close() error
}

// Config holds common configuration for cache backends
type Config struct {
	// DefaultTTL is the default time-to-live for cached items
	DefaultTTL time.Duration
	// Prefix is prepended to all cache keys
	Prefix string
}

// DefaultConfig returns a default cache configuration
func DefaultConfig() Config {
	return Config{
		DefaultTTL: time.Minute,
		Prefix:     "dataservice:",
	}
}

// ErrMiss is returned when a key is not found in the cache
var ErrMiss = errors.New("cache miss")

// IsMiss checks if an error is a cache miss
func IsMiss(err error) bool {
	return errors.Is(err, ErrMiss)
}
