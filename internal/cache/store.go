// Package cache memoizes per-source evidence results behind a best-effort
// adapter: a broken or slow backend degrades to cache misses, never to
// failed requests.
package cache

import (
	"context"
	"time"
)

// Store is a byte-oriented key/value backend with per-entry expiry.
// Get reports found=false for missing and expired keys alike.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// NopStore never stores anything. Used when caching is disabled.
type NopStore struct{}

var _ Store = NopStore{}

// Get always misses.
func (NopStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

// Set discards the value.
func (NopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }

// Close is a no-op.
func (NopStore) Close() error { return nil }
