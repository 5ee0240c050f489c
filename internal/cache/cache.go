// Package cache defines the upstream response cache and typed helpers over it.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
)

// Cache stores encoded upstream responses by key.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
}

// Key builds the cache key for a spreadsheet response.
func Key(prefix, id, rng string) string {
	return fmt.Sprintf("gs:%s:%s:%s", prefix, id, rng)
}

// FetchJSON returns the cached value for key, or calls fetch and caches its result.
// Undecodable entries are treated as misses. Fetch errors are returned and never cached.
func FetchJSON[T any](ctx context.Context, c Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	if c != nil {
		if raw, ok := c.Get(key); ok {
			var cached T
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if c != nil {
		if raw, err := json.Marshal(value); err == nil {
			c.Set(key, raw)
		}
	}
	return value, nil
}

// Nop is a Cache that never stores anything.
type Nop struct{}

// Get always misses.
func (Nop) Get(string) ([]byte, bool) { return nil, false }

// Set discards value.
func (Nop) Set(string, []byte) {}
