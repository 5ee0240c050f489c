// Package memory provides an in-process expiring LRU cache.
package memory

import (
	"time"

	"github.com/JakeFAU/wi-election-guide/internal/metrics"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a size-bounded cache whose entries expire after a TTL.
type Cache struct {
	lru *expirable.LRU[string, []byte]
}

// New builds a Cache holding at most size entries for ttl each.
// A non-positive ttl disables expiry.
func New(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = 1
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get returns the cached bytes for key.
func (c *Cache) Get(key string) ([]byte, bool) {
	v, ok := c.lru.Get(key)
	metrics.ObserveCache(ok)
	return v, ok
}

// Set stores value under key.
func (c *Cache) Set(key string, value []byte) {
	c.lru.Add(key, value)
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}
