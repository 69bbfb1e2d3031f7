// Package cache provides caching of backend responses to avoid repeating
// identical lookups when the user returns to a pin or property.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Defaults for the response cache.
const (
	DefaultTTL  = 5 * time.Minute
	DefaultSize = 256
)

// Responses is a size-bounded, thread-safe cache of response bodies keyed by
// request URL. Entries expire after the configured TTL.
type Responses struct {
	lru *expirable.LRU[string, []byte]
}

// NewResponses creates a cache holding at most size entries for ttl each.
// Non-positive values fall back to the defaults.
func NewResponses(size int, ttl time.Duration) *Responses {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Responses{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Set stores body under key
func (c *Responses) Set(key string, body []byte) {
	c.lru.Add(key, body)
}

// Get retrieves a body from the cache.
// Returns the body and a bool indicating if it was found
func (c *Responses) Get(key string) ([]byte, bool) {
	return c.lru.Get(key)
}

// Delete removes key from the cache
func (c *Responses) Delete(key string) {
	c.lru.Remove(key)
}

// Count returns the number of live entries
func (c *Responses) Count() int {
	return c.lru.Len()
}

// Clear removes all entries
func (c *Responses) Clear() {
	c.lru.Purge()
}
