package frequency

import (
	gocache "github.com/patrickmn/go-cache"
)

// Cache holds resolved frequency results for the lifetime of one run.
// Entries never expire; failures are cached alongside successes.
type Cache struct {
	cache *gocache.Cache
}

// NewCache creates an empty run-scoped cache.
func NewCache() *Cache {
	return &Cache{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get returns the cached result for k.
func (c *Cache) Get(k Key) (Result, bool) {
	if val, found := c.cache.Get(k.String()); found {
		return val.(Result), true
	}
	return Result{}, false
}

// Set stores the result for k.
func (c *Cache) Set(k Key, r Result) {
	c.cache.Set(k.String(), r, gocache.NoExpiration)
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	return c.cache.ItemCount()
}
