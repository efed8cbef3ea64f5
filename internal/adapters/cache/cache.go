package cache

import (
	"context"
	"sync"
)

// Cache is a string-keyed ephemeral store. The email session state keeps a
// single logical slot here so drafts survive restarts of the serving process.
type Cache interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// MemCache is an in-memory Cache for development and tests.
type MemCache struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemCache creates an empty MemCache.
func NewMemCache() *MemCache {
	return &MemCache{values: make(map[string]string)}
}

// Get returns the value for key.
// POST: Second return is false if the key is absent
func (c *MemCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok, nil
}

// Set stores a value under key, replacing any existing value.
func (c *MemCache) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

// Remove deletes a key. Removing an absent key is not an error.
func (c *MemCache) Remove(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}
