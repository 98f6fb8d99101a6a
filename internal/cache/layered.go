package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache reads memory first, then the shared layer, promoting hits
type LayeredCache struct {
	memory    Cache
	remote    Cache
	memoryTTL time.Duration
}

// NewLayeredCache combines a memory layer with a slower shared one
func NewLayeredCache(memory, remote Cache, memoryTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory:    memory,
		remote:    remote,
		memoryTTL: memoryTTL,
	}
}

// Get checks memory, then the remote layer
func (c *LayeredCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if val, found := c.memory.Get(ctx, key); found {
		return val, true
	}

	if val, found := c.remote.Get(ctx, key); found {
		_ = c.memory.Set(ctx, key, val, c.memoryTTL)
		return val, true
	}

	return nil, false
}

// Set writes both layers; memory keeps the shorter of the two TTLs
func (c *LayeredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	memTTL := c.memoryTTL
	if ttl > 0 && ttl < memTTL {
		memTTL = ttl
	}
	if err := c.memory.Set(ctx, key, value, memTTL); err != nil {
		return err
	}
	return c.remote.Set(ctx, key, value, ttl)
}

// Delete removes a value from both layers
func (c *LayeredCache) Delete(ctx context.Context, key string) error {
	return errors.Join(c.memory.Delete(ctx, key), c.remote.Delete(ctx, key))
}

// Clear empties both layers
func (c *LayeredCache) Clear(ctx context.Context) error {
	return errors.Join(c.memory.Clear(ctx), c.remote.Clear(ctx))
}
