package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/ppiankov/claimlens/internal/model"
)

// New builds the cache described by cfg.
// Redis wins over a disk directory; with neither, only the memory layer is used.
// The returned close function is never nil.
func New(ctx context.Context, cfg model.CacheConfig) (Cache, func() error, error) {
	memory := NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	noop := func() error { return nil }

	switch {
	case cfg.RedisURL != "":
		remote, err := NewRedisCache(ctx, cfg.RedisURL, cfg.TTL)
		if err != nil {
			return nil, noop, err
		}
		slog.Info("[Cache] using memory + redis layers")
		return NewLayeredCache(memory, remote, cfg.MemoryTTL), remote.Close, nil
	case cfg.Dir != "":
		slog.Info("[Cache] using memory + disk layers", "dir", cfg.Dir)
		return NewLayeredCache(memory, NewDiskCache(cfg.Dir, cfg.TTL), cfg.MemoryTTL), noop, nil
	default:
		return memory, noop, nil
	}
}
