package dockerstats

import (
	"context"
	"sync"

	"github.com/docker/docker/api/types"
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

const defaultDetailsCacheSize = 32

// InspectFunc returns the details of a container, typically
// client.ContainerAPIClient.ContainerInspect.
type InspectFunc func(ctx context.Context, containerID string) (types.ContainerJSON, error)

// CacheStats is a snapshot of the DetailsCache counters.
type CacheStats struct {
	Hits        uint64
	Misses      uint64
	MaxSize     int
	CurrentSize int
}

// DetailsCache is a bounded LRU cache of container details keyed by
// container id. Entries are only evicted when the cache is full.
type DetailsCache struct {
	mu      sync.Mutex
	lru     *simplelru.LRU[string, types.ContainerJSON]
	size    int
	inspect InspectFunc

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewDetailsCache creates a cache holding at most size entries, filled on
// misses by inspect.
func NewDetailsCache(size int, inspect InspectFunc) (*DetailsCache, error) {
	if size <= 0 {
		return nil, errors.Errorf("invalid details cache size: %d, must be positive", size)
	}
	lru, err := simplelru.NewLRU[string, types.ContainerJSON](size, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create details cache")
	}
	return &DetailsCache{
		lru:     lru,
		size:    size,
		inspect: inspect,
	}, nil
}

// Resolve returns the details of containerID, inspecting the container on a
// miss. Failed inspections are not cached.
func (c *DetailsCache) Resolve(ctx context.Context, containerID string) (types.ContainerJSON, error) {
	c.mu.Lock()
	details, ok := c.lru.Get(containerID)
	c.mu.Unlock()
	if ok {
		c.hits.Inc()
		return details, nil
	}

	c.misses.Inc()
	details, err := c.inspect(ctx, containerID)
	if err != nil {
		return types.ContainerJSON{}, errors.Wrapf(err, "failed to inspect container %s", containerID)
	}

	c.mu.Lock()
	c.lru.Add(containerID, details)
	c.mu.Unlock()
	return details, nil
}

// Stats returns the current counters. They are never reset.
func (c *DetailsCache) Stats() CacheStats {
	c.mu.Lock()
	current := c.lru.Len()
	c.mu.Unlock()

	return CacheStats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		MaxSize:     c.size,
		CurrentSize: current,
	}
}
