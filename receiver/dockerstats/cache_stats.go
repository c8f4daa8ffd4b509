package dockerstats

import (
	"context"
	"sync"

	"github.com/optionalg/marathon-apps-collectd-plugin/receiver/metricgenerator"
)

// CacheStatsCollector exposes the counters of a DetailsCache.
type CacheStatsCollector struct {
	cache *DetailsCache

	mu       sync.Mutex
	registry *metricgenerator.Registry
}

// NewCacheStatsCollector creates a collector reading the counters of cache.
func NewCacheStatsCollector(cache *DetailsCache) *CacheStatsCollector {
	return &CacheStatsCollector{
		cache:    cache,
		registry: newRegistry(cacheFamilies),
	}
}

// Name implements FamilyCollector.
func (c *CacheStatsCollector) Name() string {
	return "details_cache"
}

// Families implements FamilyCollector.
func (c *CacheStatsCollector) Families() []*metricgenerator.Family {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Definitions()
}

// Collect snapshots the cache counters into one sample per family.
func (c *CacheStatsCollector) Collect(ctx context.Context) ([]*metricgenerator.Family, error) {
	stats := c.cache.Stats()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.registry.ClearSamples()
	for _, s := range []struct {
		name  string
		value float64
	}{
		{cacheHitsMetric, float64(stats.Hits)},
		{cacheMissesMetric, float64(stats.Misses)},
		{cacheMaxSizeMetric, float64(stats.MaxSize)},
		{cacheCurrentSizeMetric, float64(stats.CurrentSize)},
	} {
		if err := c.registry.AddSample(s.name, nil, s.value); err != nil {
			return nil, err
		}
	}
	return c.registry.Export(), nil
}
