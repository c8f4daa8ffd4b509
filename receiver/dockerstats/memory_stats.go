package dockerstats

import (
	"github.com/docker/docker/api/types"
)

type memoryStats struct {
	baseTranslator
}

func newMemoryStats() *memoryStats {
	return &memoryStats{baseTranslator{registry: newRegistry(memoryFamilies)}}
}

// Breakdown keys of the cgroup memory.stat map exposed as gauges.
var memoryStatKeys = []struct {
	metric string
	key    string
}{
	{memCacheMetric, "cache"},
	{memRSSMetric, "rss"},
	{memSwapMetric, "swap"},
}

func (t *memoryStats) addContainer(id Identity, stats *types.StatsJSON) error {
	mem := stats.MemoryStats
	labels := id.labels()

	// cgroup v2 hosts do not report every key.
	for _, k := range memoryStatKeys {
		v, ok := mem.Stats[k.key]
		if !ok {
			continue
		}
		if err := t.registry.AddSample(k.metric, labels, float64(v)); err != nil {
			return err
		}
	}

	if err := t.registry.AddSample(memUsageMetric, labels, float64(mem.Usage)); err != nil {
		return err
	}
	if mem.Limit == 0 {
		return nil
	}
	return t.registry.AddSample(memUsagePercentMetric, labels, memoryPercent(mem.Usage, mem.Limit))
}

func memoryPercent(usage, limit uint64) float64 {
	return float64(usage) / float64(limit) * 100
}
