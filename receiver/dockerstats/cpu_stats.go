package dockerstats

import (
	"fmt"

	"github.com/docker/docker/api/types"
)

type cpuStats struct {
	baseTranslator
}

func newCPUStats() *cpuStats {
	return &cpuStats{baseTranslator{registry: newRegistry(cpuFamilies)}}
}

func (t *cpuStats) addContainer(id Identity, stats *types.StatsJSON) error {
	cur := stats.CPUStats
	labels := id.labels()

	if err := t.registry.AddSample(cpuSystemMetric, labels, nsToSec(cur.SystemUsage)); err != nil {
		return err
	}
	if err := t.registry.AddSample(cpuKernelMetric, labels, nsToSec(cur.CPUUsage.UsageInKernelmode)); err != nil {
		return err
	}
	if err := t.registry.AddSample(cpuUserMetric, labels, nsToSec(cur.CPUUsage.UsageInUsermode)); err != nil {
		return err
	}

	for i, v := range cur.CPUUsage.PercpuUsage {
		perCPU := []string{fmt.Sprintf("cpu%02d", i), id.AppID, id.TaskID}
		if err := t.registry.AddSample(cpuPerCPUMetric, perCPU, nsToSec(v)); err != nil {
			return err
		}
	}

	return t.registry.AddSample(cpuUsagePercentMetric, labels, cpuPercent(cur, stats.PreCPUStats))
}

// cpuPercent is the share of host cpu time the container used between the
// two samples, scaled by the number of cores. A non-positive system delta
// yields 0.
func cpuPercent(cur, pre types.CPUStats) float64 {
	cpuDelta := float64(cur.CPUUsage.TotalUsage) - float64(pre.CPUUsage.TotalUsage)
	sysDelta := float64(cur.SystemUsage) - float64(pre.SystemUsage)
	if sysDelta <= 0 {
		return 0
	}

	cores := len(cur.CPUUsage.PercpuUsage)
	if cores == 0 {
		// cgroup v2 does not report per-cpu usage.
		cores = int(cur.OnlineCPUs)
	}
	return cpuDelta / sysDelta * float64(cores) * 100
}
