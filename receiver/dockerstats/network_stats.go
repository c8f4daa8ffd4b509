package dockerstats

import (
	"sort"

	"github.com/docker/docker/api/types"
)

type networkStats struct {
	baseTranslator
}

func newNetworkStats() *networkStats {
	return &networkStats{baseTranslator{registry: newRegistry(networkFamilies)}}
}

// networkValues follows the order of networkFamilies.
func networkValues(n types.NetworkStats) []uint64 {
	return []uint64{
		n.RxBytes, n.RxErrors, n.RxPackets, n.RxDropped,
		n.TxBytes, n.TxErrors, n.TxPackets, n.TxDropped,
	}
}

func (t *networkStats) addContainer(id Identity, stats *types.StatsJSON) error {
	interfaces := make([]string, 0, len(stats.Networks))
	for name := range stats.Networks {
		interfaces = append(interfaces, name)
	}
	sort.Strings(interfaces)

	for _, name := range interfaces {
		labels := []string{name, id.AppID, id.TaskID}
		for i, v := range networkValues(stats.Networks[name]) {
			if err := t.registry.AddSample(networkFamilies[i].name, labels, float64(v)); err != nil {
				return err
			}
		}
	}
	return nil
}
