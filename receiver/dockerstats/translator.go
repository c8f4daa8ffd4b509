package dockerstats

import (
	"github.com/docker/docker/api/types"

	"github.com/optionalg/marathon-apps-collectd-plugin/receiver/metricgenerator"
)

// statsTranslator turns the stats of one container into samples of a fixed
// set of families. Implementations do no locking.
type statsTranslator interface {
	addContainer(id Identity, stats *types.StatsJSON) error
	reset()
	export() []*metricgenerator.Family
	definitions() []*metricgenerator.Family
}

// baseTranslator holds the registry shared by every translator.
type baseTranslator struct {
	registry *metricgenerator.Registry
}

func (t *baseTranslator) reset() {
	t.registry.ClearSamples()
}

func (t *baseTranslator) export() []*metricgenerator.Family {
	return t.registry.Export()
}

func (t *baseTranslator) definitions() []*metricgenerator.Family {
	return t.registry.Definitions()
}

func nsToSec(ns uint64) float64 {
	return float64(ns) / 1e9
}
