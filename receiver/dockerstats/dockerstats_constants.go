package dockerstats

import (
	"github.com/optionalg/marathon-apps-collectd-plugin/receiver/metricgenerator"
)

const (
	appIDLabel     = "appid"
	taskIDLabel    = "taskid"
	interfaceLabel = "interface"
	cpuLabel       = "cpu"
)

var (
	identityLabels = []string{appIDLabel, taskIDLabel}
	networkLabels  = []string{interfaceLabel, appIDLabel, taskIDLabel}
	perCPULabels   = []string{cpuLabel, appIDLabel, taskIDLabel}
)

type familyDef struct {
	name   string
	kind   metricgenerator.Kind
	help   string
	labels []string
}

var networkFamilies = []familyDef{
	{"container_network_receive_bytes_total", metricgenerator.Counter, "Cumulative count of bytes received", networkLabels},
	{"container_network_receive_errors_total", metricgenerator.Counter, "Cumulative count of errors encountered while receiving", networkLabels},
	{"container_network_receive_packets_total", metricgenerator.Counter, "Cumulative count of packets received", networkLabels},
	{"container_network_receive_packets_dropped_total", metricgenerator.Counter, "Cumulative count of packets dropped while receiving", networkLabels},
	{"container_network_transmit_bytes_total", metricgenerator.Counter, "Cumulative count of bytes transmitted", networkLabels},
	{"container_network_transmit_errors_total", metricgenerator.Counter, "Cumulative count of errors encountered while transmitting", networkLabels},
	{"container_network_transmit_packets_total", metricgenerator.Counter, "Cumulative count of packets transmitted", networkLabels},
	{"container_network_transmit_packets_dropped_total", metricgenerator.Counter, "Cumulative count of packets dropped while transmitting", networkLabels},
}

const (
	memCacheMetric        = "container_memory_cache"
	memRSSMetric          = "container_memory_rss"
	memSwapMetric         = "container_memory_swap"
	memUsageMetric        = "container_memory_usage_bytes"
	memUsagePercentMetric = "container_memory_usage_percent"
)

var memoryFamilies = []familyDef{
	{memCacheMetric, metricgenerator.Gauge, "Number of bytes of page cache memory.", identityLabels},
	{memRSSMetric, metricgenerator.Gauge, "Size of RSS in bytes.", identityLabels},
	{memSwapMetric, metricgenerator.Gauge, "Container swap usage in bytes.", identityLabels},
	{memUsageMetric, metricgenerator.Gauge, "Current memory usage in bytes.", identityLabels},
	{memUsagePercentMetric, metricgenerator.Gauge, "Percentage of memory usage.", identityLabels},
}

const (
	cpuSystemMetric       = "container_cpu_system_seconds_total"
	cpuKernelMetric       = "container_cpu_kernel_seconds_total"
	cpuUserMetric         = "container_cpu_user_seconds_total"
	cpuPerCPUMetric       = "container_cpu_usage_seconds_total"
	cpuUsagePercentMetric = "container_cpu_usage_percent"
)

var cpuFamilies = []familyDef{
	{cpuSystemMetric, metricgenerator.Counter, "Cumulative system cpu time consumed in seconds.", identityLabels},
	{cpuKernelMetric, metricgenerator.Counter, "Cumulative kernel cpu time consumed in seconds.", identityLabels},
	{cpuUserMetric, metricgenerator.Counter, "Cumulative user cpu time consumed in seconds.", identityLabels},
	{cpuPerCPUMetric, metricgenerator.Counter, "Cumulative cpu time consumed per cpu in seconds.", perCPULabels},
	{cpuUsagePercentMetric, metricgenerator.Gauge, "Percentage of cpu time used.", identityLabels},
}

const (
	cacheHitsMetric        = "exporter_details_cache_hits_total"
	cacheMissesMetric      = "exporter_details_cache_misses_total"
	cacheMaxSizeMetric     = "exporter_details_cache_max_size"
	cacheCurrentSizeMetric = "exporter_details_cache_current_size"
)

var cacheFamilies = []familyDef{
	{cacheHitsMetric, metricgenerator.Counter, "Cumulative cache hits.", nil},
	{cacheMissesMetric, metricgenerator.Counter, "Cumulative cache misses.", nil},
	{cacheMaxSizeMetric, metricgenerator.Gauge, "Maximum size of the cache.", nil},
	{cacheCurrentSizeMetric, metricgenerator.Gauge, "Current cache utilization.", nil},
}

// newRegistry builds a registry holding defs. The definitions are static,
// so a failure here is a programming error.
func newRegistry(defs []familyDef) *metricgenerator.Registry {
	r := metricgenerator.NewRegistry()
	for _, d := range defs {
		var err error
		switch d.kind {
		case metricgenerator.Counter:
			err = r.DefineCounter(d.name, d.help, d.labels)
		default:
			err = r.DefineGauge(d.name, d.help, d.labels)
		}
		if err != nil {
			panic(err)
		}
	}
	return r
}
