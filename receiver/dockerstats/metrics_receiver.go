package dockerstats

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/optionalg/marathon-apps-collectd-plugin/receiver/metricgenerator"
)

// FamilyCollector produces metric families on demand.
type FamilyCollector interface {
	// Name identifies the collector in the exporter's own metrics.
	Name() string
	// Families returns the definitions of every family Collect can return.
	Families() []*metricgenerator.Family
	// Collect runs one collection and returns the families with their samples.
	Collect(ctx context.Context) ([]*metricgenerator.Family, error)
}

// Exporter implements prometheus.Collector on top of a FamilyCollector.
// A failed collection is reported to the registry, so the scrape fails
// instead of returning a partial body.
type Exporter struct {
	collector FamilyCollector
	logger    *zap.Logger

	descs          map[string]*prometheus.Desc
	scrapeDuration *prometheus.Desc
	scrapeErrors   prometheus.Counter
}

// NewExporter wraps collector for registration in a prometheus registry.
func NewExporter(collector FamilyCollector, logger *zap.Logger) *Exporter {
	constLabels := prometheus.Labels{"collector": collector.Name()}

	descs := make(map[string]*prometheus.Desc)
	for _, f := range collector.Families() {
		descs[f.Name] = prometheus.NewDesc(f.Name, f.Help, f.LabelNames, nil)
	}

	return &Exporter{
		collector: collector,
		logger:    logger,
		descs:     descs,
		scrapeDuration: prometheus.NewDesc(
			"exporter_scrape_duration_seconds",
			"Duration of the last collection in seconds.",
			nil, constLabels),
		scrapeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "exporter_scrape_errors_total",
			Help:        "Cumulative count of failed collections.",
			ConstLabels: constLabels,
		}),
	}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range e.descs {
		ch <- d
	}
	ch <- e.scrapeDuration
	e.scrapeErrors.Describe(ch)
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	start := time.Now()
	// prometheus.Collector carries no request context; a cycle always runs to
	// completion, bounded by the per-fetch timeout.
	families, err := e.collector.Collect(context.Background())
	ch <- prometheus.MustNewConstMetric(e.scrapeDuration, prometheus.GaugeValue, time.Since(start).Seconds())

	if err != nil {
		e.scrapeErrors.Inc()
		e.scrapeErrors.Collect(ch)
		e.logger.Error("Collection failed", zap.String("collector", e.collector.Name()), zap.Error(err))
		for _, d := range e.descs {
			ch <- prometheus.NewInvalidMetric(d, err)
		}
		return
	}
	e.scrapeErrors.Collect(ch)

	for _, f := range families {
		desc, ok := e.descs[f.Name]
		if !ok {
			e.logger.Error("Collected undescribed metric family", zap.String("family", f.Name))
			continue
		}
		valueType := prometheus.GaugeValue
		if f.Kind == metricgenerator.Counter {
			valueType = prometheus.CounterValue
		}
		for _, s := range f.Samples {
			m, err := prometheus.NewConstMetric(desc, valueType, s.Value, s.LabelValues...)
			if err != nil {
				m = prometheus.NewInvalidMetric(desc, err)
			}
			ch <- m
		}
	}
}
