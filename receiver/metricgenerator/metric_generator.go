package metricgenerator

import (
	"time"

	metricspb "github.com/census-instrumentation/opencensus-proto/gen-go/metrics/v1"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// TimeToTimestamp converts a time.Time to a timestamp pointer.
func TimeToTimestamp(t time.Time) *timestamppb.Timestamp {
	if t.IsZero() {
		return nil
	}
	return timestamppb.New(t)
}

// MakeLabelValue generates a proto representation of a metric label with value as its value.
func MakeLabelValue(value string) *metricspb.LabelValue {
	return &metricspb.LabelValue{
		Value:    value,
		HasValue: true,
	}
}

// MakeDoubleTimeSeries generates a proto representation of a timeseries containing a single point for a double metric.
func MakeDoubleTimeSeries(val float64, startTime, now time.Time, labels []*metricspb.LabelValue) *metricspb.TimeSeries {
	return &metricspb.TimeSeries{
		StartTimestamp: TimeToTimestamp(startTime),
		LabelValues:    labels,
		Points:         []*metricspb.Point{{Timestamp: TimeToTimestamp(now), Value: &metricspb.Point_DoubleValue{DoubleValue: val}}},
	}
}

// MakeDescriptor generates the OpenCensus descriptor of a family.
// Counters become cumulative doubles and gauges become double gauges.
func MakeDescriptor(f *Family) *metricspb.MetricDescriptor {
	keys := make([]*metricspb.LabelKey, 0, len(f.LabelNames))
	for _, name := range f.LabelNames {
		keys = append(keys, &metricspb.LabelKey{Key: name})
	}
	typ := metricspb.MetricDescriptor_GAUGE_DOUBLE
	if f.Kind == Counter {
		typ = metricspb.MetricDescriptor_CUMULATIVE_DOUBLE
	}
	return &metricspb.MetricDescriptor{
		Name:        f.Name,
		Description: f.Help,
		Unit:        "1",
		Type:        typ,
		LabelKeys:   keys,
	}
}

// ToOpenCensus converts families into OpenCensus metrics, one timeseries per
// sample. Gauges carry no start timestamp.
func ToOpenCensus(families []*Family, startTime, now time.Time) []*metricspb.Metric {
	metrics := make([]*metricspb.Metric, 0, len(families))
	for _, f := range families {
		start := startTime
		if f.Kind == Gauge {
			start = time.Time{}
		}
		timeseries := make([]*metricspb.TimeSeries, 0, len(f.Samples))
		for _, s := range f.Samples {
			labels := make([]*metricspb.LabelValue, 0, len(s.LabelValues))
			for _, v := range s.LabelValues {
				labels = append(labels, MakeLabelValue(v))
			}
			timeseries = append(timeseries, MakeDoubleTimeSeries(s.Value, start, now, labels))
		}
		metrics = append(metrics, &metricspb.Metric{
			MetricDescriptor: MakeDescriptor(f),
			Timeseries:       timeseries,
		})
	}
	return metrics
}
