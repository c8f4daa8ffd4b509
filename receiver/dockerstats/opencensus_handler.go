package dockerstats

import (
	"bytes"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/optionalg/marathon-apps-collectd-plugin/receiver/metricgenerator"
)

// CycleSource exposes the result of the last completed collection.
type CycleSource interface {
	LastCycle() ([]*metricgenerator.Family, time.Time)
	StartTime() time.Time
}

// NewOpenCensusHandler serves the last completed cycle of source as a JSON
// array of OpenCensus metrics. It never triggers a collection.
func NewOpenCensusHandler(source CycleSource, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		families, completed := source.LastCycle()
		metrics := metricgenerator.ToOpenCensus(families, source.StartTime(), completed)

		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, m := range metrics {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := protojson.Marshal(m)
			if err != nil {
				logger.Error("Failed to marshal OpenCensus metric", zap.String("metric", m.GetMetricDescriptor().GetName()), zap.Error(err))
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			buf.Write(b)
		}
		buf.WriteByte(']')

		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(buf.Bytes()); err != nil {
			logger.Debug("Failed to write OpenCensus response", zap.Error(err))
		}
	})
}
