// Copyright 2019 OpenTelemetry Authors
// Modifications Copyright 2020 Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"net/http"

	"github.com/docker/docker/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/optionalg/marathon-apps-collectd-plugin/receiver/dockerstats"
)

const landingPage = `<html>
<head><title>Task Exporter</title></head>
<body>
<h1>Task Exporter</h1>
<p><a href="%s">Metrics</a></p>
</body>
</html>
`

// components builds the collectors and registers them on a dedicated
// registry, without the process and go runtime collectors.
func components(docker client.ContainerAPIClient, cfg *dockerstats.Config, logger *zap.Logger) (*prometheus.Registry, *dockerstats.DockerStatsCollector, error) {
	stats, cacheStats, err := dockerstats.NewCollectors(docker, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	reg := prometheus.NewRegistry()
	errs := []error{}
	for _, c := range []prometheus.Collector{
		dockerstats.NewExporter(stats, logger.With(zap.String("collector", stats.Name()))),
		dockerstats.NewExporter(cacheStats, logger.With(zap.String("collector", cacheStats.Name()))),
	} {
		if err := reg.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	return reg, stats, multierr.Combine(errs...)
}

func newHandler(reg prometheus.Gatherer, telemetryPath string, source dockerstats.CycleSource, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(telemetryPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorLog:      zap.NewStdLog(logger),
		ErrorHandling: promhttp.HTTPErrorOnError,
	}))
	mux.Handle("/metrics/opencensus", dockerstats.NewOpenCensusHandler(source, logger))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, landingPage, telemetryPath)
	})
	return mux
}
