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

// Program task_exporter exposes the docker stats of Mesos task containers
// as Prometheus metrics.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/namsral/flag"
	"go.uber.org/zap"

	"github.com/optionalg/marathon-apps-collectd-plugin/receiver/dockerstats"
)

const configFlag = "config"

type options struct {
	listenHost    string
	listenPort    int
	telemetryPath string
	debug         bool
	docker        *dockerstats.Config
}

// parseFlags reads the options from args, the environment (flag names
// upper-cased with dashes turned into underscores) and an optional config
// file given with -config.
func parseFlags(args []string) (*options, error) {
	opts := &options{docker: dockerstats.CreateDefaultConfig()}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	configPath := fs.String(configFlag, "", "path to a config file of 'flag value' lines")
	fs.StringVar(&opts.listenHost, "listen-host", "127.0.0.1", "Host address on which to expose metrics.")
	fs.IntVar(&opts.listenPort, "listen-port", 9127, "Port on which to expose metrics.")
	fs.StringVar(&opts.telemetryPath, "telemetry-path", "/metrics", "Path under which to expose metrics.")
	fs.BoolVar(&opts.debug, "debug", false, "Enable debug logging.")

	d := opts.docker
	fs.StringVar(&d.Host, "docker-remote-host", d.Host, "Docker daemon host.")
	fs.IntVar(&d.Port, "docker-remote-port", d.Port, "Docker daemon port.")
	fs.StringVar(&d.ClientCert, "docker-ssl-client-cert", "", "Client certificate, enables https together with the client key.")
	fs.StringVar(&d.ClientKey, "docker-ssl-client-key", "", "Client key.")
	fs.StringVar(&d.CACert, "docker-ssl-ca-cert", "", "CA certificate used to verify the daemon.")
	fs.StringVar(&d.APIVersion, "docker-api-version", "", "Docker API version, negotiated with the daemon when empty.")
	fs.DurationVar(&d.FetchTimeout, "fetch-timeout", d.FetchTimeout, "Timeout of each container stats request.")
	fs.IntVar(&d.FetchWorkers, "fetch-workers", d.FetchWorkers, "Number of concurrent container stats requests.")
	fs.IntVar(&d.DetailsCacheSize, "details-cache-size", d.DetailsCacheSize, "Number of inspected containers to cache.")

	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}
	// Parse ignores a config file it cannot read.
	if *configPath != "" {
		if _, err := os.Stat(*configPath); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if opts.telemetryPath == "" || opts.telemetryPath[0] != '/' {
		return nil, fmt.Errorf("invalid telemetry path %q, must start with /", opts.telemetryPath)
	}
	return opts, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	handleErr := func(err error) {
		if err != nil {
			log.Fatalf("Failed to run the exporter: %v", err)
		}
	}

	opts, err := parseFlags(os.Args)
	handleErr(err)

	logger, err := newLogger(opts.debug)
	handleErr(err)
	defer logger.Sync() //nolint:errcheck

	handleErr(run(opts, logger))
}

func run(opts *options, logger *zap.Logger) error {
	docker, err := dockerstats.NewDockerClient(opts.docker)
	if err != nil {
		return err
	}
	defer docker.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), opts.docker.FetchTimeout)
	version, err := docker.ServerVersion(pingCtx)
	cancel()
	if err != nil {
		// The daemon may come up later; scrapes fail until it does.
		logger.Warn("Failed to reach docker daemon", zap.String("host", docker.DaemonHost()), zap.Error(err))
	} else {
		logger.Info("Connected to docker daemon", zap.String("host", docker.DaemonHost()), zap.String("version", version.Version), zap.String("api_version", version.APIVersion))
	}

	reg, stats, err := components(docker, opts.docker, logger)
	if err != nil {
		return fmt.Errorf("failed to construct the collectors: %w", err)
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(opts.listenHost, strconv.Itoa(opts.listenPort)),
		Handler:           newHandler(reg, opts.telemetryPath, stats, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Serving metrics", zap.String("address", srv.Addr), zap.String("path", opts.telemetryPath))
		errCh <- srv.ListenAndServe()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("http server finished with error: %w", err)
	case s := <-sig:
		logger.Info("Shutting down", zap.String("signal", s.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
