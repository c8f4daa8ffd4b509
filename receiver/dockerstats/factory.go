package dockerstats

import (
	"github.com/docker/docker/client"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// NewDockerClient creates a docker API client for the daemon in cfg.
func NewDockerClient(cfg *Config) (*client.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []client.Opt{
		client.WithHost(cfg.DockerHost()),
		client.WithTimeout(cfg.FetchTimeout),
	}
	if cfg.APIVersion != "" {
		opts = append(opts, client.WithVersion(cfg.APIVersion))
	} else {
		opts = append(opts, client.WithAPIVersionNegotiation())
	}
	if cfg.UseTLS() {
		opts = append(opts, client.WithTLSClientConfig(cfg.CACert, cfg.ClientCert, cfg.ClientKey))
	}

	docker, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize docker client")
	}
	return docker, nil
}

// NewCollectors creates the docker stats collector and the collector
// exposing its details cache, sharing one cache between them.
func NewCollectors(docker client.ContainerAPIClient, cfg *Config, logger *zap.Logger) (*DockerStatsCollector, *CacheStatsCollector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	details, err := NewDetailsCache(cfg.DetailsCacheSize, docker.ContainerInspect)
	if err != nil {
		return nil, nil, err
	}
	stats := NewDockerStatsCollector(docker, details, cfg.FetchTimeout, cfg.FetchWorkers, logger)
	return stats, NewCacheStatsCollector(details), nil
}
