package dockerstats

import (
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Config defines the configuration of the docker stats collector.
type Config struct {
	// Host and Port locate the docker daemon API.
	Host string
	Port int

	// ClientCert and ClientKey enable https when both are set. CACert is
	// optional and defaults to the system pool.
	ClientCert string
	ClientKey  string
	CACert     string

	// APIVersion pins the docker API version. Empty negotiates with the daemon.
	APIVersion string

	// FetchTimeout bounds each per-container stats request.
	FetchTimeout time.Duration
	// FetchWorkers is the number of concurrent stats requests.
	FetchWorkers int
	// DetailsCacheSize is the number of inspected containers kept in memory.
	DetailsCacheSize int
}

// CreateDefaultConfig creates the default configuration.
func CreateDefaultConfig() *Config {
	return &Config{
		Host:             "127.0.0.1",
		Port:             2376,
		FetchTimeout:     5 * time.Second,
		FetchWorkers:     8,
		DetailsCacheSize: defaultDetailsCacheSize,
	}
}

// Validate checks the configuration for values the collector cannot run with.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("docker host must not be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("invalid docker port: %d", c.Port)
	}
	if c.FetchTimeout <= 0 {
		return errors.Errorf("invalid fetch timeout: %v, must be positive", c.FetchTimeout)
	}
	if c.FetchWorkers <= 0 {
		return errors.Errorf("invalid fetch workers: %d, must be positive", c.FetchWorkers)
	}
	if c.DetailsCacheSize <= 0 {
		return errors.Errorf("invalid details cache size: %d, must be positive", c.DetailsCacheSize)
	}
	if (c.ClientCert == "") != (c.ClientKey == "") {
		return errors.New("client cert and client key must be set together")
	}
	return nil
}

// UseTLS reports whether the daemon is reached over https.
func (c *Config) UseTLS() bool {
	return c.ClientCert != "" && c.ClientKey != ""
}

// DockerHost is the daemon address in the form the docker client expects.
func (c *Config) DockerHost() string {
	return "tcp://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
