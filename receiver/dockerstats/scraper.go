package dockerstats

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/optionalg/marathon-apps-collectd-plugin/receiver/metricgenerator"
)

// DockerStatsCollector runs one collection cycle per Collect call: it lists
// the running containers, resolves their identity, fetches their stats with
// a bounded pool of workers and translates them into metric families.
type DockerStatsCollector struct {
	docker  client.ContainerAPIClient
	details *DetailsCache
	logger  *zap.Logger
	now     func() time.Time

	startTime    time.Time
	fetchTimeout time.Duration
	workers      int

	// cycleMu serializes whole cycles, mu guards the translators and the
	// last exported cycle.
	cycleMu     sync.Mutex
	mu          sync.Mutex
	translators []statsTranslator
	last        []*metricgenerator.Family
	lastTime    time.Time
}

type fetchJob struct {
	containerID string
	identity    Identity
}

type fetchResult struct {
	stats *types.StatsJSON
	err   error
}

// NewDockerStatsCollector creates a collector reading from docker and
// resolving container identities through details.
func NewDockerStatsCollector(docker client.ContainerAPIClient, details *DetailsCache, fetchTimeout time.Duration, workers int, logger *zap.Logger) *DockerStatsCollector {
	if workers <= 0 {
		workers = 1
	}
	return &DockerStatsCollector{
		docker:       docker,
		details:      details,
		logger:       logger,
		now:          time.Now,
		startTime:    time.Now(),
		fetchTimeout: fetchTimeout,
		workers:      workers,
		translators: []statsTranslator{
			newNetworkStats(),
			newMemoryStats(),
			newCPUStats(),
		},
	}
}

// Name implements FamilyCollector.
func (c *DockerStatsCollector) Name() string {
	return "docker_stats"
}

// Families implements FamilyCollector.
func (c *DockerStatsCollector) Families() []*metricgenerator.Family {
	c.mu.Lock()
	defer c.mu.Unlock()

	var families []*metricgenerator.Family
	for _, t := range c.translators {
		families = append(families, t.definitions()...)
	}
	return families
}

// Collect runs a collection cycle. Only a failure to list the containers
// fails the cycle; containers without identity, or whose stats cannot be
// fetched in time, are left out. When two containers share an identity only
// the first one listed is collected.
func (c *DockerStatsCollector) Collect(ctx context.Context) ([]*metricgenerator.Family, error) {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()

	c.reset()

	containers, err := c.docker.ContainerList(ctx, types.ContainerListOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get docker container list")
	}

	jobs := make([]fetchJob, 0, len(containers))
	seen := make(map[Identity]string, len(containers))
	for _, container := range containers {
		details, err := c.details.Resolve(ctx, container.ID)
		if err != nil {
			c.logger.Warn("Failed to get container details", zap.String("container", container.ID), zap.Error(err))
			continue
		}
		var env []string
		if details.Config != nil {
			env = details.Config.Env
		}
		id, ok := ParseIdentity(env)
		if !ok {
			c.logger.Debug("Can't find appid or taskid, ignoring container", zap.String("container", container.ID))
			continue
		}
		if first, ok := seen[id]; ok {
			c.logger.Warn("Duplicate appid and taskid, ignoring container",
				zap.String("container", container.ID), zap.String("collected_container", first),
				zap.String("appid", id.AppID), zap.String("taskid", id.TaskID))
			continue
		}
		seen[id] = container.ID
		jobs = append(jobs, fetchJob{containerID: container.ID, identity: id})
	}

	c.fetchAll(ctx, jobs)
	return c.export(), nil
}

// LastCycle returns the families of the last completed cycle and when it
// completed.
func (c *DockerStatsCollector) LastCycle() ([]*metricgenerator.Family, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.lastTime
}

// StartTime is when the collector was created, the start of every counter.
func (c *DockerStatsCollector) StartTime() time.Time {
	return c.startTime
}

func (c *DockerStatsCollector) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.translators {
		t.reset()
	}
}

func (c *DockerStatsCollector) export() []*metricgenerator.Family {
	c.mu.Lock()
	defer c.mu.Unlock()

	var families []*metricgenerator.Family
	for _, t := range c.translators {
		families = append(families, t.export()...)
	}
	c.last = families
	c.lastTime = c.now()
	return families
}

func (c *DockerStatsCollector) addContainer(id Identity, stats *types.StatsJSON) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.translators {
		if err := t.addContainer(id, stats); err != nil {
			c.logger.Error("Failed to translate container stats", zap.String("appid", id.AppID), zap.String("taskid", id.TaskID), zap.Error(err))
		}
	}
}

// fetchAll runs at most c.workers fetches at a time and returns once every
// job has either completed or timed out. A failed fetch only drops its own
// container.
func (c *DockerStatsCollector) fetchAll(ctx context.Context, jobs []fetchJob) {
	var g errgroup.Group
	g.SetLimit(c.workers)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			c.fetch(ctx, job)
			return nil
		})
	}
	_ = g.Wait()
}

// fetch reads the stats of one container. The request is cancelled after
// fetchTimeout; if the client does not return by then its result is dropped.
func (c *DockerStatsCollector) fetch(ctx context.Context, job fetchJob) {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	done := make(chan fetchResult, 1)
	go func() {
		stats, err := c.readStats(ctx, job.containerID)
		done <- fetchResult{stats: stats, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			c.logger.Warn("readStats failed for container", zap.String("container", job.containerID), zap.Error(r.err))
			return
		}
		c.addContainer(job.identity, r.stats)
	case <-ctx.Done():
		c.logger.Warn("Timed out reading container stats", zap.String("container", job.containerID), zap.Duration("timeout", c.fetchTimeout))
	}
}

func (c *DockerStatsCollector) readStats(ctx context.Context, id string) (*types.StatsJSON, error) {
	st, err := c.docker.ContainerStats(ctx, id, false /*stream*/)
	if err != nil {
		return nil, errors.Wrap(err, "failed to retrieve stats")
	}
	defer st.Body.Close()

	var stats types.StatsJSON
	if err := json.NewDecoder(st.Body).Decode(&stats); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal stats JSON")
	}
	return &stats, nil
}
