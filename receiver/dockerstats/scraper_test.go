package dockerstats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeContainer struct {
	env   []string
	stats *types.StatsJSON
	// delay postpones the stats answer. When ignoreCancel is set the fake
	// keeps waiting after the request context is done.
	delay        time.Duration
	ignoreCancel bool
	statsErr     error
	inspectErr   error
}

type fakeDocker struct {
	client.Client

	mu         sync.Mutex
	listErr    error
	containers map[string]*fakeContainer
	order      []string
	inspects   int
}

func newFakeDocker() *fakeDocker {
	return &fakeDocker{containers: make(map[string]*fakeContainer)}
}

func (d *fakeDocker) add(id string, c *fakeContainer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.containers[id]; !ok {
		d.order = append(d.order, id)
	}
	d.containers[id] = c
}

func (d *fakeDocker) remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.containers, id)
	for i, o := range d.order {
		if o == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

func (d *fakeDocker) get(id string) (*fakeContainer, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.containers[id]
	return c, ok
}

func (d *fakeDocker) ContainerList(ctx context.Context, opts types.ContainerListOptions) ([]types.Container, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listErr != nil {
		return nil, d.listErr
	}
	containers := make([]types.Container, 0, len(d.order))
	for _, id := range d.order {
		containers = append(containers, types.Container{ID: id})
	}
	return containers, nil
}

func (d *fakeDocker) ContainerInspect(ctx context.Context, id string) (types.ContainerJSON, error) {
	d.mu.Lock()
	d.inspects++
	d.mu.Unlock()

	c, ok := d.get(id)
	if !ok {
		return types.ContainerJSON{}, errors.Errorf("no such container: %s", id)
	}
	if c.inspectErr != nil {
		return types.ContainerJSON{}, c.inspectErr
	}
	return types.ContainerJSON{
		ContainerJSONBase: &types.ContainerJSONBase{ID: id},
		Config:            &container.Config{Env: c.env},
	}, nil
}

func (d *fakeDocker) ContainerStats(ctx context.Context, id string, stream bool) (types.ContainerStats, error) {
	c, ok := d.get(id)
	if !ok {
		return types.ContainerStats{}, errors.Errorf("no such container: %s", id)
	}
	if c.delay > 0 {
		if c.ignoreCancel {
			time.Sleep(c.delay)
		} else {
			select {
			case <-time.After(c.delay):
			case <-ctx.Done():
				return types.ContainerStats{}, ctx.Err()
			}
		}
	}
	if c.statsErr != nil {
		return types.ContainerStats{}, c.statsErr
	}

	b, err := json.Marshal(c.stats)
	if err != nil {
		return types.ContainerStats{}, fmt.Errorf("failed to marshal JSON: %v", err)
	}
	return types.ContainerStats{
		Body: io.NopCloser(bytes.NewReader(b)),
	}, nil
}

func (d *fakeDocker) inspectCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inspects
}

func taskContainer(app, task string) *fakeContainer {
	return &fakeContainer{
		env:   []string{"HOME=/", "MESOS_TASK_ID=" + app + "." + task},
		stats: testStats(),
	}
}

func newTestCollector(t *testing.T, docker *fakeDocker, timeout time.Duration, workers int) *DockerStatsCollector {
	cfg := CreateDefaultConfig()
	cfg.FetchTimeout = timeout
	cfg.FetchWorkers = workers
	c, _, err := NewCollectors(docker, cfg, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestScraperCollect(t *testing.T) {
	docker := newFakeDocker()
	docker.add("id1", taskContainer("web", "1111111122223333"))
	docker.add("id2", taskContainer("db", "44445555"))
	docker.add("id3", &fakeContainer{env: []string{"HOME=/"}, stats: testStats()})

	c := newTestCollector(t, docker, time.Second, 2)
	families, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Len(t, families, 18)

	usage, ok := findSample(families, "container_memory_usage_percent", "web", "11111111")
	assert.True(t, ok)
	assert.Equal(t, 50.0, usage)

	cpu, ok := findSample(families, "container_cpu_usage_percent", "db", "44445555")
	assert.True(t, ok)
	assert.InDelta(t, 40.0, cpu, 1e-9)

	_, ok = findSample(families, "container_network_receive_bytes_total", "eth0", "db", "44445555")
	assert.True(t, ok)

	// id3 has no MESOS_TASK_ID and contributes nothing.
	mem := findFamily(families, "container_memory_usage_bytes")
	assert.Len(t, mem.Samples, 2)

	for _, f := range families {
		for _, s := range f.Samples {
			assert.Len(t, s.LabelValues, len(f.LabelNames), f.Name)
		}
	}
}

func TestScraperCollectNoContainers(t *testing.T) {
	c := newTestCollector(t, newFakeDocker(), time.Second, 2)

	for i := 0; i < 2; i++ {
		families, err := c.Collect(context.Background())
		require.NoError(t, err)
		assert.Len(t, families, 18)
		for _, f := range families {
			assert.Empty(t, f.Samples, f.Name)
		}
	}
}

func TestScraperCollectListError(t *testing.T) {
	docker := newFakeDocker()
	docker.add("id1", taskContainer("web", "11111111"))
	docker.listErr = errors.New("connection refused")

	c := newTestCollector(t, docker, time.Second, 2)
	families, err := c.Collect(context.Background())
	assert.Error(t, err)
	assert.Nil(t, families)
}

func TestScraperDropsStaleContainers(t *testing.T) {
	docker := newFakeDocker()
	docker.add("id1", taskContainer("web", "11111111"))
	docker.add("id2", taskContainer("db", "22222222"))

	c := newTestCollector(t, docker, time.Second, 2)
	_, err := c.Collect(context.Background())
	require.NoError(t, err)

	docker.remove("id2")
	families, err := c.Collect(context.Background())
	require.NoError(t, err)

	_, ok := findSample(families, "container_memory_usage_bytes", "web", "11111111")
	assert.True(t, ok)
	_, ok = findSample(families, "container_memory_usage_bytes", "db", "22222222")
	assert.False(t, ok)
	assert.Len(t, findFamily(families, "container_memory_usage_bytes").Samples, 1)
}

func TestScraperCachesDetails(t *testing.T) {
	docker := newFakeDocker()
	docker.add("id1", taskContainer("web", "11111111"))
	docker.add("id2", taskContainer("db", "22222222"))

	cfg := CreateDefaultConfig()
	c, cacheStats, err := NewCollectors(docker, cfg, zap.NewNop())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := c.Collect(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, docker.inspectCalls())

	families, err := cacheStats.Collect(context.Background())
	require.NoError(t, err)
	hits, _ := findSample(families, "exporter_details_cache_hits_total")
	misses, _ := findSample(families, "exporter_details_cache_misses_total")
	assert.Equal(t, 4.0, hits)
	assert.Equal(t, 2.0, misses)
}

func TestScraperPerContainerFailures(t *testing.T) {
	docker := newFakeDocker()
	docker.add("ok", taskContainer("web", "11111111"))
	broken := taskContainer("broken", "22222222")
	broken.statsErr = errors.New("stats unavailable")
	docker.add("broken", broken)
	noinspect := taskContainer("noinspect", "33333333")
	noinspect.inspectErr = errors.New("inspect failed")
	docker.add("noinspect", noinspect)

	c := newTestCollector(t, docker, time.Second, 4)
	families, err := c.Collect(context.Background())
	require.NoError(t, err)

	mem := findFamily(families, "container_memory_usage_bytes")
	require.Len(t, mem.Samples, 1)
	assert.Equal(t, []string{"web", "11111111"}, mem.Samples[0].LabelValues)
}

func TestScraperDuplicateIdentity(t *testing.T) {
	docker := newFakeDocker()
	docker.add("first", taskContainer("web", "abcdefgh1111"))
	docker.add("second", taskContainer("web", "abcdefgh2222"))
	docker.add("other", taskContainer("db", "99999999"))

	c := newTestCollector(t, docker, time.Second, 2)
	families, err := c.Collect(context.Background())
	require.NoError(t, err)

	mem := findFamily(families, "container_memory_usage_bytes")
	require.Len(t, mem.Samples, 2)
	assert.ElementsMatch(t, [][]string{{"web", "abcdefgh"}, {"db", "99999999"}},
		[][]string{mem.Samples[0].LabelValues, mem.Samples[1].LabelValues})
	assert.Len(t, findFamily(families, "container_network_receive_bytes_total").Samples, 4)
}

func TestScraperFetchTimeout(t *testing.T) {
	for _, ignoreCancel := range []bool{false, true} {
		t.Run(fmt.Sprintf("ignoreCancel=%v", ignoreCancel), func(t *testing.T) {
			docker := newFakeDocker()
			docker.add("fast", taskContainer("fast", "11111111"))
			slow := taskContainer("slow", "22222222")
			slow.delay = 2 * time.Second
			slow.ignoreCancel = ignoreCancel
			docker.add("slow", slow)

			c := newTestCollector(t, docker, 100*time.Millisecond, 2)
			start := time.Now()
			families, err := c.Collect(context.Background())
			require.NoError(t, err)
			assert.Less(t, time.Since(start), time.Second)

			mem := findFamily(families, "container_memory_usage_bytes")
			require.Len(t, mem.Samples, 1)
			assert.Equal(t, []string{"fast", "11111111"}, mem.Samples[0].LabelValues)
			_, ok := findSample(families, "container_cpu_usage_percent", "slow", "22222222")
			assert.False(t, ok)
		})
	}
}

func TestScraperTimeoutsRunConcurrently(t *testing.T) {
	docker := newFakeDocker()
	for i := 0; i < 4; i++ {
		slow := taskContainer("slow", fmt.Sprintf("%08d", i))
		slow.delay = 2 * time.Second
		docker.add(fmt.Sprintf("id%d", i), slow)
	}

	c := newTestCollector(t, docker, 200*time.Millisecond, 4)
	start := time.Now()
	families, err := c.Collect(context.Background())
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 700*time.Millisecond)
	assert.Empty(t, findFamily(families, "container_memory_usage_bytes").Samples)
}

func TestScraperBoundedWorkers(t *testing.T) {
	docker := newFakeDocker()
	for i := 0; i < 20; i++ {
		docker.add(fmt.Sprintf("id%02d", i), taskContainer("app", fmt.Sprintf("%08d", i)))
	}

	c := newTestCollector(t, docker, time.Second, 3)
	families, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Len(t, findFamily(families, "container_memory_usage_bytes").Samples, 20)
}

func TestScraperConcurrentCollect(t *testing.T) {
	docker := newFakeDocker()
	docker.add("id1", taskContainer("web", "11111111"))
	docker.add("id2", taskContainer("db", "22222222"))
	c := newTestCollector(t, docker, time.Second, 2)

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			families, err := c.Collect(context.Background())
			if assert.NoError(t, err) {
				results[i] = len(findFamily(families, "container_memory_usage_bytes").Samples)
			}
		}(i)
	}
	wg.Wait()

	for _, n := range results {
		assert.Equal(t, 2, n)
	}
}

func TestScraperLastCycle(t *testing.T) {
	docker := newFakeDocker()
	docker.add("id1", taskContainer("web", "11111111"))
	c := newTestCollector(t, docker, time.Second, 1)
	completed := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return completed }

	families, when := c.LastCycle()
	assert.Nil(t, families)
	assert.True(t, when.IsZero())

	_, err := c.Collect(context.Background())
	require.NoError(t, err)

	families, when = c.LastCycle()
	assert.Len(t, families, 18)
	assert.Equal(t, completed, when)
}
