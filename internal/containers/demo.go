package containers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/system"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
)

// DemoVersion is the daemon version the demo client reports
const DemoVersion = "20.10.12"

type demoContainer struct {
	id       string
	name     string
	image    string
	state    string
	created  time.Time
	cpu      float64 // percent of all CPUs
	memBytes uint64
	logs     []string
}

// DemoClient is an in-memory DockerAPI with a fixed set of containers.
// It never opens a socket.
type DemoClient struct {
	mu         sync.Mutex
	containers map[string]*demoContainer
	now        func() time.Time
	// StreamInterval paces streamed stats and followed logs
	StreamInterval time.Duration
}

const (
	demoOnlineCPUs  = 4
	demoSystemDelta = 4_000_000_000
	demoMemLimit    = 8 << 30
)

// NewDemoClient returns a client preloaded with the demo containers
func NewDemoClient() *DemoClient {
	now := time.Now()
	day := 24 * time.Hour

	list := []*demoContainer{
		{
			id: "abc123", name: "demo-webserver", image: "nginx:latest", state: "running",
			created: now.Add(-3 * day), cpu: 12.5, memBytes: 48 << 20,
			logs: []string{
				`172.17.0.1 - - "GET / HTTP/1.1" 200 615 "-" "curl/7.81.0"`,
				`172.17.0.1 - - "GET /healthz HTTP/1.1" 200 2 "-" "kube-probe/1.27"`,
				`172.17.0.1 - - "GET /favicon.ico HTTP/1.1" 404 153 "-" "Mozilla/5.0"`,
			},
		},
		{
			id: "def456", name: "demo-database", image: "mysql:8.0", state: "running",
			created: now.Add(-3 * day), cpu: 35.2, memBytes: 412 << 20,
			logs: []string{
				"[System] [MY-010116] [Server] /usr/sbin/mysqld (mysqld 8.0.36) starting as process 1",
				"[System] [MY-010931] [Server] /usr/sbin/mysqld: ready for connections. Version: '8.0.36'  port: 3306",
			},
		},
		{
			id: "ghi789", name: "demo-redis", image: "redis:alpine", state: "restarting",
			created: now.Add(-2 * day), cpu: 0, memBytes: 0,
			logs: []string{
				"1:C Oops, bad configuration: 'maxmemory-policy allkeys-lfu-invalid'",
				"1:M Server initialized",
			},
		},
		{
			id: "jkl012", name: "demo-backup", image: "alpine:latest", state: "exited",
			created: now.Add(-day), logs: []string{"backup completed: 3 databases, 1.2GB"},
		},
	}

	c := &DemoClient{
		containers:     make(map[string]*demoContainer, len(list)),
		now:            time.Now,
		StreamInterval: time.Second,
	}
	for _, d := range list {
		c.containers[d.id] = d
	}
	return c
}

// lookup resolves an id, id prefix or name. Caller holds mu.
func (c *DemoClient) lookup(ref string) (*demoContainer, error) {
	ref = strings.TrimPrefix(ref, "/")
	for _, d := range c.containers {
		if d.id == ref || d.name == ref || (len(ref) >= 3 && strings.HasPrefix(d.id, ref)) {
			return d, nil
		}
	}
	return nil, errdefs.NotFound(fmt.Errorf("No such container: %s", ref))
}

func (d *demoContainer) status(now time.Time) string {
	switch d.state {
	case "running":
		return "Up " + humanDuration(now.Sub(d.created))
	case "restarting":
		return "Restarting (1) 5 seconds ago"
	case "paused":
		return "Up " + humanDuration(now.Sub(d.created)) + " (Paused)"
	case "created":
		return "Created"
	default:
		return "Exited (0) 2 hours ago"
	}
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= 48*time.Hour:
		return fmt.Sprintf("%d days", int(d.Hours()/24))
	case d >= time.Hour:
		return fmt.Sprintf("%d hours", int(d.Hours()))
	default:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	}
}

func (c *DemoClient) ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var out []types.Container
	for _, d := range c.containers {
		if !options.All && d.state != "running" && d.state != "restarting" {
			continue
		}
		out = append(out, types.Container{
			ID:      d.id,
			Names:   []string{"/" + d.name},
			Image:   d.image,
			Created: d.created.Unix(),
			State:   d.state,
			Status:  d.status(now),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *DemoClient) ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.lookup(containerID)
	if err != nil {
		return err
	}
	d.state = "running"
	return nil
}

func (c *DemoClient) ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.lookup(containerID)
	if err != nil {
		return err
	}
	d.state = "exited"
	return nil
}

func (c *DemoClient) ContainerRestart(ctx context.Context, containerID string, options container.StopOptions) error {
	return c.ContainerStart(ctx, containerID, container.StartOptions{})
}

func (c *DemoClient) ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.lookup(containerID)
	if err != nil {
		return err
	}
	if (d.state == "running" || d.state == "restarting") && !options.Force {
		return errdefs.Conflict(fmt.Errorf("cannot remove container %q: container is %s: stop the container before removing or force remove", d.name, d.state))
	}
	delete(c.containers, d.id)
	return nil
}

func (c *DemoClient) ContainersPrune(ctx context.Context, pruneFilters filters.Args) (container.PruneReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var report container.PruneReport
	for id, d := range c.containers {
		if d.state == "exited" || d.state == "created" || d.state == "dead" {
			report.ContainersDeleted = append(report.ContainersDeleted, id)
			report.SpaceReclaimed += 12 << 20
			delete(c.containers, id)
		}
	}
	sort.Strings(report.ContainersDeleted)
	return report, nil
}

// sample builds a stats response whose CPU and memory figures reproduce
// the container's configured percentages. Caller holds mu.
func (c *DemoClient) sample(d *demoContainer, tick uint64) container.StatsResponse {
	var s container.StatsResponse
	s.ID = d.id
	s.Name = "/" + d.name
	s.Read = c.now()
	s.PreRead = s.Read.Add(-time.Second)

	if d.state != "running" {
		return s
	}

	cpuDelta := uint64(d.cpu / (demoOnlineCPUs * 100) * demoSystemDelta)
	base := tick * demoSystemDelta
	s.PreCPUStats.SystemUsage = base
	s.PreCPUStats.CPUUsage.TotalUsage = tick * cpuDelta
	s.CPUStats.SystemUsage = base + demoSystemDelta
	s.CPUStats.CPUUsage.TotalUsage = (tick + 1) * cpuDelta
	s.CPUStats.OnlineCPUs = demoOnlineCPUs

	s.MemoryStats.Usage = d.memBytes
	s.MemoryStats.Limit = demoMemLimit
	s.PidsStats.Current = 7
	s.Networks = map[string]container.NetworkStats{
		"eth0": {RxBytes: 1_258_291 * (tick + 1), TxBytes: 648_000 * (tick + 1)},
	}
	s.BlkioStats.IoServiceBytesRecursive = []container.BlkioStatEntry{
		{Op: "read", Value: 24 << 20},
		{Op: "write", Value: 3 << 20},
	}
	return s
}

func (c *DemoClient) ContainerStats(ctx context.Context, containerID string, stream bool) (container.StatsResponseReader, error) {
	c.mu.Lock()
	d, err := c.lookup(containerID)
	if err != nil {
		c.mu.Unlock()
		return container.StatsResponseReader{}, err
	}
	first := c.sample(d, 0)
	c.mu.Unlock()

	if !stream {
		data, err := json.Marshal(first)
		if err != nil {
			return container.StatsResponseReader{}, err
		}
		return container.StatsResponseReader{Body: io.NopCloser(bytes.NewReader(data)), OSType: "linux"}, nil
	}

	pr, pw := io.Pipe()
	go func() {
		enc := json.NewEncoder(pw)
		ticker := time.NewTicker(c.StreamInterval)
		defer ticker.Stop()

		for tick := uint64(0); ; tick++ {
			c.mu.Lock()
			s := c.sample(d, tick)
			c.mu.Unlock()

			if err := enc.Encode(s); err != nil {
				return
			}
			select {
			case <-ctx.Done():
				pw.CloseWithError(ctx.Err())
				return
			case <-ticker.C:
			}
		}
	}()
	return container.StatsResponseReader{Body: pr, OSType: "linux"}, nil
}

func (c *DemoClient) ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error) {
	c.mu.Lock()
	d, err := c.lookup(containerID)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	lines := append([]string(nil), d.logs...)
	c.mu.Unlock()

	if n, err := parseTail(options.Tail); err == nil && n >= 0 && n < len(lines) {
		lines = lines[len(lines)-n:]
	}

	start := c.now().Add(-time.Duration(len(lines)) * time.Minute)
	format := func(i int, line string) string {
		if options.Timestamps {
			return start.Add(time.Duration(i)*time.Minute).UTC().Format(time.RFC3339Nano) + " " + line + "\n"
		}
		return line + "\n"
	}

	if !options.Follow {
		var buf bytes.Buffer
		w := stdcopy.NewStdWriter(&buf, stdcopy.Stdout)
		for i, line := range lines {
			w.Write([]byte(format(i, line)))
		}
		return io.NopCloser(&buf), nil
	}

	pr, pw := io.Pipe()
	go func() {
		w := stdcopy.NewStdWriter(pw, stdcopy.Stdout)
		for i, line := range lines {
			if _, err := w.Write([]byte(format(i, line))); err != nil {
				return
			}
		}

		ticker := time.NewTicker(c.StreamInterval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-ctx.Done():
				pw.Close()
				return
			case <-ticker.C:
				msg := fmt.Sprintf("demo heartbeat %d from %s", i+1, d.name)
				if _, err := w.Write([]byte(format(len(lines)+i, msg))); err != nil {
					return
				}
			}
		}
	}()
	return pr, nil
}

func parseTail(tail string) (int, error) {
	if tail == "" || tail == "all" {
		return -1, nil
	}
	var n int
	_, err := fmt.Sscanf(tail, "%d", &n)
	return n, err
}

func (c *DemoClient) ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.lookup(containerID)
	if err != nil {
		return types.ContainerJSON{}, err
	}

	return types.ContainerJSON{
		ContainerJSONBase: &types.ContainerJSONBase{
			ID:      d.id,
			Name:    "/" + d.name,
			Created: d.created.UTC().Format(time.RFC3339Nano),
			Image:   "sha256:" + strings.Repeat(d.id, 4),
			State: &types.ContainerState{
				Status:     d.state,
				Running:    d.state == "running" || d.state == "restarting",
				Restarting: d.state == "restarting",
				Pid:        4242,
			},
			RestartCount: 0,
			Driver:       "overlay2",
			Platform:     "linux",
		},
		Config: &container.Config{
			Image:    d.image,
			Hostname: d.id,
		},
	}, nil
}

func (c *DemoClient) Info(ctx context.Context) (system.Info, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info := system.Info{
		ServerVersion:   DemoVersion,
		OperatingSystem: "Docker Demo Linux",
		OSType:          "linux",
		Architecture:    "x86_64",
		KernelVersion:   "5.15.0-demo",
		NCPU:            demoOnlineCPUs,
		MemTotal:        demoMemLimit,
		Images:          12,
		Driver:          "overlay2",
		DriverStatus:    [][2]string{{"Backing Filesystem", "extfs"}, {"Supports d_type", "true"}},
		DockerRootDir:   "/var/lib/docker",
		CgroupDriver:    "systemd",
		CgroupVersion:   "2",
		DefaultRuntime:  "runc",
		Plugins: system.PluginsInfo{
			Volume:  []string{"local"},
			Network: []string{"bridge", "host", "ipvlan", "macvlan", "null", "overlay"},
			Log:     []string{"json-file", "local", "syslog"},
		},
	}
	for _, d := range c.containers {
		info.Containers++
		switch d.state {
		case "running", "restarting":
			info.ContainersRunning++
		case "paused":
			info.ContainersPaused++
		default:
			info.ContainersStopped++
		}
	}
	return info, nil
}

func (c *DemoClient) ServerVersion(ctx context.Context) (types.Version, error) {
	return types.Version{
		Version:    DemoVersion,
		APIVersion: "1.41",
		Os:         "linux",
		Arch:       "amd64",
	}, nil
}

func (c *DemoClient) Ping(ctx context.Context) (types.Ping, error) {
	return types.Ping{APIVersion: "1.41", OSType: "linux"}, nil
}

func (c *DemoClient) Close() error {
	return nil
}
