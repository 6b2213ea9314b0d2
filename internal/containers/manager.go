package containers

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"go.uber.org/zap"
)

// Container is one row of the container listing
type Container struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Image   string    `json:"image"`
	State   string    `json:"state"`
	Status  string    `json:"status"`
	Created time.Time `json:"created"`
}

// Summary counts containers by state
type Summary struct {
	Total   int `json:"total"`
	Running int `json:"running"`
	Paused  int `json:"paused"`
	Stopped int `json:"stopped"`
}

// PruneResult reports what a prune removed
type PruneResult struct {
	Deleted        []string `json:"deleted"`
	SpaceReclaimed uint64   `json:"space_reclaimed_bytes"`
}

// DaemonInfo is the subset of docker info the CLI and reports show
type DaemonInfo struct {
	ServerVersion     string   `json:"server_version"`
	OperatingSystem   string   `json:"operating_system"`
	OSType            string   `json:"os_type"`
	Architecture      string   `json:"architecture"`
	KernelVersion     string   `json:"kernel_version"`
	NCPU              int      `json:"ncpu"`
	MemTotal          int64    `json:"mem_total_bytes"`
	Containers        int      `json:"containers"`
	ContainersRunning int      `json:"containers_running"`
	ContainersPaused  int      `json:"containers_paused"`
	ContainersStopped int      `json:"containers_stopped"`
	Images            int      `json:"images"`
	Driver            string   `json:"storage_driver"`
	DriverStatus      []string `json:"storage_driver_status,omitempty"`
	DockerRootDir     string   `json:"docker_root_dir"`
	CgroupDriver      string   `json:"cgroup_driver"`
	CgroupVersion     string   `json:"cgroup_version,omitempty"`
	NetworkPlugins    []string `json:"network_plugins"`
	VolumePlugins     []string `json:"volume_plugins"`
	Runtimes          []string `json:"runtimes"`
	DefaultRuntime    string   `json:"default_runtime"`
}

// Manager sequences Docker SDK calls and translates their errors
type Manager struct {
	api         DockerAPI
	logger      *zap.Logger
	timeout     time.Duration
	stopTimeout time.Duration
}

// NewManager creates a manager. timeout bounds each non-streaming call;
// stopTimeout is the grace period given to containers on stop and restart.
func NewManager(api DockerAPI, logger *zap.Logger, timeout, stopTimeout time.Duration) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		api:         api,
		logger:      logger,
		timeout:     timeout,
		stopTimeout: stopTimeout,
	}
}

// Close releases the underlying client
func (m *Manager) Close() error {
	return m.api.Close()
}

func (m *Manager) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}

// Ping checks that the daemon answers
func (m *Manager) Ping(ctx context.Context) error {
	ctx, cancel := m.callContext(ctx)
	defer cancel()

	_, err := m.api.Ping(ctx)
	return translate(err, "ping daemon", "")
}

// List returns containers sorted by name. Stopped containers are included
// only when all is true.
func (m *Manager) List(ctx context.Context, all bool) ([]Container, error) {
	ctx, cancel := m.callContext(ctx)
	defer cancel()

	raw, err := m.api.ContainerList(ctx, container.ListOptions{All: all})
	if err != nil {
		return nil, translate(err, "list containers", "")
	}

	list := make([]Container, 0, len(raw))
	for _, c := range raw {
		list = append(list, Container{
			ID:      shortID(c.ID),
			Name:    containerName(c.Names),
			Image:   c.Image,
			State:   c.State,
			Status:  c.Status,
			Created: time.Unix(c.Created, 0),
		})
	}

	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// Summarize counts all containers by state
func (m *Manager) Summarize(ctx context.Context) (*Summary, error) {
	list, err := m.List(ctx, true)
	if err != nil {
		return nil, err
	}
	return SummaryOf(list), nil
}

// SummaryOf counts containers by state. Restarting containers count as
// running, matching docker info.
func SummaryOf(list []Container) *Summary {
	s := &Summary{Total: len(list)}
	for _, c := range list {
		switch c.State {
		case "running", "restarting":
			s.Running++
		case "paused":
			s.Paused++
		default:
			s.Stopped++
		}
	}
	return s
}

// Start starts a container
func (m *Manager) Start(ctx context.Context, ref string) error {
	ctx, cancel := m.callContext(ctx)
	defer cancel()

	m.logger.Info("Starting container", zap.String("container", ref))
	err := m.api.ContainerStart(ctx, ref, container.StartOptions{})
	return translate(err, "start", ref)
}

// Stop stops a container, waiting up to the configured grace period
func (m *Manager) Stop(ctx context.Context, ref string) error {
	ctx, cancel := m.lifecycleContext(ctx)
	defer cancel()

	m.logger.Info("Stopping container", zap.String("container", ref))
	err := m.api.ContainerStop(ctx, ref, m.stopOptions())
	return translate(err, "stop", ref)
}

// Restart restarts a container
func (m *Manager) Restart(ctx context.Context, ref string) error {
	ctx, cancel := m.lifecycleContext(ctx)
	defer cancel()

	m.logger.Info("Restarting container", zap.String("container", ref))
	err := m.api.ContainerRestart(ctx, ref, m.stopOptions())
	return translate(err, "restart", ref)
}

// Remove deletes a container. force kills a running container first;
// volumes also removes its anonymous volumes.
func (m *Manager) Remove(ctx context.Context, ref string, force, volumes bool) error {
	ctx, cancel := m.callContext(ctx)
	defer cancel()

	m.logger.Info("Removing container",
		zap.String("container", ref),
		zap.Bool("force", force),
		zap.Bool("volumes", volumes))

	err := m.api.ContainerRemove(ctx, ref, container.RemoveOptions{
		Force:         force,
		RemoveVolumes: volumes,
	})
	return translate(err, "remove", ref)
}

// Prune removes all stopped containers
func (m *Manager) Prune(ctx context.Context) (*PruneResult, error) {
	ctx, cancel := m.callContext(ctx)
	defer cancel()

	report, err := m.api.ContainersPrune(ctx, filters.NewArgs())
	if err != nil {
		return nil, translate(err, "prune containers", "")
	}

	deleted := make([]string, 0, len(report.ContainersDeleted))
	for _, id := range report.ContainersDeleted {
		deleted = append(deleted, shortID(id))
	}

	m.logger.Info("Pruned containers",
		zap.Int("deleted", len(deleted)),
		zap.Uint64("space_reclaimed", report.SpaceReclaimed))

	return &PruneResult{Deleted: deleted, SpaceReclaimed: report.SpaceReclaimed}, nil
}

// Inspect returns the inspect document as indented JSON
func (m *Manager) Inspect(ctx context.Context, ref string) ([]byte, error) {
	ctx, cancel := m.callContext(ctx)
	defer cancel()

	data, err := m.api.ContainerInspect(ctx, ref)
	if err != nil {
		return nil, translate(err, "inspect", ref)
	}

	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode inspect result: %w", err)
	}
	return out, nil
}

// Info returns daemon-wide information
func (m *Manager) Info(ctx context.Context) (*DaemonInfo, error) {
	ctx, cancel := m.callContext(ctx)
	defer cancel()

	info, err := m.api.Info(ctx)
	if err != nil {
		return nil, translate(err, "get docker info", "")
	}

	d := &DaemonInfo{
		ServerVersion:     info.ServerVersion,
		OperatingSystem:   info.OperatingSystem,
		OSType:            info.OSType,
		Architecture:      info.Architecture,
		KernelVersion:     info.KernelVersion,
		NCPU:              info.NCPU,
		MemTotal:          info.MemTotal,
		Containers:        info.Containers,
		ContainersRunning: info.ContainersRunning,
		ContainersPaused:  info.ContainersPaused,
		ContainersStopped: info.ContainersStopped,
		Images:            info.Images,
		Driver:            info.Driver,
		DockerRootDir:     info.DockerRootDir,
		CgroupDriver:      info.CgroupDriver,
		CgroupVersion:     info.CgroupVersion,
		NetworkPlugins:    info.Plugins.Network,
		VolumePlugins:     info.Plugins.Volume,
		DefaultRuntime:    info.DefaultRuntime,
	}
	for _, kv := range info.DriverStatus {
		d.DriverStatus = append(d.DriverStatus, kv[0]+": "+kv[1])
	}
	for name := range info.Runtimes {
		d.Runtimes = append(d.Runtimes, name)
	}
	sort.Strings(d.Runtimes)

	return d, nil
}

// Version returns the daemon version string
func (m *Manager) Version(ctx context.Context) (string, error) {
	ctx, cancel := m.callContext(ctx)
	defer cancel()

	v, err := m.api.ServerVersion(ctx)
	if err != nil {
		return "", translate(err, "get docker version", "")
	}
	return v.Version, nil
}

// lifecycleContext leaves room for the stop grace period on top of the
// per-call timeout
func (m *Manager) lifecycleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout+m.stopTimeout)
}

func (m *Manager) stopOptions() container.StopOptions {
	secs := int(m.stopTimeout / time.Second)
	return container.StopOptions{Timeout: &secs}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func containerName(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return strings.TrimPrefix(names[0], "/")
}
