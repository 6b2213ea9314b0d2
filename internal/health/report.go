package health

import (
	"context"
	"time"

	"github.com/stone-age-io/dockerctl/internal/config"
	"github.com/stone-age-io/dockerctl/internal/containers"
	"go.uber.org/zap"
)

// CPUMetrics describes processor load over the sample interval
type CPUMetrics struct {
	Percent float64   `json:"percent"`
	Cores   int       `json:"count"`
	PerCore []float64 `json:"per_cpu"`
}

// MemoryMetrics describes physical memory in GiB
type MemoryMetrics struct {
	TotalGB     float64 `json:"total"`
	AvailableGB float64 `json:"available"`
	UsedGB      float64 `json:"used"`
	CachedGB    float64 `json:"cached"`
	Percent     float64 `json:"percent"`
}

// DiskMetrics describes the filesystem holding the configured path
type DiskMetrics struct {
	Path    string  `json:"path"`
	TotalGB float64 `json:"total"`
	UsedGB  float64 `json:"used"`
	FreeGB  float64 `json:"free"`
	Percent float64 `json:"percent"`
}

// NetworkMetrics are cumulative counters across all non-loopback interfaces
type NetworkMetrics struct {
	BytesSent   uint64 `json:"bytes_sent"`
	BytesRecv   uint64 `json:"bytes_recv"`
	PacketsSent uint64 `json:"packets_sent"`
	PacketsRecv uint64 `json:"packets_recv"`
}

// SystemMetrics is one snapshot of host resources
type SystemMetrics struct {
	Hostname string         `json:"hostname"`
	OS       string         `json:"os"`
	Platform string         `json:"platform"`
	Source   string         `json:"source"`
	CPU      CPUMetrics     `json:"cpu"`
	Memory   MemoryMetrics  `json:"memory"`
	Disk     DiskMetrics    `json:"disk"`
	Network  NetworkMetrics `json:"network"`
}

// Docker daemon states as reported in DockerMetrics.Status
const (
	DockerRunning    = "running"
	DockerNotRunning = "not running"
)

// ContainerUsage is the resource usage of one running container
type ContainerUsage struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Image         string  `json:"image"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryUsage   uint64  `json:"memory_usage_bytes"`
	MemoryPercent float64 `json:"memory_percent"`
	NetRx         uint64  `json:"net_rx_bytes"`
	NetTx         uint64  `json:"net_tx_bytes"`
	BlockRead     uint64  `json:"block_read_bytes"`
	BlockWrite    uint64  `json:"block_write_bytes"`
	PIDs          uint64  `json:"pids"`
}

// DockerMetrics describes the daemon and its containers
type DockerMetrics struct {
	Status     string             `json:"status"`
	Version    string             `json:"version,omitempty"`
	Containers containers.Summary `json:"containers"`
	Running    []ContainerUsage   `json:"running_containers"`
	Error      string             `json:"errors,omitempty"`
}

// Report is a complete health report
type Report struct {
	Timestamp       time.Time      `json:"timestamp"`
	System          *SystemMetrics `json:"system,omitempty"`
	SystemError     string         `json:"system_error,omitempty"`
	Docker          DockerMetrics  `json:"docker"`
	Recommendations []string       `json:"recommendations"`
}

// DockerSource is the part of the container manager the report reads
type DockerSource interface {
	Version(ctx context.Context) (string, error)
	List(ctx context.Context, all bool) ([]containers.Container, error)
	StatsAll(ctx context.Context) ([]containers.Stats, error)
}

// Generator assembles reports from a system collector and a Docker source
type Generator struct {
	collector  SystemCollector
	docker     DockerSource
	thresholds config.ThresholdsConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewGenerator creates a report generator
func NewGenerator(collector SystemCollector, docker DockerSource, thresholds config.ThresholdsConfig, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		collector:  collector,
		docker:     docker,
		thresholds: thresholds,
		logger:     logger,
		now:        time.Now,
	}
}

// Generate collects a full report. Collection problems are recorded in the
// report rather than returned, so a report is always produced unless ctx
// is cancelled.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	start := g.now()
	r := &Report{Timestamp: start.UTC()}

	sys, err := g.collector.Collect(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.logger.Warn("Failed to collect system metrics",
			zap.String("collector", g.collector.Name()),
			zap.Error(err))
		r.SystemError = err.Error()
	} else {
		r.System = sys
	}

	r.Docker = g.collectDocker(ctx)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	r.Recommendations = Recommend(r, g.thresholds)

	g.logger.Debug("Health report generated",
		zap.Duration("duration", g.now().Sub(start)),
		zap.String("docker_status", r.Docker.Status),
		zap.Int("recommendations", len(r.Recommendations)))

	return r, nil
}

func (g *Generator) collectDocker(ctx context.Context) DockerMetrics {
	m := DockerMetrics{Status: DockerNotRunning, Running: []ContainerUsage{}}

	version, err := g.docker.Version(ctx)
	if err != nil {
		g.logger.Debug("Docker daemon not reachable", zap.Error(err))
		m.Error = err.Error()
		return m
	}
	m.Status = DockerRunning
	m.Version = version

	list, err := g.docker.List(ctx, true)
	if err != nil {
		m.Error = err.Error()
		return m
	}
	m.Containers = *containers.SummaryOf(list)

	images := make(map[string]string, len(list))
	for _, c := range list {
		images[c.ID] = c.Image
	}

	stats, err := g.docker.StatsAll(ctx)
	if err != nil {
		g.logger.Warn("Failed to collect container stats", zap.Error(err))
		m.Error = err.Error()
		return m
	}
	for _, s := range stats {
		m.Running = append(m.Running, ContainerUsage{
			ID:            s.ID,
			Name:          s.Name,
			Image:         images[s.ID],
			CPUPercent:    s.CPUPercent,
			MemoryUsage:   s.MemoryUsage,
			MemoryPercent: s.MemoryPercent,
			NetRx:         s.NetRx,
			NetTx:         s.NetTx,
			BlockRead:     s.BlockRead,
			BlockWrite:    s.BlockWrite,
			PIDs:          s.PIDs,
		})
	}
	return m
}

// Healthy reports whether the report carries no recommendations
func (r *Report) Healthy() bool {
	return len(r.Recommendations) == 0
}
