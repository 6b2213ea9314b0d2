package health

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Save writes the report as indented JSON and returns the absolute path
func Save(r *Report, path string) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve report path: %w", err)
	}
	if dir := filepath.Dir(abs); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(abs, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return abs, nil
}

// Metrics exposes the latest report as Prometheus gauges
type Metrics struct {
	registry *prometheus.Registry

	cpu             prometheus.Gauge
	memory          prometheus.Gauge
	disk            prometheus.Gauge
	dockerUp        prometheus.Gauge
	containers      *prometheus.GaugeVec
	containerCPU    *prometheus.GaugeVec
	containerMemory *prometheus.GaugeVec
	recommendations prometheus.Gauge
	lastReport      prometheus.Gauge
}

// NewMetrics creates the gauges on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cpu: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dockerctl", Subsystem: "host", Name: "cpu_usage_percent",
			Help: "Host CPU usage over the sample interval.",
		}),
		memory: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dockerctl", Subsystem: "host", Name: "memory_usage_percent",
			Help: "Host memory in use.",
		}),
		disk: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dockerctl", Subsystem: "host", Name: "disk_usage_percent",
			Help: "Disk usage of the monitored path.",
		}),
		dockerUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dockerctl", Subsystem: "docker", Name: "up",
			Help: "Whether the Docker daemon answered (1) or not (0).",
		}),
		containers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dockerctl", Subsystem: "docker", Name: "containers",
			Help: "Containers by state.",
		}, []string{"state"}),
		containerCPU: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dockerctl", Subsystem: "container", Name: "cpu_percent",
			Help: "CPU usage of a running container.",
		}, []string{"name"}),
		containerMemory: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dockerctl", Subsystem: "container", Name: "memory_percent",
			Help: "Memory usage of a running container relative to its limit.",
		}, []string{"name"}),
		recommendations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dockerctl", Name: "recommendations",
			Help: "Number of recommendations in the latest report.",
		}),
		lastReport: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dockerctl", Name: "last_report_timestamp_seconds",
			Help: "Unix time of the latest report.",
		}),
	}

	m.registry.MustRegister(
		m.cpu, m.memory, m.disk, m.dockerUp,
		m.containers, m.containerCPU, m.containerMemory,
		m.recommendations, m.lastReport,
	)
	return m
}

// Registry returns the registry holding the gauges
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Update replaces all gauge values with those of r
func (m *Metrics) Update(r *Report) {
	if sys := r.System; sys != nil {
		m.cpu.Set(sys.CPU.Percent)
		m.memory.Set(sys.Memory.Percent)
		m.disk.Set(sys.Disk.Percent)
	}

	if r.Docker.Status == DockerRunning {
		m.dockerUp.Set(1)
	} else {
		m.dockerUp.Set(0)
	}

	m.containers.WithLabelValues("running").Set(float64(r.Docker.Containers.Running))
	m.containers.WithLabelValues("paused").Set(float64(r.Docker.Containers.Paused))
	m.containers.WithLabelValues("stopped").Set(float64(r.Docker.Containers.Stopped))

	// Containers that stopped since the last report must disappear
	m.containerCPU.Reset()
	m.containerMemory.Reset()
	for _, c := range r.Docker.Running {
		m.containerCPU.WithLabelValues(c.Name).Set(c.CPUPercent)
		m.containerMemory.WithLabelValues(c.Name).Set(c.MemoryPercent)
	}

	m.recommendations.Set(float64(len(r.Recommendations)))
	m.lastReport.Set(float64(r.Timestamp.Unix()))
}

// WritePrometheus renders r in the Prometheus text exposition format
func WritePrometheus(w io.Writer, r *Report) error {
	m := NewMetrics()
	m.Update(r)

	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
	}
	return nil
}
