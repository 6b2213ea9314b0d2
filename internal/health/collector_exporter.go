package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/stone-age-io/dockerctl/internal/utils"
	"go.uber.org/zap"
)

// maxScrapeBytes bounds the size of an exporter response
const maxScrapeBytes = 10 * 1024 * 1024

// ExporterCollector collects metrics by scraping a Prometheus exporter
// (node_exporter or windows_exporter)
type ExporterCollector struct {
	exporterURL string
	diskPath    string
	interval    time.Duration
	logger      *zap.Logger
	httpClient  *http.Client
	names       MetricNames
}

// NewExporterCollector creates a collector that scrapes url
func NewExporterCollector(url, diskPath string, interval time.Duration, logger *zap.Logger, httpClient *http.Client) *ExporterCollector {
	if httpClient == nil {
		httpClient = newHTTPClient()
	}
	return &ExporterCollector{
		exporterURL: url,
		diskPath:    diskPath,
		interval:    interval,
		logger:      logger,
		httpClient:  httpClient,
		names:       GetMetricNames(),
	}
}

func (c *ExporterCollector) Name() string {
	return fmt.Sprintf("exporter (%s)", c.exporterURL)
}

// Collect scrapes twice, one interval apart, so CPU counters can be turned
// into a usage percentage. Everything else comes from the second scrape.
func (c *ExporterCollector) Collect(ctx context.Context) (*SystemMetrics, error) {
	first, err := c.scrape(ctx)
	if err != nil {
		return nil, err
	}
	if err := sleepContext(ctx, c.interval); err != nil {
		return nil, err
	}
	second, err := c.scrape(ctx)
	if err != nil {
		return nil, err
	}

	m := &SystemMetrics{
		OS:     runtime.GOOS,
		Source: c.Name(),
		CPU:    c.cpuMetrics(first, second),
		Memory: c.memoryMetrics(second),
		Disk:   c.diskMetrics(second),
	}
	m.Network = c.networkMetrics(second)
	c.hostMetrics(second, m)

	c.logger.Debug("Exporter scrape completed",
		zap.String("url", c.exporterURL),
		zap.Float64("cpu_percent", m.CPU.Percent),
		zap.Float64("memory_percent", m.Memory.Percent),
		zap.Float64("disk_percent", m.Disk.Percent))

	return m, nil
}

func (c *ExporterCollector) scrape(ctx context.Context) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.exporterURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "dockerctl/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("metrics scrape timeout: %w", err)
		}
		return nil, fmt.Errorf("failed to fetch metrics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	families, err := parseFamilies(io.LimitReader(resp.Body, maxScrapeBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse metrics: %w", err)
	}
	return families, nil
}

// parseFamilies decodes a text exposition into families keyed by name
func parseFamilies(r io.Reader) (map[string]*dto.MetricFamily, error) {
	decoder := expfmt.NewDecoder(r, expfmt.FmtText)
	families := make(map[string]*dto.MetricFamily)

	for {
		mf := &dto.MetricFamily{}
		err := decoder.Decode(mf)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode metric family: %w", err)
		}
		families[mf.GetName()] = mf
	}
	return families, nil
}

type cpuTimes struct {
	total, idle float64
}

// coreTimes sums the per-mode counters of each core
func (c *ExporterCollector) coreTimes(families map[string]*dto.MetricFamily) map[string]cpuTimes {
	out := make(map[string]cpuTimes)
	family, ok := families[c.names.CPUTime]
	if !ok {
		return out
	}

	for _, m := range family.Metric {
		if m.Counter == nil {
			continue
		}
		core := getLabelValue(m.Label, c.names.CPULabel)
		v := m.Counter.GetValue()

		t := out[core]
		t.total += v
		if getLabelValue(m.Label, "mode") == c.names.CPUIdleLabel {
			t.idle += v
		}
		out[core] = t
	}
	return out
}

func (c *ExporterCollector) cpuMetrics(first, second map[string]*dto.MetricFamily) CPUMetrics {
	before := c.coreTimes(first)
	after := c.coreTimes(second)

	cores := make([]string, 0, len(after))
	for core := range after {
		cores = append(cores, core)
	}
	sortCores(cores)

	var sumTotal, sumIdle float64
	out := CPUMetrics{Cores: len(cores), PerCore: make([]float64, 0, len(cores))}
	for _, core := range cores {
		prev, ok := before[core]
		if !ok {
			continue
		}
		totalDelta := after[core].total - prev.total
		idleDelta := after[core].idle - prev.idle

		sumTotal += totalDelta
		sumIdle += idleDelta
		out.PerCore = append(out.PerCore, busyPercent(totalDelta, idleDelta))
	}
	out.Percent = busyPercent(sumTotal, sumIdle)

	if len(cores) == 0 {
		c.logger.Warn("CPU metric not found", zap.String("expected_metric", c.names.CPUTime))
	}
	return out
}

// sortCores orders numeric core labels numerically and the rest lexically
func sortCores(cores []string) {
	sort.Slice(cores, func(i, j int) bool {
		a, errA := strconv.Atoi(cores[i])
		b, errB := strconv.Atoi(cores[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return cores[i] < cores[j]
	})
}

func (c *ExporterCollector) memoryMetrics(families map[string]*dto.MetricFamily) MemoryMetrics {
	total, okTotal := gaugeValue(families, c.names.MemoryTotal)
	available, okAvail := gaugeValue(families, c.names.MemoryAvailable)
	cached, _ := gaugeValue(families, c.names.MemoryCached)

	if !okTotal || !okAvail {
		c.logger.Warn("Memory metric not found",
			zap.String("expected_total", c.names.MemoryTotal),
			zap.String("expected_available", c.names.MemoryAvailable))
		return MemoryMetrics{}
	}

	used := total - available
	return MemoryMetrics{
		TotalGB:     utils.BytesToGB(uint64(total)),
		AvailableGB: utils.BytesToGB(uint64(available)),
		UsedGB:      utils.BytesToGB(uint64(used)),
		CachedGB:    utils.BytesToGB(uint64(cached)),
		Percent:     utils.Percent(used, total),
	}
}

func (c *ExporterCollector) diskMetrics(families map[string]*dto.MetricFamily) DiskMetrics {
	volume := normalizeVolume(c.diskPath)
	out := DiskMetrics{Path: c.diskPath}

	var size, free float64
	var found bool
	if family, ok := families[c.names.DiskSizeBytes]; ok {
		for _, m := range family.Metric {
			if m.Gauge != nil && normalizeVolume(getLabelValue(m.Label, c.names.VolumeLabel)) == volume {
				size = m.Gauge.GetValue()
				found = true
				break
			}
		}
	}
	if family, ok := families[c.names.DiskFreeBytes]; ok {
		for _, m := range family.Metric {
			if m.Gauge != nil && normalizeVolume(getLabelValue(m.Label, c.names.VolumeLabel)) == volume {
				free = m.Gauge.GetValue()
				break
			}
		}
	}

	if !found || size <= 0 {
		c.logger.Warn("No disk metrics found for path",
			zap.String("path", c.diskPath),
			zap.String("expected_metric", c.names.DiskSizeBytes))
		return out
	}

	used := size - free
	out.TotalGB = utils.BytesToGB(uint64(size))
	out.FreeGB = utils.BytesToGB(uint64(free))
	out.UsedGB = utils.BytesToGB(uint64(used))
	out.Percent = utils.Percent(used, size)
	return out
}

// normalizeVolume maps "C:\" and "C:" to the same key
func normalizeVolume(v string) string {
	if len(v) >= 2 && v[1] == ':' {
		return strings.ToUpper(v[:2])
	}
	return v
}

func (c *ExporterCollector) networkMetrics(families map[string]*dto.MetricFamily) NetworkMetrics {
	return NetworkMetrics{
		BytesSent:   c.sumCounters(families, c.names.NetSentBytes),
		BytesRecv:   c.sumCounters(families, c.names.NetRecvBytes),
		PacketsSent: c.sumCounters(families, c.names.NetSentPackets),
		PacketsRecv: c.sumCounters(families, c.names.NetRecvPackets),
	}
}

// sumCounters adds a counter across devices, skipping the loopback device
func (c *ExporterCollector) sumCounters(families map[string]*dto.MetricFamily, name string) uint64 {
	family, ok := families[name]
	if !ok {
		return 0
	}

	var sum float64
	for _, m := range family.Metric {
		if m.Counter == nil {
			continue
		}
		if c.names.Loopback != "" && getLabelValue(m.Label, c.names.DeviceLabel) == c.names.Loopback {
			continue
		}
		sum += m.Counter.GetValue()
	}
	return uint64(sum)
}

func (c *ExporterCollector) hostMetrics(families map[string]*dto.MetricFamily, m *SystemMetrics) {
	family, ok := families[c.names.HostInfo]
	if !ok || len(family.Metric) == 0 {
		return
	}
	labels := family.Metric[0].Label

	m.Hostname = getLabelValue(labels, c.names.HostnameLabel)
	if sysname := getLabelValue(labels, "sysname"); sysname != "" {
		m.OS = strings.ToLower(sysname)
		m.Platform = strings.TrimSpace(sysname + " " + getLabelValue(labels, "release"))
	}
}

func gaugeValue(families map[string]*dto.MetricFamily, name string) (float64, bool) {
	family, ok := families[name]
	if !ok || len(family.Metric) == 0 || family.Metric[0].Gauge == nil {
		return 0, false
	}
	return family.Metric[0].Gauge.GetValue(), true
}

// getLabelValue returns the value of a label, or "" when absent
func getLabelValue(labels []*dto.LabelPair, name string) string {
	for _, label := range labels {
		if label.GetName() == name {
			return label.GetValue()
		}
	}
	return ""
}
