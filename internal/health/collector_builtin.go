package health

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/stone-age-io/dockerctl/internal/utils"
	"go.uber.org/zap"
)

// BuiltinCollector collects metrics in-process using gopsutil
type BuiltinCollector struct {
	diskPath string
	interval time.Duration
	logger   *zap.Logger
}

// NewBuiltinCollector creates a gopsutil-based collector
func NewBuiltinCollector(diskPath string, interval time.Duration, logger *zap.Logger) *BuiltinCollector {
	if diskPath == "" {
		diskPath = "/"
	}
	return &BuiltinCollector{
		diskPath: diskPath,
		interval: interval,
		logger:   logger,
	}
}

func (c *BuiltinCollector) Name() string {
	return "builtin (gopsutil)"
}

// Collect samples CPU times twice, one interval apart. The other sections
// are point-in-time reads; a failing section is logged and left zero.
func (c *BuiltinCollector) Collect(ctx context.Context) (*SystemMetrics, error) {
	m := &SystemMetrics{
		OS:     runtime.GOOS,
		Source: c.Name(),
	}

	cpuMetrics, err := c.collectCPU(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to collect CPU metrics: %w", err)
	}
	m.CPU = *cpuMetrics

	if info, err := host.InfoWithContext(ctx); err != nil {
		c.logger.Warn("Failed to read host info", zap.Error(err))
	} else {
		m.Hostname = info.Hostname
		m.OS = info.OS
		m.Platform = info.Platform
		if info.PlatformVersion != "" {
			m.Platform += " " + info.PlatformVersion
		}
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		c.logger.Warn("Failed to collect memory metrics", zap.Error(err))
	} else {
		m.Memory = MemoryMetrics{
			TotalGB:     utils.BytesToGB(vm.Total),
			AvailableGB: utils.BytesToGB(vm.Available),
			UsedGB:      utils.BytesToGB(vm.Used),
			CachedGB:    utils.BytesToGB(vm.Cached),
			Percent:     utils.Round(vm.UsedPercent),
		}
	}

	if usage, err := disk.UsageWithContext(ctx, c.diskPath); err != nil {
		c.logger.Warn("Failed to collect disk metrics",
			zap.String("path", c.diskPath),
			zap.Error(err))
	} else {
		m.Disk = DiskMetrics{
			Path:    c.diskPath,
			TotalGB: utils.BytesToGB(usage.Total),
			UsedGB:  utils.BytesToGB(usage.Used),
			FreeGB:  utils.BytesToGB(usage.Free),
			Percent: utils.Round(usage.UsedPercent),
		}
	}

	if counters, err := net.IOCountersWithContext(ctx, false); err != nil {
		c.logger.Warn("Failed to collect network metrics", zap.Error(err))
	} else if len(counters) > 0 {
		m.Network = NetworkMetrics{
			BytesSent:   counters[0].BytesSent,
			BytesRecv:   counters[0].BytesRecv,
			PacketsSent: counters[0].PacketsSent,
			PacketsRecv: counters[0].PacketsRecv,
		}
	}

	return m, nil
}

func (c *BuiltinCollector) collectCPU(ctx context.Context) (*CPUMetrics, error) {
	before, err := cpu.TimesWithContext(ctx, true)
	if err != nil {
		return nil, err
	}
	if err := sleepContext(ctx, c.interval); err != nil {
		return nil, err
	}
	after, err := cpu.TimesWithContext(ctx, true)
	if err != nil {
		return nil, err
	}

	total, perCore := cpuUsage(before, after)
	return &CPUMetrics{
		Percent: total,
		Cores:   len(after),
		PerCore: perCore,
	}, nil
}

// cpuUsage computes busy percentages from two per-core samples. Cores are
// matched by position; a core missing from either sample is skipped.
func cpuUsage(before, after []cpu.TimesStat) (total float64, perCore []float64) {
	var sumTotal, sumIdle float64

	perCore = make([]float64, 0, len(after))
	for i := range after {
		if i >= len(before) {
			break
		}
		totalDelta := timesTotal(after[i]) - timesTotal(before[i])
		idleDelta := timesIdle(after[i]) - timesIdle(before[i])

		sumTotal += totalDelta
		sumIdle += idleDelta
		perCore = append(perCore, busyPercent(totalDelta, idleDelta))
	}

	return busyPercent(sumTotal, sumIdle), perCore
}

func busyPercent(totalDelta, idleDelta float64) float64 {
	if totalDelta <= 0 {
		return 0
	}
	return utils.Round((totalDelta - idleDelta) / totalDelta * 100)
}

func timesTotal(t cpu.TimesStat) float64 {
	return t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq + t.Softirq + t.Steal
}

func timesIdle(t cpu.TimesStat) float64 {
	return t.Idle + t.Iowait
}
