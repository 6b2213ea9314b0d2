package health

import (
	"context"
)

// DemoCollector returns a fixed, plausible snapshot without touching the host
type DemoCollector struct{}

func (DemoCollector) Name() string {
	return "demo"
}

func (DemoCollector) Collect(ctx context.Context) (*SystemMetrics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &SystemMetrics{
		Hostname: "demo-host",
		OS:       "linux",
		Platform: "Demo Linux 22.04",
		Source:   "demo",
		CPU: CPUMetrics{
			Percent: 45.2,
			Cores:   8,
			PerCore: []float64{35.1, 62.3, 41.8, 50.2, 38.7, 52.1, 47.5, 33.9},
		},
		Memory: MemoryMetrics{
			TotalGB:     16.0,
			AvailableGB: 8.5,
			UsedGB:      7.5,
			CachedGB:    4.2,
			Percent:     46.9,
		},
		Disk: DiskMetrics{
			Path:    "/",
			TotalGB: 512.0,
			UsedGB:  256.0,
			FreeGB:  256.0,
			Percent: 50.0,
		},
		Network: NetworkMetrics{
			BytesSent:   2500000,
			BytesRecv:   8500000,
			PacketsSent: 25000,
			PacketsRecv: 42000,
		},
	}, nil
}
