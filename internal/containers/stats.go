package containers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/stone-age-io/dockerctl/internal/utils"
	"go.uber.org/zap"
)

// Stats is one resource usage sample for a container
type Stats struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryUsage   uint64  `json:"memory_usage_bytes"`
	MemoryLimit   uint64  `json:"memory_limit_bytes"`
	MemoryPercent float64 `json:"memory_percent"`
	NetRx         uint64  `json:"net_rx_bytes"`
	NetTx         uint64  `json:"net_tx_bytes"`
	BlockRead     uint64  `json:"block_read_bytes"`
	BlockWrite    uint64  `json:"block_write_bytes"`
	PIDs          uint64  `json:"pids"`
}

// computeStats turns a raw stats response into a Stats sample using the
// same formulas as the docker CLI.
func computeStats(id, name string, osType string, s *container.StatsResponse) Stats {
	out := Stats{
		ID:   shortID(id),
		Name: name,
		PIDs: s.PidsStats.Current,
	}

	if osType == "windows" {
		out.CPUPercent = cpuPercentWindows(s)
		out.MemoryUsage = s.MemoryStats.PrivateWorkingSet
	} else {
		out.CPUPercent = cpuPercentUnix(s.PreCPUStats.CPUUsage.TotalUsage, s.PreCPUStats.SystemUsage, s)
		out.MemoryUsage = memUsageNoCache(s.MemoryStats)
		out.MemoryLimit = s.MemoryStats.Limit
		if out.MemoryLimit != 0 {
			out.MemoryPercent = float64(out.MemoryUsage) / float64(out.MemoryLimit) * 100.0
		}
		out.BlockRead, out.BlockWrite = blockIO(s.BlkioStats)
	}

	for _, n := range s.Networks {
		out.NetRx += n.RxBytes
		out.NetTx += n.TxBytes
	}

	out.CPUPercent = utils.Round(out.CPUPercent)
	out.MemoryPercent = utils.Round(out.MemoryPercent)
	return out
}

func cpuPercentUnix(previousCPU, previousSystem uint64, s *container.StatsResponse) float64 {
	var (
		cpuPercent  = 0.0
		cpuDelta    = float64(s.CPUStats.CPUUsage.TotalUsage) - float64(previousCPU)
		systemDelta = float64(s.CPUStats.SystemUsage) - float64(previousSystem)
		onlineCPUs  = float64(s.CPUStats.OnlineCPUs)
	)

	if onlineCPUs == 0.0 {
		onlineCPUs = float64(len(s.CPUStats.CPUUsage.PercpuUsage))
	}
	if systemDelta > 0.0 && cpuDelta > 0.0 {
		cpuPercent = (cpuDelta / systemDelta) * onlineCPUs * 100.0
	}
	return cpuPercent
}

// cpuPercentWindows works in 100ns intervals
func cpuPercentWindows(s *container.StatsResponse) float64 {
	possIntervals := uint64(s.Read.Sub(s.PreRead).Nanoseconds())
	possIntervals /= 100
	possIntervals *= uint64(s.NumProcs)

	intervalsUsed := s.CPUStats.CPUUsage.TotalUsage - s.PreCPUStats.CPUUsage.TotalUsage
	if possIntervals > 0 {
		return float64(intervalsUsed) / float64(possIntervals) * 100.0
	}
	return 0.0
}

// memUsageNoCache subtracts the page cache, which differs by cgroup version
func memUsageNoCache(mem container.MemoryStats) uint64 {
	// cgroup v1
	if v, ok := mem.Stats["total_inactive_file"]; ok && v < mem.Usage {
		return mem.Usage - v
	}
	// cgroup v2
	if v := mem.Stats["inactive_file"]; v < mem.Usage {
		return mem.Usage - v
	}
	return mem.Usage
}

func blockIO(blkio container.BlkioStats) (read, write uint64) {
	for _, entry := range blkio.IoServiceBytesRecursive {
		switch strings.ToLower(entry.Op) {
		case "read":
			read += entry.Value
		case "write":
			write += entry.Value
		}
	}
	return read, write
}

// Stats takes one sample for a container. The daemon samples twice so
// CPU percentages are meaningful.
func (m *Manager) Stats(ctx context.Context, ref string) (*Stats, error) {
	ctx, cancel := m.callContext(ctx)
	defer cancel()

	resp, err := m.api.ContainerStats(ctx, ref, false)
	if err != nil {
		return nil, translate(err, "get stats for", ref)
	}
	defer resp.Body.Close()

	var raw container.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode stats for %s: %w", ref, err)
	}

	s := computeStats(raw.ID, strings.TrimPrefix(raw.Name, "/"), resp.OSType, &raw)
	if s.ID == "" {
		s.ID = shortID(ref)
	}
	return &s, nil
}

// StatsAll samples every running container. Containers that disappear
// between listing and sampling are skipped.
func (m *Manager) StatsAll(ctx context.Context) ([]Stats, error) {
	list, err := m.List(ctx, false)
	if err != nil {
		return nil, err
	}

	all := make([]Stats, 0, len(list))
	for _, c := range list {
		if c.State != "running" {
			continue
		}

		s, err := m.Stats(ctx, c.ID)
		if err != nil {
			if errors.Is(err, ErrContainerNotFound) {
				continue
			}
			return nil, err
		}
		if s.Name == "" {
			s.Name = c.Name
		}
		all = append(all, *s)
	}
	return all, nil
}

// WatchStats streams samples for a container and calls fn at most once per
// interval until ctx is cancelled or fn returns an error. Cancellation is
// a normal end and returns nil.
func (m *Manager) WatchStats(ctx context.Context, ref string, interval time.Duration, fn func(Stats) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	resp, err := m.api.ContainerStats(ctx, ref, true)
	if err != nil {
		return translate(err, "stream stats for", ref)
	}
	defer resp.Body.Close()

	// Closing the body unblocks the decoder on cancellation
	go func() {
		<-ctx.Done()
		resp.Body.Close()
	}()

	dec := json.NewDecoder(resp.Body)
	var last time.Time

	for {
		var raw container.StatsResponse
		if err := dec.Decode(&raw); err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to decode stats stream for %s: %w", ref, err)
		}

		if !last.IsZero() && time.Since(last) < interval {
			continue
		}
		last = time.Now()

		s := computeStats(raw.ID, strings.TrimPrefix(raw.Name, "/"), resp.OSType, &raw)
		if err := fn(s); err != nil {
			m.logger.Debug("Stats watch stopped by callback", zap.Error(err))
			return err
		}
	}
}
