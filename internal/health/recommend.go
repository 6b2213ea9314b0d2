package health

import (
	"fmt"
	"strings"

	"github.com/stone-age-io/dockerctl/internal/config"
)

// Recommend derives advice from a report. A value must exceed its
// threshold to trigger; equal is fine.
func Recommend(r *Report, t config.ThresholdsConfig) []string {
	recs := []string{}

	if sys := r.System; sys != nil {
		if sys.CPU.Percent > t.CPUPercent {
			recs = append(recs, "CPU usage is high. Consider limiting container CPU usage or scaling services.")
		}
		if sys.Memory.Percent > t.MemoryPercent {
			recs = append(recs, "Memory usage is high. Consider increasing swap space or limiting container memory.")
		}
		if sys.Disk.Percent > t.DiskPercent {
			recs = append(recs, "Disk usage is high. Consider cleaning up unused images and volumes with 'docker system prune'.")
		}
	}

	if r.Docker.Status != DockerRunning {
		recs = append(recs, "Docker daemon is not running. Start it with 'dockerctl service start'.")
		return recs
	}

	if n := r.Docker.Containers.Stopped; n > t.StoppedContainers {
		recs = append(recs, fmt.Sprintf("You have %d stopped containers. Clean them up with 'dockerctl containers prune'.", n))
	}

	var highCPU, highMem []string
	for _, c := range r.Docker.Running {
		if c.CPUPercent > t.ContainerCPUPercent {
			highCPU = append(highCPU, c.Name)
		}
		if c.MemoryPercent > t.ContainerMemoryPercent {
			highMem = append(highMem, c.Name)
		}
	}
	if len(highCPU) > 0 {
		recs = append(recs, fmt.Sprintf("High CPU usage detected in containers: %s. Consider resource limits.", strings.Join(highCPU, ", ")))
	}
	if len(highMem) > 0 {
		recs = append(recs, fmt.Sprintf("High memory usage detected in containers: %s. Consider resource limits.", strings.Join(highMem, ", ")))
	}

	return recs
}
