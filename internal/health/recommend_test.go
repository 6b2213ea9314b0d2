package health

import (
	"testing"

	"github.com/stone-age-io/dockerctl/internal/config"
	"github.com/stone-age-io/dockerctl/internal/containers"
)

func defaultThresholds() config.ThresholdsConfig {
	return config.Default().Health.Thresholds
}

func healthyReport() *Report {
	return &Report{
		System: &SystemMetrics{
			CPU:    CPUMetrics{Percent: 10},
			Memory: MemoryMetrics{Percent: 20},
			Disk:   DiskMetrics{Percent: 30},
		},
		Docker: DockerMetrics{
			Status:     DockerRunning,
			Containers: containers.Summary{Total: 2, Running: 1, Stopped: 1},
			Running:    []ContainerUsage{{Name: "web", CPUPercent: 5, MemoryPercent: 5}},
		},
	}
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		name   string
		modify func(r *Report)
		want   []string
	}{
		{
			name:   "healthy",
			modify: func(r *Report) {},
			want:   nil,
		},
		{
			name:   "cpu at threshold",
			modify: func(r *Report) { r.System.CPU.Percent = 80 },
			want:   nil,
		},
		{
			name:   "cpu above threshold",
			modify: func(r *Report) { r.System.CPU.Percent = 80.01 },
			want:   []string{"CPU usage is high. Consider limiting container CPU usage or scaling services."},
		},
		{
			name:   "memory at threshold",
			modify: func(r *Report) { r.System.Memory.Percent = 85 },
			want:   nil,
		},
		{
			name:   "memory above threshold",
			modify: func(r *Report) { r.System.Memory.Percent = 85.5 },
			want:   []string{"Memory usage is high. Consider increasing swap space or limiting container memory."},
		},
		{
			name:   "disk above threshold",
			modify: func(r *Report) { r.System.Disk.Percent = 90 },
			want:   []string{"Disk usage is high. Consider cleaning up unused images and volumes with 'docker system prune'."},
		},
		{
			name:   "no system metrics",
			modify: func(r *Report) { r.System = nil },
			want:   nil,
		},
		{
			name: "daemon down skips container advice",
			modify: func(r *Report) {
				r.Docker.Status = DockerNotRunning
				r.Docker.Containers.Stopped = 50
			},
			want: []string{"Docker daemon is not running. Start it with 'dockerctl service start'."},
		},
		{
			name:   "five stopped containers",
			modify: func(r *Report) { r.Docker.Containers.Stopped = 5 },
			want:   nil,
		},
		{
			name:   "six stopped containers",
			modify: func(r *Report) { r.Docker.Containers.Stopped = 6 },
			want:   []string{"You have 6 stopped containers. Clean them up with 'dockerctl containers prune'."},
		},
		{
			name: "busy containers",
			modify: func(r *Report) {
				r.Docker.Running = []ContainerUsage{
					{Name: "api", CPUPercent: 95, MemoryPercent: 10},
					{Name: "db", CPUPercent: 81, MemoryPercent: 90},
					{Name: "cache", CPUPercent: 80, MemoryPercent: 80},
				}
			},
			want: []string{
				"High CPU usage detected in containers: api, db. Consider resource limits.",
				"High memory usage detected in containers: db. Consider resource limits.",
			},
		},
		{
			name: "everything at once",
			modify: func(r *Report) {
				r.System.CPU.Percent = 99
				r.System.Memory.Percent = 99
				r.System.Disk.Percent = 99
			},
			want: []string{
				"CPU usage is high. Consider limiting container CPU usage or scaling services.",
				"Memory usage is high. Consider increasing swap space or limiting container memory.",
				"Disk usage is high. Consider cleaning up unused images and volumes with 'docker system prune'.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := healthyReport()
			tt.modify(r)

			got := Recommend(r, defaultThresholds())
			if len(got) != len(tt.want) {
				t.Fatalf("Recommend() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Recommend()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRecommendCustomThresholds(t *testing.T) {
	th := defaultThresholds()
	th.CPUPercent = 5

	r := healthyReport()
	got := Recommend(r, th)
	if len(got) != 1 {
		t.Fatalf("Recommend() = %q, want one CPU recommendation", got)
	}
}
