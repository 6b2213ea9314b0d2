package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/stone-age-io/dockerctl/internal/health"
	"github.com/stone-age-io/dockerctl/internal/utils"
)

const (
	divider   = "========================================================================"
	barWidth  = 30
	nameWidth = 15
)

// HealthReport renders a report for the terminal
func HealthReport(w io.Writer, r *health.Report) {
	Section(w, "Docker Service Manager - System Health Report")
	fmt.Fprintf(w, "Generated: %s\n", r.Timestamp.Local().Format(time.DateTime))
	if sys := r.System; sys != nil {
		fmt.Fprintf(w, "System: %s (%s)\n", sys.OS, Sanitize(sys.Platform))
		fmt.Fprintf(w, "Hostname: %s\n", Sanitize(sys.Hostname))
		fmt.Fprintf(w, "Metrics source: %s\n", sys.Source)
	}
	fmt.Fprintln(w, divider)

	Section(w, "System Resources")
	if sys := r.System; sys != nil {
		systemResources(w, sys)
	} else {
		Status(w, LevelError, "Error collecting system metrics: %s", r.SystemError)
	}
	fmt.Fprintln(w, divider)

	Section(w, "Docker Status")
	dockerStatus(w, r.Docker)
	fmt.Fprintln(w, divider)

	Section(w, "Recommendations")
	if len(r.Recommendations) == 0 {
		fmt.Fprintln(w, Good("No specific recommendations at this time. System appears to be healthy."))
	}
	for i, rec := range r.Recommendations {
		fmt.Fprintf(w, "%d. %s\n", i+1, Warn(rec))
	}

	fmt.Fprintln(w, divider)
	fmt.Fprintln(w, "Report completed.")
}

func systemResources(w io.Writer, sys *health.SystemMetrics) {
	fmt.Fprintf(w, "CPU Usage: %.1f%% (%d cores)\n", sys.CPU.Percent, sys.CPU.Cores)
	if len(sys.CPU.PerCore) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Per-Core CPU Usage (%)")
		for i, v := range sys.CPU.PerCore {
			fmt.Fprintf(w, "  core %-3d [%s] %5.1f%%\n", i, Bar(v, 100, barWidth), v)
		}
		fmt.Fprintln(w)
	}

	mem := sys.Memory
	fmt.Fprintf(w, "Memory Usage: %.1f%% (%.1f GB of %.1f GB)\n", mem.Percent, mem.UsedGB, mem.TotalGB)
	t := NewTable(w)
	t.AppendHeader(table.Row{"Component", "Size (GB)", "Percentage"})
	t.AppendRows([]table.Row{
		{"Used", fmt.Sprintf("%.1f", mem.UsedGB), fmt.Sprintf("%.1f%%", mem.Percent)},
		{"Cached", fmt.Sprintf("%.1f", mem.CachedGB), fmt.Sprintf("%.1f%%", utils.Percent(mem.CachedGB, mem.TotalGB))},
		{"Available", fmt.Sprintf("%.1f", mem.AvailableGB), fmt.Sprintf("%.1f%%", utils.Percent(mem.AvailableGB, mem.TotalGB))},
	})
	t.Render()

	disk := sys.Disk
	fmt.Fprintf(w, "Disk Usage (%s): %.1f%% (%.1f GB of %.1f GB)\n", disk.Path, disk.Percent, disk.UsedGB, disk.TotalGB)

	net := sys.Network
	fmt.Fprintf(w, "Network I/O: %.1f MB received, %.1f MB sent\n",
		float64(net.BytesRecv)/utils.MiB, float64(net.BytesSent)/utils.MiB)
}

func dockerStatus(w io.Writer, d health.DockerMetrics) {
	if d.Status != health.DockerRunning {
		Status(w, LevelError, "Docker daemon is not running")
		if d.Error != "" {
			fmt.Fprintf(w, "Error: %s\n", d.Error)
		}
		return
	}

	Status(w, LevelOK, "Docker daemon is running")
	fmt.Fprintf(w, "Docker version: %s\n", d.Version)
	c := d.Containers
	fmt.Fprintf(w, "Containers: %d total, %d running, %d paused, %d stopped\n", c.Total, c.Running, c.Paused, c.Stopped)
	if d.Error != "" {
		Status(w, LevelWarning, "Partial data: %s", d.Error)
	}

	if len(d.Running) == 0 {
		return
	}

	Section(w, "Running Containers")
	t := NewTable(w)
	t.AppendHeader(table.Row{"Name", "Image", "CPU %", "Memory Usage", "Memory %"})
	maxCPU := 5.0
	for _, u := range d.Running {
		t.AppendRow(table.Row{
			Sanitize(u.Name),
			Sanitize(u.Image),
			fmt.Sprintf("%.1f%%", u.CPUPercent),
			utils.HumanBytes(u.MemoryUsage),
			fmt.Sprintf("%.1f%%", u.MemoryPercent),
		})
		if u.CPUPercent > maxCPU {
			maxCPU = u.CPUPercent
		}
	}
	t.Render()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Container CPU Usage:")
	fmt.Fprintln(w, strings.Repeat("-", 20))
	for _, u := range d.Running {
		name := Sanitize(u.Name)
		if len(name) > nameWidth {
			name = name[:nameWidth]
		}
		fmt.Fprintf(w, "%-*s [%s] %.1f%%\n", nameWidth, name, Bar(u.CPUPercent, maxCPU, barWidth), u.CPUPercent)
	}
}
