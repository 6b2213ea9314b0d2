package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/stone-age-io/dockerctl/internal/containers"
	"github.com/stone-age-io/dockerctl/internal/platform"
	"github.com/stone-age-io/dockerctl/internal/utils"
)

// Info renders docker info plus the detected host. Either part may be nil
// when it could not be gathered.
func Info(w io.Writer, d *containers.DaemonInfo, host *platform.Info) {
	if host != nil {
		Section(w, "Host")
		admin := "no"
		if host.Admin {
			admin = "yes"
		}
		rows := [][2]string{
			{"Hostname", Sanitize(host.Hostname)},
			{"Platform", host.PlatformName},
			{"Init System", orDash(host.InitSystem)},
			{"Distribution", strings.TrimSpace(host.Distribution + " " + host.DistroVersion)},
			{"Kernel", strings.TrimSpace(host.KernelVersion + " " + host.KernelArch)},
			{"Uptime", (time.Duration(host.UptimeSeconds) * time.Second).String()},
			{"Administrator", admin},
		}
		if host.Virtualization != "" {
			rows = append(rows, [2]string{"Virtualization", host.Virtualization})
		}
		KeyValue(w, rows)
	}

	if d == nil {
		return
	}

	Section(w, "Basic Information")
	KeyValue(w, [][2]string{
		{"Server Version", d.ServerVersion},
		{"Operating System", d.OperatingSystem},
		{"OS Type", d.OSType},
		{"Architecture", d.Architecture},
		{"Kernel Version", d.KernelVersion},
		{"CPUs", fmt.Sprint(d.NCPU)},
		{"Total Memory", utils.HumanBytes(uint64(d.MemTotal))},
		{"Containers", fmt.Sprintf("%d (%d Running, %d Paused, %d Stopped)",
			d.Containers, d.ContainersRunning, d.ContainersPaused, d.ContainersStopped)},
		{"Images", fmt.Sprint(d.Images)},
		{"Docker Root Dir", d.DockerRootDir},
		{"Cgroup Driver", strings.TrimSpace(d.CgroupDriver + " " + versionSuffix(d.CgroupVersion))},
		{"Runtimes", orDash(strings.Join(d.Runtimes, ", "))},
		{"Default Runtime", orDash(d.DefaultRuntime)},
	})

	Section(w, "Storage Driver")
	rows := [][2]string{{"Driver", d.Driver}}
	for _, kv := range d.DriverStatus {
		k, v, _ := strings.Cut(kv, ": ")
		rows = append(rows, [2]string{k, v})
	}
	KeyValue(w, rows)

	Section(w, "Plugins")
	KeyValue(w, [][2]string{
		{"Network", orDash(strings.Join(d.NetworkPlugins, " "))},
		{"Volume", orDash(strings.Join(d.VolumePlugins, " "))},
	})
}

func versionSuffix(v string) string {
	if v == "" {
		return ""
	}
	return "(v" + v + ")"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
