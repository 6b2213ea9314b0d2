package platform

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v3/host"
)

// Marker paths probed on Linux, in order
const (
	systemdMarker  = "/run/systemd/system"
	sysvinitMarker = "/etc/init.d"
)

var (
	detectOnce sync.Once
	detected   Platform
)

// Detect returns the platform of the running process. The probe runs once.
func Detect() Platform {
	detectOnce.Do(func() {
		detected = detect(runtime.GOOS, pathExists)
	})
	return detected
}

// detect maps an OS name plus marker-path probe to a Platform
func detect(goos string, exists func(string) bool) Platform {
	switch goos {
	case "linux":
		switch {
		case exists(systemdMarker):
			return LinuxSystemd
		case exists(sysvinitMarker):
			return LinuxSysvinit
		default:
			return LinuxUnknown
		}
	case "darwin":
		return MacOS
	case "windows":
		return Windows
	default:
		return Unsupported
	}
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Info describes the host for the info command and health reports
type Info struct {
	Platform       Platform `json:"-"`
	PlatformName   string   `json:"platform"`
	InitSystem     string   `json:"init_system,omitempty"`
	OS             string   `json:"os"`
	Hostname       string   `json:"hostname"`
	Distribution   string   `json:"distribution,omitempty"`
	DistroVersion  string   `json:"distribution_version,omitempty"`
	KernelVersion  string   `json:"kernel_version,omitempty"`
	KernelArch     string   `json:"kernel_arch,omitempty"`
	Virtualization string   `json:"virtualization,omitempty"`
	UptimeSeconds  uint64   `json:"uptime_seconds"`
	Admin          bool     `json:"admin"`
}

// Describe gathers host information through gopsutil
func Describe(ctx context.Context, p Platform) (*Info, error) {
	h, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get host info: %w", err)
	}

	info := &Info{
		Platform:      p,
		PlatformName:  p.String(),
		InitSystem:    p.InitSystem(),
		OS:            h.OS,
		Hostname:      h.Hostname,
		Distribution:  h.Platform,
		DistroVersion: h.PlatformVersion,
		KernelVersion: h.KernelVersion,
		KernelArch:    h.KernelArch,
		UptimeSeconds: h.Uptime,
		Admin:         IsAdmin(),
	}
	if h.VirtualizationRole == "guest" {
		info.Virtualization = h.VirtualizationSystem
	}

	return info, nil
}
