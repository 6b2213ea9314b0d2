package platform

import "runtime"

// Platform identifies the operating system and, on Linux, the init system
// that owns the Docker daemon. It is detected once and never changes.
type Platform int

const (
	// Unsupported is any OS without a known service manager
	Unsupported Platform = iota
	LinuxSystemd
	LinuxSysvinit
	// LinuxUnknown is Linux with neither systemd nor sysvinit markers,
	// typically NixOS or a container.
	LinuxUnknown
	MacOS
	Windows
)

// String returns a stable, human-readable platform name
func (p Platform) String() string {
	switch p {
	case LinuxSystemd:
		return "linux-systemd"
	case LinuxSysvinit:
		return "linux-sysvinit"
	case LinuxUnknown:
		return "linux"
	case MacOS:
		return "macos"
	case Windows:
		return "windows"
	default:
		return "unsupported"
	}
}

// InitSystem names the service manager behind the platform, or "" if none
func (p Platform) InitSystem() string {
	switch p {
	case LinuxSystemd:
		return "systemd"
	case LinuxSysvinit:
		return "sysvinit"
	case MacOS:
		return "launchd"
	case Windows:
		return "scm"
	default:
		return ""
	}
}

// Unix reports whether privilege escalation is done with sudo
func (p Platform) Unix() bool {
	switch p {
	case LinuxSystemd, LinuxSysvinit, LinuxUnknown, MacOS:
		return true
	}
	return false
}

// PrivilegeHint is the advice printed when the process lacks admin rights
func (p Platform) PrivilegeHint() string {
	switch {
	case p == Windows:
		return "Try running as Administrator"
	case p.Unix():
		return "Try running with 'sudo' or as root"
	default:
		return ""
	}
}

// OS returns the runtime operating system name
func OS() string {
	return runtime.GOOS
}
