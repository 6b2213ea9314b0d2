package daemon

import (
	"fmt"
	"runtime"

	"github.com/stone-age-io/dockerctl/internal/platform"
)

// Names are the unit identifiers the resolver substitutes into commands
type Names struct {
	Service      string
	Socket       string
	LaunchdLabel string
	LaunchdPlist string
}

// DefaultNames returns the stock Docker unit names
func DefaultNames() Names {
	return Names{
		Service:      "docker",
		Socket:       "docker.socket",
		LaunchdLabel: "com.docker.docker",
		LaunchdPlist: "/Library/LaunchDaemons/com.docker.docker.plist",
	}
}

const (
	noticeSysvinitSocket = "Socket management not supported with SysVinit"
	noticeNoInitSystem   = "Docker service not detected (NixOS or container environment)"
	noticeMacOSSocket    = "Socket management not applicable on macOS"
	noticeWindowsSocket  = "Socket management not applicable on Windows"
)

// Resolver maps actions to commands for one platform
type Resolver struct {
	platform platform.Platform
	osName   string
	names    Names
}

// NewResolver creates a resolver. Empty names fall back to the defaults.
func NewResolver(p platform.Platform, names Names) *Resolver {
	def := DefaultNames()
	if names.Service == "" {
		names.Service = def.Service
	}
	if names.Socket == "" {
		names.Socket = def.Socket
	}
	if names.LaunchdLabel == "" {
		names.LaunchdLabel = def.LaunchdLabel
	}
	if names.LaunchdPlist == "" {
		names.LaunchdPlist = def.LaunchdPlist
	}

	return &Resolver{
		platform: p,
		osName:   runtime.GOOS,
		names:    names,
	}
}

// Resolve returns the command for an action on p using the default names
func Resolve(p platform.Platform, a Action) CommandSpec {
	return NewResolver(p, DefaultNames()).Resolve(a)
}

// Platform returns the platform this resolver was built for
func (r *Resolver) Platform() platform.Platform {
	return r.platform
}

// Resolve returns exactly one non-empty CommandSpec for any action.
// Combinations with no backing command resolve to a notice.
func (r *Resolver) Resolve(a Action) CommandSpec {
	if !a.Valid() {
		return notice(fmt.Sprintf("%s is not a supported action", a))
	}

	switch r.platform {
	case platform.LinuxSystemd:
		return r.systemd(a)
	case platform.LinuxSysvinit:
		return r.sysvinit(a)
	case platform.LinuxUnknown:
		return notice(noticeNoInitSystem)
	case platform.MacOS:
		return r.launchd(a)
	case platform.Windows:
		return r.windows(a)
	default:
		if a.Target == Socket {
			return notice(fmt.Sprintf("Socket management not implemented for %s", r.osName))
		}
		return notice(fmt.Sprintf("Service management not implemented for %s", r.osName))
	}
}

func (r *Resolver) systemd(a Action) CommandSpec {
	unit := r.names.Service
	if a.Target == Socket {
		unit = r.names.Socket
	}
	return direct("systemctl", a.Verb.String(), unit)
}

func (r *Resolver) sysvinit(a Action) CommandSpec {
	if a.Target == Socket {
		return notice(noticeSysvinitSocket)
	}

	name := r.names.Service
	switch a.Verb {
	case Enable:
		return direct("update-rc.d", name, "defaults")
	case Disable:
		return direct("update-rc.d", name, "remove")
	default:
		return direct("service", name, a.Verb.String())
	}
}

func (r *Resolver) launchd(a Action) CommandSpec {
	if a.Target == Socket {
		return notice(noticeMacOSSocket)
	}

	label := r.names.LaunchdLabel
	switch a.Verb {
	case Status:
		return direct("launchctl", "list", label)
	case Start:
		return direct("launchctl", "start", label)
	case Stop:
		return direct("launchctl", "stop", label)
	case Restart:
		return chain(
			[]string{"launchctl", "stop", label},
			[]string{"launchctl", "start", label},
		)
	case Enable:
		return direct("launchctl", "load", "-w", r.names.LaunchdPlist)
	default:
		return direct("launchctl", "unload", "-w", r.names.LaunchdPlist)
	}
}

func (r *Resolver) windows(a Action) CommandSpec {
	if a.Target == Socket {
		return notice(noticeWindowsSocket)
	}

	name := r.names.Service
	switch a.Verb {
	case Status:
		return direct("sc", "query", name)
	case Start:
		return direct("net", "start", name)
	case Stop:
		return direct("net", "stop", name)
	case Restart:
		return chain(
			[]string{"net", "stop", name},
			[]string{"net", "start", name},
		)
	case Enable:
		return direct("sc", "config", name, "start=", "auto")
	default:
		return direct("sc", "config", name, "start=", "disabled")
	}
}
