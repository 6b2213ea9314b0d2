package daemon

import (
	"strings"

	"github.com/stone-age-io/dockerctl/internal/platform"
)

// ServiceStatus is a platform-agnostic unit state. Every platform maps its
// native status output onto these values.
type ServiceStatus string

const (
	StatusRunning      ServiceStatus = "Running"
	StatusStopped      ServiceStatus = "Stopped"
	StatusStarting     ServiceStatus = "Starting"
	StatusStopping     ServiceStatus = "Stopping"
	StatusError        ServiceStatus = "Error"
	StatusUnknown      ServiceStatus = "Unknown"
	StatusNotInstalled ServiceStatus = "NotInstalled"
)

// FailureCode classifies why a status check did not find a healthy unit
type FailureCode string

const (
	FailureNone               FailureCode = ""
	FailureServiceNotRunning  FailureCode = "service_not_running"
	FailureSocketNotAvailable FailureCode = "socket_not_available"
	FailurePermissionDenied   FailureCode = "permission_denied"
	FailureNotInstalled       FailureCode = "docker_not_installed"
)

// Exit codes with a defined meaning for status queries
const (
	systemdExitInactive = 3 // LSB: program is not running
	systemdExitNoUnit   = 4 // LSB: program or service status is unknown
	scExitNoService     = 1060
)

// StatusReport is the interpreted outcome of a status action
type StatusReport struct {
	Action  Action          `json:"-"`
	Result  ExecutionResult `json:"result"`
	State   ServiceStatus   `json:"state"`
	Failure FailureCode     `json:"failure,omitempty"`
	// Supported is false when the platform has no command for this unit
	Supported bool `json:"supported"`
}

// Running reports whether the unit was observed running
func (r StatusReport) Running() bool {
	return r.State == StatusRunning
}

// parseState extracts a ServiceStatus from raw status command output
func parseState(p platform.Platform, out Output) ServiceStatus {
	switch p {
	case platform.LinuxSystemd:
		return parseSystemd(out)
	case platform.LinuxSysvinit:
		return parseSysvinit(out)
	case platform.MacOS:
		return parseLaunchd(out)
	case platform.Windows:
		return parseSC(out)
	default:
		return StatusUnknown
	}
}

// parseSystemd reads the "Active:" line of systemctl status, e.g.
// "Active: active (running) since ..." or "Active: inactive (dead)".
func parseSystemd(out Output) ServiceStatus {
	for _, line := range strings.Split(out.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Active:") {
			continue
		}

		fields := strings.Fields(strings.TrimPrefix(line, "Active:"))
		if len(fields) == 0 {
			return StatusUnknown
		}

		var subState string
		if len(fields) > 1 {
			subState = strings.Trim(fields[1], "()")
		}
		return mapSystemdState(fields[0], subState)
	}

	stderr := strings.ToLower(out.Stderr)
	if out.ExitCode == systemdExitNoUnit ||
		strings.Contains(stderr, "could not be found") ||
		strings.Contains(stderr, "not-found") ||
		strings.Contains(stderr, "not loaded") {
		return StatusNotInstalled
	}
	return StatusUnknown
}

// mapSystemdState converts a systemd ActiveState to a ServiceStatus
func mapSystemdState(activeState, subState string) ServiceStatus {
	switch activeState {
	case "active":
		// running, listening (sockets) and exited all count as up
		return StatusRunning
	case "reloading":
		return StatusRunning
	case "inactive":
		return StatusStopped
	case "activating":
		return StatusStarting
	case "deactivating":
		return StatusStopping
	case "failed":
		return StatusError
	default:
		return StatusUnknown
	}
}

func parseSysvinit(out Output) ServiceStatus {
	text := strings.ToLower(out.Stdout + "\n" + out.Stderr)
	switch {
	case strings.Contains(text, "unrecognized service"),
		strings.Contains(text, "not found"):
		return StatusNotInstalled
	case strings.Contains(text, "not running"),
		strings.Contains(text, "stop/waiting"),
		strings.Contains(text, "stopped"):
		return StatusStopped
	case strings.Contains(text, "running"):
		return StatusRunning
	case out.ExitCode == systemdExitInactive:
		return StatusStopped
	default:
		return StatusUnknown
	}
}

// parseLaunchd reads launchctl list <label>, which prints a dictionary
// containing "PID" only while the job is running.
func parseLaunchd(out Output) ServiceStatus {
	if out.ExitCode != 0 {
		if strings.Contains(strings.ToLower(out.Stderr), "could not find") {
			return StatusNotInstalled
		}
		return StatusUnknown
	}
	if strings.Contains(out.Stdout, `"PID"`) {
		return StatusRunning
	}
	return StatusStopped
}

// parseSC reads the STATE line of sc query, e.g. "STATE : 4  RUNNING"
func parseSC(out Output) ServiceStatus {
	if out.ExitCode == scExitNoService ||
		strings.Contains(strings.ToLower(out.Stdout), "does not exist") {
		return StatusNotInstalled
	}

	for _, line := range strings.Split(out.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "STATE") {
			continue
		}
		switch {
		case strings.Contains(line, "START_PENDING"), strings.Contains(line, "CONTINUE_PENDING"):
			return StatusStarting
		case strings.Contains(line, "STOP_PENDING"), strings.Contains(line, "PAUSE_PENDING"):
			return StatusStopping
		case strings.Contains(line, "RUNNING"):
			return StatusRunning
		case strings.Contains(line, "STOPPED"), strings.Contains(line, "PAUSED"):
			return StatusStopped
		}
	}
	return StatusUnknown
}

// interpret builds the report for a completed status action
func interpret(p platform.Platform, a Action, spec CommandSpec, res ExecutionResult, out Output) StatusReport {
	report := StatusReport{
		Action:    a,
		Result:    res,
		State:     StatusUnknown,
		Supported: spec.Mode != ModeNotice,
	}
	if !report.Supported {
		return report
	}

	report.State = parseState(p, out)

	notRunning := FailureServiceNotRunning
	missing := FailureNotInstalled
	if a.Target == Socket {
		notRunning = FailureSocketNotAvailable
		missing = FailureSocketNotAvailable
	}

	if res.Succeeded {
		if report.State != StatusRunning {
			report.Failure = notRunning
		}
		return report
	}

	errText := strings.ToLower(res.Error)
	switch {
	case strings.Contains(errText, "permission denied"),
		strings.Contains(errText, "access is denied"):
		report.Failure = FailurePermissionDenied
	case report.State == StatusStopped,
		report.State == StatusError,
		report.State == StatusStarting,
		report.State == StatusStopping:
		report.Failure = notRunning
	default:
		report.Failure = missing
	}
	return report
}
