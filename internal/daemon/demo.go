package daemon

import (
	"context"
	"strings"
	"sync"
)

// DemoVersion is the daemon version reported in demo mode
const DemoVersion = "20.10.12"

// DemoRunner answers every command with canned output and never spawns a
// process. Status queries report a running daemon; everything else succeeds
// silently, the way service managers do.
type DemoRunner struct {
	mu    sync.Mutex
	calls [][]string
}

// NewDemoRunner creates a demo runner
func NewDemoRunner() *DemoRunner {
	return &DemoRunner{}
}

// Run records argv and returns the canned response for it
func (r *DemoRunner) Run(ctx context.Context, argv []string) (Output, error) {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string(nil), argv...))
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	return Output{Stdout: demoResponse(argv)}, nil
}

// Calls returns the commands seen so far
func (r *DemoRunner) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	calls := make([][]string, len(r.calls))
	copy(calls, r.calls)
	return calls
}

func demoResponse(argv []string) string {
	if len(argv) < 2 {
		return ""
	}

	switch argv[0] {
	case "systemctl":
		if argv[1] != "status" || len(argv) < 3 {
			return ""
		}
		if strings.HasSuffix(argv[2], ".socket") {
			return demoSystemdSocket(argv[2])
		}
		return demoSystemdService(argv[2])

	case "service":
		if len(argv) >= 3 && argv[2] == "status" {
			return " * Docker is running\n"
		}

	case "launchctl":
		if argv[1] == "list" && len(argv) >= 3 {
			return "{\n\t\"LimitLoadToSessionType\" = \"System\";\n\t\"Label\" = \"" + argv[2] +
				"\";\n\t\"PID\" = 4242;\n\t\"LastExitStatus\" = 0;\n};\n"
		}

	case "sc":
		if argv[1] == "query" && len(argv) >= 3 {
			return "\nSERVICE_NAME: " + argv[2] + "\n" +
				"        TYPE               : 10  WIN32_OWN_PROCESS\n" +
				"        STATE              : 4  RUNNING\n" +
				"                                (STOPPABLE, NOT_PAUSABLE, ACCEPTS_SHUTDOWN)\n" +
				"        WIN32_EXIT_CODE    : 0  (0x0)\n"
		}
	}

	return ""
}

func demoSystemdService(unit string) string {
	if !strings.Contains(unit, ".") {
		unit += ".service"
	}
	return "● " + unit + " - Docker Application Container Engine\n" +
		"     Loaded: loaded (/lib/systemd/system/docker.service; enabled; vendor preset: enabled)\n" +
		"     Active: active (running) since Mon 2024-01-15 09:00:00 UTC; 2h 13min ago\n" +
		"   Main PID: 4242 (dockerd)\n" +
		"      Tasks: 18\n" +
		"     Memory: 96.4M\n" +
		"\n" +
		"Docker version: " + DemoVersion + "\n" +
		"Containers: 4 (3 Running, 1 Stopped)\n" +
		"Images: 12\n"
}

func demoSystemdSocket(unit string) string {
	return "● " + unit + " - Docker Socket for the API\n" +
		"     Loaded: loaded (/lib/systemd/system/docker.socket; enabled; vendor preset: enabled)\n" +
		"     Active: active (listening) since Mon 2024-01-15 09:00:00 UTC; 2h 13min ago\n" +
		"   Triggers: ● docker.service\n" +
		"     Listen: /var/run/docker.sock (Stream)\n"
}
