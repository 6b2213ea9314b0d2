package daemon

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Status checks the Docker service
func (e *Executor) Status(ctx context.Context) StatusReport {
	return e.status(ctx, Service)
}

// Start starts the Docker service and then re-checks its status
func (e *Executor) Start(ctx context.Context) ExecutionResult {
	return e.change(ctx, Action{Verb: Start, Target: Service})
}

// Stop stops the Docker service
func (e *Executor) Stop(ctx context.Context) ExecutionResult {
	return e.change(ctx, Action{Verb: Stop, Target: Service})
}

// Restart restarts the Docker service and then re-checks its status
func (e *Executor) Restart(ctx context.Context) ExecutionResult {
	return e.change(ctx, Action{Verb: Restart, Target: Service})
}

// Enable makes the Docker service start at boot
func (e *Executor) Enable(ctx context.Context) ExecutionResult {
	return e.change(ctx, Action{Verb: Enable, Target: Service})
}

// Disable stops the Docker service from starting at boot
func (e *Executor) Disable(ctx context.Context) ExecutionResult {
	return e.change(ctx, Action{Verb: Disable, Target: Service})
}

// SocketStatus checks the Docker socket unit
func (e *Executor) SocketStatus(ctx context.Context) StatusReport {
	return e.status(ctx, Socket)
}

// StartSocket starts the Docker socket unit and then re-checks its status
func (e *Executor) StartSocket(ctx context.Context) ExecutionResult {
	return e.change(ctx, Action{Verb: Start, Target: Socket})
}

// StopSocket stops the Docker socket unit
func (e *Executor) StopSocket(ctx context.Context) ExecutionResult {
	return e.change(ctx, Action{Verb: Stop, Target: Socket})
}

// EnableSocket enables the Docker socket unit at boot
func (e *Executor) EnableSocket(ctx context.Context) ExecutionResult {
	return e.change(ctx, Action{Verb: Enable, Target: Socket})
}

// DisableSocket disables the Docker socket unit at boot
func (e *Executor) DisableSocket(ctx context.Context) ExecutionResult {
	return e.change(ctx, Action{Verb: Disable, Target: Socket})
}

// Run dispatches any declared action. Status actions are interpreted and
// their result returned; other verbs behave like the matching entry point.
func (e *Executor) Run(ctx context.Context, a Action) ExecutionResult {
	if a.Verb == Status {
		return e.status(ctx, a.Target).Result
	}
	return e.change(ctx, a)
}

func (e *Executor) status(ctx context.Context, target Target) StatusReport {
	a := Action{Verb: Status, Target: target}
	fmt.Fprintf(e.out, "Checking Docker %s status...\n", target)

	spec := e.resolver.Resolve(a)
	res, raw := e.execute(ctx, a, spec)
	report := interpret(e.Platform(), a, spec, res, raw)

	switch {
	case !report.Supported:
		fmt.Fprint(e.out, res.Output)
	case res.Succeeded:
		fmt.Fprintf(e.out, "Docker %s status:\n", target)
		fmt.Fprint(e.out, ensureNewline(res.Output))
	case report.Failure == FailureServiceNotRunning || report.Failure == FailureSocketNotAvailable:
		// inactive units make systemctl exit non-zero with the status on stdout
		fmt.Fprintf(e.out, "Docker %s status:\n", target)
		fmt.Fprint(e.out, ensureNewline(raw.Stdout))
	default:
		fmt.Fprintf(e.out, "Error checking Docker %s status: %s", target, ensureNewline(res.Error))
	}

	return report
}

// change runs a state-changing action. After a successful start or restart
// it waits for the settle delay and reports the observed status once. The
// re-check never alters the returned result.
func (e *Executor) change(ctx context.Context, a Action) ExecutionResult {
	fmt.Fprintf(e.out, "%s Docker %s...\n", progressVerb(a.Verb), a.Target)

	spec := e.resolver.Resolve(a)
	res, _ := e.execute(ctx, a, spec)

	if spec.Mode == ModeNotice {
		fmt.Fprint(e.out, res.Output)
		return res
	}

	if !res.Succeeded {
		fmt.Fprintf(e.out, "Error %s Docker %s: %s",
			strings.ToLower(progressVerb(a.Verb)), a.Target, ensureNewline(res.Error))
		return res
	}

	fmt.Fprintf(e.out, "✓ Docker %s %s successfully\n", a.Target, pastVerb(a.Verb))

	var settle time.Duration
	switch a.Verb {
	case Start:
		settle = e.startSettle
	case Restart:
		settle = e.restartSettle
	default:
		return res
	}

	if err := e.sleep(ctx, settle); err != nil {
		return res
	}
	e.status(ctx, a.Target)

	return res
}

func progressVerb(v Verb) string {
	switch v {
	case Start:
		return "Starting"
	case Stop:
		return "Stopping"
	case Restart:
		return "Restarting"
	case Enable:
		return "Enabling"
	case Disable:
		return "Disabling"
	default:
		return "Checking"
	}
}

func pastVerb(v Verb) string {
	switch v {
	case Start:
		return "started"
	case Stop:
		return "stopped"
	case Restart:
		return "restarted"
	case Enable:
		return "enabled"
	case Disable:
		return "disabled"
	default:
		return "checked"
	}
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
