package daemon

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/stone-age-io/dockerctl/internal/platform"
	"go.uber.org/zap"
)

// ExecutionResult is the outcome of running one CommandSpec
type ExecutionResult struct {
	Succeeded bool   `json:"succeeded"`
	Output    string `json:"output,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Executor runs resolved commands for the Docker service and socket.
// It performs one external call at a time and never retries.
type Executor struct {
	resolver      *Resolver
	runner        Runner
	logger        *zap.Logger
	out           io.Writer
	isAdmin       func() bool
	startSettle   time.Duration
	restartSettle time.Duration
	sleep         func(ctx context.Context, d time.Duration) error
}

// Option customizes an Executor
type Option func(*Executor)

// WithOutput sets where progress and status messages are written
func WithOutput(w io.Writer) Option {
	return func(e *Executor) { e.out = w }
}

// WithSettle sets the waits before the post-start and post-restart status check
func WithSettle(start, restart time.Duration) Option {
	return func(e *Executor) {
		e.startSettle = start
		e.restartSettle = restart
	}
}

// WithPrivilegeCheck replaces the admin probe
func WithPrivilegeCheck(isAdmin func() bool) Option {
	return func(e *Executor) { e.isAdmin = isAdmin }
}

// NewExecutor creates an executor. Messages are discarded unless
// WithOutput is given.
func NewExecutor(resolver *Resolver, runner Runner, logger *zap.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Executor{
		resolver:      resolver,
		runner:        runner,
		logger:        logger,
		out:           io.Discard,
		isAdmin:       platform.IsAdmin,
		startSettle:   2 * time.Second,
		restartSettle: 3 * time.Second,
		sleep:         sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Platform returns the platform commands are resolved for
func (e *Executor) Platform() platform.Platform {
	return e.resolver.Platform()
}

// Resolve returns the command an action would run
func (e *Executor) Resolve(a Action) CommandSpec {
	return e.resolver.Resolve(a)
}

// Execute runs spec on behalf of action. Failures are reported in the
// result, never as a Go error.
func (e *Executor) Execute(ctx context.Context, a Action, spec CommandSpec) ExecutionResult {
	res, _ := e.execute(ctx, a, spec)
	return res
}

// execute also returns the raw output of the last process run, which status
// interpretation needs even when the command exits non-zero.
func (e *Executor) execute(ctx context.Context, a Action, spec CommandSpec) (ExecutionResult, Output) {
	e.checkPrivileges(a)

	start := time.Now()
	e.logger.Debug("Executing action",
		zap.String("action", a.String()),
		zap.String("mode", spec.Mode.String()),
		zap.Strings("argv", spec.Argv()))

	var (
		res  ExecutionResult
		last Output
	)

	switch spec.Mode {
	case ModeNotice:
		res = ExecutionResult{Succeeded: true, Output: spec.Message + "\n"}
	default:
		res, last = e.runSteps(ctx, spec.Steps)
	}

	fields := []zap.Field{
		zap.String("action", a.String()),
		zap.String("command", spec.String()),
		zap.Duration("duration", time.Since(start)),
		zap.Bool("success", res.Succeeded),
	}
	if res.Succeeded {
		e.logger.Info("Action completed", fields...)
	} else {
		e.logger.Warn("Action failed", append(fields, zap.String("stderr", res.Error))...)
	}

	return res, last
}

// runSteps runs each step in order and stops at the first failure. There is
// no rollback of steps that already ran.
func (e *Executor) runSteps(ctx context.Context, steps [][]string) (ExecutionResult, Output) {
	var (
		stdout strings.Builder
		last   Output
	)

	for _, argv := range steps {
		out, err := e.runner.Run(ctx, argv)
		if err != nil {
			return ExecutionResult{
				Output: stdout.String(),
				Error:  err.Error(),
			}, Output{Stderr: err.Error(), ExitCode: -1}
		}
		last = out

		if out.ExitCode != 0 {
			return ExecutionResult{
				Output: stdout.String(),
				Error:  out.Stderr,
			}, last
		}
		stdout.WriteString(out.Stdout)
	}

	return ExecutionResult{Succeeded: true, Output: stdout.String()}, last
}

// checkPrivileges warns when the process is not elevated. It never blocks.
func (e *Executor) checkPrivileges(a Action) {
	if e.isAdmin() {
		return
	}

	e.logger.Warn("Running without administrative privileges", zap.String("action", a.String()))

	fmt.Fprintln(e.out, "Warning: Administrative privileges required for service management")
	fmt.Fprintln(e.out, "   Some operations may fail without proper permissions")
	if hint := e.Platform().PrivilegeHint(); hint != "" {
		fmt.Fprintf(e.out, "   %s\n", hint)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
