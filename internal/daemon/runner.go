package daemon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Output is what one process left behind
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner launches one process and waits for it. A non-nil error means the
// process could not be started; a non-zero exit is reported in Output.
type Runner interface {
	Run(ctx context.Context, argv []string) (Output, error)
}

// ExecRunner runs commands with os/exec, without a shell
type ExecRunner struct{}

// Run executes argv and captures stdout and stderr separately
func (ExecRunner) Run(ctx context.Context, argv []string) (Output, error) {
	if len(argv) == 0 {
		return Output{}, fmt.Errorf("empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err == nil {
		return out, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// -1 when killed by a signal, e.g. on context cancellation
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}

	return Output{}, err
}
