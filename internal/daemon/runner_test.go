package daemon

import (
	"context"
	"runtime"
	"testing"

	"github.com/stone-age-io/dockerctl/internal/platform"
)

const missingBinary = "dockerctl-no-such-binary"

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestExecRunner(t *testing.T) {
	skipOnWindows(t)

	tests := []struct {
		name    string
		argv    []string
		want    Output
		wantErr string
	}{
		{
			name: "exit zero",
			argv: []string{"sh", "-c", "echo out"},
			want: Output{Stdout: "out\n"},
		},
		{
			name: "non-zero exit keeps both streams",
			argv: []string{"sh", "-c", "echo out; echo err >&2; exit 3"},
			want: Output{Stdout: "out\n", Stderr: "err\n", ExitCode: 3},
		},
		{
			name:    "binary not found",
			argv:    []string{missingBinary, "status"},
			wantErr: "executable file not found",
		},
		{
			name:    "empty argv",
			argv:    nil,
			wantErr: "empty command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExecRunner{}.Run(context.Background(), tt.argv)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("Run() error = nil, want error containing %q", tt.wantErr)
				}
				if indexOf(err.Error(), tt.wantErr) < 0 {
					t.Errorf("Run() error = %v, want error containing %q", err, tt.wantErr)
				}
				if got != (Output{}) {
					t.Errorf("Run() output = %+v, want empty on launch failure", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Run() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// TestExecuteWithExecRunner runs real processes through the executor
func TestExecuteWithExecRunner(t *testing.T) {
	skipOnWindows(t)

	tests := []struct {
		name     string
		spec     CommandSpec
		want     ExecutionResult
		wantText string
	}{
		{
			name: "success returns stdout",
			spec: direct("sh", "-c", "echo running; echo noise >&2"),
			want: ExecutionResult{Succeeded: true, Output: "running\n"},
		},
		{
			name: "failure returns stderr only",
			spec: direct("sh", "-c", "echo out; echo err >&2; exit 3"),
			want: ExecutionResult{Error: "err\n"},
		},
		{
			name: "chain stops at first failure",
			spec: chain(
				[]string{"sh", "-c", "echo one"},
				[]string{"sh", "-c", "echo failed >&2; exit 2"},
				[]string{"sh", "-c", "echo never"},
			),
			want: ExecutionResult{Output: "one\n", Error: "failed\n"},
		},
		{
			name:     "launch failure",
			spec:     direct(missingBinary, "start", "docker"),
			wantText: "executable file not found",
		},
		{
			name:     "empty step",
			spec:     CommandSpec{Mode: ModeDirect, Steps: [][]string{nil}},
			wantText: "empty command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExecutor(NewResolver(platform.LinuxSystemd, DefaultNames()), ExecRunner{}, nil,
				WithPrivilegeCheck(func() bool { return true }))

			got := e.Execute(context.Background(), Action{Verb: Start, Target: Service}, tt.spec)

			if tt.wantText != "" {
				if got.Succeeded {
					t.Fatalf("Execute() succeeded, want launch failure")
				}
				if indexOf(got.Error, tt.wantText) < 0 {
					t.Errorf("Execute() Error = %q, want text %q", got.Error, tt.wantText)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Execute() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
