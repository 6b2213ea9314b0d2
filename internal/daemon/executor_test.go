package daemon

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stone-age-io/dockerctl/internal/platform"
)

// fakeRunner returns scripted outputs keyed by the joined argv
type fakeRunner struct {
	responses map[string]Output
	launchErr map[string]error
	calls     []string
}

func (f *fakeRunner) Run(ctx context.Context, argv []string) (Output, error) {
	key := strings.Join(argv, " ")
	f.calls = append(f.calls, key)
	if err, ok := f.launchErr[key]; ok {
		return Output{}, err
	}
	return f.responses[key], nil
}

type sleepRecorder struct {
	slept []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	return nil
}

func newTestExecutor(p platform.Platform, runner Runner, admin bool) (*Executor, *bytes.Buffer, *sleepRecorder) {
	var out bytes.Buffer
	rec := &sleepRecorder{}
	e := NewExecutor(NewResolver(p, DefaultNames()), runner, nil,
		WithOutput(&out),
		WithPrivilegeCheck(func() bool { return admin }),
	)
	e.sleep = rec.sleep
	return e, &out, rec
}

func TestExecuteDirect(t *testing.T) {
	tests := []struct {
		name   string
		output Output
		err    error
		want   ExecutionResult
	}{
		{
			name:   "exit zero",
			output: Output{Stdout: "ok\n", Stderr: "noise"},
			want:   ExecutionResult{Succeeded: true, Output: "ok\n"},
		},
		{
			name:   "non-zero exit",
			output: Output{Stdout: "partial", Stderr: "Failed to start docker.service: Access denied\n", ExitCode: 1},
			want:   ExecutionResult{Succeeded: false, Error: "Failed to start docker.service: Access denied\n"},
		},
		{
			name: "launch failure",
			err:  errors.New(`exec: "systemctl": executable file not found in $PATH`),
			want: ExecutionResult{Succeeded: false, Error: `exec: "systemctl": executable file not found in $PATH`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{
				responses: map[string]Output{"systemctl start docker": tt.output},
				launchErr: map[string]error{},
			}
			if tt.err != nil {
				runner.launchErr["systemctl start docker"] = tt.err
			}
			e, _, _ := newTestExecutor(platform.LinuxSystemd, runner, true)

			a := Action{Verb: Start, Target: Service}
			got := e.Execute(context.Background(), a, e.Resolve(a))
			if got != tt.want {
				t.Errorf("Execute() = %+v, want %+v", got, tt.want)
			}
			if len(runner.calls) != 1 {
				t.Errorf("runner called %d times, want 1", len(runner.calls))
			}
		})
	}
}

func TestExecuteChain(t *testing.T) {
	restart := Action{Verb: Restart, Target: Service}

	t.Run("all steps succeed", func(t *testing.T) {
		runner := &fakeRunner{responses: map[string]Output{
			"net stop docker":  {Stdout: "The Docker service was stopped successfully.\n"},
			"net start docker": {Stdout: "The Docker service was started successfully.\n"},
		}}
		e, _, _ := newTestExecutor(platform.Windows, runner, true)

		got := e.Execute(context.Background(), restart, e.Resolve(restart))
		if !got.Succeeded {
			t.Fatalf("Execute() failed: %+v", got)
		}
		want := "The Docker service was stopped successfully.\nThe Docker service was started successfully.\n"
		if got.Output != want {
			t.Errorf("Output = %q, want %q", got.Output, want)
		}
		if !reflect.DeepEqual(runner.calls, []string{"net stop docker", "net start docker"}) {
			t.Errorf("calls = %q", runner.calls)
		}
	})

	t.Run("short-circuits on first failure", func(t *testing.T) {
		runner := &fakeRunner{responses: map[string]Output{
			"net stop docker": {Stderr: "The Docker service is not started.\n", ExitCode: 2},
		}}
		e, _, _ := newTestExecutor(platform.Windows, runner, true)

		got := e.Execute(context.Background(), restart, e.Resolve(restart))
		if got.Succeeded {
			t.Fatal("Execute() succeeded, want failure")
		}
		if got.Error != "The Docker service is not started.\n" {
			t.Errorf("Error = %q", got.Error)
		}
		if got.Output != "" {
			t.Errorf("Output = %q, want empty", got.Output)
		}
		if !reflect.DeepEqual(runner.calls, []string{"net stop docker"}) {
			t.Errorf("second step ran: calls = %q", runner.calls)
		}
	})
}

func TestExecuteNotice(t *testing.T) {
	runner := &fakeRunner{}
	e, _, _ := newTestExecutor(platform.MacOS, runner, true)

	a := Action{Verb: Enable, Target: Socket}
	got := e.Execute(context.Background(), a, e.Resolve(a))

	want := ExecutionResult{Succeeded: true, Output: "Socket management not applicable on macOS\n"}
	if got != want {
		t.Errorf("Execute() = %+v, want %+v", got, want)
	}
	if len(runner.calls) != 0 {
		t.Errorf("notice spawned processes: %q", runner.calls)
	}
}

func TestPrivilegeWarningDoesNotBlock(t *testing.T) {
	runner := &fakeRunner{responses: map[string]Output{"systemctl stop docker": {}}}
	e, out, _ := newTestExecutor(platform.LinuxSystemd, runner, false)

	res := e.Stop(context.Background())
	if !res.Succeeded {
		t.Fatalf("Stop() = %+v, want success", res)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("command not attempted, calls = %q", runner.calls)
	}

	text := out.String()
	if !strings.Contains(text, "Administrative privileges required") {
		t.Errorf("missing privilege warning in %q", text)
	}
	if !strings.Contains(text, "sudo") {
		t.Errorf("missing sudo hint in %q", text)
	}
}

func TestPrivilegeWarningWindowsHint(t *testing.T) {
	runner := &fakeRunner{responses: map[string]Output{"net stop docker": {}}}
	e, out, _ := newTestExecutor(platform.Windows, runner, false)

	e.Stop(context.Background())
	if !strings.Contains(out.String(), "Administrator") {
		t.Errorf("missing Administrator hint in %q", out.String())
	}
}

func TestPostConditionCheck(t *testing.T) {
	running := Output{Stdout: "Active: active (running)\n"}

	tests := []struct {
		name       string
		run        func(e *Executor) ExecutionResult
		response   map[string]Output
		wantCalls  []string
		wantSleeps []time.Duration
	}{
		{
			name:       "start waits then checks status once",
			run:        func(e *Executor) ExecutionResult { return e.Start(context.Background()) },
			response:   map[string]Output{"systemctl start docker": {}, "systemctl status docker": running},
			wantCalls:  []string{"systemctl start docker", "systemctl status docker"},
			wantSleeps: []time.Duration{2 * time.Second},
		},
		{
			name:       "restart waits longer",
			run:        func(e *Executor) ExecutionResult { return e.Restart(context.Background()) },
			response:   map[string]Output{"systemctl restart docker": {}, "systemctl status docker": running},
			wantCalls:  []string{"systemctl restart docker", "systemctl status docker"},
			wantSleeps: []time.Duration{3 * time.Second},
		},
		{
			name:       "socket start checks socket status",
			run:        func(e *Executor) ExecutionResult { return e.StartSocket(context.Background()) },
			response:   map[string]Output{"systemctl start docker.socket": {}, "systemctl status docker.socket": running},
			wantCalls:  []string{"systemctl start docker.socket", "systemctl status docker.socket"},
			wantSleeps: []time.Duration{2 * time.Second},
		},
		{
			name:      "stop does not re-check",
			run:       func(e *Executor) ExecutionResult { return e.Stop(context.Background()) },
			response:  map[string]Output{"systemctl stop docker": {}},
			wantCalls: []string{"systemctl stop docker"},
		},
		{
			name:      "failed start does not re-check",
			run:       func(e *Executor) ExecutionResult { return e.Start(context.Background()) },
			response:  map[string]Output{"systemctl start docker": {Stderr: "boom", ExitCode: 1}},
			wantCalls: []string{"systemctl start docker"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{responses: tt.response}
			e, _, rec := newTestExecutor(platform.LinuxSystemd, runner, true)

			tt.run(e)

			if !reflect.DeepEqual(runner.calls, tt.wantCalls) {
				t.Errorf("calls = %q, want %q", runner.calls, tt.wantCalls)
			}
			if !reflect.DeepEqual(rec.slept, tt.wantSleeps) {
				t.Errorf("sleeps = %v, want %v", rec.slept, tt.wantSleeps)
			}
		})
	}
}

// TestPostConditionIsObserveOnly checks that a stopped daemon after start
// does not change the start result
func TestPostConditionIsObserveOnly(t *testing.T) {
	runner := &fakeRunner{responses: map[string]Output{
		"systemctl start docker":  {Stdout: ""},
		"systemctl status docker": {Stdout: "Active: failed (Result: exit-code)\n", ExitCode: 3},
	}}
	e, _, _ := newTestExecutor(platform.LinuxSystemd, runner, true)

	res := e.Start(context.Background())
	if !res.Succeeded {
		t.Errorf("Start() = %+v, want success despite failed re-check", res)
	}
	if len(runner.calls) != 2 {
		t.Errorf("calls = %q, want exactly one re-check", runner.calls)
	}
}

func TestSettleInterruptedByContext(t *testing.T) {
	runner := &fakeRunner{responses: map[string]Output{"systemctl start docker": {}}}
	e, _, _ := newTestExecutor(platform.LinuxSystemd, runner, true)
	e.sleep = sleepContext
	e.startSettle = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := e.Start(ctx)
	if !res.Succeeded {
		t.Errorf("Start() = %+v, want success", res)
	}
	if len(runner.calls) != 1 {
		t.Errorf("status re-checked after cancellation: %q", runner.calls)
	}
}

func TestRunDispatch(t *testing.T) {
	runner := &fakeRunner{responses: map[string]Output{
		"systemctl enable docker.socket": {},
		"systemctl status docker":        {Stdout: "Active: active (running)\n"},
	}}
	e, _, _ := newTestExecutor(platform.LinuxSystemd, runner, true)

	if res := e.Run(context.Background(), Action{Verb: Enable, Target: Socket}); !res.Succeeded {
		t.Errorf("Run(socket enable) = %+v", res)
	}
	if res := e.Run(context.Background(), Action{Verb: Status, Target: Service}); !res.Succeeded {
		t.Errorf("Run(service status) = %+v", res)
	}
}

func TestDemoRunner(t *testing.T) {
	for _, p := range []platform.Platform{platform.LinuxSystemd, platform.LinuxSysvinit, platform.MacOS, platform.Windows} {
		t.Run(p.String(), func(t *testing.T) {
			runner := NewDemoRunner()
			e, _, _ := newTestExecutor(p, runner, true)

			report := e.Status(context.Background())
			if !report.Running() {
				t.Errorf("demo status = %+v, want running", report)
			}
			if report.Failure != FailureNone {
				t.Errorf("demo failure = %q", report.Failure)
			}
			if res := e.Restart(context.Background()); !res.Succeeded {
				t.Errorf("demo restart = %+v", res)
			}
			if len(runner.Calls()) == 0 {
				t.Error("demo runner saw no calls")
			}
		})
	}
}
