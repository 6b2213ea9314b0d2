package containers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
)

// ttyClient serves a raw, non-multiplexed log stream like a TTY container
type ttyClient struct {
	*DemoClient
}

func (c ttyClient) ContainerInspect(ctx context.Context, id string) (types.ContainerJSON, error) {
	info, err := c.DemoClient.ContainerInspect(ctx, id)
	if err != nil {
		return info, err
	}
	info.Config.Tty = true
	return info, nil
}

func (c ttyClient) ContainerLogs(ctx context.Context, id string, options container.LogsOptions) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("raw line one\nraw line two\n")), nil
}

func TestLogs(t *testing.T) {
	tests := []struct {
		name      string
		ref       string
		opts      LogOptions
		wantLines int
		wantText  string
		wantErr   error
	}{
		{
			name:      "all lines",
			ref:       "demo-webserver",
			wantLines: 3,
			wantText:  "GET / HTTP/1.1",
		},
		{
			name:      "tail",
			ref:       "demo-webserver",
			opts:      LogOptions{Tail: 1},
			wantLines: 1,
			wantText:  "favicon.ico",
		},
		{
			name:      "tail larger than log",
			ref:       "demo-backup",
			opts:      LogOptions{Tail: 50},
			wantLines: 1,
			wantText:  "backup completed",
		},
		{
			name:    "unknown container",
			ref:     "missing",
			wantErr: ErrContainerNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newDemoManager(t)
			var stdout, stderr bytes.Buffer

			err := m.Logs(context.Background(), tt.ref, tt.opts, &stdout, &stderr)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Logs() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Logs() error = %v", err)
			}

			lines := strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")
			if len(lines) != tt.wantLines {
				t.Errorf("Logs() wrote %d lines, want %d:\n%s", len(lines), tt.wantLines, stdout.String())
			}
			if indexOf(stdout.String(), tt.wantText) < 0 {
				t.Errorf("Logs() output missing %q:\n%s", tt.wantText, stdout.String())
			}
			if stderr.Len() != 0 {
				t.Errorf("Logs() wrote to stderr: %q", stderr.String())
			}
		})
	}
}

func TestLogsTimestamps(t *testing.T) {
	m, _ := newDemoManager(t)
	var stdout bytes.Buffer

	if err := m.Logs(context.Background(), "demo-database", LogOptions{Timestamps: true}, &stdout, io.Discard); err != nil {
		t.Fatalf("Logs() error = %v", err)
	}

	for _, line := range strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n") {
		ts, _, ok := strings.Cut(line, " ")
		if !ok {
			t.Fatalf("line has no timestamp: %q", line)
		}
		if _, err := time.Parse(time.RFC3339Nano, ts); err != nil {
			t.Errorf("bad timestamp %q: %v", ts, err)
		}
	}
}

func TestLogsFollow(t *testing.T) {
	m, _ := newDemoManager(t)
	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	var stdout bytes.Buffer
	err := m.Logs(ctx, "demo-redis", LogOptions{Follow: true}, &stdout, io.Discard)
	if err != nil {
		t.Fatalf("Logs(follow) error = %v, want nil on cancellation", err)
	}
	if indexOf(stdout.String(), "Server initialized") < 0 {
		t.Errorf("follow output missing history:\n%s", stdout.String())
	}
	if indexOf(stdout.String(), "demo heartbeat 1 from demo-redis") < 0 {
		t.Errorf("follow output missing streamed line:\n%s", stdout.String())
	}
}

func TestLogsTTY(t *testing.T) {
	m := NewManager(ttyClient{NewDemoClient()}, nil, time.Second, time.Second)
	var stdout bytes.Buffer

	if err := m.Logs(context.Background(), "demo-webserver", LogOptions{}, &stdout, io.Discard); err != nil {
		t.Fatalf("Logs() error = %v", err)
	}
	if stdout.String() != "raw line one\nraw line two\n" {
		t.Errorf("Logs() = %q, want the raw stream", stdout.String())
	}
}
