package containers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
	"go.uber.org/zap"
)

// LogOptions selects which log lines to fetch
type LogOptions struct {
	// Tail is the number of lines from the end; 0 or less means all
	Tail       int
	Follow     bool
	Timestamps bool
	Since      string
}

// Logs copies a container's logs to stdout and stderr. Output is
// demultiplexed unless the container runs with a TTY, in which case the
// daemon sends a single raw stream. A follow ends without error when ctx
// is cancelled.
func (m *Manager) Logs(ctx context.Context, ref string, opts LogOptions, stdout, stderr io.Writer) error {
	inspectCtx, cancel := m.callContext(ctx)
	info, err := m.api.ContainerInspect(inspectCtx, ref)
	cancel()
	if err != nil {
		return translate(err, "get logs for", ref)
	}

	tail := "all"
	if opts.Tail > 0 {
		tail = strconv.Itoa(opts.Tail)
	}

	rc, err := m.api.ContainerLogs(ctx, ref, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     opts.Follow,
		Timestamps: opts.Timestamps,
		Since:      opts.Since,
		Tail:       tail,
	})
	if err != nil {
		return translate(err, "get logs for", ref)
	}
	defer rc.Close()

	tty := info.Config != nil && info.Config.Tty
	m.logger.Debug("Streaming container logs",
		zap.String("container", ref),
		zap.Bool("follow", opts.Follow),
		zap.Bool("tty", tty))

	if tty {
		_, err = io.Copy(stdout, rc)
	} else {
		_, err = stdcopy.StdCopy(stdout, stderr, rc)
	}

	if err != nil && ctx.Err() == nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read logs for %s: %w", ref, err)
	}
	return nil
}
