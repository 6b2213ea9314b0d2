package containers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
)

var (
	// ErrDaemonUnavailable means the Docker daemon could not be reached
	ErrDaemonUnavailable = errors.New("service_not_running: cannot connect to the Docker daemon")
	// ErrPermissionDenied means the daemon socket refused the current user
	ErrPermissionDenied = errors.New("permission_denied: cannot access the Docker daemon socket")
	// ErrContainerNotFound means no container matched the given id or name
	ErrContainerNotFound = errors.New("container not found")
)

// translate maps SDK errors onto the package sentinels. ref names the
// container involved, if any.
func translate(err error, op, ref string) error {
	if err == nil {
		return nil
	}

	switch {
	case client.IsErrConnectionFailed(err):
		return fmt.Errorf("%s: %w", op, ErrDaemonUnavailable)
	case strings.Contains(strings.ToLower(err.Error()), "permission denied"):
		return fmt.Errorf("%s: %w", op, ErrPermissionDenied)
	case errdefs.IsNotFound(err) && ref != "":
		return fmt.Errorf("%s %s: %w", op, ref, ErrContainerNotFound)
	case ref != "":
		return fmt.Errorf("failed to %s %s: %w", op, ref, err)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}
