package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kardianos/service"
	"go.uber.org/zap"
)

// ServiceName is the name the monitor is installed under
const ServiceName = "dockerctl-monitor"

// Program adapts a blocking run function to the OS service manager. Start
// launches run in the background; Stop cancels it and waits.
type Program struct {
	run         func(ctx context.Context) error
	stopTimeout time.Duration
	logger      *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// NewProgram wraps run
func NewProgram(run func(ctx context.Context) error, stopTimeout time.Duration, logger *zap.Logger) *Program {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Program{run: run, stopTimeout: stopTimeout, logger: logger}
}

// Start implements service.Interface. It must not block.
func (p *Program) Start(s service.Service) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done != nil {
		return fmt.Errorf("monitor already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		if err := p.run(ctx); err != nil {
			p.logger.Error("Monitor exited with error", zap.Error(err))
			p.mu.Lock()
			p.err = err
			p.mu.Unlock()
		}
	}(p.done)

	return nil
}

// Stop implements service.Interface
func (p *Program) Stop(s service.Service) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if done == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
	case <-time.After(p.stopTimeout):
		return fmt.Errorf("monitor did not stop within %v", p.stopTimeout)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancel, p.done = nil, nil
	return p.err
}

// NewService registers p with the platform service manager. args are the
// command-line arguments the installed service is started with.
func NewService(p *Program, args []string) (service.Service, error) {
	svc, err := service.New(p, &service.Config{
		Name:        ServiceName,
		DisplayName: "Docker Service Monitor",
		Description: "Watches the Docker daemon and publishes health snapshots.",
		Arguments:   args,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return svc, nil
}

// Control runs install, uninstall, start, stop or restart against svc
func Control(svc service.Service, action string) error {
	valid := false
	for _, a := range service.ControlAction {
		if a == action {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown service action %q (valid: %v)", action, service.ControlAction)
	}

	if err := service.Control(svc, action); err != nil {
		return fmt.Errorf("failed to %s %s: %w", action, ServiceName, err)
	}
	return nil
}

// Interactive reports whether the process runs from a terminal rather than
// under a service manager
func Interactive() bool {
	return service.Interactive()
}
