package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/stone-age-io/dockerctl/internal/config"
	"github.com/stone-age-io/dockerctl/internal/containers"
	"github.com/stone-age-io/dockerctl/internal/daemon"
	"github.com/stone-age-io/dockerctl/internal/health"
	"github.com/stone-age-io/dockerctl/internal/monitor"
	"github.com/stone-age-io/dockerctl/internal/platform"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// demoSettle replaces the configured settle delays in demo mode
const demoSettle = time.Second

// Options are the process-wide settings taken from the command line
type Options struct {
	ConfigPath string
	// LogLevel overrides the console log level when set
	LogLevel string
	Demo     bool
	// Monitor selects info-level console logging for the long-running mode
	Monitor bool
	Out     io.Writer
	Err     io.Writer
}

// App wires configuration, logging and the collaborators every command uses
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Platform platform.Platform
	Demo     bool
	Out      io.Writer

	demoDocker *containers.DemoClient
	demoOnce   sync.Once
}

// New loads configuration and initializes logging
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	consoleLevel := cfg.Logging.ConsoleLevel
	if opts.Monitor {
		consoleLevel = cfg.Logging.Level
	}
	if opts.LogLevel != "" {
		consoleLevel = opts.LogLevel
	}

	errOut := opts.Err
	if errOut == nil {
		errOut = os.Stderr
	}
	logger, err := initLogger(cfg.Logging, consoleLevel, errOut)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	p := platform.Detect()
	if opts.Demo {
		p = demoPlatform(p)
	}
	logger.Debug("Platform detected",
		zap.String("platform", p.String()),
		zap.Bool("demo", opts.Demo))

	return &App{
		Config:   cfg,
		Logger:   logger,
		Platform: p,
		Demo:     opts.Demo,
		Out:      out,
	}, nil
}

// Close flushes the logger
func (a *App) Close() {
	_ = a.Logger.Sync()
}

// Executor builds the service executor. Its messages go to w.
func (a *App) Executor(w io.Writer, opts ...daemon.Option) *daemon.Executor {
	svc := a.Config.Service
	resolver := daemon.NewResolver(a.Platform, daemon.Names{
		Service:      svc.Name,
		Socket:       svc.SocketUnit,
		LaunchdLabel: svc.LaunchdLabel,
		LaunchdPlist: svc.LaunchdPlist,
	})

	var runner daemon.Runner = daemon.ExecRunner{}
	base := []daemon.Option{
		daemon.WithOutput(w),
		daemon.WithSettle(svc.StartSettle, svc.RestartSettle),
	}
	if a.Demo {
		runner = daemon.NewDemoRunner()
		base = append(base,
			daemon.WithSettle(demoSettle, demoSettle),
			daemon.WithPrivilegeCheck(func() bool { return true }))
	}

	return daemon.NewExecutor(resolver, runner, a.Logger.Named("daemon"), append(base, opts...)...)
}

// Containers builds the container manager. The caller closes it.
func (a *App) Containers() (*containers.Manager, error) {
	var api containers.DockerAPI
	if a.Demo {
		a.demoOnce.Do(func() { a.demoDocker = containers.NewDemoClient() })
		api = a.demoDocker
	} else {
		cli, err := containers.NewClient(a.Config.Docker.Host)
		if err != nil {
			return nil, err
		}
		api = cli
	}

	return containers.NewManager(api, a.Logger.Named("containers"),
		a.Config.Docker.Timeout, a.Config.Docker.StopTimeout), nil
}

// HealthGenerator builds a report generator reading Docker through mgr
func (a *App) HealthGenerator(mgr *containers.Manager) (*health.Generator, error) {
	var collector health.SystemCollector = health.DemoCollector{}
	if !a.Demo {
		c, err := health.NewSystemCollector(a.Config.Health, a.Logger.Named("health"))
		if err != nil {
			return nil, err
		}
		collector = c
	}

	return health.NewGenerator(collector, mgr, a.Config.Health.Thresholds, a.Logger.Named("health")), nil
}

// HostInfo describes the local host. Demo mode answers with a canned host.
func (a *App) HostInfo(ctx context.Context) (*platform.Info, error) {
	if a.Demo {
		return demoHost(a.Platform), nil
	}
	return platform.Describe(ctx, a.Platform)
}

// demoPlatform keeps the detected platform when it has a service manager and
// falls back to systemd otherwise, so the demo daemon always shows as running.
func demoPlatform(p platform.Platform) platform.Platform {
	switch p {
	case platform.LinuxSystemd, platform.LinuxSysvinit, platform.MacOS, platform.Windows:
		return p
	}
	return platform.LinuxSystemd
}

func demoHost(p platform.Platform) *platform.Info {
	info := &platform.Info{
		Platform:      p,
		PlatformName:  p.String(),
		InitSystem:    p.InitSystem(),
		OS:            "linux",
		Hostname:      "demo-host",
		Distribution:  "ubuntu",
		DistroVersion: "22.04",
		KernelVersion: "5.15.0-91-generic",
		KernelArch:    "x86_64",
		UptimeSeconds: 8 * 3600,
		Admin:         true,
	}

	switch p {
	case platform.MacOS:
		info.OS = "darwin"
		info.Distribution = "darwin"
		info.DistroVersion = "14.4"
		info.KernelVersion = "23.4.0"
		info.KernelArch = "arm64"
	case platform.Windows:
		info.OS = "windows"
		info.Distribution = "Microsoft Windows Server 2022 Datacenter"
		info.DistroVersion = "10.0.20348"
		info.KernelVersion = "10.0.20348 Build 20348"
	}
	return info
}

// Hostname returns the name events are published under
func (a *App) Hostname() string {
	if a.Demo {
		return "demo-host"
	}
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}

// RunMonitor runs the monitor with its optional publisher and HTTP endpoint
// until ctx is cancelled
func (a *App) RunMonitor(ctx context.Context) error {
	cfg := a.Config.Monitor
	logger := a.Logger.Named("monitor")
	host := a.Hostname()

	// the monitor only queries status, so one privilege warning is enough
	warned := false
	exec := a.Executor(io.Discard, daemon.WithPrivilegeCheck(func() bool {
		if warned || a.Demo {
			return true
		}
		warned = true
		return platform.IsAdmin()
	}))

	mgr, err := a.Containers()
	if err != nil {
		return err
	}
	defer mgr.Close()

	gen, err := a.HealthGenerator(mgr)
	if err != nil {
		return err
	}

	metrics := health.NewMetrics()
	opts := []monitor.Option{monitor.WithMetrics(metrics)}

	var pub *monitor.Publisher
	if cfg.NATS.Enabled {
		pub, err = monitor.NewPublisher(&cfg.NATS, host, logger)
		if err != nil {
			return err
		}
		opts = append(opts, monitor.WithPublisher(pub))
	}

	m := monitor.New(cfg, host, exec, gen, logger, opts...)

	if pub != nil {
		if err := monitor.NewResponder(m.Latest, logger).Subscribe(pub); err != nil {
			_ = pub.Drain(cfg.NATS.DrainTimeout)
			return err
		}
	}

	var srv *monitor.Server
	if cfg.HTTP.Enabled {
		srv = monitor.NewServer(cfg.HTTP.Address, m.Latest, metrics.Registry(), logger)
		if err := srv.Start(); err != nil {
			if pub != nil {
				_ = pub.Drain(cfg.NATS.DrainTimeout)
			}
			return err
		}
	}

	runErr := m.Run(ctx)

	logger.Info("Shutting down monitor gracefully")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP endpoint", zap.Error(err))
		}
		cancel()
	}
	if pub != nil {
		if err := pub.Drain(cfg.NATS.DrainTimeout); err != nil {
			logger.Error("Error draining NATS", zap.Error(err))
		}
	}

	logger.Info("Monitor shutdown complete")
	return runErr
}

// initLogger creates a logger writing JSON to a rotated file and console
// text to errOut. The two outputs have independent levels.
func initLogger(cfg config.LoggingConfig, consoleLevel string, errOut io.Writer) (*zap.Logger, error) {
	var fileLevel, termLevel zapcore.Level
	if err := fileLevel.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	if err := termLevel.UnmarshalText([]byte(consoleLevel)); err != nil {
		return nil, fmt.Errorf("invalid console log level: %w", err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(errOut), termLevel),
	}

	if cfg.File != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB, // megabytes
			MaxBackups: cfg.MaxBackups,
			MaxAge:     28, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(fileWriter), fileLevel))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
