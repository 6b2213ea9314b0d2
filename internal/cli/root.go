package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/stone-age-io/dockerctl/internal/app"
	"github.com/stone-age-io/dockerctl/internal/containers"
	"github.com/stone-age-io/dockerctl/internal/output"
)

// errReported marks a failure whose details were already printed
var errReported = errors.New("command failed")

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath string
	logLevel   string
	demo       bool
	noColor    bool
}

// NewRootCommand builds the complete command tree
func NewRootCommand(version string) *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:   "dockerctl",
		Short: "Manage the Docker daemon, its socket and containers",
		Long: `dockerctl drives the host service manager (systemd, SysVinit, launchd or the
Windows Service Control Manager) to control the Docker daemon and its socket,
and talks to the Docker Engine API to manage containers.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&g.configPath, "config", "c", "", "config file (default ~/.dockerctl/config.yaml)")
	flags.StringVar(&g.logLevel, "log-level", "", "console log level (debug, info, warn, error)")
	flags.BoolVar(&g.demo, "demo", false, "simulate every command without touching the OS or Docker")
	flags.BoolVar(&g.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newUnitCommand(g, unitService),
		newUnitCommand(g, unitSocket),
		newContainersCommand(g),
		newLogsCommand(g),
		newInfoCommand(g),
		newHealthCommand(g),
		newMonitorCommand(g),
		newVersionCommand(g, version),
	)

	return root
}

// Execute runs the command line and returns the process exit code
func Execute(version string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, NewRootCommand(version), os.Args[1:])
}

func run(ctx context.Context, root *cobra.Command, args []string) int {
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			output.Status(root.ErrOrStderr(), output.LevelError, "%s", describe(err))
		}
		return 1
	}
	return 0
}

// showHelp is the action of command groups, so that an unknown
// subcommand is an error instead of a help page
func showHelp(cmd *cobra.Command, args []string) error {
	return cmd.Help()
}

// describe adds a hint for the errors users can act on
func describe(err error) string {
	switch {
	case errors.Is(err, containers.ErrDaemonUnavailable):
		return fmt.Sprintf("%v\nIs the Docker daemon running? Try 'dockerctl service start'.", err)
	case errors.Is(err, containers.ErrPermissionDenied):
		return fmt.Sprintf("%v\nAdd your user to the docker group or run with elevated privileges.", err)
	default:
		return err.Error()
	}
}

// setup creates the application for one command invocation
func setup(cmd *cobra.Command, g *globalOptions, monitorMode bool) (*app.App, error) {
	output.SetColor(!g.noColor)

	a, err := app.New(app.Options{
		ConfigPath: g.configPath,
		LogLevel:   g.logLevel,
		Demo:       g.demo,
		Monitor:    monitorMode,
		Out:        cmd.OutOrStdout(),
		Err:        cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	if g.demo {
		output.DemoBanner(cmd.OutOrStdout())
	}
	return a, nil
}

// withManager runs fn with a container manager and closes it afterwards
func withManager(cmd *cobra.Command, g *globalOptions, fn func(a *app.App, m *containers.Manager) error) error {
	a, err := setup(cmd, g, false)
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := a.Containers()
	if err != nil {
		return err
	}
	defer m.Close()

	return fn(a, m)
}
