package cli

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/stone-age-io/dockerctl/internal/monitor"
	"github.com/stone-age-io/dockerctl/internal/output"
)

const monitorExample = `  # run in the foreground until Ctrl-C
  dockerctl monitor run

  # install as a system service using a specific config file
  sudo dockerctl monitor install --config /etc/dockerctl/config.yaml
  sudo dockerctl monitor start`

func newMonitorCommand(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Watch the Docker daemon and publish status and health snapshots",
		Long: `The monitor checks the Docker service and socket on a fixed interval, logs
every status change and builds periodic health reports. Events can be
published to NATS and served over HTTP at /healthz and /metrics.`,
		Example: monitorExample,
		Args:    cobra.NoArgs,
		RunE:    showHelp,
	}

	cmd.AddCommand(newMonitorRunCommand(g))
	for _, action := range []string{"install", "uninstall", "start", "stop"} {
		cmd.AddCommand(newMonitorControlCommand(g, action))
	}
	return cmd
}

func newMonitorRunCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the monitor in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, g, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if monitor.Interactive() {
				return a.RunMonitor(cmd.Context())
			}

			// started by the service manager, which owns the lifecycle
			prg := monitor.NewProgram(a.RunMonitor, a.Config.Monitor.NATS.DrainTimeout+10*time.Second, a.Logger)
			svc, err := monitor.NewService(prg, serviceArgs(g))
			if err != nil {
				return err
			}
			return svc.Run()
		},
	}
}

func newMonitorControlCommand(g *globalOptions, action string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: controlHelp[action],
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output.SetColor(!g.noColor)
			out := cmd.OutOrStdout()

			if g.demo {
				output.DemoBanner(out)
				output.Status(out, output.LevelOK, "Would %s %s with arguments %v", action, monitor.ServiceName, serviceArgs(g))
				return nil
			}

			// control actions never run the program itself
			prg := monitor.NewProgram(func(context.Context) error { return nil }, 0, nil)
			svc, err := monitor.NewService(prg, serviceArgs(g))
			if err != nil {
				return err
			}
			if err := monitor.Control(svc, action); err != nil {
				return err
			}
			output.Status(out, output.LevelOK, "Service %s: %s done", monitor.ServiceName, action)
			return nil
		},
	}
}

var controlHelp = map[string]string{
	"install":   "Install the monitor as a system service",
	"uninstall": "Remove the monitor system service",
	"start":     "Start the installed monitor service",
	"stop":      "Stop the installed monitor service",
}

// serviceArgs are the arguments the installed service runs with. A relative
// config path is made absolute because services start in another directory.
func serviceArgs(g *globalOptions) []string {
	args := []string{"monitor", "run"}
	if g.configPath != "" {
		path := g.configPath
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		args = append(args, "--config", path)
	}
	if g.logLevel != "" {
		args = append(args, "--log-level", g.logLevel)
	}
	return args
}
