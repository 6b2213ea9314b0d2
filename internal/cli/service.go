package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stone-age-io/dockerctl/internal/daemon"
	"github.com/stone-age-io/dockerctl/internal/output"
)

type unitKind struct {
	target  daemon.Target
	use     string
	short   string
	verbs   []daemon.Verb
	example string
}

var (
	unitService = unitKind{
		target: daemon.Service,
		use:    "service",
		short:  "Control the Docker daemon through the host service manager",
		verbs:  []daemon.Verb{daemon.Status, daemon.Start, daemon.Stop, daemon.Restart, daemon.Enable, daemon.Disable},
		example: `  # show whether the daemon is running
  dockerctl service status

  # restart it and re-check its status
  sudo dockerctl service restart`,
	}
	unitSocket = unitKind{
		target: daemon.Socket,
		use:    "socket",
		short:  "Control the Docker socket unit",
		verbs:  []daemon.Verb{daemon.Status, daemon.Start, daemon.Stop, daemon.Enable, daemon.Disable},
		example: `  # show the socket unit
  dockerctl socket status

  # make the socket start at boot
  sudo dockerctl socket enable`,
	}
)

var verbHelp = map[daemon.Verb]string{
	daemon.Status:  "Show the %s status",
	daemon.Start:   "Start the %s",
	daemon.Stop:    "Stop the %s",
	daemon.Restart: "Restart the %s",
	daemon.Enable:  "Start the %s at boot",
	daemon.Disable: "Do not start the %s at boot",
}

func newUnitCommand(g *globalOptions, kind unitKind) *cobra.Command {
	cmd := &cobra.Command{
		Use:     kind.use,
		Short:   kind.short,
		Example: kind.example,
		Args:    cobra.NoArgs,
		RunE:    showHelp,
	}

	for _, v := range kind.verbs {
		cmd.AddCommand(newUnitVerbCommand(g, daemon.Action{Verb: v, Target: kind.target}))
	}
	return cmd
}

func newUnitVerbCommand(g *globalOptions, action daemon.Action) *cobra.Command {
	return &cobra.Command{
		Use:   action.Verb.String(),
		Short: fmt.Sprintf(verbHelp[action.Verb], "Docker "+action.Target.String()),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, g, false)
			if err != nil {
				return err
			}
			defer a.Close()

			exec := a.Executor(cmd.OutOrStdout())
			ctx := cmd.Context()

			if action.Verb == daemon.Status {
				var report daemon.StatusReport
				if action.Target == daemon.Socket {
					report = exec.SocketStatus(ctx)
				} else {
					report = exec.Status(ctx)
				}
				if !report.Supported {
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "State: %s\n", output.ServiceState(string(report.State)))
				if report.Failure != daemon.FailureNone {
					fmt.Fprintf(cmd.OutOrStdout(), "Reason: %s\n", report.Failure)
				}
				// a unit that exists but is down is a failed check
				if !report.Running() {
					return errReported
				}
				return nil
			}

			if res := exec.Run(ctx, action); !res.Succeeded {
				return errReported
			}
			return nil
		},
	}
}
