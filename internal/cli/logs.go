package cli

import (
	"github.com/spf13/cobra"
	"github.com/stone-age-io/dockerctl/internal/app"
	"github.com/stone-age-io/dockerctl/internal/containers"
	"github.com/stone-age-io/dockerctl/internal/output"
)

func newLogsCommand(g *globalOptions) *cobra.Command {
	var opts containers.LogOptions

	cmd := &cobra.Command{
		Use:   "logs CONTAINER",
		Short: "Print the logs of a container",
		Example: `  # last 50 lines
  dockerctl logs web --tail 50

  # stream new lines with timestamps until Ctrl-C
  dockerctl logs web -f -t`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, g, func(a *app.App, m *containers.Manager) error {
				// log lines come from the container and may carry escape sequences
				return m.Logs(cmd.Context(), args[0], opts,
					output.NewSafeWriter(cmd.OutOrStdout()),
					output.NewSafeWriter(cmd.ErrOrStderr()))
			})
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&opts.Tail, "tail", "n", 100, "number of lines from the end (0 for all)")
	flags.BoolVarP(&opts.Follow, "follow", "f", false, "stream new lines until interrupted")
	flags.BoolVarP(&opts.Timestamps, "timestamps", "t", false, "prefix each line with its timestamp")
	flags.StringVar(&opts.Since, "since", "", "only lines since a timestamp (RFC 3339) or duration (e.g. 10m)")
	return cmd
}
