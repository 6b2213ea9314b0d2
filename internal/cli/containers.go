package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/stone-age-io/dockerctl/internal/app"
	"github.com/stone-age-io/dockerctl/internal/containers"
	"github.com/stone-age-io/dockerctl/internal/output"
)

const containersExample = `  # list running containers
  dockerctl containers

  # include stopped containers
  dockerctl containers --all

  # restart two containers
  dockerctl containers restart web db

  # follow resource usage of one container
  dockerctl containers stats web --watch`

func newContainersCommand(g *globalOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:     "containers",
		Aliases: []string{"ps"},
		Short:   "List and manage containers",
		Example: containersExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, g, func(a *app.App, m *containers.Manager) error {
				list, err := m.List(cmd.Context(), all)
				if err != nil {
					return err
				}
				output.Containers(cmd.OutOrStdout(), list)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "show stopped containers too")

	cmd.AddCommand(
		newLifecycleCommand(g, "start", "Start one or more containers", "Starting", "started",
			func(ctx context.Context, m *containers.Manager, ref string) error { return m.Start(ctx, ref) }),
		newLifecycleCommand(g, "stop", "Stop one or more running containers", "Stopping", "stopped",
			func(ctx context.Context, m *containers.Manager, ref string) error { return m.Stop(ctx, ref) }),
		newLifecycleCommand(g, "restart", "Restart one or more containers", "Restarting", "restarted",
			func(ctx context.Context, m *containers.Manager, ref string) error { return m.Restart(ctx, ref) }),
		newRemoveCommand(g),
		newPruneCommand(g),
		newStatsCommand(g),
		newInspectCommand(g),
	)
	return cmd
}

// newLifecycleCommand applies op to every named container, reporting each
// one. It fails if any container failed.
func newLifecycleCommand(g *globalOptions, use, short, progress, past string,
	op func(ctx context.Context, m *containers.Manager, ref string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " CONTAINER [CONTAINER...]",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, g, func(a *app.App, m *containers.Manager) error {
				return forEach(cmd, args, progress, past, func(ref string) error {
					return op(cmd.Context(), m, ref)
				})
			})
		},
	}
}

func forEach(cmd *cobra.Command, refs []string, progress, past string, fn func(ref string) error) error {
	out := cmd.OutOrStdout()
	failed := false

	for _, ref := range refs {
		fmt.Fprintf(out, "%s container %s...\n", progress, output.Sanitize(ref))
		if err := fn(ref); err != nil {
			output.Status(out, output.LevelError, "%s", describe(err))
			failed = true
			continue
		}
		output.Status(out, output.LevelOK, "Container %s %s", output.Sanitize(ref), past)
	}

	if failed {
		return errReported
	}
	return nil
}

func newRemoveCommand(g *globalOptions) *cobra.Command {
	var force, volumes bool

	cmd := &cobra.Command{
		Use:     "rm CONTAINER [CONTAINER...]",
		Aliases: []string{"remove"},
		Short:   "Remove one or more containers",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, g, func(a *app.App, m *containers.Manager) error {
				return forEach(cmd, args, "Removing", "removed", func(ref string) error {
					return m.Remove(cmd.Context(), ref, force, volumes)
				})
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "kill and remove a running container")
	cmd.Flags().BoolVarP(&volumes, "volumes", "v", false, "remove anonymous volumes too")
	return cmd
}

func newPruneCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove all stopped containers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, g, func(a *app.App, m *containers.Manager) error {
				res, err := m.Prune(cmd.Context())
				if err != nil {
					return err
				}
				output.Prune(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
}

func newStatsCommand(g *globalOptions) *cobra.Command {
	var (
		watch    bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "stats [CONTAINER]",
		Short: "Show resource usage of running containers",
		Long: `Show a one-shot resource usage sample for every running container, or for
one container. With --watch the sample for CONTAINER is refreshed until
interrupted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch && len(args) == 0 {
				return fmt.Errorf("--watch needs a container")
			}

			return withManager(cmd, g, func(a *app.App, m *containers.Manager) error {
				ctx := cmd.Context()
				out := cmd.OutOrStdout()

				switch {
				case watch:
					return m.WatchStats(ctx, args[0], interval, func(s containers.Stats) error {
						fmt.Fprintf(out, "\n%s\n", output.Muted(time.Now().Format(time.TimeOnly)))
						output.Stats(out, []containers.Stats{s})
						return nil
					})
				case len(args) == 1:
					s, err := m.Stats(ctx, args[0])
					if err != nil {
						return err
					}
					output.Stats(out, []containers.Stats{*s})
				default:
					stats, err := m.StatsAll(ctx)
					if err != nil {
						return err
					}
					output.Stats(out, stats)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep streaming until interrupted")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "refresh interval for --watch")
	return cmd
}

func newInspectCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect CONTAINER",
		Short: "Show the low-level details of a container as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, g, func(a *app.App, m *containers.Manager) error {
				data, err := m.Inspect(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			})
		},
	}
}
