package cli

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/stone-age-io/dockerctl/internal/app"
	"github.com/stone-age-io/dockerctl/internal/containers"
	"github.com/stone-age-io/dockerctl/internal/output"
)

func newVersionCommand(g *globalOptions, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the dockerctl and Docker daemon versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "dockerctl %s (%s, %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)

			return withManager(cmd, g, func(a *app.App, m *containers.Manager) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
				defer cancel()

				v, err := m.Version(ctx)
				if err != nil {
					// the daemon being down is worth showing, not failing on
					output.Status(out, output.LevelWarning, "Docker daemon: %s", describe(err))
					return nil
				}
				fmt.Fprintf(out, "Docker daemon %s\n", v)
				return nil
			})
		},
	}
}
