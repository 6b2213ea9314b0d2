package cli

import (
	"github.com/spf13/cobra"
	"github.com/stone-age-io/dockerctl/internal/app"
	"github.com/stone-age-io/dockerctl/internal/containers"
	"github.com/stone-age-io/dockerctl/internal/output"
	"go.uber.org/zap"
)

func newInfoCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show Docker daemon and host information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, g, func(a *app.App, m *containers.Manager) error {
				ctx := cmd.Context()

				host, err := a.HostInfo(ctx)
				if err != nil {
					// host details are a bonus; the daemon info is what was asked for
					a.Logger.Warn("Failed to describe host", zap.Error(err))
				}

				info, err := m.Info(ctx)
				output.Info(cmd.OutOrStdout(), info, host)
				return err
			})
		},
	}
}
