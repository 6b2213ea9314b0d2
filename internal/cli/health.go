package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stone-age-io/dockerctl/internal/app"
	"github.com/stone-age-io/dockerctl/internal/containers"
	"github.com/stone-age-io/dockerctl/internal/health"
	"github.com/stone-age-io/dockerctl/internal/output"
)

func newHealthCommand(g *globalOptions) *cobra.Command {
	var (
		save   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Report host resources, Docker status and recommendations",
		Example: `  # terminal report
  dockerctl health

  # keep a copy as JSON
  dockerctl health --save reports/today.json

  # Prometheus text format for the node_exporter textfile collector
  dockerctl health --format prometheus > /var/lib/node_exporter/dockerctl.prom`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "text", "json", "prometheus":
			default:
				return fmt.Errorf("unknown format %q (valid: text, json, prometheus)", format)
			}

			return withManager(cmd, g, func(a *app.App, m *containers.Manager) error {
				gen, err := a.HealthGenerator(m)
				if err != nil {
					return err
				}

				r, err := gen.Generate(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				switch format {
				case "json":
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					if err := enc.Encode(r); err != nil {
						return fmt.Errorf("failed to encode report: %w", err)
					}
				case "prometheus":
					if err := health.WritePrometheus(out, r); err != nil {
						return err
					}
				default:
					output.HealthReport(out, r)
				}

				if save != "" {
					path, err := health.Save(r, save)
					if err != nil {
						return err
					}
					output.Status(cmd.ErrOrStderr(), output.LevelOK, "Report saved to %s", path)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&save, "save", "s", "", "also write the report as JSON to this file")
	cmd.Flags().StringVarP(&format, "format", "o", "text", "output format: text, json or prometheus")
	return cmd
}
