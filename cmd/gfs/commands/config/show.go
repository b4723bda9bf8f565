package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/gfs/internal/cli/output"
	"github.com/marmos91/gfs/pkg/config"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the effective gfs configuration, with defaults and environment
overrides applied.

By default outputs YAML format. Use --output json for JSON.

Examples:
  gfs config show
  gfs config show --output json --config /etc/gfs/config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.MustLoad(configPath)
			if err != nil {
				return err
			}

			outputFlag, _ := cmd.Flags().GetString("output")
			format, err := output.ParseFormat(outputFlag)
			if err != nil {
				return err
			}
			if format == output.FormatJSON {
				return output.PrintJSON(cmd.OutOrStdout(), cfg)
			}
			return output.PrintYAML(cmd.OutOrStdout(), cfg)
		},
	}
}
