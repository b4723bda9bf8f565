package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/gfs/internal/cli/output"
	"github.com/marmos91/gfs/pkg/config"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: `Validate the gfs configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  gfs config validate
  gfs config validate --config /etc/gfs/config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")

			cfg, err := config.MustLoad(configPath)
			if err != nil {
				return err
			}

			displayPath := configPath
			if displayPath == "" {
				displayPath = config.GetDefaultConfigPath()
			}

			var warnings []string
			for _, m := range cfg.Mounts {
				if m.Type == config.StoreTypeMemory && !m.ReadOnly {
					warnings = append(warnings, fmt.Sprintf("mount %q is in-memory; its contents are lost on exit", m.Name))
				}
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
			_, _ = fmt.Fprintln(out, "Validation: OK")

			if len(warnings) > 0 {
				_, _ = fmt.Fprintln(out, "\nWarnings:")
				for _, w := range warnings {
					_, _ = fmt.Fprintf(out, "  - %s\n", w)
				}
			}

			_, _ = fmt.Fprintln(out, "\nMounts:")
			table := output.NewTableData("Name", "Type", "Root", "Read-only", "Default")
			for _, m := range cfg.Mounts {
				def := ""
				if m.Name == cfg.DefaultMount {
					def = "*"
				}
				table.AddRow(m.Name, m.Type, m.Root, fmt.Sprint(m.ReadOnly), def)
			}
			return output.PrintTable(out, table)
		},
	}
}
