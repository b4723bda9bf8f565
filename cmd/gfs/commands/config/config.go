// Package config implements configuration management subcommands.
package config

import (
	"github.com/spf13/cobra"
)

// Cmd returns the config subcommand.
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long: `Manage gfs configuration files.

Use 'gfs init' to create a new configuration file.

Subcommands:
  validate  Validate configuration file
  show      Display current configuration
  schema    Generate JSON schema for IDE/validation`,
	}
	cmd.AddCommand(newValidateCmd(), newShowCmd(), newSchemaCmd())
	return cmd
}
