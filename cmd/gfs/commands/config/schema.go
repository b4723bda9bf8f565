package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/gfs/pkg/config"
)

func newSchemaCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Generate JSON schema for configuration",
		Long: `Generate a JSON schema for the gfs configuration file.

The schema can be used for IDE autocompletion and validation.

Examples:
  # Print schema to stdout
  gfs config schema

  # Save schema to file
  gfs config schema --file config.schema.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schemaJSON, err := config.GenerateSchema()
			if err != nil {
				return err
			}

			if file != "" {
				if err := os.WriteFile(file, schemaJSON, 0644); err != nil {
					return fmt.Errorf("failed to write schema file: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "JSON schema written to %s\n", file)
				return nil
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(schemaJSON))
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Output file (default: stdout)")
	return cmd
}
