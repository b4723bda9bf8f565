package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marmos91/gfs/internal/cli/prompt"
	"github.com/marmos91/gfs/pkg/config"
)

func newInitCmd(g *globalFlags) *cobra.Command {
	var force, interactive bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a sample configuration file",
		Long: `Initialize a sample gfs configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/gfs/config.yaml
with a BadgerDB-backed "default" mount and an in-memory "scratch" mount.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  gfs init

  # Choose the default mount's store interactively
  gfs init --interactive

  # Force overwrite existing config
  gfs init --force --config /etc/gfs/config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := g.configFile
			if configPath == "" {
				configPath = config.GetDefaultConfigPath()
			}

			opts := config.SampleOptions{}
			if interactive {
				var err error
				if opts, err = askSampleOptions(filepath.Dir(configPath)); err != nil {
					return err
				}
			}

			if err := config.InitConfigWithOptions(configPath, force, opts); err != nil {
				return fmt.Errorf("failed to initialize config: %w", err)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
			_, _ = fmt.Fprintln(out, "\nNext steps:")
			_, _ = fmt.Fprintln(out, "  1. Edit the configuration file to add or change mounts")
			_, _ = fmt.Fprintln(out, "  2. Try it: echo hello | gfs put - /hello.txt && gfs ls -l")
			_, _ = fmt.Fprintf(out, "  3. Serve it over HTTP: gfs serve --config %s\n", configPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Force overwrite existing config file")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Prompt for the default mount's store")
	return cmd
}

func askSampleOptions(configDir string) (config.SampleOptions, error) {
	storeType, err := prompt.Select("Store for the default mount", []prompt.SelectOption{
		{Label: "badger", Value: config.StoreTypeBadger, Description: "Embedded key-value database on local disk"},
		{Label: "relational", Value: config.StoreTypeRelational, Description: "SQLite database file"},
		{Label: "memory", Value: config.StoreTypeMemory, Description: "In-process only, lost on exit"},
	})
	if err != nil {
		return config.SampleOptions{}, err
	}
	if storeType == config.StoreTypeMemory {
		return config.SampleOptions{StoreType: storeType}, nil
	}

	dataDir, err := prompt.InputWithValidation("Data directory", filepath.Join(configDir, "data"), func(s string) error {
		if s == "" {
			return fmt.Errorf("data directory is required")
		}
		return nil
	})
	if err != nil {
		return config.SampleOptions{}, err
	}
	return config.SampleOptions{StoreType: storeType, DataDir: dataDir}, nil
}
