// Package commands implements the gfs command-line interface.
package commands

import (
	"github.com/spf13/cobra"

	configcmd "github.com/marmos91/gfs/cmd/gfs/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configFile string
	mount      string
	output     string
	noColor    bool
}

// NewRootCmd builds the gfs command tree.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "gfs",
		Short: "gfs - path-addressed filesystems over pluggable stores",
		Long: `gfs manages named filesystems ("mounts") backed by memory, BadgerDB,
PostgreSQL, SQLite or S3, and serves them over HTTP.

Paths are written as mount:/path, or as /path with --mount (or the
configured default mount).

Use "gfs [command] --help" for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "config file (default: $XDG_CONFIG_HOME/gfs/config.yaml)")
	pf.StringVarP(&g.mount, "mount", "m", "", "Mount to operate on (default: default_mount from config)")
	pf.StringVarP(&g.output, "output", "o", "table", "Output format (table|json|yaml)")
	pf.BoolVar(&g.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		newVersionCmd(),
		newInitCmd(g),
		newServeCmd(g),
		newLsCmd(g),
		newCatCmd(g),
		newStatCmd(g),
		newPutCmd(g),
		newAppendCmd(g),
		newChmodCmd(g),
		newRmCmd(g),
		newMvCmd(g),
		newFindCmd(g),
		configcmd.Cmd(),
		newCompletionCmd(),
	)

	// Hide the default completion command (we provide our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
