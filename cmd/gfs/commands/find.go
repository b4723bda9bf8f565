package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/marmos91/gfs/internal/cli/output"
	"github.com/marmos91/gfs/pkg/attr"
	"github.com/marmos91/gfs/pkg/gfs"
)

func newFindCmd(g *globalFlags) *cobra.Command {
	var long bool

	cmd := &cobra.Command{
		Use:   "find [mount:]pattern",
		Short: "Find entries matching a glob",
		Long: `Find entries whose path matches a glob pattern. "*" matches within one
path segment, "**" across any number of segments.

Examples:
  gfs find '**/*.go'
  gfs find -l 'scratch:/logs/*.log'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, g, func(ctx context.Context, s *session) error {
				mountName, pattern := splitTarget(args[0])
				m, err := s.open(ctx, mountName)
				if err != nil {
					return err
				}

				matches, err := gfs.Glob[attr.Attr](ctx, m.FS, pattern)
				if err != nil {
					return err
				}

				rows := make([]output.EntryRow, 0, len(matches))
				for _, p := range matches {
					e, ok, err := gfs.ReadEntry[attr.Attr](ctx, m.FS, p.Path())
					if err != nil {
						return err
					}
					if !ok {
						// Removed since the glob ran.
						continue
					}
					row := output.NewEntryRow(p, e)
					row.Name = p.Path()
					rows = append(rows, row)
				}

				printer, err := g.printer(cmd)
				if err != nil {
					return err
				}
				return printer.Print(output.EntryList{Entries: rows, Long: long})
			})
		},
	}

	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show mode, owner, size and modification time")
	return cmd
}
