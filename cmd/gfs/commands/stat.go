package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/marmos91/gfs/internal/cli/output"
	"github.com/marmos91/gfs/pkg/attr"
	"github.com/marmos91/gfs/pkg/gfs"
)

func newStatCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stat [mount:]path",
		Short: "Show entry metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, g, func(ctx context.Context, s *session) error {
				m, p, err := s.resolve(ctx, args[0])
				if err != nil {
					return err
				}
				e, ok, err := gfs.ReadEntry[attr.Attr](ctx, m.FS, p)
				if err != nil {
					return err
				}
				if !ok {
					return gfs.NewNotFoundError(p)
				}

				row := output.NewEntryRow(gfs.CreatePath[attr.Attr](m.FS, p), e)
				printer, err := g.printer(cmd)
				if err != nil {
					return err
				}
				if printer.Format() == output.FormatTable {
					return output.SimpleTable(printer.Writer(), output.StatPairs(m.Name, row))
				}
				return printer.Print(row)
			})
		},
	}
}
