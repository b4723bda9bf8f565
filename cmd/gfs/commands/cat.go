package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/marmos91/gfs/pkg/attr"
	"github.com/marmos91/gfs/pkg/gfs"
)

func newCatCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "cat [mount:]path...",
		Short: "Print entry contents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, g, func(ctx context.Context, s *session) error {
				for _, arg := range args {
					m, p, err := s.resolve(ctx, arg)
					if err != nil {
						return err
					}
					r, ok, err := gfs.EntryReader[attr.Attr](ctx, m.FS, p)
					if err != nil {
						return err
					}
					if !ok {
						return gfs.NewNotFoundError(p)
					}
					if _, err := r.WriteTo(cmd.OutOrStdout()); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
