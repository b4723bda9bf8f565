package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/marmos91/gfs/pkg/attr"
	"github.com/marmos91/gfs/pkg/gfs"
)

func newChmodCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chmod <mode> [mount:]path...",
		Short: "Change entry permissions",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			perm, err := parseMode(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, g, func(ctx context.Context, s *session) error {
				for _, arg := range args[1:] {
					m, p, err := s.resolve(ctx, arg)
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
					if _, err := m.FS.InsertEntry(ctx, p, e.Metadata.WithMode(perm), e.Contents); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
