package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/gfs/internal/logger"
	"github.com/marmos91/gfs/pkg/attr"
	"github.com/marmos91/gfs/pkg/gfs"
)

func newMvCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mv [mount:]src [mount:]dst",
		Short: "Rename an entry",
		Long: `Rename an entry. Within one mount this is the store's rename and
follows its rename policy. Across mounts the entry is copied and the
source removed afterwards.

Examples:
  gfs mv /draft.md /posts/final.md
  gfs mv scratch:/upload.bin default:/archive/upload.bin`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, g, func(ctx context.Context, s *session) error {
				src, srcPath, err := s.resolve(ctx, args[0])
				if err != nil {
					return err
				}
				dst, dstPath, err := s.resolve(ctx, args[1])
				if err != nil {
					return err
				}

				if src == dst {
					return src.FS.RenameEntry(ctx, srcPath, dstPath)
				}

				e, ok, err := gfs.ReadEntry[attr.Attr](ctx, src.FS, srcPath)
				if err != nil {
					return err
				}
				if !ok {
					return gfs.NewNotFoundError(srcPath)
				}
				if _, err := dst.FS.InsertEntry(ctx, dstPath, e.Metadata, e.Contents); err != nil {
					return err
				}
				if err := gfs.RemoveEntry[attr.Attr](ctx, src.FS, srcPath); err != nil {
					return fmt.Errorf("copied to %s:%s but failed to remove source: %w", dst.Name, dstPath, err)
				}
				logger.Debug("Moved entry across mounts",
					logger.KeyOldPath, src.Name+":"+srcPath,
					logger.KeyNewPath, dst.Name+":"+dstPath)
				return nil
			})
		},
	}
}
