package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/gfs/internal/cli/prompt"
	"github.com/marmos91/gfs/pkg/attr"
	"github.com/marmos91/gfs/pkg/gfs"
	"github.com/marmos91/gfs/pkg/registry"
)

func newRmCmd(g *globalFlags) *cobra.Command {
	var force, recursive bool

	cmd := &cobra.Command{
		Use:   "rm [mount:]path...",
		Short: "Remove entries",
		Long: `Remove entries. With --recursive every entry below a directory is
removed as well. A confirmation prompt is shown unless --force is given;
--force also ignores missing entries.

Examples:
  gfs rm /tmp/a.txt
  gfs rm -rf scratch:/cache`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, g, func(ctx context.Context, s *session) error {
				type victim struct {
					mount *registry.Mount
					path  string
				}
				var victims []victim

				for _, arg := range args {
					m, p, err := s.resolve(ctx, arg)
					if err != nil {
						return err
					}
					paths, err := removalSet(ctx, m.FS, p, recursive)
					if err != nil {
						return err
					}
					if len(paths) == 0 && !force {
						return gfs.NewNotFoundError(p)
					}
					for _, rp := range paths {
						victims = append(victims, victim{mount: m, path: rp})
					}
				}
				if len(victims) == 0 {
					return nil
				}

				ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Remove %d entries", len(victims)), force)
				if err != nil {
					return err
				}
				if !ok {
					return prompt.ErrAborted
				}

				for _, v := range victims {
					err := gfs.RemoveEntry[attr.Attr](ctx, v.mount.FS, v.path)
					if err != nil && !(force && gfs.IsNotFoundError(err)) {
						return err
					}
				}

				printer, err := g.printer(cmd)
				if err != nil {
					return err
				}
				printer.Success(fmt.Sprintf("Removed %d entries", len(victims)))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation and ignore missing entries")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Remove entries below directories")
	return cmd
}

// removalSet returns the entry paths to remove for p: p itself when it
// holds an entry, plus every entry below it when recursive.
func removalSet(ctx context.Context, fs gfs.Filesystem[attr.Attr], p string, recursive bool) ([]string, error) {
	var paths []string
	_, ok, err := fs.ReadMeta(ctx, p)
	if err != nil {
		return nil, err
	}
	if ok {
		paths = append(paths, p)
	}
	if !recursive {
		return paths, nil
	}

	err = gfs.Walk[attr.Attr](ctx, fs, p, func(child gfs.OwnedPath[attr.Attr]) error {
		_, ok, err := fs.ReadMeta(ctx, child.Path())
		if err != nil {
			return err
		}
		if ok {
			paths = append(paths, child.Path())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}
