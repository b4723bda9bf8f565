package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/gfs/internal/cli/output"
	"github.com/marmos91/gfs/pkg/attr"
	"github.com/marmos91/gfs/pkg/gfs"
)

func newLsCmd(g *globalFlags) *cobra.Command {
	var long, recursive bool

	cmd := &cobra.Command{
		Use:   "ls [mount:][path]",
		Short: "List a directory",
		Long: `List the children of a directory. Directories that only exist because
entries live below them are shown with a trailing "/".

Examples:
  # List the root of the default mount
  gfs ls

  # Long listing of a directory on another mount
  gfs ls -l scratch:/logs

  # Everything below a directory
  gfs ls -R /src`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := "/"
			if len(args) == 1 {
				arg = args[0]
			}
			return withSession(cmd, g, func(ctx context.Context, s *session) error {
				m, p, err := s.resolve(ctx, arg)
				if err != nil {
					return err
				}

				rows, err := listRows(ctx, m.FS, p, recursive)
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					// ls on an entry lists the entry itself.
					e, ok, err := gfs.ReadEntry[attr.Attr](ctx, m.FS, p)
					if err != nil {
						return err
					}
					if ok {
						rows = append(rows, output.NewEntryRow(gfs.CreatePath[attr.Attr](m.FS, p), e))
					}
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
	cmd.Flags().BoolVarP(&recursive, "recursive", "R", false, "List all descendants")
	return cmd
}

// listRows describes the children of dir, or all descendants when
// recursive. Recursive rows are named relative to dir.
func listRows(ctx context.Context, fs gfs.Filesystem[attr.Attr], dir string, recursive bool) ([]output.EntryRow, error) {
	var paths []gfs.OwnedPath[attr.Attr]
	if recursive {
		err := gfs.Walk[attr.Attr](ctx, fs, dir, func(p gfs.OwnedPath[attr.Attr]) error {
			paths = append(paths, p)
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		children, err := fs.ReadDir(ctx, dir)
		if err != nil {
			return nil, err
		}
		paths = children
	}

	prefix := gfs.DirPrefix(dir)
	rows := make([]output.EntryRow, 0, len(paths))
	for _, p := range paths {
		e, ok, err := gfs.ReadEntry[attr.Attr](ctx, fs, p.Path())
		if err != nil {
			return nil, err
		}
		row := output.NewDirRow(p)
		if ok {
			row = output.NewEntryRow(p, e)
		}
		if recursive {
			name := strings.TrimPrefix(p.Path(), prefix)
			if row.Dir {
				name += "/"
			}
			row.Name = name
		}
		rows = append(rows, row)
	}
	return rows, nil
}
