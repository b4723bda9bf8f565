package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/gfs/pkg/attr"
	"github.com/marmos91/gfs/pkg/gfs"
)

func newAppendCmd(g *globalFlags) *cobra.Command {
	var offset int64

	cmd := &cobra.Command{
		Use:   "append [mount:]path",
		Short: "Append stdin to an entry",
		Long: `Append stdin to an entry, creating it when missing. With --offset the
data overwrites the content starting at that byte, zero-filling any gap.

Examples:
  date | gfs append /logs/boot.log
  printf 'X' | gfs append /data.bin --offset 0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}

			return withSession(cmd, g, func(ctx context.Context, s *session) error {
				m, p, err := s.resolve(ctx, args[0])
				if err != nil {
					return err
				}

				w, err := gfs.EntryWriter[attr.Attr](ctx, m.FS, p)
				if err != nil {
					return err
				}
				if offset >= 0 {
					_, err = w.WriteAt(data, offset)
				} else {
					_, err = w.Write(data)
				}
				if err != nil {
					return err
				}
				w.SetMetadata(w.Metadata().Touch(time.Now()))

				e, err := w.Commit(ctx)
				if err != nil {
					return err
				}
				printer, err := g.printer(cmd)
				if err != nil {
					return err
				}
				printer.Success(fmt.Sprintf("%s:%s is now %d bytes", m.Name, p, e.Size()))
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&offset, "offset", -1, "Write at this byte offset instead of appending")
	return cmd
}
