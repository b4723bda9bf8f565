package commands

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/marmos91/gfs/pkg/gfs"
)

func newPutCmd(g *globalFlags) *cobra.Command {
	var mode, contentType string

	cmd := &cobra.Command{
		Use:   "put <local-file|-> [mount:]path",
		Short: "Create or replace an entry",
		Long: `Create or replace an entry with the contents of a local file, or of
stdin when the source is "-". Replacing keeps the entry's owner and mode
unless --mode is given.

Examples:
  gfs put ./report.pdf /reports/2024.pdf
  echo hello | gfs put - scratch:/greeting.txt --mode 0600`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, localMode, err := readSource(cmd, args[0])
			if err != nil {
				return err
			}

			return withSession(cmd, g, func(ctx context.Context, s *session) error {
				m, p, err := s.resolve(ctx, args[1])
				if err != nil {
					return err
				}

				meta, exists, err := m.FS.ReadMeta(ctx, p)
				if err != nil {
					return err
				}
				if !exists && localMode != 0 {
					meta = meta.WithMode(localMode)
				}
				if mode != "" {
					perm, err := parseMode(mode)
					if err != nil {
						return err
					}
					meta = meta.WithMode(perm)
				}
				ct := contentType
				if ct == "" {
					ct = mimetype.Detect(data).String()
				}
				meta = meta.WithContentType(ct).Touch(time.Now())

				if _, err := m.FS.InsertEntry(ctx, p, meta, gfs.NewContent(data)); err != nil {
					return err
				}
				printer, err := g.printer(cmd)
				if err != nil {
					return err
				}
				printer.Success(fmt.Sprintf("Wrote %d bytes to %s:%s", len(data), m.Name, p))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Permission bits in octal, e.g. 0644")
	cmd.Flags().StringVar(&contentType, "content-type", "", "Content type (default: detected)")
	return cmd
}

// readSource reads a local file, or stdin for "-". The returned mode is
// the local file's permissions, zero for stdin.
func readSource(cmd *cobra.Command, src string) ([]byte, fs.FileMode, error) {
	if src == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return data, 0, err
	}
	info, err := os.Stat(src)
	if err != nil {
		return nil, 0, err
	}
	if info.IsDir() {
		return nil, 0, fmt.Errorf("%s is a directory", src)
	}
	data, err := os.ReadFile(src)
	return data, info.Mode().Perm(), err
}

// parseMode parses octal permission bits such as "644" or "0755".
func parseMode(s string) (fs.FileMode, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil || v > 0o777 {
		return 0, fmt.Errorf("invalid mode %q", s)
	}
	return fs.FileMode(v), nil
}

