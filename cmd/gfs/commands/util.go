package commands

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/gfs/internal/cli/output"
	"github.com/marmos91/gfs/internal/logger"
	"github.com/marmos91/gfs/pkg/config"
	"github.com/marmos91/gfs/pkg/registry"
)

// InitLogger initializes the structured logger from configuration.
// One-shot commands log to stderr so their stdout stays clean.
func InitLogger(cfg *config.Config, toStderr bool) error {
	lc := cfg.Logging
	if toStderr && strings.EqualFold(lc.Output, "stdout") {
		lc.Output = "stderr"
	}
	if err := config.ApplyLogging(lc); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// printer returns a Printer for the --output and --no-color flags.
func (g *globalFlags) printer(cmd *cobra.Command) (*output.Printer, error) {
	format, err := output.ParseFormat(g.output)
	if err != nil {
		return nil, err
	}
	_, noColorEnv := os.LookupEnv("NO_COLOR")
	return output.NewPrinter(cmd.OutOrStdout(), format, !g.noColor && !noColorEnv), nil
}

var mountPrefix = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*):(.*)$`)

// splitTarget splits "mount:/path" into its parts. Plain paths return an
// empty mount.
func splitTarget(arg string) (mount, path string) {
	if m := mountPrefix.FindStringSubmatch(arg); m != nil {
		return m[1], m[2]
	}
	return "", arg
}

// session opens mounts on demand for one command invocation.
type session struct {
	g   *globalFlags
	cfg *config.Config
	reg *registry.Registry
}

func openSession(g *globalFlags) (*session, error) {
	cfg, err := config.MustLoad(g.configFile)
	if err != nil {
		return nil, err
	}
	if err := InitLogger(cfg, true); err != nil {
		return nil, err
	}
	return &session{g: g, cfg: cfg, reg: registry.NewRegistry()}, nil
}

// resolve opens the mount named by arg (or --mount, or the default mount)
// and returns it with the normalized path.
func (s *session) resolve(ctx context.Context, arg string) (*registry.Mount, string, error) {
	name, p := splitTarget(arg)
	m, err := s.open(ctx, name)
	if err != nil {
		return nil, "", err
	}
	return m, m.FS.NormalizePath(p), nil
}

// open returns the named mount, opening it on first use. An empty name
// selects --mount, then the default mount.
func (s *session) open(ctx context.Context, name string) (*registry.Mount, error) {
	if name == "" {
		name = s.g.mount
	}
	if name == "" {
		name = s.cfg.DefaultMount
	}

	if m, err := s.reg.GetMount(name); err == nil {
		return m, nil
	}
	mc, ok := s.cfg.Mount(name)
	if !ok {
		return nil, fmt.Errorf("unknown mount %q", name)
	}
	m, err := config.OpenMount(ctx, mc, nil)
	if err != nil {
		return nil, err
	}
	if err := s.reg.AddMount(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *session) Close() error {
	return s.reg.Close()
}

// withSession runs fn against an open session and closes it afterwards.
func withSession(cmd *cobra.Command, g *globalFlags, fn func(ctx context.Context, s *session) error) error {
	s, err := openSession(g)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Warn("Failed to close mounts", logger.Err(err))
		}
	}()
	return fn(cmd.Context(), s)
}
