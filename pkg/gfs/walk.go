package gfs

import (
	"context"
	"errors"
	"io/fs"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// SkipDir may be returned by a WalkFunc to skip the children of the
// visited path.
var SkipDir = fs.SkipDir

// WalkFunc is called for every path below the walk start, parents before
// children.
type WalkFunc[T Meta] func(p OwnedPath[T]) error

// Walk visits every path below start in depth-first order. Siblings are
// visited in name order. The start path itself is not visited.
func Walk[T Meta](ctx context.Context, s Snapshot[T], start Path, fn WalkFunc[T]) error {
	return walk(ctx, s, s.NormalizePath(start), fn)
}

func walk[T Meta](ctx context.Context, s Snapshot[T], dir string, fn WalkFunc[T]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	children, err := s.ReadDir(ctx, dir)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := fn(child); err != nil {
			if errors.Is(err, SkipDir) {
				continue
			}
			return err
		}
		if err := walk(ctx, s, child.Path(), fn); err != nil {
			return err
		}
	}
	return nil
}

// Glob returns every entry path matching pattern, in walk order. Patterns
// use doublestar syntax ("**" crosses directories) and are matched against
// root-relative paths; a leading "/" is optional.
func Glob[T Meta](ctx context.Context, s Snapshot[T], pattern string) ([]OwnedPath[T], error) {
	pattern = strings.TrimPrefix(pattern, separator)
	if !doublestar.ValidatePattern(pattern) {
		return nil, NewInvalidArgumentError("", "invalid glob pattern "+pattern)
	}

	var matches []OwnedPath[T]
	err := Walk(ctx, s, separator, func(p OwnedPath[T]) error {
		ok, err := doublestar.Match(pattern, strings.TrimPrefix(p.Path(), separator))
		if err != nil || !ok {
			return err
		}
		_, exists, err := s.ReadMeta(ctx, p.Path())
		if err != nil {
			return err
		}
		if exists {
			matches = append(matches, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}
