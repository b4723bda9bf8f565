package gfs

import (
	"slices"
	"strings"
)

// Separator is the only path separator understood by gfs.
const Separator = '/'

const separator = string(Separator)

// Path is a borrowed path string handed to a snapshot. It carries no
// snapshot binding and is normalized by the snapshot before use.
type Path = string

// NormalizePath returns the canonical form of raw:
//   - consecutive separators collapse into one
//   - "." segments are dropped
//   - ".." removes the preceding segment and is clamped at the root
//   - the result always starts with "/" and never ends with one (except "/")
//
// NormalizePath never fails and is idempotent.
func NormalizePath(raw string) string {
	segs := resolveFromRoot(nil, raw)
	if len(segs) == 0 {
		return separator
	}
	return separator + strings.Join(segs, separator)
}

// OwnedPath is a normalized path bound to the snapshot that produced it.
//
// The zero value is not usable; obtain owned paths through Snapshot.Root,
// CreatePath or Join.
type OwnedPath[T Meta] struct {
	snap Snapshot[T]
	root string
	rel  []string
}

// NewRoot returns the owned root path for snapshot s. root is normalized.
// Store implementations use it to implement Snapshot.Root.
func NewRoot[T Meta](s Snapshot[T], root string) OwnedPath[T] {
	return OwnedPath[T]{snap: s, root: NormalizePath(root)}
}

// Snapshot returns the snapshot this path is bound to.
func (p OwnedPath[T]) Snapshot() Snapshot[T] { return p.snap }

// WithSnapshot rebinds p to s, keeping root and relative path.
func (p OwnedPath[T]) WithSnapshot(s Snapshot[T]) OwnedPath[T] {
	p.snap = s
	return p
}

// Root returns the normalized root the path is anchored to.
func (p OwnedPath[T]) Root() string {
	if p.root == "" {
		return separator
	}
	return p.root
}

// Path returns the path relative to the snapshot root, in normalized form.
// This is the value snapshot methods expect.
func (p OwnedPath[T]) Path() string {
	if len(p.rel) == 0 {
		return separator
	}
	return separator + strings.Join(p.rel, separator)
}

// String returns the full path: root joined with the relative path.
func (p OwnedPath[T]) String() string {
	root := p.Root()
	if len(p.rel) == 0 {
		return root
	}
	if root == separator {
		return p.Path()
	}
	return root + p.Path()
}

// Segments returns a copy of the relative path components.
func (p OwnedPath[T]) Segments() []string {
	out := make([]string, len(p.rel))
	copy(out, p.rel)
	return out
}

// IsRoot reports whether p names the snapshot root.
func (p OwnedPath[T]) IsRoot() bool { return len(p.rel) == 0 }

// Base returns the last path component, or "/" for the root.
func (p OwnedPath[T]) Base() string {
	if len(p.rel) == 0 {
		return separator
	}
	return p.rel[len(p.rel)-1]
}

// Parent returns the parent directory. The parent of the root is the root.
func (p OwnedPath[T]) Parent() OwnedPath[T] {
	if len(p.rel) == 0 {
		return p
	}
	p.rel = p.rel[:len(p.rel)-1:len(p.rel)-1]
	return p
}

// Join appends segment to p. segment may span several components; a
// leading separator is ignored and ".." never climbs above the root.
func (p OwnedPath[T]) Join(segment string) OwnedPath[T] {
	stack := make([]string, len(p.rel), len(p.rel)+4)
	copy(stack, p.rel)
	p.rel = resolveFromRoot(stack, segment)
	return p
}

// resolveFromRoot resolves raw onto stack; ".." pops but never below empty.
func resolveFromRoot(stack []string, raw string) []string {
	for _, seg := range strings.Split(raw, separator) {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, seg)
		}
	}
	if len(stack) == 0 {
		return nil
	}
	return stack
}

// Equal reports whether p and other name the same location under the same root.
// The bound snapshot is not compared.
func (p OwnedPath[T]) Equal(other OwnedPath[T]) bool {
	return p.String() == other.String() && p.Path() == other.Path()
}

// ChildName returns the name of the immediate child of dir that contains
// path, or "" if path is not strictly below dir. Both must be normalized.
func ChildName(dir, path string) string {
	prefix := dir
	if prefix != separator {
		prefix += separator
	}
	if !strings.HasPrefix(path, prefix) || len(path) == len(prefix) {
		return ""
	}
	rest := path[len(prefix):]
	if i := strings.IndexByte(rest, Separator); i >= 0 {
		return rest[:i]
	}
	return rest
}

// DirPrefix returns the key prefix shared by every descendant of dir.
func DirPrefix(dir string) string {
	if dir == separator {
		return separator
	}
	return dir + separator
}

// CreatePath normalizes raw with the snapshot's rules and joins it onto the
// snapshot root.
func CreatePath[T Meta](s Snapshot[T], raw string) OwnedPath[T] {
	return s.Root().Join(s.NormalizePath(raw))
}

// ChildPaths turns the keys found under dir into its sorted, unique
// immediate children, each joined onto root. Keys outside dir are ignored.
func ChildPaths[T Meta](root OwnedPath[T], dir string, keys []string) []OwnedPath[T] {
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		if name := ChildName(dir, key); name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	names = slices.Compact(names)

	base := root.Join(dir)
	out := make([]OwnedPath[T], 0, len(names))
	for _, name := range names {
		out = append(out, base.Join(name))
	}
	return out
}
