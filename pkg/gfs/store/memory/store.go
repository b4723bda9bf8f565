// Package memory implements an in-memory gfs filesystem.
//
// Entries live in a map keyed by normalized path, guarded by a RWMutex.
// Snapshot hands out a frozen copy of the map; content buffers are shared
// between the live store and its snapshots since they are immutable.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/marmos91/gfs/pkg/gfs"
)

// Config configures a memory store.
type Config struct {
	// Root is the display root of the namespace. Defaults to "/".
	Root string `mapstructure:"root"`

	// RenamePolicy decides whether RenameEntry may overwrite.
	RenamePolicy gfs.RenamePolicy `mapstructure:"rename_policy"`
}

// Store is an in-memory gfs.Filesystem.
type Store[T gfs.Meta] struct {
	mu      sync.RWMutex
	root    string
	policy  gfs.RenamePolicy
	entries tree[T]
	closed  bool
}

var (
	_ gfs.Filesystem[struct{}]        = (*Store[struct{}])(nil)
	_ gfs.ReadEntrySnapshot[struct{}] = (*Store[struct{}])(nil)
	_ gfs.Snapshotter[struct{}]       = (*Store[struct{}])(nil)
	_ gfs.HealthChecker               = (*Store[struct{}])(nil)
)

// New creates an empty memory store.
func New[T gfs.Meta](cfg Config) *Store[T] {
	policy := cfg.RenamePolicy
	if policy == "" {
		policy = gfs.RenameOverwrite
	}
	return &Store[T]{
		root:    gfs.NormalizePath(cfg.Root),
		policy:  policy,
		entries: make(tree[T]),
	}
}

// NewWithDefaults creates an empty memory store rooted at "/".
func NewWithDefaults[T gfs.Meta]() *Store[T] {
	return New[T](Config{})
}

func (s *Store[T]) Root() gfs.OwnedPath[T] { return gfs.NewRoot[T](s, s.root) }

func (s *Store[T]) NormalizePath(raw string) string { return gfs.NormalizePath(raw) }

func (s *Store[T]) ReadMeta(ctx context.Context, p gfs.Path) (T, bool, error) {
	e, ok, err := s.ReadEntry(ctx, p)
	return e.Metadata, ok, err
}

func (s *Store[T]) ReadData(ctx context.Context, p gfs.Path) (gfs.Content, bool, error) {
	e, ok, err := s.ReadEntry(ctx, p)
	return e.Contents, ok, err
}

func (s *Store[T]) ReadEntry(ctx context.Context, p gfs.Path) (gfs.Entry[T], bool, error) {
	if err := ctx.Err(); err != nil {
		return gfs.Entry[T]{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return gfs.Entry[T]{}, false, gfs.NewClosedError()
	}
	e, ok := s.entries[gfs.NormalizePath(p)]
	return e, ok, nil
}

func (s *Store[T]) ReadDir(ctx context.Context, p gfs.Path) ([]gfs.OwnedPath[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, gfs.NewClosedError()
	}
	return s.entries.children(s.Root(), gfs.NormalizePath(p)), nil
}

func (s *Store[T]) InsertEntry(ctx context.Context, p gfs.Path, meta T, data gfs.Content) (gfs.Entry[T], error) {
	if err := ctx.Err(); err != nil {
		return gfs.Entry[T]{}, err
	}
	key := gfs.NormalizePath(p)
	if err := gfs.CheckEntryPath(key); err != nil {
		return gfs.Entry[T]{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return gfs.Entry[T]{}, gfs.NewClosedError()
	}
	e := gfs.Entry[T]{Metadata: meta, Contents: data}
	s.entries[key] = e
	return e, nil
}

func (s *Store[T]) DropEntry(ctx context.Context, p gfs.Path) (gfs.Entry[T], error) {
	if err := ctx.Err(); err != nil {
		return gfs.Entry[T]{}, err
	}
	key := gfs.NormalizePath(p)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return gfs.Entry[T]{}, gfs.NewClosedError()
	}
	e, ok := s.entries[key]
	if !ok {
		return gfs.Entry[T]{}, gfs.NewNotFoundError(key)
	}
	delete(s.entries, key)
	return e, nil
}

func (s *Store[T]) RenameEntry(ctx context.Context, oldPath, newPath gfs.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from := gfs.NormalizePath(oldPath)
	to := gfs.NormalizePath(newPath)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return gfs.NewClosedError()
	}
	e, ok := s.entries[from]
	if !ok {
		return gfs.NewNotFoundError(from)
	}
	if from == to {
		return nil
	}
	if err := gfs.CheckEntryPath(to); err != nil {
		return err
	}
	if _, exists := s.entries[to]; exists && s.policy == gfs.RenameReject {
		return gfs.NewAlreadyExistsError(to)
	}
	s.entries[to] = e
	delete(s.entries, from)
	return nil
}

// Snapshot returns a frozen copy of the current namespace.
func (s *Store[T]) Snapshot(ctx context.Context) (gfs.Frozen[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, gfs.NewClosedError()
	}
	frozen := make(tree[T], len(s.entries))
	for k, v := range s.entries {
		frozen[k] = v
	}
	return &Snapshot[T]{id: uuid.New(), root: s.root, entries: frozen}, nil
}

// Len returns the number of entries.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store[T]) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return gfs.NewClosedError()
	}
	return nil
}

// Close releases the entries. Further calls fail with ErrClosed.
func (s *Store[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = nil
	return nil
}

// Snapshot is a frozen view of a memory store.
type Snapshot[T gfs.Meta] struct {
	id      uuid.UUID
	root    string
	entries tree[T]
}

// ID identifies the snapshot.
func (s *Snapshot[T]) ID() uuid.UUID { return s.id }

func (s *Snapshot[T]) Root() gfs.OwnedPath[T] { return gfs.NewRoot[T](s, s.root) }

func (s *Snapshot[T]) NormalizePath(raw string) string { return gfs.NormalizePath(raw) }

func (s *Snapshot[T]) ReadMeta(ctx context.Context, p gfs.Path) (T, bool, error) {
	e, ok, err := s.ReadEntry(ctx, p)
	return e.Metadata, ok, err
}

func (s *Snapshot[T]) ReadData(ctx context.Context, p gfs.Path) (gfs.Content, bool, error) {
	e, ok, err := s.ReadEntry(ctx, p)
	return e.Contents, ok, err
}

func (s *Snapshot[T]) ReadEntry(ctx context.Context, p gfs.Path) (gfs.Entry[T], bool, error) {
	if err := ctx.Err(); err != nil {
		return gfs.Entry[T]{}, false, err
	}
	e, ok := s.entries[gfs.NormalizePath(p)]
	return e, ok, nil
}

func (s *Snapshot[T]) ReadDir(ctx context.Context, p gfs.Path) ([]gfs.OwnedPath[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.entries.children(s.Root(), gfs.NormalizePath(p)), nil
}

func (s *Snapshot[T]) Close() error { return nil }

// tree maps normalized paths to entries.
type tree[T gfs.Meta] map[string]gfs.Entry[T]

func (t tree[T]) children(root gfs.OwnedPath[T], dir string) []gfs.OwnedPath[T] {
	keys := make([]string, 0, len(t))
	for key := range t {
		keys = append(keys, key)
	}
	return gfs.ChildPaths(root, dir, keys)
}
