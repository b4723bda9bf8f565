package gfs

import "context"

// ReadOnly wraps fs so that every mutation fails with ErrReadOnly. Reads,
// ReadEntry, snapshots and health checks pass through.
func ReadOnly[T Meta](fs Filesystem[T]) Filesystem[T] {
	return &readOnly[T]{inner: fs}
}

type readOnly[T Meta] struct {
	inner Filesystem[T]
}

// Unwrap returns the wrapped filesystem.
func (r *readOnly[T]) Unwrap() Filesystem[T] { return r.inner }

func (r *readOnly[T]) Root() OwnedPath[T] { return r.inner.Root().WithSnapshot(r) }

func (r *readOnly[T]) NormalizePath(raw string) string { return r.inner.NormalizePath(raw) }

func (r *readOnly[T]) ReadMeta(ctx context.Context, p Path) (T, bool, error) {
	return r.inner.ReadMeta(ctx, p)
}

func (r *readOnly[T]) ReadData(ctx context.Context, p Path) (Content, bool, error) {
	return r.inner.ReadData(ctx, p)
}

func (r *readOnly[T]) ReadEntry(ctx context.Context, p Path) (Entry[T], bool, error) {
	return ReadEntry[T](ctx, r.inner, p)
}

func (r *readOnly[T]) ReadDir(ctx context.Context, p Path) ([]OwnedPath[T], error) {
	children, err := r.inner.ReadDir(ctx, p)
	if err != nil {
		return nil, err
	}
	for i := range children {
		children[i] = children[i].WithSnapshot(r)
	}
	return children, nil
}

func (r *readOnly[T]) RenameEntry(_ context.Context, oldPath, _ Path) error {
	return NewReadOnlyError(r.inner.NormalizePath(oldPath))
}

func (r *readOnly[T]) DropEntry(_ context.Context, p Path) (Entry[T], error) {
	return Entry[T]{}, NewReadOnlyError(r.inner.NormalizePath(p))
}

func (r *readOnly[T]) InsertEntry(_ context.Context, p Path, _ T, _ Content) (Entry[T], error) {
	return Entry[T]{}, NewReadOnlyError(r.inner.NormalizePath(p))
}

func (r *readOnly[T]) Snapshot(ctx context.Context) (Frozen[T], error) {
	s, ok := r.inner.(Snapshotter[T])
	if !ok {
		return nil, NewNotSupportedError("snapshot")
	}
	return s.Snapshot(ctx)
}

func (r *readOnly[T]) Healthcheck(ctx context.Context) error {
	if hc, ok := r.inner.(HealthChecker); ok {
		return hc.Healthcheck(ctx)
	}
	return nil
}

func (r *readOnly[T]) Close() error {
	if c, ok := r.inner.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
