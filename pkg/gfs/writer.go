package gfs

import (
	"context"
	"io"
	"math"
)

// Writer stages a new version of one entry. It is seeded from the current
// entry (or defaults) and publishes through Filesystem.InsertEntry on
// Commit. A Writer is not safe for concurrent use.
type Writer[T Meta] struct {
	fs   Filesystem[T]
	path OwnedPath[T]
	meta T
	buf  []byte
}

var (
	_ io.Writer       = (*Writer[struct{}])(nil)
	_ io.WriterAt     = (*Writer[struct{}])(nil)
	_ io.StringWriter = (*Writer[struct{}])(nil)
)

func newWriter[T Meta](fs Filesystem[T], path OwnedPath[T], meta T, buf []byte) *Writer[T] {
	return &Writer[T]{fs: fs, path: path, meta: meta, buf: buf}
}

// Path returns the target path.
func (w *Writer[T]) Path() OwnedPath[T] { return w.path }

// Metadata returns the staged metadata.
func (w *Writer[T]) Metadata() T { return w.meta }

// SetMetadata replaces the staged metadata.
func (w *Writer[T]) SetMetadata(meta T) { w.meta = meta }

// Len returns the staged content length.
func (w *Writer[T]) Len() int { return len(w.buf) }

// Bytes returns a copy of the staged content.
func (w *Writer[T]) Bytes() []byte {
	out := make([]byte, len(w.buf))
	copy(out, w.buf)
	return out
}

// Write appends p to the staged content.
func (w *Writer[T]) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

// WriteString appends s to the staged content.
func (w *Writer[T]) WriteString(s string) (int, error) {
	w.buf = append(w.buf, s...)
	return len(s), nil
}

// WriteAt writes p at off, zero-filling any gap past the current end.
func (w *Writer[T]) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, NewInvalidArgumentError(w.path.String(), "negative offset")
	}
	if off > int64(math.MaxInt-len(p)) {
		return 0, NewInvalidArgumentError(w.path.String(), "offset out of range")
	}
	end := int(off) + len(p)
	if end > len(w.buf) {
		w.grow(end)
	}
	copy(w.buf[off:], p)
	return len(p), nil
}

// Truncate sets the staged length to size, zero-filling when growing.
func (w *Writer[T]) Truncate(size int64) error {
	if size < 0 {
		return NewInvalidArgumentError(w.path.String(), "negative size")
	}
	if size > int64(math.MaxInt) {
		return NewInvalidArgumentError(w.path.String(), "size out of range")
	}
	if int(size) <= len(w.buf) {
		w.buf = w.buf[:size]
		return nil
	}
	w.grow(int(size))
	return nil
}

// Reset discards the staged content, keeping the metadata.
func (w *Writer[T]) Reset() { w.buf = w.buf[:0] }

func (w *Writer[T]) grow(n int) {
	if n <= cap(w.buf) {
		old := len(w.buf)
		w.buf = w.buf[:n]
		clear(w.buf[old:])
		return
	}
	next := make([]byte, n, max(n, 2*cap(w.buf)))
	copy(next, w.buf)
	w.buf = next
}

// Commit publishes the staged metadata and a private copy of the staged
// content at the target path. The writer stays usable afterwards.
func (w *Writer[T]) Commit(ctx context.Context) (Entry[T], error) {
	return w.fs.InsertEntry(ctx, w.path.Path(), w.meta, NewContent(w.buf))
}
