package gfs

import (
	"bytes"
	"io"
)

// Meta is the constraint every entry metadata type satisfies. The zero value
// of the type is the default metadata for brand-new entries.
type Meta interface {
	comparable
}

// Entry is an immutable (metadata, content) pair.
type Entry[T Meta] struct {
	Metadata T
	Contents Content
}

// Equal reports whether e and other hold equal metadata and content.
func (e Entry[T]) Equal(other Entry[T]) bool {
	return e.Metadata == other.Metadata && e.Contents.Equal(other.Contents)
}

// Size returns the content length.
func (e Entry[T]) Size() int64 { return int64(e.Contents.Len()) }

// Reader is a read-only view of an entry. It reads the shared content
// without copying it.
type Reader[T Meta] struct {
	meta T
	r    *bytes.Reader
	size int64
}

var (
	_ io.Reader   = (*Reader[struct{}])(nil)
	_ io.ReaderAt = (*Reader[struct{}])(nil)
	_ io.Seeker   = (*Reader[struct{}])(nil)
	_ io.WriterTo = (*Reader[struct{}])(nil)
)

// NewReader returns a Reader over e.
func NewReader[T Meta](e Entry[T]) *Reader[T] {
	return &Reader[T]{
		meta: e.Metadata,
		r:    e.Contents.NewReader(),
		size: int64(e.Contents.Len()),
	}
}

// Metadata returns the entry metadata.
func (r *Reader[T]) Metadata() T { return r.meta }

// Size returns the total content length.
func (r *Reader[T]) Size() int64 { return r.size }

func (r *Reader[T]) Read(p []byte) (int, error) { return r.r.Read(p) }

func (r *Reader[T]) ReadAt(p []byte, off int64) (int, error) { return r.r.ReadAt(p, off) }

func (r *Reader[T]) Seek(offset int64, whence int) (int64, error) {
	return r.r.Seek(offset, whence)
}

func (r *Reader[T]) WriteTo(w io.Writer) (int64, error) { return r.r.WriteTo(w) }
