// Package gfs defines a generic, path-addressed filesystem abstraction.
//
// A Snapshot is a read-only view of a namespace of entries, each carrying a
// metadata value of type T and an immutable Content buffer. A Filesystem is
// a Snapshot that can also be mutated: entries are renamed, dropped and
// atomically inserted. Everything else (ReadEntry, RemoveEntry, EntryWriter,
// Walk, Glob) is derived from those primitives by package functions, which
// take advantage of optional capabilities when a store offers them.
//
// Directories are implicit: a directory exists while any entry lives below
// it, and never holds an entry of its own when it is the root.
package gfs

import (
	"context"
	"io"
)

// Snapshot is the read-only capability set over a namespace.
//
// Absence is not an error: ReadMeta and ReadData report (zero, false, nil)
// for paths without an entry. The error return is reserved for backing store
// failures.
type Snapshot[T Meta] interface {
	// Root returns the owned root path of this snapshot.
	Root() OwnedPath[T]

	// NormalizePath returns the canonical form of raw under this snapshot.
	NormalizePath(raw string) string

	// ReadMeta returns the metadata stored at p.
	ReadMeta(ctx context.Context, p Path) (T, bool, error)

	// ReadData returns the content stored at p.
	ReadData(ctx context.Context, p Path) (Content, bool, error)

	// ReadDir returns the immediate children of p sorted by name, including
	// implicit directories. A missing directory yields an empty listing.
	ReadDir(ctx context.Context, p Path) ([]OwnedPath[T], error)
}

// Filesystem is a mutable Snapshot. Reads always observe live state.
type Filesystem[T Meta] interface {
	Snapshot[T]

	// RenameEntry moves the entry at oldPath to newPath. Only the entry
	// itself moves; descendants of oldPath stay where they are.
	RenameEntry(ctx context.Context, oldPath, newPath Path) error

	// DropEntry removes the entry at p and returns its last value.
	DropEntry(ctx context.Context, p Path) (Entry[T], error)

	// InsertEntry atomically publishes (meta, data) at p, replacing any
	// previous entry, and returns the stored entry.
	InsertEntry(ctx context.Context, p Path, meta T, data Content) (Entry[T], error)
}

// ReadEntrySnapshot is implemented by snapshots that can read metadata and
// content in one consistent step.
type ReadEntrySnapshot[T Meta] interface {
	Snapshot[T]
	ReadEntry(ctx context.Context, p Path) (Entry[T], bool, error)
}

// Frozen is a point-in-time snapshot handed out by a Snapshotter. It never
// observes writes made after it was taken. Close releases it.
type Frozen[T Meta] interface {
	Snapshot[T]
	io.Closer
}

// Snapshotter is implemented by filesystems that can hand out frozen views.
type Snapshotter[T Meta] interface {
	Snapshot(ctx context.Context) (Frozen[T], error)
}

// HealthChecker is implemented by stores that can check their backend.
type HealthChecker interface {
	Healthcheck(ctx context.Context) error
}

// RenamePolicy decides what RenameEntry does when the destination holds an
// entry.
type RenamePolicy string

const (
	// RenameOverwrite replaces the destination entry.
	RenameOverwrite RenamePolicy = "overwrite"

	// RenameReject fails with ErrAlreadyExists.
	RenameReject RenamePolicy = "reject"
)

// ParseRenamePolicy maps a configuration value to a policy. The empty
// string selects RenameOverwrite.
func ParseRenamePolicy(s string) (RenamePolicy, error) {
	switch RenamePolicy(s) {
	case "", RenameOverwrite:
		return RenameOverwrite, nil
	case RenameReject:
		return RenameReject, nil
	default:
		return "", NewInvalidArgumentError("", "unknown rename policy "+s)
	}
}

// CheckEntryPath rejects the normalized root as an entry location.
func CheckEntryPath(p string) error {
	if p == separator {
		return NewRootEntryError()
	}
	return nil
}

// ReadRoot lists the immediate children of the snapshot root.
func ReadRoot[T Meta](ctx context.Context, s Snapshot[T]) ([]OwnedPath[T], error) {
	return s.ReadDir(ctx, s.Root().Path())
}

// ReadEntry returns the entry at p. The entry is absent when either its
// metadata or its content is absent.
//
// If s implements ReadEntrySnapshot, ReadEntry calls it; otherwise it
// combines ReadMeta and ReadData.
func ReadEntry[T Meta](ctx context.Context, s Snapshot[T], p Path) (Entry[T], bool, error) {
	if es, ok := s.(ReadEntrySnapshot[T]); ok {
		return es.ReadEntry(ctx, p)
	}
	meta, ok, err := s.ReadMeta(ctx, p)
	if err != nil || !ok {
		return Entry[T]{}, false, err
	}
	data, ok, err := s.ReadData(ctx, p)
	if err != nil || !ok {
		return Entry[T]{}, false, err
	}
	return Entry[T]{Metadata: meta, Contents: data}, true, nil
}

// EntryReader returns a Reader over the entry at p.
func EntryReader[T Meta](ctx context.Context, s Snapshot[T], p Path) (*Reader[T], bool, error) {
	e, ok, err := ReadEntry(ctx, s, p)
	if err != nil || !ok {
		return nil, false, err
	}
	return NewReader(e), true, nil
}

// RemoveEntry drops the entry at p and discards it.
func RemoveEntry[T Meta](ctx context.Context, fs Filesystem[T], p Path) error {
	_, err := fs.DropEntry(ctx, p)
	return err
}

// EntryWriter returns a Writer targeting p. The writer starts from a copy of
// the current entry, or from zero metadata and empty content when p holds no
// entry. Nothing is written until Commit.
func EntryWriter[T Meta](ctx context.Context, fs Filesystem[T], p Path) (*Writer[T], error) {
	target := CreatePath[T](fs, p)
	e, ok, err := ReadEntry[T](ctx, fs, target.Path())
	if err != nil {
		return nil, err
	}
	if !ok {
		return newWriter(fs, target, *new(T), nil), nil
	}
	return newWriter(fs, target, e.Metadata, e.Contents.Clone()), nil
}
