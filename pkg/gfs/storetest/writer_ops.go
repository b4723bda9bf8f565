package storetest

import (
	"testing"

	"github.com/marmos91/gfs/pkg/attr"
	"github.com/marmos91/gfs/pkg/gfs"
)

// runWriterTests runs all EntryWriter conformance tests.
func runWriterTests(t *testing.T, factory StoreFactory) {
	t.Run("NewEntry", func(t *testing.T) { testWriterNewEntry(t, factory) })
	t.Run("SeededFromExisting", func(t *testing.T) { testWriterSeeded(t, factory) })
	t.Run("UnmodifiedCommit", func(t *testing.T) { testWriterUnmodifiedCommit(t, factory) })
	t.Run("UnmodifiedNewEntry", func(t *testing.T) { testWriterUnmodifiedNewEntry(t, factory) })
	t.Run("NoEffectBeforeCommit", func(t *testing.T) { testWriterNoEffectBeforeCommit(t, factory) })
	t.Run("CommittedContentIsolated", func(t *testing.T) { testWriterCommittedIsolated(t, factory) })
}

// testWriterNewEntry verifies a writer for an absent path starts from defaults.
func testWriterNewEntry(t *testing.T, factory StoreFactory) {
	fs := factory(t)
	ctx := t.Context()

	w, err := gfs.EntryWriter[attr.Attr](ctx, fs, "/fresh/file.txt")
	if err != nil {
		t.Fatalf("EntryWriter() failed: %v", err)
	}
	if !w.Metadata().IsZero() {
		t.Errorf("Metadata() = %+v, want zero value", w.Metadata())
	}
	if w.Len() != 0 {
		t.Errorf("Len() = %d, want 0", w.Len())
	}
	assertAbsent(t, fs, "/fresh/file.txt")

	if _, err := w.WriteString("created"); err != nil {
		t.Fatalf("WriteString() failed: %v", err)
	}
	w.SetMetadata(metaB)
	if _, err := w.Commit(ctx); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}

	e := mustEntry(t, fs, "/fresh/file.txt")
	if e.Metadata != metaB || e.Contents.String() != "created" {
		t.Errorf("ReadEntry() = %+v, want (%+v, created)", e, metaB)
	}
}

// testWriterSeeded verifies a writer starts from the current entry.
func testWriterSeeded(t *testing.T, factory StoreFactory) {
	fs := factory(t)
	insert(t, fs, "/log", metaA, "line1\n")

	w, err := gfs.EntryWriter[attr.Attr](t.Context(), fs, "/log")
	if err != nil {
		t.Fatalf("EntryWriter() failed: %v", err)
	}
	if w.Metadata() != metaA {
		t.Errorf("Metadata() = %+v, want %+v", w.Metadata(), metaA)
	}
	if string(w.Bytes()) != "line1\n" {
		t.Errorf("Bytes() = %q, want %q", w.Bytes(), "line1\n")
	}

	if _, err := w.WriteString("line2\n"); err != nil {
		t.Fatalf("WriteString() failed: %v", err)
	}
	if _, err := w.Commit(t.Context()); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	e := mustEntry(t, fs, "/log")
	if e.Contents.String() != "line1\nline2\n" {
		t.Errorf("content = %q, want appended lines", e.Contents.String())
	}
}

// testWriterUnmodifiedCommit verifies committing an untouched writer leaves
// the entry unchanged.
func testWriterUnmodifiedCommit(t *testing.T, factory StoreFactory) {
	fs := factory(t)
	insert(t, fs, "/same", metaB, "payload")
	before := mustEntry(t, fs, "/same")

	w, err := gfs.EntryWriter[attr.Attr](t.Context(), fs, "/same")
	if err != nil {
		t.Fatalf("EntryWriter() failed: %v", err)
	}
	if _, err := w.Commit(t.Context()); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	after := mustEntry(t, fs, "/same")
	if !after.Equal(before) {
		t.Errorf("entry changed: before %+v, after %+v", before, after)
	}
}

// testWriterUnmodifiedNewEntry verifies committing an untouched writer for
// an absent path publishes default metadata and empty content.
func testWriterUnmodifiedNewEntry(t *testing.T, factory StoreFactory) {
	fs := factory(t)

	w, err := gfs.EntryWriter[attr.Attr](t.Context(), fs, "/new/blank")
	if err != nil {
		t.Fatalf("EntryWriter() failed: %v", err)
	}
	if _, err := w.Commit(t.Context()); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	e := mustEntry(t, fs, "/new/blank")
	if !e.Metadata.IsZero() {
		t.Errorf("metadata = %+v, want zero value", e.Metadata)
	}
	if e.Contents.Len() != 0 {
		t.Errorf("content length = %d, want 0", e.Contents.Len())
	}
}

// testWriterNoEffectBeforeCommit verifies staged edits stay private.
func testWriterNoEffectBeforeCommit(t *testing.T, factory StoreFactory) {
	fs := factory(t)
	insert(t, fs, "/doc", metaA, "abc")

	w, err := gfs.EntryWriter[attr.Attr](t.Context(), fs, "/doc")
	if err != nil {
		t.Fatalf("EntryWriter() failed: %v", err)
	}
	if _, err := w.WriteAt([]byte("X"), 0); err != nil {
		t.Fatalf("WriteAt() failed: %v", err)
	}
	if err := w.Truncate(2); err != nil {
		t.Fatalf("Truncate() failed: %v", err)
	}
	w.SetMetadata(metaB)

	e := mustEntry(t, fs, "/doc")
	if e.Metadata != metaA || e.Contents.String() != "abc" {
		t.Errorf("ReadEntry() before commit = %+v, want (%+v, abc)", e, metaA)
	}
	if string(w.Bytes()) != "Xb" {
		t.Errorf("Bytes() = %q, want Xb", w.Bytes())
	}
}

// testWriterCommittedIsolated verifies edits after Commit do not leak into
// the published entry.
func testWriterCommittedIsolated(t *testing.T, factory StoreFactory) {
	fs := factory(t)

	w, err := gfs.EntryWriter[attr.Attr](t.Context(), fs, "/iso")
	if err != nil {
		t.Fatalf("EntryWriter() failed: %v", err)
	}
	if _, err := w.WriteString("v1"); err != nil {
		t.Fatalf("WriteString() failed: %v", err)
	}
	if _, err := w.Commit(t.Context()); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	if _, err := w.WriteAt([]byte("ZZ"), 0); err != nil {
		t.Fatalf("WriteAt() failed: %v", err)
	}

	e := mustEntry(t, fs, "/iso")
	if e.Contents.String() != "v1" {
		t.Errorf("content = %q, want v1", e.Contents.String())
	}
}
