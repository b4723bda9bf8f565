package storetest

import (
	"slices"
	"testing"

	"github.com/marmos91/gfs/pkg/attr"
	"github.com/marmos91/gfs/pkg/gfs"
)

// runMutateTests runs all mutation conformance tests.
func runMutateTests(t *testing.T, factory StoreFactory) {
	t.Run("InsertReplaces", func(t *testing.T) { testInsertReplaces(t, factory) })
	t.Run("InsertAtRoot", func(t *testing.T) { testInsertAtRoot(t, factory) })
	t.Run("DropEntry", func(t *testing.T) { testDropEntry(t, factory) })
	t.Run("DropMissing", func(t *testing.T) { testDropMissing(t, factory) })
	t.Run("RemoveEntry", func(t *testing.T) { testRemoveEntry(t, factory) })
	t.Run("Rename", func(t *testing.T) { testRename(t, factory) })
	t.Run("RenameMissing", func(t *testing.T) { testRenameMissing(t, factory) })
	t.Run("RenameOntoSelf", func(t *testing.T) { testRenameOntoSelf(t, factory) })
	t.Run("RenameOverwrites", func(t *testing.T) { testRenameOverwrites(t, factory) })
	t.Run("RenameToRoot", func(t *testing.T) { testRenameToRoot(t, factory) })
	t.Run("RenameLeavesDescendants", func(t *testing.T) { testRenameLeavesDescendants(t, factory) })
	t.Run("EntryWithDescendants", func(t *testing.T) { testEntryWithDescendants(t, factory) })
}

// testInsertReplaces verifies a second insert is last-writer-wins.
func testInsertReplaces(t *testing.T, factory StoreFactory) {
	fs := factory(t)
	insert(t, fs, "/f", metaA, "first")
	insert(t, fs, "/f", metaB, "second")

	e := mustEntry(t, fs, "/f")
	if e.Metadata != metaB || e.Contents.String() != "second" {
		t.Errorf("ReadEntry() = %+v, want (%+v, second)", e, metaB)
	}
	if got := listNames(t, fs, "/"); !slices.Equal(got, []string{"f"}) {
		t.Errorf("ReadDir(/) = %v, want [f]", got)
	}
}

// testInsertAtRoot verifies the root cannot hold an entry.
func testInsertAtRoot(t *testing.T, factory StoreFactory) {
	fs := factory(t)

	for _, p := range []string{"/", "", "/.."} {
		_, err := fs.InsertEntry(t.Context(), p, metaA, gfs.ContentString("x"))
		if !gfs.IsInvalidArgumentError(err) {
			t.Errorf("InsertEntry(%q) error = %v, want InvalidArgument", p, err)
		}
	}
}

// testDropEntry verifies drop returns the prior value and removes it.
func testDropEntry(t *testing.T, factory StoreFactory) {
	fs := factory(t)
	insert(t, fs, "/dir/x", metaA, "payload")
	insert(t, fs, "/dir/y", metaB, "other")

	dropped, err := fs.DropEntry(t.Context(), "/dir/x")
	if err != nil {
		t.Fatalf("DropEntry() failed: %v", err)
	}
	if dropped.Metadata != metaA || dropped.Contents.String() != "payload" {
		t.Errorf("DropEntry() returned %+v, want (%+v, payload)", dropped, metaA)
	}

	assertAbsent(t, fs, "/dir/x")
	if got := listNames(t, fs, "/dir"); !slices.Equal(got, []string{"y"}) {
		t.Errorf("ReadDir(/dir) = %v, want [y]", got)
	}
}

// testDropMissing verifies dropping an absent path fails and changes nothing.
func testDropMissing(t *testing.T, factory StoreFactory) {
	fs := factory(t)
	insert(t, fs, "/keep", metaA, "k")

	_, err := fs.DropEntry(t.Context(), "/nope")
	if !gfs.IsNotFoundError(err) {
		t.Errorf("DropEntry(/nope) error = %v, want NotFound", err)
	}
	if got := listNames(t, fs, "/"); !slices.Equal(got, []string{"keep"}) {
		t.Errorf("ReadDir(/) = %v, want [keep]", got)
	}
}

// testRemoveEntry verifies the derived remove discards the entry.
func testRemoveEntry(t *testing.T, factory StoreFactory) {
	fs := factory(t)
	insert(t, fs, "/gone", metaA, "g")

	if err := gfs.RemoveEntry[attr.Attr](t.Context(), fs, "/gone"); err != nil {
		t.Fatalf("RemoveEntry() failed: %v", err)
	}
	assertAbsent(t, fs, "/gone")

	if err := gfs.RemoveEntry[attr.Attr](t.Context(), fs, "/gone"); !gfs.IsNotFoundError(err) {
		t.Errorf("second RemoveEntry() error = %v, want NotFound", err)
	}
}

// testRename walks the canonical scenario: insert, list, rename, re-read.
func testRename(t *testing.T, factory StoreFactory) {
	fs := factory(t)
	insert(t, fs, "/a/b.txt", metaA, "hi")

	if got := listNames(t, fs, "/a"); !slices.Equal(got, []string{"b.txt"}) {
		t.Fatalf("ReadDir(/a) = %v, want [b.txt]", got)
	}

	if err := fs.RenameEntry(t.Context(), "/a/b.txt", "/a/c.txt"); err != nil {
		t.Fatalf("RenameEntry() failed: %v", err)
	}

	assertAbsent(t, fs, "/a/b.txt")
	e := mustEntry(t, fs, "/a/c.txt")
	if e.Metadata != metaA || e.Contents.String() != "hi" {
		t.Errorf("ReadEntry(/a/c.txt) = %+v, want (%+v, hi)", e, metaA)
	}
	if got := listNames(t, fs, "/a"); !slices.Equal(got, []string{"c.txt"}) {
		t.Errorf("ReadDir(/a) = %v, want [c.txt]", got)
	}
}

// testRenameMissing verifies renaming an absent path fails without effect.
func testRenameMissing(t *testing.T, factory StoreFactory) {
	fs := factory(t)
	insert(t, fs, "/target", metaA, "t")

	err := fs.RenameEntry(t.Context(), "/missing", "/target")
	if !gfs.IsNotFoundError(err) {
		t.Errorf("RenameEntry(/missing) error = %v, want NotFound", err)
	}
	e := mustEntry(t, fs, "/target")
	if e.Contents.String() != "t" {
		t.Errorf("target content = %q, want t", e.Contents.String())
	}
}

// testRenameOntoSelf verifies a rename to the same path is a no-op.
func testRenameOntoSelf(t *testing.T, factory StoreFactory) {
	fs := factory(t)
	insert(t, fs, "/same", metaA, "s")

	if err := fs.RenameEntry(t.Context(), "/same", "//same/."); err != nil {
		t.Fatalf("RenameEntry() onto itself failed: %v", err)
	}
	e := mustEntry(t, fs, "/same")
	if e.Contents.String() != "s" {
		t.Errorf("content = %q, want s", e.Contents.String())
	}
}

// testRenameOverwrites verifies the default policy replaces the destination.
func testRenameOverwrites(t *testing.T, factory StoreFactory) {
	fs := factory(t)
	insert(t, fs, "/src", metaA, "new")
	insert(t, fs, "/dst", metaB, "old")

	if err := fs.RenameEntry(t.Context(), "/src", "/dst"); err != nil {
		t.Fatalf("RenameEntry() failed: %v", err)
	}
	assertAbsent(t, fs, "/src")
	e := mustEntry(t, fs, "/dst")
	if e.Metadata != metaA || e.Contents.String() != "new" {
		t.Errorf("ReadEntry(/dst) = %+v, want (%+v, new)", e, metaA)
	}
}

// testRenameToRoot verifies the root is rejected as a rename target.
func testRenameToRoot(t *testing.T, factory StoreFactory) {
	fs := factory(t)
	insert(t, fs, "/x", metaA, "x")

	if err := fs.RenameEntry(t.Context(), "/x", "/"); !gfs.IsInvalidArgumentError(err) {
		t.Errorf("RenameEntry(/x, /) error = %v, want InvalidArgument", err)
	}
	mustEntry(t, fs, "/x")
}

// testRenameLeavesDescendants verifies only the named entry moves.
func testRenameLeavesDescendants(t *testing.T, factory StoreFactory) {
	fs := factory(t)
	insert(t, fs, "/p", metaA, "parent")
	insert(t, fs, "/p/child", metaB, "child")

	if err := fs.RenameEntry(t.Context(), "/p", "/q"); err != nil {
		t.Fatalf("RenameEntry() failed: %v", err)
	}
	mustEntry(t, fs, "/q")
	assertAbsent(t, fs, "/p")
	e := mustEntry(t, fs, "/p/child")
	if e.Contents.String() != "child" {
		t.Errorf("child content = %q, want child", e.Contents.String())
	}
	if got := listNames(t, fs, "/"); !slices.Equal(got, []string{"p", "q"}) {
		t.Errorf("ReadDir(/) = %v, want [p q]", got)
	}
}

// testEntryWithDescendants verifies a path may hold an entry and children.
func testEntryWithDescendants(t *testing.T, factory StoreFactory) {
	fs := factory(t)
	insert(t, fs, "/n", metaA, "node")
	insert(t, fs, "/n/leaf", metaB, "leaf")

	if got := listNames(t, fs, "/n"); !slices.Equal(got, []string{"leaf"}) {
		t.Errorf("ReadDir(/n) = %v, want [leaf]", got)
	}
	if _, err := fs.DropEntry(t.Context(), "/n"); err != nil {
		t.Fatalf("DropEntry(/n) failed: %v", err)
	}
	mustEntry(t, fs, "/n/leaf")
}
