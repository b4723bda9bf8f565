package storetest

import (
	"io"
	"slices"
	"testing"

	"github.com/marmos91/gfs/pkg/attr"
	"github.com/marmos91/gfs/pkg/gfs"
)

// runReadTests runs all read-side conformance tests.
func runReadTests(t *testing.T, factory StoreFactory) {
	t.Run("EmptyStore", func(t *testing.T) { testEmptyStore(t, factory) })
	t.Run("InsertThenRead", func(t *testing.T) { testInsertThenRead(t, factory) })
	t.Run("EntryReader", func(t *testing.T) { testEntryReader(t, factory) })
	t.Run("EmptyContent", func(t *testing.T) { testEmptyContent(t, factory) })
	t.Run("ZeroContent", func(t *testing.T) { testZeroContent(t, factory) })
	t.Run("ReadDir", func(t *testing.T) { testReadDir(t, factory) })
	t.Run("ReadDirMissing", func(t *testing.T) { testReadDirMissing(t, factory) })
	t.Run("ReadDirChildPaths", func(t *testing.T) { testReadDirChildPaths(t, factory) })
	t.Run("NormalizedAccess", func(t *testing.T) { testNormalizedAccess(t, factory) })
	t.Run("CreatePath", func(t *testing.T) { testCreatePath(t, factory) })
	t.Run("Glob", func(t *testing.T) { testGlob(t, factory) })
}

// testEmptyStore verifies a fresh store reports nothing.
func testEmptyStore(t *testing.T, factory StoreFactory) {
	fs := factory(t)

	children, err := gfs.ReadRoot[attr.Attr](t.Context(), fs)
	if err != nil {
		t.Fatalf("ReadRoot() failed: %v", err)
	}
	if len(children) != 0 {
		t.Errorf("ReadRoot() returned %d children, want 0", len(children))
	}
	assertAbsent(t, fs, "/never/inserted.txt")
}

// testInsertThenRead verifies every read path returns what was inserted.
func testInsertThenRead(t *testing.T, factory StoreFactory) {
	fs := factory(t)
	ctx := t.Context()

	stored, err := fs.InsertEntry(ctx, "/docs/readme.md", metaA, gfs.ContentString("hello"))
	if err != nil {
		t.Fatalf("InsertEntry() failed: %v", err)
	}
	if stored.Metadata != metaA || stored.Contents.String() != "hello" {
		t.Errorf("InsertEntry() returned %+v, want (%+v, hello)", stored, metaA)
	}

	meta, ok, err := fs.ReadMeta(ctx, "/docs/readme.md")
	if err != nil || !ok {
		t.Fatalf("ReadMeta() = (ok=%v, err=%v)", ok, err)
	}
	if meta != metaA {
		t.Errorf("ReadMeta() = %+v, want %+v", meta, metaA)
	}

	data, ok, err := fs.ReadData(ctx, "/docs/readme.md")
	if err != nil || !ok {
		t.Fatalf("ReadData() = (ok=%v, err=%v)", ok, err)
	}
	if data.String() != "hello" {
		t.Errorf("ReadData() = %q, want %q", data.String(), "hello")
	}

	e := mustEntry(t, fs, "/docs/readme.md")
	if !e.Equal(stored) {
		t.Errorf("ReadEntry() = %+v, want %+v", e, stored)
	}
}

// testEntryReader verifies the read-only view exposes metadata and bytes.
func testEntryReader(t *testing.T, factory StoreFactory) {
	fs := factory(t)
	insert(t, fs, "/r.bin", metaB, "0123456789")

	r, ok, err := gfs.EntryReader[attr.Attr](t.Context(), fs, "/r.bin")
	if err != nil || !ok {
		t.Fatalf("EntryReader() = (ok=%v, err=%v)", ok, err)
	}
	if r.Metadata() != metaB {
		t.Errorf("Metadata() = %+v, want %+v", r.Metadata(), metaB)
	}
	if r.Size() != 10 {
		t.Errorf("Size() = %d, want 10", r.Size())
	}

	buf := make([]byte, 3)
	if _, err := r.ReadAt(buf, 4); err != nil {
		t.Fatalf("ReadAt() failed: %v", err)
	}
	if string(buf) != "456" {
		t.Errorf("ReadAt() = %q, want %q", buf, "456")
	}

	all, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() failed: %v", err)
	}
	if string(all) != "0123456789" {
		t.Errorf("ReadAll() = %q", all)
	}

	if _, ok, err := gfs.EntryReader[attr.Attr](t.Context(), fs, "/missing"); err != nil || ok {
		t.Errorf("EntryReader(missing) = (ok=%v, err=%v), want absent", ok, err)
	}
}

// testEmptyContent verifies an entry with no bytes is still present.
func testEmptyContent(t *testing.T, factory StoreFactory) {
	fs := factory(t)
	insert(t, fs, "/empty", metaA, "")

	e := mustEntry(t, fs, "/empty")
	if e.Contents.Len() != 0 {
		t.Errorf("content length = %d, want 0", e.Contents.Len())
	}
	if e.Metadata != metaA {
		t.Errorf("metadata = %+v, want %+v", e.Metadata, metaA)
	}
}

// testZeroContent verifies the zero Content and a Content built from nil
// store as present, empty entries.
func testZeroContent(t *testing.T, factory StoreFactory) {
	fs := factory(t)
	ctx := t.Context()

	for p, data := range map[string]gfs.Content{
		"/zero":    {},
		"/fromnil": gfs.NewContent(nil),
	} {
		if _, err := fs.InsertEntry(ctx, p, metaA, data); err != nil {
			t.Fatalf("InsertEntry(%s) failed: %v", p, err)
		}
		e := mustEntry(t, fs, p)
		if e.Contents.Len() != 0 {
			t.Errorf("%s content length = %d, want 0", p, e.Contents.Len())
		}
		if e.Metadata != metaA {
			t.Errorf("%s metadata = %+v, want %+v", p, e.Metadata, metaA)
		}
	}
}

// testReadDir verifies listings contain immediate children only, sorted,
// including implicit directories.
func testReadDir(t *testing.T, factory StoreFactory) {
	fs := factory(t)
	insert(t, fs, "/a/b.txt", metaA, "b")
	insert(t, fs, "/a/c/d.txt", metaA, "d")
	insert(t, fs, "/a/c/e.txt", metaA, "e")
	insert(t, fs, "/z.txt", metaA, "z")
	insert(t, fs, "/ab", metaA, "ab")

	if got, want := listNames(t, fs, "/"), []string{"a", "ab", "z.txt"}; !slices.Equal(got, want) {
		t.Errorf("ReadDir(/) = %v, want %v", got, want)
	}
	if got, want := listNames(t, fs, "/a"), []string{"b.txt", "c"}; !slices.Equal(got, want) {
		t.Errorf("ReadDir(/a) = %v, want %v", got, want)
	}
	if got, want := listNames(t, fs, "/a/c"), []string{"d.txt", "e.txt"}; !slices.Equal(got, want) {
		t.Errorf("ReadDir(/a/c) = %v, want %v", got, want)
	}
	if got := listNames(t, fs, "/z.txt"); len(got) != 0 {
		t.Errorf("ReadDir(/z.txt) = %v, want empty", got)
	}
}

// testReadDirMissing verifies a missing directory lists as empty.
func testReadDirMissing(t *testing.T, factory StoreFactory) {
	fs := factory(t)
	insert(t, fs, "/present/file", metaA, "x")

	if got := listNames(t, fs, "/absent"); len(got) != 0 {
		t.Errorf("ReadDir(/absent) = %v, want empty", got)
	}
	if got := listNames(t, fs, "/pres"); len(got) != 0 {
		t.Errorf("ReadDir(/pres) = %v, want empty", got)
	}
}

// testReadDirChildPaths verifies listed paths can be fed back into reads.
func testReadDirChildPaths(t *testing.T, factory StoreFactory) {
	fs := factory(t)
	insert(t, fs, "/dir/one", metaA, "1")

	children, err := fs.ReadDir(t.Context(), "/dir")
	if err != nil {
		t.Fatalf("ReadDir() failed: %v", err)
	}
	if len(children) != 1 {
		t.Fatalf("ReadDir() returned %d children, want 1", len(children))
	}
	if children[0].Path() != "/dir/one" {
		t.Errorf("child Path() = %q, want /dir/one", children[0].Path())
	}
	e := mustEntry(t, fs, children[0].Path())
	if e.Contents.String() != "1" {
		t.Errorf("child content = %q, want 1", e.Contents.String())
	}
}

// testNormalizedAccess verifies equivalent spellings address one entry.
func testNormalizedAccess(t *testing.T, factory StoreFactory) {
	fs := factory(t)
	insert(t, fs, "a//b/./c.txt", metaA, "c")

	for _, p := range []string{"/a/b/c.txt", "a/b/c.txt", "/a/x/../b/c.txt", "/../a/b/c.txt/"} {
		e := mustEntry(t, fs, p)
		if e.Contents.String() != "c" {
			t.Errorf("ReadEntry(%q) content = %q, want c", p, e.Contents.String())
		}
	}
}

// testCreatePath verifies owned paths are rooted and clamped.
func testCreatePath(t *testing.T, factory StoreFactory) {
	fs := factory(t)

	p := gfs.CreatePath[attr.Attr](fs, "../../x/./y")
	if p.Path() != "/x/y" {
		t.Errorf("CreatePath().Path() = %q, want /x/y", p.Path())
	}
	if p.Parent().Path() != "/x" {
		t.Errorf("Parent().Path() = %q, want /x", p.Parent().Path())
	}
	if !gfs.CreatePath[attr.Attr](fs, "/").IsRoot() {
		t.Error("CreatePath(/) is not the root")
	}
}

// testGlob verifies pattern matching over the namespace.
func testGlob(t *testing.T, factory StoreFactory) {
	fs := factory(t)
	insert(t, fs, "/src/main.go", metaA, "")
	insert(t, fs, "/src/pkg/util.go", metaA, "")
	insert(t, fs, "/src/pkg/util.txt", metaA, "")
	insert(t, fs, "/README.md", metaA, "")

	matches, err := gfs.Glob[attr.Attr](t.Context(), fs, "**/*.go")
	if err != nil {
		t.Fatalf("Glob() failed: %v", err)
	}
	got := make([]string, 0, len(matches))
	for _, m := range matches {
		got = append(got, m.Path())
	}
	if want := []string{"/src/main.go", "/src/pkg/util.go"}; !slices.Equal(got, want) {
		t.Errorf("Glob(**/*.go) = %v, want %v", got, want)
	}
}
