package storetest

import (
	"testing"

	"github.com/marmos91/gfs/pkg/attr"
	"github.com/marmos91/gfs/pkg/gfs"
)

// StoreFactory creates a fresh, empty filesystem for each test. Stores must
// use the default rename policy (overwrite).
type StoreFactory func(t *testing.T) gfs.Filesystem[attr.Attr]

// RunConformanceSuite runs the full conformance suite against the provided
// factory. Each test gets a fresh store instance.
//
// The suite covers three categories:
//   - Read: absence, entry reads, listings, normalization
//   - Mutate: insert, drop, rename and remove transitions
//   - Writer: seeding, commit and buffer isolation
func RunConformanceSuite(t *testing.T, factory StoreFactory) {
	t.Helper()

	t.Run("Read", func(t *testing.T) {
		runReadTests(t, factory)
	})

	t.Run("Mutate", func(t *testing.T) {
		runMutateTests(t, factory)
	})

	t.Run("Writer", func(t *testing.T) {
		runWriterTests(t, factory)
	})
}

var (
	metaA = attr.Attr{Mode: 0o644, UID: 1000, GID: 1000, ModTime: 1_700_000_000_000_000_000}
	metaB = attr.Attr{Mode: 0o600, UID: 0, GID: 0, ModTime: 1_700_000_100_000_000_000, ContentType: "text/plain"}
)

// insert is a helper that inserts an entry and fails the test on error.
func insert(t *testing.T, fs gfs.Filesystem[attr.Attr], p string, meta attr.Attr, data string) {
	t.Helper()

	if _, err := fs.InsertEntry(t.Context(), p, meta, gfs.ContentString(data)); err != nil {
		t.Fatalf("InsertEntry(%q) failed: %v", p, err)
	}
}

// mustEntry reads the entry at p and fails the test if it is absent.
func mustEntry(t *testing.T, s gfs.Snapshot[attr.Attr], p string) gfs.Entry[attr.Attr] {
	t.Helper()

	e, ok, err := gfs.ReadEntry[attr.Attr](t.Context(), s, p)
	if err != nil {
		t.Fatalf("ReadEntry(%q) failed: %v", p, err)
	}
	if !ok {
		t.Fatalf("ReadEntry(%q): entry absent", p)
	}
	return e
}

// assertAbsent checks that neither metadata nor content exist at p.
func assertAbsent(t *testing.T, s gfs.Snapshot[attr.Attr], p string) {
	t.Helper()

	ctx := t.Context()
	if _, ok, err := s.ReadMeta(ctx, p); err != nil || ok {
		t.Errorf("ReadMeta(%q) = (ok=%v, err=%v), want absent", p, ok, err)
	}
	if _, ok, err := s.ReadData(ctx, p); err != nil || ok {
		t.Errorf("ReadData(%q) = (ok=%v, err=%v), want absent", p, ok, err)
	}
	if _, ok, err := gfs.ReadEntry[attr.Attr](ctx, s, p); err != nil || ok {
		t.Errorf("ReadEntry(%q) = (ok=%v, err=%v), want absent", p, ok, err)
	}
}

// listNames returns the base names ReadDir reports for p.
func listNames(t *testing.T, s gfs.Snapshot[attr.Attr], p string) []string {
	t.Helper()

	children, err := s.ReadDir(t.Context(), p)
	if err != nil {
		t.Fatalf("ReadDir(%q) failed: %v", p, err)
	}
	names := make([]string, 0, len(children))
	for _, c := range children {
		names = append(names, c.Base())
	}
	return names
}
