// Package storetest provides a conformance test suite for gfs filesystem
// implementations.
//
// Every store backend (memory, badger, postgres, relational, s3) should pass
// these tests. The suite checks the Snapshot and Filesystem behavioral
// contract: absence semantics, directory listings, insert/drop/rename state
// transitions and the copy-on-write writer.
//
// Usage:
//
//	func TestConformance(t *testing.T) {
//	    storetest.RunConformanceSuite(t, func(t *testing.T) gfs.Filesystem[attr.Attr] {
//	        return memory.NewWithDefaults[attr.Attr]()
//	    })
//	}
//
// The factory receives *testing.T so it can call t.TempDir() for stores
// that need filesystem paths and t.Cleanup for teardown.
package storetest
