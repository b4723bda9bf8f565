package relational

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/gfs/pkg/attr"
	"github.com/marmos91/gfs/pkg/gfs"
	"github.com/marmos91/gfs/pkg/gfs/storetest"
)

func newSQLiteStore(t *testing.T, mutate func(*Config)) *Store[attr.Attr] {
	t.Helper()

	cfg := Config{
		Type:   DatabaseTypeSQLite,
		SQLite: SQLiteConfig{Path: filepath.Join(t.TempDir(), "gfs.db")},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	store, err := New[attr.Attr](t.Context(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestConformance(t *testing.T) {
	storetest.RunConformanceSuite(t, func(t *testing.T) gfs.Filesystem[attr.Attr] {
		return newSQLiteStore(t, nil)
	})
}

func TestConformanceXDR(t *testing.T) {
	storetest.RunConformanceSuite(t, func(t *testing.T) gfs.Filesystem[attr.Attr] {
		return newSQLiteStore(t, func(c *Config) { c.Codec = "xdr" })
	})
}

func TestSnapshotIsolation(t *testing.T) {
	ctx := t.Context()
	store := newSQLiteStore(t, nil)

	_, err := store.InsertEntry(ctx, "/a", attr.Attr{Mode: 0o644}, gfs.ContentString("before"))
	require.NoError(t, err)

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	defer snap.Close()

	_, err = store.InsertEntry(ctx, "/a", attr.Attr{Mode: 0o600}, gfs.ContentString("after"))
	require.NoError(t, err)
	_, err = store.InsertEntry(ctx, "/b/c", attr.Attr{}, gfs.ContentString("c"))
	require.NoError(t, err)

	e, ok, err := gfs.ReadEntry[attr.Attr](ctx, snap, "/a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "before", e.Contents.String())

	children, err := gfs.ReadRoot[attr.Attr](ctx, snap)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "/a", children[0].Path())

	require.NoError(t, snap.Close())
	_, _, err = snap.ReadData(ctx, "/a")
	assert.True(t, gfs.IsClosedError(err))
}

func TestListingIsCaseSensitive(t *testing.T) {
	ctx := t.Context()
	store := newSQLiteStore(t, nil)

	_, err := store.InsertEntry(ctx, "/Docs/a", attr.Attr{}, gfs.ContentString("A"))
	require.NoError(t, err)
	_, err = store.InsertEntry(ctx, "/docs/b", attr.Attr{}, gfs.ContentString("b"))
	require.NoError(t, err)

	children, err := store.ReadDir(ctx, "/docs")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "/docs/b", children[0].Path())
}

func TestRenameRejectPolicy(t *testing.T) {
	ctx := t.Context()
	store := newSQLiteStore(t, func(c *Config) { c.RenamePolicy = gfs.RenameReject })

	_, err := store.InsertEntry(ctx, "/src", attr.Attr{}, gfs.ContentString("s"))
	require.NoError(t, err)
	_, err = store.InsertEntry(ctx, "/dst", attr.Attr{}, gfs.ContentString("d"))
	require.NoError(t, err)

	assert.True(t, gfs.IsAlreadyExistsError(store.RenameEntry(ctx, "/src", "/dst")))
	require.NoError(t, store.RenameEntry(ctx, "/src", "/free"))
}

func TestEmptyContentRoundTrip(t *testing.T) {
	ctx := t.Context()
	store := newSQLiteStore(t, nil)

	_, err := store.InsertEntry(ctx, "/empty", attr.Attr{}, gfs.Content{})
	require.NoError(t, err)

	data, ok, err := store.ReadData(ctx, "/empty")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, data.Len())
}

func TestReopenKeepsEntries(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "gfs.db")
	cfg := Config{SQLite: SQLiteConfig{Path: path}}

	store, err := New[attr.Attr](ctx, cfg)
	require.NoError(t, err)
	_, err = store.InsertEntry(ctx, "/keep", attr.Attr{UID: 7}, gfs.ContentString("kept"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = New[attr.Attr](ctx, cfg)
	require.NoError(t, err)
	defer store.Close()

	e, ok, err := gfs.ReadEntry[attr.Attr](ctx, store, "/keep")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(7), e.Metadata.UID)
	assert.Equal(t, "kept", e.Contents.String())
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	assert.Equal(t, DatabaseTypeSQLite, cfg.Type)
	assert.Error(t, cfg.Validate())

	cfg = Config{Type: DatabaseTypePostgres, Postgres: PostgresConfig{Host: "db", Database: "gfs", User: "u"}}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "host=db port=5432 user=u password= dbname=gfs sslmode=disable", cfg.Postgres.DSN())

	cfg = Config{Type: "oracle"}
	assert.Error(t, cfg.Validate())
}

func TestClosedStore(t *testing.T) {
	ctx := t.Context()
	store := newSQLiteStore(t, nil)
	require.NoError(t, store.Close())

	_, _, err := store.ReadMeta(ctx, "/a")
	assert.True(t, gfs.IsClosedError(err))
	assert.True(t, gfs.IsClosedError(store.Healthcheck(ctx)))
}
