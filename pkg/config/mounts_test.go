package config

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/gfs/pkg/api"
	"github.com/marmos91/gfs/pkg/attr"
	"github.com/marmos91/gfs/pkg/gfs"
)

func TestOpenMount_Memory(t *testing.T) {
	ctx := context.Background()
	m, err := OpenMount(ctx, MountConfig{Name: "scratch", Type: StoreTypeMemory, Root: "/srv"}, nil)
	require.NoError(t, err)
	defer func() { _ = m.FS.(interface{ Close() error }).Close() }()

	assert.Equal(t, "scratch", m.Name)
	assert.Equal(t, StoreTypeMemory, m.StoreType)
	assert.Equal(t, "/srv", m.FS.Root().String())

	_, err = m.FS.InsertEntry(ctx, "/a", attr.Attr{}, gfs.ContentString("x"))
	require.NoError(t, err)
}

func TestOpenMount_ReadOnly(t *testing.T) {
	ctx := context.Background()
	m, err := OpenMount(ctx, MountConfig{Name: "ro", Type: StoreTypeMemory, ReadOnly: true}, nil)
	require.NoError(t, err)

	assert.True(t, m.ReadOnly)
	_, err = m.FS.InsertEntry(ctx, "/a", attr.Attr{}, gfs.ContentString("x"))
	assert.True(t, gfs.IsReadOnlyError(err))
}

func TestOpenMount_BadgerOptions(t *testing.T) {
	ctx := context.Background()
	m, err := OpenMount(ctx, MountConfig{
		Name:         "db",
		Type:         StoreTypeBadger,
		RenamePolicy: "reject",
		Codec:        "cbor",
		Options: map[string]any{
			"path":                  filepath.Join(t.TempDir(), "db"),
			"compression":           "zstd",
			"compression_threshold": "1Ki",
		},
	}, nil)
	require.NoError(t, err)
	defer func() { _ = m.FS.(interface{ Close() error }).Close() }()

	_, err = m.FS.InsertEntry(ctx, "/a", attr.Attr{}, gfs.ContentString("a"))
	require.NoError(t, err)
	_, err = m.FS.InsertEntry(ctx, "/b", attr.Attr{}, gfs.ContentString("b"))
	require.NoError(t, err)

	err = m.FS.RenameEntry(ctx, "/a", "/b")
	assert.True(t, gfs.IsAlreadyExistsError(err), "rename policy from the mount must reach the store")
}

func TestOpenMount_RelationalSQLite(t *testing.T) {
	ctx := context.Background()
	m, err := OpenMount(ctx, MountConfig{
		Name:  "sql",
		Type:  StoreTypeRelational,
		Codec: "json",
		Options: map[string]any{
			"type":   "sqlite",
			"sqlite": map[string]any{"path": filepath.Join(t.TempDir(), "gfs.db")},
		},
	}, nil)
	require.NoError(t, err)
	defer func() { _ = m.FS.(interface{ Close() error }).Close() }()

	_, err = m.FS.InsertEntry(ctx, "/dir/file", attr.Attr{Mode: 0o600}, gfs.ContentString("hi"))
	require.NoError(t, err)

	meta, ok, err := m.FS.ReadMeta(ctx, "/dir/file")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(0o600), meta.Mode)
}

func TestOpenMount_Remote(t *testing.T) {
	ctx := context.Background()

	served, err := InitializeRegistry(ctx, &Config{
		DefaultMount: "shared",
		Mounts:       []MountConfig{{Name: "shared", Type: StoreTypeMemory}},
	})
	require.NoError(t, err)
	srv := httptest.NewServer(api.NewRouter(api.APIConfig{}, served, nil))
	t.Cleanup(func() {
		srv.Close()
		_ = served.Close()
	})

	m, err := OpenMount(ctx, MountConfig{
		Name: "far",
		Type: StoreTypeRemote,
		Options: map[string]any{
			"url":     srv.URL,
			"mount":   "shared",
			"timeout": "5s",
		},
	}, nil)
	require.NoError(t, err)
	defer func() { _ = m.FS.(interface{ Close() error }).Close() }()

	_, err = m.FS.InsertEntry(ctx, "/hello.txt", attr.Attr{Mode: 0o600}, gfs.ContentString("hi"))
	require.NoError(t, err)

	local, err := served.GetMount("shared")
	require.NoError(t, err)
	e, found, err := gfs.ReadEntry[attr.Attr](ctx, local.FS, "/hello.txt")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "hi", e.Contents.String())
	assert.Equal(t, uint32(0o600), e.Metadata.Mode)
}

func TestOpenMount_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		mc   MountConfig
	}{
		{name: "unknown type", mc: MountConfig{Name: "x", Type: "floppy"}},
		{name: "unknown option", mc: MountConfig{Name: "x", Type: StoreTypeMemory, Options: map[string]any{"colour": "red"}}},
		{name: "bad rename policy", mc: MountConfig{Name: "x", Type: StoreTypeMemory, RenamePolicy: "merge"}},
		{name: "badger without path", mc: MountConfig{Name: "x", Type: StoreTypeBadger}},
		{name: "s3 without bucket", mc: MountConfig{Name: "x", Type: StoreTypeS3}},
		{name: "postgres without host", mc: MountConfig{Name: "x", Type: StoreTypePostgres}},
		{name: "remote without url", mc: MountConfig{Name: "x", Type: StoreTypeRemote}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenMount(ctx, tt.mc, nil)
			assert.Error(t, err)
		})
	}
}

func TestInitializeRegistry(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{
		Mounts: []MountConfig{
			{Name: "a", Type: StoreTypeMemory},
			{Name: "b", Type: StoreTypeMemory, ReadOnly: true},
		},
		DefaultMount: "b",
	}
	ApplyDefaults(cfg)

	reg, err := InitializeRegistry(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = reg.Close() }()

	assert.Equal(t, []string{"a", "b"}, reg.ListMounts())
	m, err := reg.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "b", m.Name)
	assert.True(t, m.ReadOnly)
}

func TestInitializeRegistry_ClosesOnFailure(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{
		Mounts: []MountConfig{
			{Name: "a", Type: StoreTypeMemory},
			{Name: "a", Type: StoreTypeMemory},
		},
	}

	_, err := InitializeRegistry(ctx, cfg)
	assert.Error(t, err)

	_, err = InitializeRegistry(ctx, &Config{})
	assert.Error(t, err)
}
