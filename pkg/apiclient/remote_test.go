package apiclient_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/gfs/pkg/api"
	"github.com/marmos91/gfs/pkg/apiclient"
	"github.com/marmos91/gfs/pkg/attr"
	"github.com/marmos91/gfs/pkg/gfs"
	"github.com/marmos91/gfs/pkg/gfs/store/memory"
	"github.com/marmos91/gfs/pkg/gfs/storetest"
	"github.com/marmos91/gfs/pkg/registry"
)

// newServer serves a fresh memory mount named "docs" and a read-only mount
// named "frozen".
func newServer(t *testing.T) *apiclient.Client {
	t.Helper()

	reg := registry.NewRegistry()
	require.NoError(t, reg.AddMount(&registry.Mount{
		Name:      "docs",
		StoreType: "memory",
		FS:        memory.NewWithDefaults[attr.Attr](),
	}))
	require.NoError(t, reg.AddMount(&registry.Mount{
		Name:      "frozen",
		StoreType: "memory",
		ReadOnly:  true,
		FS:        gfs.ReadOnly[attr.Attr](memory.NewWithDefaults[attr.Attr]()),
	}))

	srv := httptest.NewServer(api.NewRouter(api.APIConfig{}, reg, nil))
	t.Cleanup(func() {
		srv.Close()
		_ = reg.Close()
	})
	return apiclient.New(srv.URL)
}

func newRemote(t *testing.T, mount string) *apiclient.Remote {
	t.Helper()
	client := newServer(t)
	r, err := apiclient.NewRemote(t.Context(), client, mount)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestConformance(t *testing.T) {
	storetest.RunConformanceSuite(t, func(t *testing.T) gfs.Filesystem[attr.Attr] {
		return newRemote(t, "docs")
	})
}

func TestNewRemoteUnknownMount(t *testing.T) {
	_, err := apiclient.NewRemote(t.Context(), newServer(t), "nope")
	require.Error(t, err)

	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
	assert.False(t, gfs.IsNotFoundError(err))
}

func TestRemoteReadOnlyMount(t *testing.T) {
	r := newRemote(t, "frozen")

	_, err := r.InsertEntry(t.Context(), "/a", attr.Attr{}, gfs.ContentString("a"))
	assert.True(t, gfs.IsReadOnlyError(err), "got %v", err)
}

func TestRemoteClose(t *testing.T) {
	r := newRemote(t, "docs")
	require.NoError(t, r.Healthcheck(t.Context()))

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, _, err := r.ReadMeta(t.Context(), "/a")
	assert.True(t, gfs.IsClosedError(err))
	assert.True(t, gfs.IsClosedError(r.Healthcheck(t.Context())))
}

func TestClientEntryOperations(t *testing.T) {
	ctx := t.Context()
	c := newServer(t)

	info, err := c.Put(ctx, "docs", "/notes/a.txt", []byte("hello"), apiclient.PutOptions{Mode: "0600"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)
	assert.Equal(t, "0600", info.Mode)
	assert.NotEmpty(t, info.ETag)

	_, err = c.Put(ctx, "docs", "/notes/a.txt", []byte("nope"), apiclient.PutOptions{IfMatch: `"stale"`})
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsPreconditionFailed())

	info, err = c.Append(ctx, "docs", "/notes/a.txt", []byte(" world"), -1)
	require.NoError(t, err)
	assert.Equal(t, int64(11), info.Size)

	_, err = c.Append(ctx, "docs", "/notes/a.txt", []byte("J"), 0)
	require.NoError(t, err)

	data, etag, err := c.Get(ctx, "docs", "/notes/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "Jello world", string(data))

	ct := "text/x-notes"
	info, err = c.UpdateMeta(ctx, "docs", "/notes/a.txt", apiclient.MetaUpdate{ContentType: &ct})
	require.NoError(t, err)
	assert.Equal(t, ct, info.ContentType)
	assert.Equal(t, etag, info.ETag)

	children, err := c.List(ctx, "docs", "/", true)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "notes", children[0].Name)
	assert.False(t, children[0].Entry)

	matches, err := c.Glob(ctx, "docs", "**/*.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"/notes/a.txt"}, matches)

	require.NoError(t, c.Rename(ctx, "docs", "/notes/a.txt", "/notes/b.txt"))
	require.NoError(t, c.Delete(ctx, "docs", "/notes/b.txt", ""))

	_, err = c.Stat(ctx, "docs", "/notes/b.txt")
	assert.True(t, gfs.IsNotFoundError(err))

	mounts, err := c.ListMounts(ctx)
	require.NoError(t, err)
	require.Len(t, mounts, 2)
	assert.Equal(t, "docs", mounts[0].Name)
	assert.True(t, mounts[0].IsDefault)
	assert.True(t, mounts[1].ReadOnly)
}
