package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/gfs/internal/bytesize"
	"github.com/marmos91/gfs/pkg/api/handlers"
	"github.com/marmos91/gfs/pkg/attr"
	"github.com/marmos91/gfs/pkg/gfs"
	"github.com/marmos91/gfs/pkg/gfs/store/memory"
	"github.com/marmos91/gfs/pkg/registry"
)

type testServer struct {
	*httptest.Server
	reg *registry.Registry
}

func newTestServer(t *testing.T, cfg APIConfig) *testServer {
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

	srv := httptest.NewServer(NewRouter(cfg, reg, nil))
	t.Cleanup(func() {
		srv.Close()
		_ = reg.Close()
	})
	return &testServer{Server: srv, reg: reg}
}

func (s *testServer) do(t *testing.T, method, path, body string, header map[string]string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.URL+path, r)
	require.NoError(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[V any](t *testing.T, resp *http.Response) V {
	t.Helper()
	var v V
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestHealthRoutes(t *testing.T) {
	s := newTestServer(t, APIConfig{})

	resp := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/health/mounts", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMountRoutes(t *testing.T) {
	s := newTestServer(t, APIConfig{})

	resp := s.do(t, http.MethodGet, "/api/v1/mounts", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	mounts := decode[[]handlers.MountInfo](t, resp)
	require.Len(t, mounts, 2)
	assert.Equal(t, "docs", mounts[0].Name)
	assert.True(t, mounts[0].IsDefault)
	assert.Equal(t, "frozen", mounts[1].Name)
	assert.True(t, mounts[1].ReadOnly)

	resp = s.do(t, http.MethodGet, "/api/v1/mounts/docs", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/", decode[handlers.MountInfo](t, resp).Root)

	resp = s.do(t, http.MethodGet, "/api/v1/mounts/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, handlers.ContentTypeProblemJSON, resp.Header.Get("Content-Type"))
}

func TestEntryLifecycle(t *testing.T) {
	s := newTestServer(t, APIConfig{})
	const entry = "/api/v1/mounts/docs/entries/notes/todo.txt"

	resp := s.do(t, http.MethodPut, entry+"?mode=0600", "buy milk", map[string]string{"Content-Type": "text/plain"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	info := decode[handlers.EntryInfo](t, resp)
	assert.Equal(t, "/notes/todo.txt", info.Path)
	assert.Equal(t, int64(8), info.Size)
	assert.Equal(t, "0600", info.Mode)
	assert.Equal(t, "text/plain", info.ContentType)
	require.NotNil(t, info.ModTime)
	etag := info.ETag
	assert.Equal(t, etag, resp.Header.Get("ETag"))

	resp = s.do(t, http.MethodGet, entry, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "buy milk", readBody(t, resp))
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	assert.Equal(t, "0600", resp.Header.Get(handlers.HeaderMode))
	assert.Equal(t, etag, resp.Header.Get("ETag"))

	resp = s.do(t, http.MethodGet, entry, "", map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)

	resp = s.do(t, http.MethodGet, entry, "", map[string]string{"Range": "bytes=4-7"})
	require.Equal(t, http.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, "milk", readBody(t, resp))

	// Replacing keeps the mode.
	resp = s.do(t, http.MethodPut, entry, "buy eggs", map[string]string{"If-Match": etag})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0600", decode[handlers.EntryInfo](t, resp).Mode)

	resp = s.do(t, http.MethodPut, entry, "stale", map[string]string{"If-Match": etag})
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)

	resp = s.do(t, http.MethodDelete, entry, "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = s.do(t, http.MethodGet, entry, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.do(t, http.MethodDelete, entry, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAppendAndWriteAt(t *testing.T) {
	s := newTestServer(t, APIConfig{})
	const entry = "/api/v1/mounts/docs/entries/log.txt"

	resp := s.do(t, http.MethodPatch, entry, "hello ", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = s.do(t, http.MethodPatch, entry, "world", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(11), decode[handlers.EntryInfo](t, resp).Size)

	resp = s.do(t, http.MethodPatch, entry+"?offset=0", "J", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, entry, "", nil)
	assert.Equal(t, "Jello world", readBody(t, resp))

	resp = s.do(t, http.MethodPatch, entry+"?offset=-1", "x", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWriteAtOffsetBounded(t *testing.T) {
	s := newTestServer(t, APIConfig{MaxBodySize: 8 * bytesize.B})
	const entry = "/api/v1/mounts/docs/entries/sparse.bin"

	resp := s.do(t, http.MethodPut, entry, "hello", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	for _, offset := range []string{"14", "1099511627776", "9223372036854775807"} {
		resp = s.do(t, http.MethodPatch, entry+"?offset="+offset, "x", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "offset %s", offset)
	}

	resp = s.do(t, http.MethodPatch, entry+"?offset=13", "x", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(14), decode[handlers.EntryInfo](t, resp).Size)
}

func TestMetaRoutes(t *testing.T) {
	s := newTestServer(t, APIConfig{})

	resp := s.do(t, http.MethodPut, "/api/v1/mounts/docs/entries/a.bin", "data", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = s.do(t, http.MethodPatch, "/api/v1/mounts/docs/meta/a.bin",
		`{"mode":"755","uid":1000,"gid":100,"content_type":"application/x-test"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/v1/mounts/docs/meta/a.bin", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	info := decode[handlers.EntryInfo](t, resp)
	assert.Equal(t, "0755", info.Mode)
	assert.Equal(t, uint32(1000), info.UID)
	assert.Equal(t, uint32(100), info.GID)
	assert.Equal(t, "application/x-test", info.ContentType)
	assert.Equal(t, int64(4), info.Size)

	resp = s.do(t, http.MethodPatch, "/api/v1/mounts/docs/meta/missing", `{"uid":1}`, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.do(t, http.MethodPatch, "/api/v1/mounts/docs/meta/a.bin", `{"mode":"rwx"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodPatch, "/api/v1/mounts/docs/meta/a.bin", `not json`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListGlobRename(t *testing.T) {
	s := newTestServer(t, APIConfig{})
	for _, p := range []string{"src/main.go", "src/util/strings.go", "README.md"} {
		resp := s.do(t, http.MethodPut, "/api/v1/mounts/docs/entries/"+p, "x", nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := s.do(t, http.MethodGet, "/api/v1/mounts/docs/dirs", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	root := decode[[]handlers.DirEntry](t, resp)
	names := map[string]bool{}
	for _, d := range root {
		names[d.Name] = d.Entry
	}
	assert.Equal(t, map[string]bool{"README.md": true, "src": false}, names)

	resp = s.do(t, http.MethodGet, "/api/v1/mounts/docs/dirs/src?long=true", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, d := range decode[[]handlers.DirEntry](t, resp) {
		if d.Name == "main.go" {
			require.NotNil(t, d.Info)
			assert.Equal(t, int64(1), d.Info.Size)
		} else {
			assert.Nil(t, d.Info)
		}
	}

	resp = s.do(t, http.MethodGet, "/api/v1/mounts/docs/glob?pattern=**/*.go", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.ElementsMatch(t, []string{"/src/main.go", "/src/util/strings.go"}, decode[[]string](t, resp))

	resp = s.do(t, http.MethodGet, "/api/v1/mounts/docs/glob", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/v1/mounts/docs/rename", `{"from":"/README.md","to":"/docs/README.md"}`, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/v1/mounts/docs/entries/docs/README.md", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/v1/mounts/docs/rename", `{"from":"/nope","to":"/x"}`, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/v1/mounts/docs/rename", `{"from":"/x"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReadOnlyMountRejectsWrites(t *testing.T) {
	s := newTestServer(t, APIConfig{})

	resp := s.do(t, http.MethodPut, "/api/v1/mounts/frozen/entries/a.txt", "x", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	problem := decode[handlers.Problem](t, resp)
	assert.Equal(t, "ReadOnly", problem.Code)
	assert.Equal(t, "/a.txt", problem.Path)
}

func TestBodyLimit(t *testing.T) {
	s := newTestServer(t, APIConfig{MaxBodySize: 4 * bytesize.B})

	resp := s.do(t, http.MethodPut, "/api/v1/mounts/docs/entries/big", "too large", nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp = s.do(t, http.MethodPut, "/api/v1/mounts/docs/entries/small", "ok", nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}
