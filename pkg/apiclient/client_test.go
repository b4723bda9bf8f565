package apiclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/gfs/pkg/attr"
	"github.com/marmos91/gfs/pkg/gfs"
)

func TestNew(t *testing.T) {
	client := New("http://localhost:8080/")
	assert.Equal(t, "http://localhost:8080", client.BaseURL())
	assert.Equal(t, DefaultTimeout, client.httpClient.Timeout)

	client = New("http://localhost:8080", WithTimeout(5*time.Second))
	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)

	hc := &http.Client{}
	client = New("http://localhost:8080", WithHTTPClient(hc))
	assert.Same(t, hc, client.httpClient)
}

func TestDoWithSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "/api/v1/mounts/docs", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(MountInfo{Name: "docs", Type: "memory", Root: "/", IsDefault: true})
	}))
	defer server.Close()

	info, err := New(server.URL).GetMount(t.Context(), "docs")
	require.NoError(t, err)
	assert.Equal(t, "docs", info.Name)
	assert.True(t, info.IsDefault)
}

func TestDoWithProblem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"title":"Not Found","status":404,"detail":"entry not found","code":"NotFound","path":"/a"}`))
	}))
	defer server.Close()

	_, err := New(server.URL).Stat(t.Context(), "docs", "/a")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "NotFound", apiErr.Code)
	assert.Equal(t, "/a", apiErr.Path)
	assert.True(t, apiErr.IsNotFound())
	assert.True(t, gfs.IsNotFoundError(err))
}

func TestDoWithPlainError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	_, err := New(server.URL).ListMounts(t.Context())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "Bad Gateway", apiErr.Title)
	assert.Equal(t, "upstream down", apiErr.Detail)
	assert.Equal(t, gfs.ErrorCode(0), gfs.CodeOf(err))
}

func TestEscapeEntry(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/", ""},
		{"/a/b.txt", "a/b.txt"},
		{"/with space/50%", "with%20space/50%25"},
		{"/q?x#y", "q%3Fx%23y"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeEntry(tt.in))
		})
	}
	assert.Equal(t, "/api/v1/mounts/docs/entries/a", mountPath("docs", "entries", "a"))
}

func TestEntryInfoAttr(t *testing.T) {
	mtime := time.Unix(0, 1_700_000_000_123_456_789).UTC()
	info := EntryInfo{Mode: "0640", UID: 7, GID: 8, ModTime: &mtime, ContentType: "text/plain"}

	a, err := info.Attr()
	require.NoError(t, err)
	assert.Equal(t, attr.Attr{Mode: 0o640, UID: 7, GID: 8, ModTime: 1_700_000_000_123_456_789, ContentType: "text/plain"}, a)

	info = EntryInfo{Mode: "0644"}
	a, err = info.Attr()
	require.NoError(t, err)
	assert.Zero(t, a.ModTime)

	_, err = (&EntryInfo{Mode: "rw-"}).Attr()
	assert.Error(t, err)
}

func TestMetaFrom(t *testing.T) {
	u := MetaFrom(attr.Attr{Mode: 0o600, UID: 1, GID: 2})
	require.NotNil(t, u.Mode)
	assert.Equal(t, "0600", *u.Mode)
	assert.Equal(t, uint32(1), *u.UID)
	assert.Equal(t, uint32(2), *u.GID)
	require.NotNil(t, u.ContentType)
	assert.Empty(t, *u.ContentType)
	require.NotNil(t, u.ModTime)
	assert.True(t, u.ModTime.IsZero())
}
