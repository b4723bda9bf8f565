package s3

import (
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/gfs/pkg/attr"
	"github.com/marmos91/gfs/pkg/gfs"
	"github.com/marmos91/gfs/pkg/gfs/storetest"
)

func newTestStore(t *testing.T, client *fakeClient, mutate func(*Config)) *Store[attr.Attr] {
	t.Helper()
	cfg := Config{Bucket: client.bucket, KeyPrefix: "mounts/test/", InitialBackoff: time.Millisecond}
	if mutate != nil {
		mutate(&cfg)
	}
	store, err := New[attr.Attr](client, cfg)
	require.NoError(t, err)
	return store
}

func TestConformance(t *testing.T) {
	storetest.RunConformanceSuite(t, func(t *testing.T) gfs.Filesystem[attr.Attr] {
		return newTestStore(t, newFakeClient("bucket"), nil)
	})
}

func TestConformanceWithoutPrefix(t *testing.T) {
	storetest.RunConformanceSuite(t, func(t *testing.T) gfs.Filesystem[attr.Attr] {
		return newTestStore(t, newFakeClient("bucket"), func(c *Config) {
			c.KeyPrefix = ""
			c.Codec = "cbor"
		})
	})
}

func TestObjectLayout(t *testing.T) {
	ctx := t.Context()
	client := newFakeClient("bucket")
	store := newTestStore(t, client, nil)

	_, err := store.InsertEntry(ctx, "/docs/a.txt", attr.Attr{Mode: 0o600}, gfs.ContentString("hello"))
	require.NoError(t, err)

	obj, ok := client.objects["mounts/test/docs/a.txt"]
	require.True(t, ok)
	assert.Equal(t, "hello", string(obj.data))
	assert.NotEmpty(t, obj.metadata[metaKey])
}

func TestForeignObjectsHaveZeroMetadata(t *testing.T) {
	ctx := t.Context()
	client := newFakeClient("bucket")
	client.objects["mounts/test/uploaded.bin"] = fakeObject{data: []byte{1, 2, 3}}
	store := newTestStore(t, client, nil)

	e, ok, err := gfs.ReadEntry[attr.Attr](ctx, store, "/uploaded.bin")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, e.Metadata.IsZero())
	assert.Equal(t, 3, e.Contents.Len())
}

func TestRetriesTransientErrors(t *testing.T) {
	ctx := t.Context()
	client := newFakeClient("bucket")
	store := newTestStore(t, client, func(c *Config) { c.MaxRetries = 3 })

	client.failures["put"] = 2
	_, err := store.InsertEntry(ctx, "/a", attr.Attr{}, gfs.ContentString("a"))
	require.NoError(t, err)
	assert.Equal(t, 3, client.calls["put"])

	client.failures["get"] = 5
	_, _, err = store.ReadEntry(ctx, "/a")
	require.Error(t, err)
	assert.Equal(t, gfs.ErrIOError, gfs.CodeOf(err))
}

func TestRenameRejectPolicy(t *testing.T) {
	ctx := t.Context()
	store := newTestStore(t, newFakeClient("bucket"), func(c *Config) { c.RenamePolicy = gfs.RenameReject })

	_, err := store.InsertEntry(ctx, "/src", attr.Attr{}, gfs.ContentString("s"))
	require.NoError(t, err)
	_, err = store.InsertEntry(ctx, "/dst", attr.Attr{}, gfs.ContentString("d"))
	require.NoError(t, err)

	assert.True(t, gfs.IsAlreadyExistsError(store.RenameEntry(ctx, "/src", "/dst")))
}

func TestHealthcheck(t *testing.T) {
	ctx := t.Context()
	store := newTestStore(t, newFakeClient("bucket"), nil)
	require.NoError(t, store.Healthcheck(ctx))

	other, err := New[attr.Attr](newFakeClient("other"), Config{Bucket: "bucket"})
	require.NoError(t, err)
	assert.Error(t, other.Healthcheck(ctx))

	require.NoError(t, store.Close())
	assert.True(t, gfs.IsClosedError(store.Healthcheck(ctx)))
	_, _, err = store.ReadMeta(ctx, "/a")
	assert.True(t, gfs.IsClosedError(err))
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, isNotFound(&types.NoSuchKey{}))
	assert.True(t, isNotFound(&smithy.GenericAPIError{Code: "NotFound"}))
	assert.False(t, isNotFound(errors.New("NoSuchKey in message only")))

	assert.True(t, isRetryable(&smithy.GenericAPIError{Code: "SlowDown"}))
	assert.False(t, isRetryable(&smithy.GenericAPIError{Code: "AccessDenied"}))
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, (&Config{}).Validate())
	assert.Error(t, (&Config{Bucket: "b", AccessKeyID: "id"}).Validate())

	cfg := Config{Bucket: "b"}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100*time.Millisecond, cfg.InitialBackoff)
}
