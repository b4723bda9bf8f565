//go:build integration

package postgres

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/marmos91/gfs/pkg/attr"
	"github.com/marmos91/gfs/pkg/gfs"
	"github.com/marmos91/gfs/pkg/gfs/storetest"
)

var (
	baseConfig Config
	dbCounter  atomic.Int32
)

// TestMain starts one PostgreSQL container for the package.
func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("gfs_test"),
		tcpostgres.WithUsername("gfs_test"),
		tcpostgres.WithPassword("gfs_test"),
		testcontainers.WithWaitStrategyAndDeadline(2*time.Minute,
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres container: %v\n", err)
		os.Exit(1)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		_ = container.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container port: %v\n", err)
		os.Exit(1)
	}

	baseConfig = Config{
		Host:     host,
		Port:     port.Int(),
		Database: "gfs_test",
		User:     "gfs_test",
		Password: "gfs_test",
		SSLMode:  "disable",
	}

	code := m.Run()

	if err := container.Terminate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to terminate container: %v\n", err)
	}
	os.Exit(code)
}

// newTestStore creates a store on a fresh database so tests do not share rows.
func newTestStore(t *testing.T, mutate func(*Config)) *Store[attr.Attr] {
	t.Helper()
	ctx := t.Context()

	admin, err := createPool(ctx, withDefaults(baseConfig))
	require.NoError(t, err)
	name := fmt.Sprintf("gfs_test_%d", dbCounter.Add(1))
	_, err = admin.Exec(ctx, "CREATE DATABASE "+name)
	admin.Close()
	require.NoError(t, err)

	cfg := baseConfig
	cfg.Database = name
	cfg.AutoMigrate = true
	if mutate != nil {
		mutate(&cfg)
	}

	store, err := New[attr.Attr](ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func withDefaults(cfg Config) Config {
	cfg.ApplyDefaults()
	return cfg
}

func TestConformance(t *testing.T) {
	storetest.RunConformanceSuite(t, func(t *testing.T) gfs.Filesystem[attr.Attr] {
		return newTestStore(t, nil)
	})
}

func TestConformanceCBOR(t *testing.T) {
	storetest.RunConformanceSuite(t, func(t *testing.T) gfs.Filesystem[attr.Attr] {
		return newTestStore(t, func(c *Config) { c.Codec = "cbor" })
	})
}

func TestSnapshotIsolation(t *testing.T) {
	ctx := t.Context()
	store := newTestStore(t, nil)

	_, err := store.InsertEntry(ctx, "/a", attr.Attr{Mode: 0o644}, gfs.ContentString("before"))
	require.NoError(t, err)

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	defer snap.Close()

	_, err = store.InsertEntry(ctx, "/a", attr.Attr{Mode: 0o600}, gfs.ContentString("after"))
	require.NoError(t, err)
	_, err = store.InsertEntry(ctx, "/b", attr.Attr{}, gfs.ContentString("b"))
	require.NoError(t, err)

	e, ok, err := gfs.ReadEntry[attr.Attr](ctx, snap, "/a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "before", e.Contents.String())

	children, err := gfs.ReadRoot[attr.Attr](ctx, snap)
	require.NoError(t, err)
	assert.Len(t, children, 1)

	require.NoError(t, snap.Close())
	_, _, err = snap.ReadMeta(ctx, "/a")
	assert.True(t, gfs.IsClosedError(err))
}

func TestRenameRejectPolicy(t *testing.T) {
	ctx := t.Context()
	store := newTestStore(t, func(c *Config) { c.RenamePolicy = gfs.RenameReject })

	_, err := store.InsertEntry(ctx, "/src", attr.Attr{}, gfs.ContentString("s"))
	require.NoError(t, err)
	_, err = store.InsertEntry(ctx, "/dst", attr.Attr{}, gfs.ContentString("d"))
	require.NoError(t, err)

	err = store.RenameEntry(ctx, "/src", "/dst")
	assert.True(t, gfs.IsAlreadyExistsError(err))

	e, ok, err := gfs.ReadEntry[attr.Attr](ctx, store, "/src")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "s", e.Contents.String())
}

func TestListingEscapesWildcards(t *testing.T) {
	ctx := t.Context()
	store := newTestStore(t, nil)

	for _, p := range []string{"/a_b/x", "/axb/y", "/100%/z"} {
		_, err := store.InsertEntry(ctx, p, attr.Attr{}, gfs.ContentString(p))
		require.NoError(t, err)
	}

	children, err := store.ReadDir(ctx, "/a_b")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "/a_b/x", children[0].Path())
}

func TestHealthcheckAndClose(t *testing.T) {
	ctx := t.Context()
	store := newTestStore(t, nil)

	require.NoError(t, store.Healthcheck(ctx))
	require.NoError(t, store.Close())
	assert.Error(t, store.Healthcheck(ctx))
}
