package apiclient

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/marmos91/gfs/pkg/attr"
	"github.com/marmos91/gfs/pkg/gfs"
)

// maxReadAttempts bounds the retries of ReadEntry when the content changes
// between the metadata and content requests.
const maxReadAttempts = 3

var errEntryChanged = errors.New("entry changed during read")

// Remote is a gfs.Filesystem backed by one mount of a gfs API server.
//
// Each operation is one or more HTTP requests. InsertEntry writes content
// and then metadata, so a concurrent reader may observe the new content
// with the old metadata in between.
type Remote struct {
	client *Client
	mount  string
	root   string
	closed atomic.Bool
}

var (
	_ gfs.Filesystem[attr.Attr]        = (*Remote)(nil)
	_ gfs.ReadEntrySnapshot[attr.Attr] = (*Remote)(nil)
	_ gfs.HealthChecker                = (*Remote)(nil)
)

// NewRemote binds mount on the server behind client. The mount must exist.
func NewRemote(ctx context.Context, client *Client, mount string) (*Remote, error) {
	info, err := client.GetMount(ctx, mount)
	if err != nil {
		return nil, fmt.Errorf("remote mount %q: %w", mount, err)
	}
	return &Remote{client: client, mount: mount, root: info.Root}, nil
}

// Mount returns the remote mount name.
func (r *Remote) Mount() string { return r.mount }

func (r *Remote) Root() gfs.OwnedPath[attr.Attr] { return gfs.NewRoot[attr.Attr](r, r.root) }

func (r *Remote) NormalizePath(raw string) string { return gfs.NormalizePath(raw) }

// fail converts transport failures into IO store errors. Errors that already
// carry a store code pass through.
func fail(p, op string, err error) error {
	if gfs.CodeOf(err) != 0 || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return gfs.NewIOError(p, op, err)
}

func (r *Remote) checkOpen() error {
	if r.closed.Load() {
		return gfs.NewClosedError()
	}
	return nil
}

func (r *Remote) ReadMeta(ctx context.Context, p gfs.Path) (attr.Attr, bool, error) {
	if err := r.checkOpen(); err != nil {
		return attr.Attr{}, false, err
	}
	key := gfs.NormalizePath(p)
	info, err := r.client.Stat(ctx, r.mount, key)
	if err != nil {
		if gfs.IsNotFoundError(err) {
			return attr.Attr{}, false, nil
		}
		return attr.Attr{}, false, fail(key, "read_meta", err)
	}
	meta, err := info.Attr()
	if err != nil {
		return attr.Attr{}, false, fail(key, "read_meta", err)
	}
	return meta, true, nil
}

func (r *Remote) ReadData(ctx context.Context, p gfs.Path) (gfs.Content, bool, error) {
	if err := r.checkOpen(); err != nil {
		return gfs.Content{}, false, err
	}
	key := gfs.NormalizePath(p)
	data, _, err := r.client.Get(ctx, r.mount, key)
	if err != nil {
		if gfs.IsNotFoundError(err) {
			return gfs.Content{}, false, nil
		}
		return gfs.Content{}, false, fail(key, "read_data", err)
	}
	return gfs.NewContent(data), true, nil
}

// ReadEntry fetches metadata and content and retries while the content
// entity tag does not match the one reported with the metadata.
func (r *Remote) ReadEntry(ctx context.Context, p gfs.Path) (gfs.Entry[attr.Attr], bool, error) {
	if err := r.checkOpen(); err != nil {
		return gfs.Entry[attr.Attr]{}, false, err
	}
	e, _, found, err := r.readEntry(ctx, gfs.NormalizePath(p))
	return e, found, err
}

func (r *Remote) readEntry(ctx context.Context, key string) (gfs.Entry[attr.Attr], string, bool, error) {
	for range maxReadAttempts {
		info, err := r.client.Stat(ctx, r.mount, key)
		if err != nil {
			if gfs.IsNotFoundError(err) {
				return gfs.Entry[attr.Attr]{}, "", false, nil
			}
			return gfs.Entry[attr.Attr]{}, "", false, fail(key, "read_entry", err)
		}
		data, etag, err := r.client.Get(ctx, r.mount, key)
		if err != nil {
			if gfs.IsNotFoundError(err) {
				continue
			}
			return gfs.Entry[attr.Attr]{}, "", false, fail(key, "read_entry", err)
		}
		if etag != info.ETag {
			continue
		}
		meta, err := info.Attr()
		if err != nil {
			return gfs.Entry[attr.Attr]{}, "", false, fail(key, "read_entry", err)
		}
		return gfs.Entry[attr.Attr]{Metadata: meta, Contents: gfs.NewContent(data)}, etag, true, nil
	}
	return gfs.Entry[attr.Attr]{}, "", false, gfs.NewIOError(key, "read_entry", errEntryChanged)
}

func (r *Remote) ReadDir(ctx context.Context, p gfs.Path) ([]gfs.OwnedPath[attr.Attr], error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	key := gfs.NormalizePath(p)
	children, err := r.client.List(ctx, r.mount, key, false)
	if err != nil {
		return nil, fail(key, "read_dir", err)
	}
	out := make([]gfs.OwnedPath[attr.Attr], 0, len(children))
	for _, child := range children {
		out = append(out, gfs.CreatePath[attr.Attr](r, child.Path))
	}
	return out, nil
}

func (r *Remote) RenameEntry(ctx context.Context, oldPath, newPath gfs.Path) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	from, to := gfs.NormalizePath(oldPath), gfs.NormalizePath(newPath)
	if err := r.client.Rename(ctx, r.mount, from, to); err != nil {
		return fail(from, "rename", err)
	}
	return nil
}

// DropEntry reads the entry and deletes it only if its content is
// unchanged since the read.
func (r *Remote) DropEntry(ctx context.Context, p gfs.Path) (gfs.Entry[attr.Attr], error) {
	if err := r.checkOpen(); err != nil {
		return gfs.Entry[attr.Attr]{}, err
	}
	key := gfs.NormalizePath(p)
	e, etag, found, err := r.readEntry(ctx, key)
	if err != nil {
		return gfs.Entry[attr.Attr]{}, err
	}
	if !found {
		return gfs.Entry[attr.Attr]{}, gfs.NewNotFoundError(key)
	}
	if err := r.client.Delete(ctx, r.mount, key, etag); err != nil {
		return gfs.Entry[attr.Attr]{}, fail(key, "drop", err)
	}
	return e, nil
}

func (r *Remote) InsertEntry(ctx context.Context, p gfs.Path, meta attr.Attr, data gfs.Content) (gfs.Entry[attr.Attr], error) {
	if err := r.checkOpen(); err != nil {
		return gfs.Entry[attr.Attr]{}, err
	}
	key := gfs.NormalizePath(p)
	if err := gfs.CheckEntryPath(key); err != nil {
		return gfs.Entry[attr.Attr]{}, err
	}

	if _, err := r.client.Put(ctx, r.mount, key, data.Bytes(), PutOptions{ContentType: meta.ContentType}); err != nil {
		return gfs.Entry[attr.Attr]{}, fail(key, "insert", err)
	}
	if _, err := r.client.UpdateMeta(ctx, r.mount, key, MetaFrom(meta)); err != nil {
		return gfs.Entry[attr.Attr]{}, fail(key, "insert", err)
	}
	return gfs.Entry[attr.Attr]{Metadata: meta, Contents: data}, nil
}

// Healthcheck verifies the server still serves the mount.
func (r *Remote) Healthcheck(ctx context.Context) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	if _, err := r.client.GetMount(ctx, r.mount); err != nil {
		return fail(r.root, "healthcheck", err)
	}
	return nil
}

// Close releases idle connections. Later calls fail with a Closed error.
func (r *Remote) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	r.client.CloseIdleConnections()
	return nil
}

// RemoteConfig configures a Remote opened from mount options.
type RemoteConfig struct {
	// URL is the base URL of the gfs API server.
	URL string `mapstructure:"url"`

	// Mount is the mount name on the server.
	Mount string `mapstructure:"mount"`

	// Timeout bounds each request. Default: DefaultTimeout
	Timeout time.Duration `mapstructure:"timeout"`
}

// OpenRemote creates a client for cfg.URL and binds cfg.Mount.
func OpenRemote(ctx context.Context, cfg RemoteConfig) (*Remote, error) {
	if cfg.URL == "" {
		return nil, gfs.NewInvalidArgumentError("", "remote url is required")
	}
	if cfg.Mount == "" {
		return nil, gfs.NewInvalidArgumentError("", "remote mount is required")
	}
	return NewRemote(ctx, New(cfg.URL, WithTimeout(cfg.Timeout)), cfg.Mount)
}
