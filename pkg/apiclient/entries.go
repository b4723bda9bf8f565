package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/marmos91/gfs/pkg/attr"
)

// EntryInfo describes an entry as reported by the API.
type EntryInfo struct {
	Mount       string     `json:"mount"`
	Path        string     `json:"path"`
	Size        int64      `json:"size"`
	Mode        string     `json:"mode"`
	UID         uint32     `json:"uid"`
	GID         uint32     `json:"gid"`
	ModTime     *time.Time `json:"mtime,omitempty"`
	ContentType string     `json:"content_type,omitempty"`
	ETag        string     `json:"etag"`
}

// Attr converts the reported metadata back into attributes.
func (e *EntryInfo) Attr() (attr.Attr, error) {
	mode, err := strconv.ParseUint(e.Mode, 8, 32)
	if err != nil {
		return attr.Attr{}, fmt.Errorf("invalid mode %q: %w", e.Mode, err)
	}
	a := attr.Attr{
		Mode:        uint32(mode),
		UID:         e.UID,
		GID:         e.GID,
		ContentType: e.ContentType,
	}
	if e.ModTime != nil && !e.ModTime.IsZero() {
		a.ModTime = e.ModTime.UnixNano()
	}
	return a, nil
}

// DirEntry is one child in a directory listing.
type DirEntry struct {
	Name  string     `json:"name"`
	Path  string     `json:"path"`
	Entry bool       `json:"entry"`
	Info  *EntryInfo `json:"info,omitempty"`
}

// PutOptions are optional parameters of Put.
type PutOptions struct {
	// ContentType is sent as the request Content-Type. The server detects
	// it when empty.
	ContentType string

	// Mode is an octal permission string such as "0600".
	Mode string

	// IfMatch makes the write conditional on the current entity tag.
	IfMatch string
}

// MetaUpdate changes entry metadata. Nil fields are left unchanged.
type MetaUpdate struct {
	Mode        *string    `json:"mode,omitempty"`
	UID         *uint32    `json:"uid,omitempty"`
	GID         *uint32    `json:"gid,omitempty"`
	ContentType *string    `json:"content_type,omitempty"`
	ModTime     *time.Time `json:"mtime,omitempty"`
}

// MetaFrom returns an update that sets every field to a's values.
func MetaFrom(a attr.Attr) MetaUpdate {
	mode := "0" + strconv.FormatUint(uint64(a.FileMode()), 8)
	mtime := a.Time()
	return MetaUpdate{
		Mode:        &mode,
		UID:         &a.UID,
		GID:         &a.GID,
		ContentType: &a.ContentType,
		ModTime:     &mtime,
	}
}

// Stat returns the metadata of the entry at p.
func (c *Client) Stat(ctx context.Context, mount, p string) (*EntryInfo, error) {
	return getResource[EntryInfo](ctx, c, mountPath(mount, "meta", escapeEntry(p)), nil)
}

// Get returns the content of the entry at p and its entity tag.
func (c *Client) Get(ctx context.Context, mount, p string) ([]byte, string, error) {
	resp, err := c.send(ctx, request{method: http.MethodGet, path: mountPath(mount, "entries", escapeEntry(p))})
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read entry %s: %w", p, err)
	}
	return data, resp.Header.Get("ETag"), nil
}

// Put replaces the content of the entry at p, creating it if needed.
func (c *Client) Put(ctx context.Context, mount, p string, data []byte, opts PutOptions) (*EntryInfo, error) {
	header := http.Header{}
	if opts.ContentType != "" {
		header.Set("Content-Type", opts.ContentType)
	}
	if opts.IfMatch != "" {
		header.Set("If-Match", opts.IfMatch)
	}
	query := url.Values{}
	if opts.Mode != "" {
		query.Set("mode", opts.Mode)
	}

	var info EntryInfo
	err := c.do(ctx, request{
		method:  http.MethodPut,
		path:    mountPath(mount, "entries", escapeEntry(p)),
		query:   query,
		header:  header,
		body:    bytes.NewReader(data),
		jsonOut: &info,
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// Append appends data to the entry at p, or writes it at offset when
// offset is not negative.
func (c *Client) Append(ctx context.Context, mount, p string, data []byte, offset int64) (*EntryInfo, error) {
	query := url.Values{}
	if offset >= 0 {
		query.Set("offset", strconv.FormatInt(offset, 10))
	}

	var info EntryInfo
	err := c.do(ctx, request{
		method:  http.MethodPatch,
		path:    mountPath(mount, "entries", escapeEntry(p)),
		query:   query,
		body:    bytes.NewReader(data),
		jsonOut: &info,
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// UpdateMeta changes the metadata of the entry at p.
func (c *Client) UpdateMeta(ctx context.Context, mount, p string, update MetaUpdate) (*EntryInfo, error) {
	var info EntryInfo
	if err := c.patch(ctx, mountPath(mount, "meta", escapeEntry(p)), update, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Delete removes the entry at p. A non-empty ifMatch makes the removal
// conditional on the current entity tag.
func (c *Client) Delete(ctx context.Context, mount, p, ifMatch string) error {
	header := http.Header{}
	if ifMatch != "" {
		header.Set("If-Match", ifMatch)
	}
	return c.do(ctx, request{
		method: http.MethodDelete,
		path:   mountPath(mount, "entries", escapeEntry(p)),
		header: header,
	})
}

// List returns the children of dir. With long set each entry carries its
// metadata.
func (c *Client) List(ctx context.Context, mount, dir string, long bool) ([]DirEntry, error) {
	query := url.Values{}
	if long {
		query.Set("long", "true")
	}
	return listResources[DirEntry](ctx, c, mountPath(mount, "dirs", escapeEntry(dir)), query)
}

// Glob returns the paths matching pattern.
func (c *Client) Glob(ctx context.Context, mount, pattern string) ([]string, error) {
	return listResources[string](ctx, c, mountPath(mount, "glob"), url.Values{"pattern": {pattern}})
}

type renameRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Rename moves the entry at from to to.
func (c *Client) Rename(ctx context.Context, mount, from, to string) error {
	return c.post(ctx, mountPath(mount, "rename"), renameRequest{From: from, To: to}, nil)
}

