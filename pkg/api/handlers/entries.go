package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/marmos91/gfs/internal/bytesize"
	"github.com/marmos91/gfs/pkg/attr"
	"github.com/marmos91/gfs/pkg/gfs"
	"github.com/marmos91/gfs/pkg/registry"
)

// EntryHandler serves entry content, metadata, listings and renames.
type EntryHandler struct {
	registry *registry.Registry
	maxBody  bytesize.ByteSize
	now      func() time.Time
}

// NewEntryHandler creates a new EntryHandler. Request bodies larger than
// maxBody are rejected with 413.
func NewEntryHandler(registry *registry.Registry, maxBody bytesize.ByteSize) *EntryHandler {
	return &EntryHandler{registry: registry, maxBody: maxBody, now: time.Now}
}

// Get handles GET and HEAD /api/v1/mounts/{mount}/entries/*.
// Range, If-None-Match and If-Modified-Since are honored.
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, ok := resolveMount(w, r, h.registry)
	if !ok {
		return
	}
	p := entryPath(r)

	e, found, err := gfs.ReadEntry[attr.Attr](r.Context(), m.FS, p)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}
	if !found {
		WriteStoreError(w, r, gfs.NewNotFoundError(p))
		return
	}

	setEntryHeaders(w, e)
	ct := e.Metadata.ContentType
	if ct == "" {
		ct = mimetype.Detect(e.Contents.Bytes()).String()
	}
	w.Header().Set("Content-Type", ct)

	http.ServeContent(w, r, path.Base(p), e.Metadata.Time(), gfs.NewReader(e))
}

// Put handles PUT /api/v1/mounts/{mount}/entries/*. The body replaces the
// entry's content; existing ownership is kept. Responds 201 when the entry
// is new.
func (h *EntryHandler) Put(w http.ResponseWriter, r *http.Request) {
	m, ok := resolveMount(w, r, h.registry)
	if !ok {
		return
	}
	p := entryPath(r)
	ctx := r.Context()

	data, ok := h.readBody(w, r)
	if !ok {
		return
	}

	current, exists, err := gfs.ReadEntry[attr.Attr](ctx, m.FS, p)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}
	if preconditionFailed(r, current, exists) {
		WriteProblem(w, http.StatusPreconditionFailed, "Precondition Failed", "entry changed")
		return
	}

	meta := current.Metadata
	if s := r.URL.Query().Get("mode"); s != "" {
		mode, err := parseMode(s)
		if err != nil {
			BadRequest(w, "invalid mode "+s)
			return
		}
		meta.Mode = mode
	}
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		ct = mimetype.Detect(data).String()
	}
	meta = meta.WithContentType(ct).Touch(h.now())

	e, err := m.FS.InsertEntry(ctx, p, meta, gfs.NewContent(data))
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}

	status := http.StatusOK
	if !exists {
		status = http.StatusCreated
	}
	w.Header().Set("ETag", ETag(e.Contents))
	writeJSON(w, status, newEntryInfo(m.Name, p, e))
}

// Append handles PATCH /api/v1/mounts/{mount}/entries/*. The body is
// appended to the entry, or written at ?offset= when given. Missing
// entries are created.
func (h *EntryHandler) Append(w http.ResponseWriter, r *http.Request) {
	m, ok := resolveMount(w, r, h.registry)
	if !ok {
		return
	}
	p := entryPath(r)
	ctx := r.Context()

	offset := int64(-1)
	if s := r.URL.Query().Get("offset"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v < 0 {
			BadRequest(w, "invalid offset "+s)
			return
		}
		offset = v
	}

	data, ok := h.readBody(w, r)
	if !ok {
		return
	}

	wr, err := gfs.EntryWriter[attr.Attr](ctx, m.FS, p)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}
	if offset > int64(wr.Len())+h.maxBody.Int64() {
		BadRequest(w, fmt.Sprintf("offset %d is more than %s past the end of the entry", offset, h.maxBody))
		return
	}
	if offset >= 0 {
		_, err = wr.WriteAt(data, offset)
	} else {
		_, err = wr.Write(data)
	}
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	meta := wr.Metadata()
	if meta.ContentType == "" {
		meta = meta.WithContentType(mimetype.Detect(wr.Bytes()).String())
	}
	wr.SetMetadata(meta.Touch(h.now()))

	e, err := wr.Commit(ctx)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}
	w.Header().Set("ETag", ETag(e.Contents))
	writeJSON(w, http.StatusOK, newEntryInfo(m.Name, p, e))
}

// Delete handles DELETE /api/v1/mounts/{mount}/entries/*.
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	m, ok := resolveMount(w, r, h.registry)
	if !ok {
		return
	}
	p := entryPath(r)
	ctx := r.Context()

	if r.Header.Get("If-Match") != "" {
		current, exists, err := gfs.ReadEntry[attr.Attr](ctx, m.FS, p)
		if err != nil {
			WriteStoreError(w, r, err)
			return
		}
		if preconditionFailed(r, current, exists) {
			WriteProblem(w, http.StatusPreconditionFailed, "Precondition Failed", "entry changed")
			return
		}
	}

	if err := gfs.RemoveEntry[attr.Attr](ctx, m.FS, p); err != nil {
		WriteStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stat handles GET /api/v1/mounts/{mount}/meta/*.
func (h *EntryHandler) Stat(w http.ResponseWriter, r *http.Request) {
	m, ok := resolveMount(w, r, h.registry)
	if !ok {
		return
	}
	p := entryPath(r)

	e, found, err := gfs.ReadEntry[attr.Attr](r.Context(), m.FS, p)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}
	if !found {
		WriteStoreError(w, r, gfs.NewNotFoundError(p))
		return
	}
	writeJSON(w, http.StatusOK, newEntryInfo(m.Name, p, e))
}

// MetaUpdateRequest is the request body for PATCH /meta/*. Nil fields are
// left unchanged.
type MetaUpdateRequest struct {
	Mode        *string `json:"mode,omitempty"`
	UID         *uint32 `json:"uid,omitempty"`
	GID         *uint32 `json:"gid,omitempty"`
	ContentType *string `json:"content_type,omitempty"`

	// ModTime replaces the modification time. The zero time clears it.
	ModTime *time.Time `json:"mtime,omitempty"`
}

// SetMeta handles PATCH /api/v1/mounts/{mount}/meta/*. Content is
// untouched; the entry must exist.
func (h *EntryHandler) SetMeta(w http.ResponseWriter, r *http.Request) {
	m, ok := resolveMount(w, r, h.registry)
	if !ok {
		return
	}
	p := entryPath(r)
	ctx := r.Context()

	var req MetaUpdateRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	e, found, err := gfs.ReadEntry[attr.Attr](ctx, m.FS, p)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}
	if !found {
		WriteStoreError(w, r, gfs.NewNotFoundError(p))
		return
	}

	meta := e.Metadata
	if req.Mode != nil {
		mode, err := parseMode(*req.Mode)
		if err != nil {
			BadRequest(w, "invalid mode "+*req.Mode)
			return
		}
		meta.Mode = mode
	}
	if req.UID != nil {
		meta.UID = *req.UID
	}
	if req.GID != nil {
		meta.GID = *req.GID
	}
	if req.ContentType != nil {
		meta.ContentType = *req.ContentType
	}
	if req.ModTime != nil {
		meta.ModTime = 0
		if !req.ModTime.IsZero() {
			meta.ModTime = req.ModTime.UnixNano()
		}
	}

	e, err = m.FS.InsertEntry(ctx, p, meta, e.Contents)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newEntryInfo(m.Name, p, e))
}

// DirEntry is one child in a directory listing.
type DirEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`

	// Entry is false for implicit directories that only exist because
	// entries live below them.
	Entry bool       `json:"entry"`
	Info  *EntryInfo `json:"info,omitempty"`
}

// List handles GET /api/v1/mounts/{mount}/dirs/*. With ?long=true each
// entry carries its size and metadata.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	m, ok := resolveMount(w, r, h.registry)
	if !ok {
		return
	}
	p := entryPath(r)
	ctx := r.Context()
	long, _ := strconv.ParseBool(r.URL.Query().Get("long"))

	children, err := m.FS.ReadDir(ctx, p)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}

	out := make([]DirEntry, 0, len(children))
	for _, child := range children {
		d := DirEntry{Name: child.Base(), Path: child.Path()}
		if long {
			e, found, err := gfs.ReadEntry[attr.Attr](ctx, m.FS, child.Path())
			if err != nil {
				WriteStoreError(w, r, err)
				return
			}
			if found {
				info := newEntryInfo(m.Name, child.Path(), e)
				d.Entry, d.Info = true, &info
			}
		} else {
			_, found, err := m.FS.ReadMeta(ctx, child.Path())
			if err != nil {
				WriteStoreError(w, r, err)
				return
			}
			d.Entry = found
		}
		out = append(out, d)
	}
	writeJSON(w, http.StatusOK, out)
}

// Glob handles GET /api/v1/mounts/{mount}/glob?pattern=. Patterns use
// "**" for any depth.
func (h *EntryHandler) Glob(w http.ResponseWriter, r *http.Request) {
	m, ok := resolveMount(w, r, h.registry)
	if !ok {
		return
	}
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		BadRequest(w, "pattern is required")
		return
	}

	matches, err := gfs.Glob[attr.Attr](r.Context(), m.FS, pattern)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}
	out := make([]string, 0, len(matches))
	for _, match := range matches {
		out = append(out, match.Path())
	}
	writeJSON(w, http.StatusOK, out)
}

// RenameRequest is the request body for POST /rename.
type RenameRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Rename handles POST /api/v1/mounts/{mount}/rename.
func (h *EntryHandler) Rename(w http.ResponseWriter, r *http.Request) {
	m, ok := resolveMount(w, r, h.registry)
	if !ok {
		return
	}

	var req RenameRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.From == "" || req.To == "" {
		BadRequest(w, "from and to are required")
		return
	}

	if err := m.FS.RenameEntry(r.Context(), req.From, req.To); err != nil {
		WriteStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readBody reads the request body up to the configured limit.
func (h *EntryHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body := http.MaxBytesReader(w, r.Body, h.maxBody.Int64())
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteProblem(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large",
				"body exceeds "+h.maxBody.String())
			return nil, false
		}
		BadRequest(w, "failed to read request body")
		return nil, false
	}
	return data, true
}
