package handlers

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/blake2b"

	"github.com/marmos91/gfs/pkg/attr"
	"github.com/marmos91/gfs/pkg/gfs"
	"github.com/marmos91/gfs/pkg/registry"
)

// Response headers carrying entry metadata.
const (
	HeaderMode = "X-Gfs-Mode"
	HeaderUID  = "X-Gfs-Uid"
	HeaderGID  = "X-Gfs-Gid"
)

// decodeJSONBody decodes a JSON request body into v.
// On failure a 400 is written and false returned.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		BadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// resolveMount looks up the {mount} URL parameter.
// On failure a 404 is written and false returned.
func resolveMount(w http.ResponseWriter, r *http.Request, reg *registry.Registry) (*registry.Mount, bool) {
	name := chi.URLParam(r, "mount")
	m, err := reg.GetMount(name)
	if err != nil {
		NotFound(w, err.Error())
		return nil, false
	}
	return m, true
}

// entryPath returns the entry path captured by the trailing wildcard.
func entryPath(r *http.Request) string {
	raw := chi.URLParam(r, "*")
	if p, err := url.PathUnescape(raw); err == nil {
		raw = p
	}
	return gfs.NormalizePath(raw)
}

// ETag returns a strong entity tag for content.
func ETag(c gfs.Content) string {
	sum := blake2b.Sum256(c.Bytes())
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// EntryInfo describes an entry in JSON responses.
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

func newEntryInfo(mount, p string, e gfs.Entry[attr.Attr]) EntryInfo {
	info := EntryInfo{
		Mount:       mount,
		Path:        p,
		Size:        e.Size(),
		Mode:        formatMode(e.Metadata),
		UID:         e.Metadata.UID,
		GID:         e.Metadata.GID,
		ContentType: e.Metadata.ContentType,
		ETag:        ETag(e.Contents),
	}
	if t := e.Metadata.Time(); !t.IsZero() {
		t = t.UTC()
		info.ModTime = &t
	}
	return info
}

func formatMode(a attr.Attr) string {
	return "0" + strconv.FormatUint(uint64(a.FileMode()), 8)
}

// parseMode parses an octal permission string such as "0644" or "755".
func parseMode(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v) & 0o777, nil
}

func setEntryHeaders(w http.ResponseWriter, e gfs.Entry[attr.Attr]) {
	h := w.Header()
	h.Set("ETag", ETag(e.Contents))
	h.Set(HeaderMode, formatMode(e.Metadata))
	h.Set(HeaderUID, strconv.FormatUint(uint64(e.Metadata.UID), 10))
	h.Set(HeaderGID, strconv.FormatUint(uint64(e.Metadata.GID), 10))
}

// preconditionFailed reports whether an If-Match header rules out
// replacing current. A missing current entry never matches.
func preconditionFailed(r *http.Request, current gfs.Entry[attr.Attr], exists bool) bool {
	want := r.Header.Get("If-Match")
	if want == "" || (want == "*" && exists) {
		return false
	}
	return !exists || want != ETag(current.Contents)
}
