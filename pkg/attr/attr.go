// Package attr provides the file-like metadata type used by the gfs CLI,
// HTTP API and configured mounts.
package attr

import (
	"fmt"
	"io/fs"
	"time"
)

// DefaultMode is applied to entries created without an explicit mode.
const DefaultMode = 0o644

// Attr is comparable file metadata. The zero value means "no attributes
// set yet" and is what new entries start with.
type Attr struct {
	Mode        uint32 `json:"mode" cbor:"1,keyasint" yaml:"mode"`
	UID         uint32 `json:"uid" cbor:"2,keyasint" yaml:"uid"`
	GID         uint32 `json:"gid" cbor:"3,keyasint" yaml:"gid"`
	ModTime     int64  `json:"mtime" cbor:"4,keyasint" yaml:"mtime"`
	ContentType string `json:"content_type,omitempty" cbor:"5,keyasint,omitempty" yaml:"content_type,omitempty"`
}

// New returns attributes with the given mode and modification time.
func New(mode fs.FileMode, mtime time.Time) Attr {
	return Attr{Mode: uint32(mode.Perm()), ModTime: mtime.UnixNano()}
}

// FileMode returns the permission bits as an fs.FileMode.
func (a Attr) FileMode() fs.FileMode { return fs.FileMode(a.Mode).Perm() }

// Time returns the modification time, or the zero time when unset.
func (a Attr) Time() time.Time {
	if a.ModTime == 0 {
		return time.Time{}
	}
	return time.Unix(0, a.ModTime)
}

// IsZero reports whether no attribute is set.
func (a Attr) IsZero() bool { return a == Attr{} }

// Touch returns a copy with the modification time set to t. A zero mode is
// replaced by DefaultMode so freshly created entries get sane permissions.
func (a Attr) Touch(t time.Time) Attr {
	if a.Mode == 0 {
		a.Mode = DefaultMode
	}
	a.ModTime = t.UnixNano()
	return a
}

// WithMode returns a copy with the permission bits set to mode.
func (a Attr) WithMode(mode fs.FileMode) Attr {
	a.Mode = uint32(mode.Perm())
	return a
}

// WithContentType returns a copy with the content type set.
func (a Attr) WithContentType(ct string) Attr {
	a.ContentType = ct
	return a
}

func (a Attr) String() string {
	return fmt.Sprintf("%s %d:%d %s", a.FileMode(), a.UID, a.GID, a.Time().Format(time.RFC3339))
}
