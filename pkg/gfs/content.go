package gfs

import (
	"bytes"
	"io"
)

// Content is an immutable byte buffer shared between every reader of an
// entry. Once constructed its bytes are never modified; updates publish a
// new Content.
//
// The zero value is an empty buffer.
type Content struct {
	b []byte
}

// NewContent returns a Content holding a private copy of b.
func NewContent(b []byte) Content {
	if len(b) == 0 {
		return Content{}
	}
	return Content{b: bytes.Clone(b)}
}

// ContentOf wraps b without copying. The caller hands over ownership and
// must not modify b afterwards.
func ContentOf(b []byte) Content {
	return Content{b: b}
}

// ContentString returns a Content holding s.
func ContentString(s string) Content {
	return Content{b: []byte(s)}
}

// Len returns the number of bytes.
func (c Content) Len() int { return len(c.b) }

// Bytes returns the shared backing bytes. They must be treated as read-only.
func (c Content) Bytes() []byte { return c.b }

// Clone returns a mutable private copy of the bytes.
func (c Content) Clone() []byte {
	out := make([]byte, len(c.b))
	copy(out, c.b)
	return out
}

func (c Content) String() string { return string(c.b) }

// Equal reports whether c and other hold the same bytes.
func (c Content) Equal(other Content) bool { return bytes.Equal(c.b, other.b) }

// NewReader returns a reader over the shared bytes.
func (c Content) NewReader() *bytes.Reader { return bytes.NewReader(c.b) }

// WriteTo writes the content to w.
func (c Content) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c.b)
	return int64(n), err
}
