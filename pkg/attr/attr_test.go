package attr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAttr(t *testing.T) {
	t.Parallel()

	t.Run("zero value is unset", func(t *testing.T) {
		t.Parallel()
		var a Attr
		assert.True(t, a.IsZero())
		assert.True(t, a.Time().IsZero())
	})

	t.Run("touch applies default mode", func(t *testing.T) {
		t.Parallel()
		now := time.Unix(1700000000, 0)
		a := Attr{}.Touch(now)

		assert.Equal(t, uint32(DefaultMode), a.Mode)
		assert.True(t, a.Time().Equal(now))
	})

	t.Run("touch keeps explicit mode", func(t *testing.T) {
		t.Parallel()
		a := New(0o600, time.Unix(1, 0)).Touch(time.Unix(2, 0))

		assert.Equal(t, uint32(0o600), a.Mode)
		assert.Equal(t, int64(2e9), a.ModTime)
	})

	t.Run("mode keeps permission bits only", func(t *testing.T) {
		t.Parallel()
		a := Attr{}.WithMode(0o4755)
		assert.Equal(t, uint32(0o755), a.Mode)
	})

	t.Run("comparable", func(t *testing.T) {
		t.Parallel()
		a := New(0o644, time.Unix(5, 0)).WithContentType("text/plain")
		b := New(0o644, time.Unix(5, 0)).WithContentType("text/plain")
		assert.Equal(t, a, b)
		assert.True(t, a == b)
	})
}
