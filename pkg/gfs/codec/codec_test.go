package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/gfs/pkg/attr"
)

func TestCodecs(t *testing.T) {
	t.Parallel()

	meta := attr.Attr{Mode: 0o640, UID: 501, GID: 20, ModTime: 1_700_000_000_123_456_789, ContentType: "application/json"}

	for _, name := range []string{JSONName, CBORName, XDRName} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			c, err := ByName[attr.Attr](name)
			require.NoError(t, err)
			assert.Equal(t, name, c.Name())

			data, err := c.Marshal(meta)
			require.NoError(t, err)

			var got attr.Attr
			require.NoError(t, c.Unmarshal(data, &got))
			assert.Equal(t, meta, got)
		})
	}
}

func TestCBORIsDeterministic(t *testing.T) {
	t.Parallel()

	meta := attr.Attr{Mode: 0o644, UID: 1}
	a, err := CBOR[attr.Attr]{}.Marshal(meta)
	require.NoError(t, err)
	b, err := CBOR[attr.Attr]{}.Marshal(meta)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestByNameDefaultsAndUnknown(t *testing.T) {
	t.Parallel()

	c, err := ByName[attr.Attr]("")
	require.NoError(t, err)
	assert.Equal(t, JSONName, c.Name())

	_, err = ByName[attr.Attr]("protobuf")
	assert.Error(t, err)
}
