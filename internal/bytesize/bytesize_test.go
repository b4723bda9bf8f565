package bytesize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    ByteSize
		wantErr bool
	}{
		{"0", 0, false},
		{"4096", 4096, false},
		{"10B", 10, false},
		{"1Ki", KiB, false},
		{"1KiB", KiB, false},
		{"64mib", 64 * MiB, false},
		{"2Gi", 2 * GiB, false},
		{"1K", 1000, false},
		{"5MB", 5_000_000, false},
		{" 3 Mi ", 3 * MiB, false},
		{"1.5Ki", 1536, false},
		{"", 0, true},
		{"abc", 0, true},
		{"10XB", 0, true},
		{"-1", 0, true},
		{"99999999999999999999Gi", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarshalText(t *testing.T) {
	for _, size := range []ByteSize{0, 1, 1000, KiB, 3 * MiB, 5 * GiB, 1536} {
		text, err := size.MarshalText()
		require.NoError(t, err)

		var back ByteSize
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, size, back, "size %d rendered as %q", uint64(size), text)
	}

	text, _ := (64 * MiB).MarshalText()
	assert.Equal(t, "64Mi", string(text))
}

func TestString(t *testing.T) {
	assert.Equal(t, "512B", ByteSize(512).String())
	assert.Equal(t, "1.50KiB", ByteSize(1536).String())
	assert.Equal(t, "2.00GiB", (2 * GiB).String())
}
