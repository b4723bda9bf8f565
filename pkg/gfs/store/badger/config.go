package badger

import (
	"fmt"

	"github.com/marmos91/gfs/internal/bytesize"
	"github.com/marmos91/gfs/pkg/gfs"
)

// Compression modes for entry content.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

// DefaultCompressionThreshold is the smallest content size worth compressing.
const DefaultCompressionThreshold = 1 * bytesize.KiB

// Config configures a badger store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string `mapstructure:"path"`

	// InMemory keeps the database in memory only.
	InMemory bool `mapstructure:"in_memory"`

	// SyncWrites fsyncs every commit.
	SyncWrites bool `mapstructure:"sync_writes"`

	Root         string           `mapstructure:"root"`
	RenamePolicy gfs.RenamePolicy `mapstructure:"rename_policy"`

	// Codec names the metadata codec (json, cbor, xdr).
	Codec string `mapstructure:"codec"`

	// Compression is "none" or "zstd".
	Compression string `mapstructure:"compression"`

	// CompressionThreshold is the minimum content size compressed.
	CompressionThreshold bytesize.ByteSize `mapstructure:"compression_threshold"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.RenamePolicy == "" {
		c.RenamePolicy = gfs.RenameOverwrite
	}
	if c.Compression == "" {
		c.Compression = CompressionNone
	}
	if c.CompressionThreshold == 0 {
		c.CompressionThreshold = DefaultCompressionThreshold
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Path == "" && !c.InMemory {
		return fmt.Errorf("badger: path is required unless in_memory is set")
	}
	switch c.Compression {
	case CompressionNone, CompressionZstd:
	default:
		return fmt.Errorf("badger: unknown compression %q", c.Compression)
	}
	if _, err := gfs.ParseRenamePolicy(string(c.RenamePolicy)); err != nil {
		return fmt.Errorf("badger: %w", err)
	}
	return nil
}
