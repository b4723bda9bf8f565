package s3

import (
	"fmt"
	"time"

	"github.com/marmos91/gfs/pkg/gfs"
)

// Config configures an S3 store.
type Config struct {
	// Bucket is the bucket holding the entries. It must already exist.
	Bucket string `mapstructure:"bucket" validate:"required"`

	// Region is the AWS region. Empty uses the SDK default chain.
	Region string `mapstructure:"region"`

	// Endpoint overrides the S3 endpoint for S3-compatible services.
	Endpoint string `mapstructure:"endpoint"`

	// AccessKeyID and SecretAccessKey select static credentials. When empty
	// the SDK default credential chain is used.
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`

	// ForcePathStyle is required by Localstack and MinIO.
	ForcePathStyle bool `mapstructure:"force_path_style"`

	// KeyPrefix is prepended to every object key. Should end with "/".
	KeyPrefix string `mapstructure:"key_prefix"`

	Root         string           `mapstructure:"root"`
	RenamePolicy gfs.RenamePolicy `mapstructure:"rename_policy"`
	Codec        string           `mapstructure:"codec"`

	// MaxRetries bounds retries of transient failures. Zero disables them.
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"` // Default: 100ms
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`     // Default: 2s
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.InitialBackoff == 0 {
		c.InitialBackoff = 100 * time.Millisecond
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 2 * time.Second
	}
	if c.RenamePolicy == "" {
		c.RenamePolicy = gfs.RenameOverwrite
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("s3: bucket is required")
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("s3: access_key_id and secret_access_key must be set together")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("s3: max_retries cannot be negative")
	}
	if _, err := gfs.ParseRenamePolicy(string(c.RenamePolicy)); err != nil {
		return fmt.Errorf("s3: %w", err)
	}
	return nil
}
