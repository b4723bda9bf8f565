package postgres

import (
	"fmt"
	"net/url"
	"time"

	"github.com/marmos91/gfs/pkg/gfs"
)

// Config configures a postgres store.
type Config struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	Database string `mapstructure:"database" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"ssl_mode"`

	MaxConns          int32         `mapstructure:"max_conns"`           // Default: 10
	MinConns          int32         `mapstructure:"min_conns"`           // Default: 1
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`   // Default: 1h
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`  // Default: 30m
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"` // Default: 1m
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`     // Default: 5s
	QueryTimeout      time.Duration `mapstructure:"query_timeout"`       // Default: 30s

	// AutoMigrate applies pending schema migrations on open.
	AutoMigrate bool `mapstructure:"auto_migrate"`

	Root         string           `mapstructure:"root"`
	RenamePolicy gfs.RenamePolicy `mapstructure:"rename_policy"`
	Codec        string           `mapstructure:"codec"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
	if c.MinConns == 0 {
		c.MinConns = 1
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = time.Hour
	}
	if c.MaxConnIdleTime == 0 {
		c.MaxConnIdleTime = 30 * time.Minute
	}
	if c.HealthCheckPeriod == 0 {
		c.HealthCheckPeriod = time.Minute
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 30 * time.Second
	}
	if c.SSLMode == "" {
		c.SSLMode = "prefer"
	}
	if c.RenamePolicy == "" {
		c.RenamePolicy = gfs.RenameOverwrite
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("postgres: host is required")
	}
	if c.Database == "" {
		return fmt.Errorf("postgres: database is required")
	}
	if c.User == "" {
		return fmt.Errorf("postgres: user is required")
	}
	if c.MaxConns < 1 {
		return fmt.Errorf("postgres: max_conns must be at least 1")
	}
	if c.MinConns < 0 || c.MinConns > c.MaxConns {
		return fmt.Errorf("postgres: min_conns (%d) must be between 0 and max_conns (%d)", c.MinConns, c.MaxConns)
	}
	switch c.SSLMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("postgres: invalid ssl_mode %q", c.SSLMode)
	}
	if _, err := gfs.ParseRenamePolicy(string(c.RenamePolicy)); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	return nil
}

// ConnectionString builds a postgres:// URL from the config.
func (c *Config) ConnectionString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	q.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	u.RawQuery = q.Encode()
	return u.String()
}
