package relational

import (
	"fmt"

	"github.com/marmos91/gfs/pkg/gfs"
)

// DatabaseType selects the SQL backend.
type DatabaseType string

const (
	// DatabaseTypeSQLite uses a single SQLite file.
	DatabaseTypeSQLite DatabaseType = "sqlite"

	// DatabaseTypePostgres uses PostgreSQL.
	DatabaseTypePostgres DatabaseType = "postgres"
)

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the database file. Its parent directory is created on open.
	Path string `mapstructure:"path"`
}

// PostgresConfig contains PostgreSQL-specific configuration.
type PostgresConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Database     string `mapstructure:"database"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// DSN returns the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Database)
	if c.SSLMode != "" {
		dsn += " sslmode=" + c.SSLMode
	}
	return dsn
}

// Config configures a relational store.
type Config struct {
	Type     DatabaseType   `mapstructure:"type"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`

	Root         string           `mapstructure:"root"`
	RenamePolicy gfs.RenamePolicy `mapstructure:"rename_policy"`
	Codec        string           `mapstructure:"codec"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Type == "" {
		c.Type = DatabaseTypeSQLite
	}
	if c.Type == DatabaseTypePostgres {
		if c.Postgres.Port == 0 {
			c.Postgres.Port = 5432
		}
		if c.Postgres.SSLMode == "" {
			c.Postgres.SSLMode = "disable"
		}
		if c.Postgres.MaxOpenConns == 0 {
			c.Postgres.MaxOpenConns = 25
		}
		if c.Postgres.MaxIdleConns == 0 {
			c.Postgres.MaxIdleConns = 5
		}
	}
	if c.RenamePolicy == "" {
		c.RenamePolicy = gfs.RenameOverwrite
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Type {
	case DatabaseTypeSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("relational: sqlite path is required")
		}
	case DatabaseTypePostgres:
		if c.Postgres.Host == "" {
			return fmt.Errorf("relational: postgres host is required")
		}
		if c.Postgres.Database == "" {
			return fmt.Errorf("relational: postgres database is required")
		}
		if c.Postgres.User == "" {
			return fmt.Errorf("relational: postgres user is required")
		}
	default:
		return fmt.Errorf("relational: unsupported database type %q", c.Type)
	}
	if _, err := gfs.ParseRenamePolicy(string(c.RenamePolicy)); err != nil {
		return fmt.Errorf("relational: %w", err)
	}
	return nil
}
