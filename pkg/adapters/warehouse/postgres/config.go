package postgres

import (
	"fmt"
	"net/url"

	"github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse"
	"github.com/milkyway-analytics/milkyway/pkg/config"
)

// Config contains PostgreSQL-specific connection options.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // "disable", "require", "verify-ca", "verify-full"
}

// DefaultPort returns the default PostgreSQL port.
func DefaultPort() int {
	return 5432
}

// DefaultSSLMode returns the default SSL mode.
func DefaultSSLMode() string {
	return "require"
}

// FromMap creates a Config from a generic config map.
func FromMap(cfgMap map[string]any) (*Config, error) {
	cfg := &Config{
		Port:    warehouse.IntOption(cfgMap, "port", DefaultPort()),
		SSLMode: DefaultSSLMode(),
	}

	var err error
	if cfg.Host, err = warehouse.RequiredString(cfgMap, "host"); err != nil {
		return nil, err
	}
	if cfg.User, err = warehouse.RequiredString(cfgMap, "user"); err != nil {
		return nil, err
	}
	if cfg.Database, err = warehouse.RequiredString(cfgMap, "database", "name"); err != nil {
		return nil, err
	}
	cfg.Password, _ = warehouse.StringOption(cfgMap, "password")
	if sslMode, ok := warehouse.StringOption(cfgMap, "ssl_mode"); ok {
		cfg.SSLMode = sslMode
	}

	return cfg, nil
}

// ConnectionString builds a PostgreSQL URL with proper escaping.
// All user-provided fields are URL-escaped so passwords containing @, /, #
// or ? survive URL parsing. Inside Docker, localhost is resolved to
// host.docker.internal.
func (c *Config) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = DefaultSSLMode()
	}

	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		config.ResolveHostForDocker(c.Host),
		c.Port,
		url.QueryEscape(c.Database),
		sslMode,
	)
}
