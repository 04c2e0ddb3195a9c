package snowflake

import (
	"fmt"
	"net/url"

	"github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse"
)

// Config contains Snowflake connection options.
type Config struct {
	Account   string // e.g. acme-xy12345
	User      string
	Password  string
	Database  string
	Schema    string
	Warehouse string
	Role      string
}

// FromMap creates a Config from a generic config map.
func FromMap(cfgMap map[string]any) (*Config, error) {
	cfg := &Config{}

	var err error
	if cfg.Account, err = warehouse.RequiredString(cfgMap, "account"); err != nil {
		return nil, err
	}
	if cfg.User, err = warehouse.RequiredString(cfgMap, "user"); err != nil {
		return nil, err
	}
	if cfg.Database, err = warehouse.RequiredString(cfgMap, "database"); err != nil {
		return nil, err
	}
	cfg.Password, _ = warehouse.StringOption(cfgMap, "password")
	cfg.Schema, _ = warehouse.StringOption(cfgMap, "default_dataset", "schema")
	cfg.Warehouse, _ = warehouse.StringOption(cfgMap, "warehouse")
	cfg.Role, _ = warehouse.StringOption(cfgMap, "role")
	return cfg, nil
}

// DSN builds the gosnowflake DSN: user:password@account/database[/schema]?params.
func (c *Config) DSN() string {
	path := url.PathEscape(c.Database)
	if c.Schema != "" {
		path += "/" + url.PathEscape(c.Schema)
	}

	params := url.Values{}
	if c.Warehouse != "" {
		params.Set("warehouse", c.Warehouse)
	}
	if c.Role != "" {
		params.Set("role", c.Role)
	}

	dsn := fmt.Sprintf("%s:%s@%s/%s", url.QueryEscape(c.User), url.QueryEscape(c.Password), c.Account, path)
	if len(params) > 0 {
		dsn += "?" + params.Encode()
	}
	return dsn
}
