package mssql

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse"
	"github.com/milkyway-analytics/milkyway/pkg/config"
)

// Auth methods. Credentials are passed through to the driver untouched.
const (
	AuthSQL              = "sql"
	AuthServicePrincipal = "service_principal"
)

// Config contains SQL Server-specific connection options.
type Config struct {
	Host     string
	Port     int
	Database string

	AuthMethod string

	// SQL authentication
	Username string
	Password string

	// Service principal (Azure AD client credentials)
	TenantID     string
	ClientID     string
	ClientSecret string

	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// FromMap creates a Config from a generic config map. The auth method is
// taken from auth_method or inferred: a client_id means service principal,
// otherwise SQL authentication.
func FromMap(cfgMap map[string]any) (*Config, error) {
	cfg := &Config{
		Port:              warehouse.IntOption(cfgMap, "port", DefaultPort()),
		Encrypt:           true,
		ConnectionTimeout: warehouse.IntOption(cfgMap, "connection_timeout", 30),
	}

	var err error
	if cfg.Host, err = warehouse.RequiredString(cfgMap, "host"); err != nil {
		return nil, err
	}
	if cfg.Database, err = warehouse.RequiredString(cfgMap, "database", "name"); err != nil {
		return nil, err
	}

	switch v := cfgMap["encrypt"].(type) {
	case bool:
		cfg.Encrypt = v
	case string:
		cfg.Encrypt = v == "true" || v == "strict"
	}
	if trust, ok := cfgMap["trust_server_certificate"].(bool); ok {
		cfg.TrustServerCertificate = trust
	}

	cfg.AuthMethod, _ = warehouse.StringOption(cfgMap, "auth_method")
	if cfg.AuthMethod == "" {
		cfg.AuthMethod = AuthSQL
		if _, ok := warehouse.StringOption(cfgMap, "client_id"); ok {
			cfg.AuthMethod = AuthServicePrincipal
		}
	}

	switch cfg.AuthMethod {
	case AuthSQL:
		if cfg.Username, err = warehouse.RequiredString(cfgMap, "user", "username"); err != nil {
			return nil, err
		}
		cfg.Password, _ = warehouse.StringOption(cfgMap, "password")
	case AuthServicePrincipal:
		if cfg.TenantID, err = warehouse.RequiredString(cfgMap, "tenant_id"); err != nil {
			return nil, err
		}
		if cfg.ClientID, err = warehouse.RequiredString(cfgMap, "client_id"); err != nil {
			return nil, err
		}
		if cfg.ClientSecret, err = warehouse.RequiredString(cfgMap, "client_secret", "password"); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("invalid auth method: %s (must be sql or service_principal)", cfg.AuthMethod)
	}

	return cfg, nil
}

// DriverName returns the database/sql driver for the auth method.
func (c *Config) DriverName() string {
	if c.AuthMethod == AuthServicePrincipal {
		return "azuresql"
	}
	return "sqlserver"
}

// ConnectionString builds a sqlserver:// URL with escaped credentials.
func (c *Config) ConnectionString() string {
	query := url.Values{}
	query.Add("database", c.Database)
	query.Add("encrypt", strconv.FormatBool(c.Encrypt))
	if c.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}
	if c.ConnectionTimeout > 0 {
		query.Add("connection timeout", strconv.Itoa(c.ConnectionTimeout))
	}

	host := config.ResolveHostForDocker(c.Host)

	if c.AuthMethod == AuthServicePrincipal {
		query.Add("fedauth", "ActiveDirectoryServicePrincipal")
		query.Add("user id", c.ClientID+"@"+c.TenantID)
		query.Add("password", c.ClientSecret)
		return fmt.Sprintf("sqlserver://%s:%d?%s", host, c.Port, query.Encode())
	}

	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?%s",
		url.QueryEscape(c.Username),
		url.QueryEscape(c.Password),
		host,
		c.Port,
		query.Encode(),
	)
}
