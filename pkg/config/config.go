package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultPath is the config file read when none is given.
const DefaultPath = "config.yaml"

// Config holds all configuration for milkyway.
// Configuration can come from a YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables or the OS keyring.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Warehouse WarehouseConfig `yaml:"warehouse"`
	DBT       DBTConfig       `yaml:"dbt"`
	LLM       LLMConfig       `yaml:"llm"`
	Memory    MemoryConfig    `yaml:"memory"`
	Session   SessionConfig   `yaml:"session"`

	Version string `yaml:"-"` // Set at load time, not from config
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8501"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:""`

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return s.BindAddr + ":" + s.Port
}

// WarehouseConfig selects and configures the warehouse adapter. Which fields
// matter depends on Type: postgres and mssql use host/port/user/database,
// snowflake uses account/user/database/warehouse/role, duckdb uses path.
type WarehouseConfig struct {
	Type           string        `yaml:"type" env:"WAREHOUSE_TYPE" env-default:"postgres"`
	Host           string        `yaml:"host" env:"WAREHOUSE_HOST" env-default:"localhost"`
	Port           int           `yaml:"port" env:"WAREHOUSE_PORT"`
	User           string        `yaml:"user" env:"WAREHOUSE_USER"`
	Password       string        `yaml:"-" env:"WAREHOUSE_PASSWORD"` // Secret - not in YAML
	Database       string        `yaml:"database" env:"WAREHOUSE_DATABASE"`
	Account        string        `yaml:"account" env:"WAREHOUSE_ACCOUNT"`
	Warehouse      string        `yaml:"warehouse" env:"WAREHOUSE_COMPUTE"`
	Role           string        `yaml:"role" env:"WAREHOUSE_ROLE"`
	Path           string        `yaml:"path" env:"WAREHOUSE_PATH"`
	SSLMode        string        `yaml:"ssl_mode" env:"WAREHOUSE_SSL_MODE"`
	Project        string        `yaml:"project" env:"WAREHOUSE_PROJECT"`
	DefaultDataset string        `yaml:"default_dataset" env:"WAREHOUSE_DEFAULT_DATASET" env-default:"sessions"`
	PreviewLimit   int           `yaml:"preview_limit" env:"WAREHOUSE_PREVIEW_LIMIT" env-default:"100"`
	SchemaCacheTTL time.Duration `yaml:"schema_cache_ttl" env:"WAREHOUSE_SCHEMA_CACHE_TTL" env-default:"5m"`
}

// Options renders the adapter config map consumed by the warehouse registry.
// Unset fields are left out so adapter defaults apply.
func (w WarehouseConfig) Options() map[string]any {
	opts := map[string]any{}
	put := func(key, value string) {
		if value != "" {
			opts[key] = value
		}
	}
	put("host", w.Host)
	put("user", w.User)
	put("password", w.Password)
	put("database", w.Database)
	put("account", w.Account)
	put("warehouse", w.Warehouse)
	put("role", w.Role)
	put("path", w.Path)
	put("ssl_mode", w.SSLMode)
	put("project", w.Project)
	put("default_dataset", w.DefaultDataset)
	if w.Port > 0 {
		opts["port"] = w.Port
	}
	return opts
}

// DBTConfig locates the dbt executable and project.
type DBTConfig struct {
	Binary      string `yaml:"binary" env:"DBT_BINARY" env-default:"dbt"`
	ProjectDir  string `yaml:"project_dir" env:"DBT_PROJECT_DIR" env-default:"dbt_milkyway"`
	ProfilesDir string `yaml:"profiles_dir" env:"DBT_PROFILES_DIR" env-default:""` // Defaults to ProjectDir
}

// LLMConfig configures the assistant's chat model.
type LLMConfig struct {
	Provider  string `yaml:"provider" env:"LLM_PROVIDER" env-default:"anthropic"`
	Model     string `yaml:"model" env:"LLM_MODEL" env-default:""`
	BaseURL   string `yaml:"base_url" env:"LLM_BASE_URL" env-default:""`
	MaxTokens int    `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"1024"`

	// Secrets - not in YAML. The one matching Provider is used; an empty key
	// falls back to the OS keyring.
	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string `yaml:"-" env:"OPENAI_API_KEY"`
}

// APIKey returns the environment key for the configured provider.
func (l LLMConfig) APIKey() string {
	switch strings.ToLower(l.Provider) {
	case "anthropic":
		return l.AnthropicAPIKey
	case "openai":
		return l.OpenAIAPIKey
	}
	return ""
}

// MemoryConfig locates the assistant memory file.
type MemoryConfig struct {
	Path string `yaml:"path" env:"MEMORY_PATH" env-default:".agent_memory.json"`
}

// SessionConfig configures the chat session cookie.
type SessionConfig struct {
	CookieName string `yaml:"cookie_name" env:"SESSION_COOKIE_NAME" env-default:"milkyway_session"`
	Secret     string `yaml:"-" env:"SESSION_SECRET"` // Secret - not in YAML
}

var supportedProviders = map[string]bool{"anthropic": true, "openai": true, "none": true}

// Load reads config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFrom(DefaultPath, version)
}

// LoadFrom reads the YAML file at path with environment variable overrides.
// An empty path reads the environment only.
func LoadFrom(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if path == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if !supportedProviders[c.LLM.Provider] {
		return fmt.Errorf("invalid llm.provider %q: must be anthropic, openai or none", c.LLM.Provider)
	}
	if c.Warehouse.Type == "" {
		return errors.New("warehouse.type is required")
	}
	if c.Warehouse.PreviewLimit <= 0 {
		return fmt.Errorf("warehouse.preview_limit must be positive, got %d", c.Warehouse.PreviewLimit)
	}
	if c.DBT.ProfilesDir == "" {
		c.DBT.ProfilesDir = c.DBT.ProjectDir
	}
	if err := c.validateTLS(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}
	return nil
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and files must exist.
func (c *Config) validateTLS() error {
	certSet := c.Server.TLSCertPath != ""
	keySet := c.Server.TLSKeyPath != ""

	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	// Actual readability is checked by tls.LoadX509KeyPair at startup
	if certSet {
		if _, err := os.Stat(c.Server.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.Server.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}
