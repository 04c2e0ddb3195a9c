package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

// chdirTemp moves the test into a temp directory, optionally writing a
// config.yaml there, so Load() sees only what the test provides.
func chdirTemp(t *testing.T, yamlContent string) string {
	t.Helper()
	tmpDir := t.TempDir()
	if yamlContent != "" {
		if err := os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte(yamlContent), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
	}

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		os.Chdir(originalDir)
	})
	return tmpDir
}

// unsetEnv clears variables for the duration of the test. t.Setenv records
// the original value so it is restored afterwards.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

var configEnvKeys = []string{
	"BIND_ADDR", "PORT", "ENVIRONMENT", "LOG_LEVEL", "TLS_CERT_PATH", "TLS_KEY_PATH",
	"WAREHOUSE_TYPE", "WAREHOUSE_HOST", "WAREHOUSE_PORT", "WAREHOUSE_USER", "WAREHOUSE_PASSWORD",
	"WAREHOUSE_DATABASE", "WAREHOUSE_PATH", "WAREHOUSE_DEFAULT_DATASET", "WAREHOUSE_PREVIEW_LIMIT",
	"WAREHOUSE_SCHEMA_CACHE_TTL", "DBT_BINARY", "DBT_PROJECT_DIR", "DBT_PROFILES_DIR",
	"LLM_PROVIDER", "LLM_MODEL", "LLM_MAX_TOKENS", "ANTHROPIC_API_KEY", "OPENAI_API_KEY",
	"MEMORY_PATH", "SESSION_SECRET",
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	unsetEnv(t, configEnvKeys...)
	chdirTemp(t, `
server:
  port: "9000"
  env: "test"
warehouse:
  type: "postgres"
  host: "wh.example.com"
  port: 5432
  user: "analyst"
  database: "analytics"
`)

	t.Setenv("PORT", "9100")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != "9100" {
		t.Errorf("expected Port=9100 (from env), got %s", cfg.Server.Port)
	}
	if cfg.Server.Env != "production" {
		t.Errorf("expected Env=production (from env), got %s", cfg.Server.Env)
	}
	if cfg.Version != "test-version" {
		t.Errorf("expected Version=test-version, got %s", cfg.Version)
	}
	// YAML value used where no env is set (proves YAML was read)
	if cfg.Warehouse.Host != "wh.example.com" {
		t.Errorf("expected Warehouse.Host=wh.example.com (from yaml), got %s", cfg.Warehouse.Host)
	}
	if cfg.Warehouse.Port != 5432 {
		t.Errorf("expected Warehouse.Port=5432, got %d", cfg.Warehouse.Port)
	}
}

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t, configEnvKeys...)
	chdirTemp(t, "server: {}\n")

	cfg, err := Load("dev")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8501", cfg.Server.Addr())
	assert.Equal(t, "postgres", cfg.Warehouse.Type)
	assert.Equal(t, "sessions", cfg.Warehouse.DefaultDataset)
	assert.Equal(t, 100, cfg.Warehouse.PreviewLimit)
	assert.Equal(t, 5*time.Minute, cfg.Warehouse.SchemaCacheTTL)
	assert.Equal(t, "dbt", cfg.DBT.Binary)
	assert.Equal(t, "dbt_milkyway", cfg.DBT.ProjectDir)
	assert.Equal(t, "dbt_milkyway", cfg.DBT.ProfilesDir, "profiles dir defaults to the project dir")
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 1024, cfg.LLM.MaxTokens)
	assert.Equal(t, ".agent_memory.json", cfg.Memory.Path)
	assert.Equal(t, "milkyway_session", cfg.Session.CookieName)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	unsetEnv(t, configEnvKeys...)
	chdirTemp(t, "")

	_, err := Load("test")
	if err == nil {
		t.Fatal("expected error when config.yaml is missing")
	}
	if !strings.Contains(err.Error(), "config.yaml") {
		t.Errorf("expected error to name config.yaml, got: %v", err)
	}
}

func TestLoadFrom_EnvOnly(t *testing.T) {
	unsetEnv(t, configEnvKeys...)
	chdirTemp(t, "")

	t.Setenv("WAREHOUSE_TYPE", "duckdb")
	t.Setenv("WAREHOUSE_PATH", "/data/events.duckdb")
	t.Setenv("LLM_PROVIDER", "None")

	cfg, err := LoadFrom("", "test")
	require.NoError(t, err)

	assert.Equal(t, "duckdb", cfg.Warehouse.Type)
	assert.Equal(t, "/data/events.duckdb", cfg.Warehouse.Path)
	assert.Equal(t, "none", cfg.LLM.Provider, "provider is normalized")
}

func TestLoad_SecretsOnlyFromEnv(t *testing.T) {
	unsetEnv(t, configEnvKeys...)
	// A password in YAML is ignored; only the env var counts.
	chdirTemp(t, `
warehouse:
  password: "from-yaml"
llm:
  provider: openai
`)
	t.Setenv("WAREHOUSE_PASSWORD", "from-env")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("test")
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Warehouse.Password)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey())
}

func TestLoad_InvalidProvider(t *testing.T) {
	unsetEnv(t, configEnvKeys...)
	chdirTemp(t, "llm:\n  provider: gemini\n")

	_, err := Load("test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.provider")
}

func TestLoad_InvalidPreviewLimit(t *testing.T) {
	unsetEnv(t, configEnvKeys...)
	chdirTemp(t, "warehouse:\n  preview_limit: -1\n")

	_, err := Load("test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preview_limit")
}

func TestWarehouseConfig_Options(t *testing.T) {
	w := WarehouseConfig{
		Type:           "postgres",
		Host:           "localhost",
		Port:           5433,
		User:           "analyst",
		Password:       "secret",
		Database:       "analytics",
		DefaultDataset: "sessions",
	}

	opts := w.Options()

	assert.Equal(t, map[string]any{
		"host":            "localhost",
		"port":            5433,
		"user":            "analyst",
		"password":        "secret",
		"database":        "analytics",
		"default_dataset": "sessions",
	}, opts)
}

func TestLLMConfig_APIKey(t *testing.T) {
	cfg := LLMConfig{AnthropicAPIKey: "a-key", OpenAIAPIKey: "o-key"}

	cfg.Provider = "anthropic"
	assert.Equal(t, "a-key", cfg.APIKey())
	cfg.Provider = "openai"
	assert.Equal(t, "o-key", cfg.APIKey())
	cfg.Provider = "none"
	assert.Empty(t, cfg.APIKey())
}

func TestLoad_NoTLS(t *testing.T) {
	unsetEnv(t, configEnvKeys...)
	chdirTemp(t, "server:\n  port: \"8501\"\n")

	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.TLSCertPath != "" || cfg.Server.TLSKeyPath != "" {
		t.Errorf("expected no TLS paths, got cert=%q key=%q", cfg.Server.TLSCertPath, cfg.Server.TLSKeyPath)
	}
}

func TestValidateTLS_BothProvided(t *testing.T) {
	tmpDir := t.TempDir()
	certPath := filepath.Join(tmpDir, "cert.pem")
	keyPath := filepath.Join(tmpDir, "key.pem")
	require.NoError(t, os.WriteFile(certPath, []byte("cert"), 0600))
	require.NoError(t, os.WriteFile(keyPath, []byte("key"), 0600))

	cfg := &Config{Server: ServerConfig{TLSCertPath: certPath, TLSKeyPath: keyPath}}
	if err := cfg.validateTLS(); err != nil {
		t.Errorf("expected valid TLS config, got: %v", err)
	}
}

func TestValidateTLS_OnlyOneProvided(t *testing.T) {
	tests := []struct {
		name   string
		server ServerConfig
	}{
		{"cert only", ServerConfig{TLSCertPath: "/tmp/cert.pem"}},
		{"key only", ServerConfig{TLSKeyPath: "/tmp/key.pem"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Server: tt.server}
			err := cfg.validateTLS()
			if err == nil {
				t.Fatal("expected error when only one TLS path is provided")
			}
			if !strings.Contains(err.Error(), "must be provided together") {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateTLS_FileNotFound(t *testing.T) {
	tmpDir := t.TempDir()
	keyPath := filepath.Join(tmpDir, "key.pem")
	require.NoError(t, os.WriteFile(keyPath, []byte("key"), 0600))

	cfg := &Config{Server: ServerConfig{
		TLSCertPath: filepath.Join(tmpDir, "missing.pem"),
		TLSKeyPath:  keyPath,
	}}
	err := cfg.validateTLS()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cert file does not exist")
}

func TestResolveLLMKey(t *testing.T) {
	keyring.MockInit()

	t.Run("env key wins", func(t *testing.T) {
		require.NoError(t, SetLLMKey("anthropic", "from-keyring"))
		t.Cleanup(func() { _ = DeleteLLMKey("anthropic") })

		key, err := ResolveLLMKey(LLMConfig{Provider: "anthropic", AnthropicAPIKey: "from-env"})
		require.NoError(t, err)
		assert.Equal(t, "from-env", key)
	})

	t.Run("keyring fallback", func(t *testing.T) {
		require.NoError(t, SetLLMKey("openai", "sk-stored"))
		t.Cleanup(func() { _ = DeleteLLMKey("openai") })

		key, err := ResolveLLMKey(LLMConfig{Provider: "openai"})
		require.NoError(t, err)
		assert.Equal(t, "sk-stored", key)
	})

	t.Run("nothing stored", func(t *testing.T) {
		key, err := ResolveLLMKey(LLMConfig{Provider: "anthropic"})
		require.NoError(t, err)
		assert.Empty(t, key)
	})

	t.Run("provider none skips keyring", func(t *testing.T) {
		key, err := ResolveLLMKey(LLMConfig{Provider: "none"})
		require.NoError(t, err)
		assert.Empty(t, key)
	})
}

func TestKeyringHelpers_Validation(t *testing.T) {
	keyring.MockInit()

	assert.Error(t, SetLLMKey("", "k"))
	assert.Error(t, SetLLMKey("anthropic", ""))
	assert.NoError(t, DeleteLLMKey("anthropic"), "deleting a missing key succeeds")
}
