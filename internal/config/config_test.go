package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfigFileDefaults(t *testing.T) {
	path := writeConfigFile(t, "app:\n  logLevel: info\n")

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 120*time.Second, cfg.API.AnalyzeTimeout)
	assert.Equal(t, "system", cfg.API.TLS.Mode)
	assert.True(t, cfg.API.CircuitBreaker.Enabled)
	assert.Equal(t, "text", cfg.App.DefaultFormat)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.True(t, filepath.IsAbs(cfg.Auth.TokenFile), "token file should be expanded: %s", cfg.Auth.TokenFile)
	assert.NotEmpty(t, cfg.Observability.ServiceInstance)
}

func TestLoadConfigFileOverrides(t *testing.T) {
	path := writeConfigFile(t, `
api:
  baseURL: https://resumes.example.com/
  timeout: 5s
  maxRetries: 0
auth:
  tokenFile: /tmp/resumectl-token
server:
  port: "9999"
  apiKeys: ["k1", "k2"]
app:
  defaultFormat: json
`)

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://resumes.example.com", cfg.API.BaseURL, "trailing slash is trimmed")
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, 0, cfg.API.MaxRetries)
	assert.Equal(t, "/tmp/resumectl-token", cfg.Auth.TokenFile)
	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)
	assert.Equal(t, "json", cfg.App.DefaultFormat)
}

func TestLoadConfigFileEnvironment(t *testing.T) {
	t.Setenv("RESUMECTL_API_BASEURL", "http://api.internal:8081")
	t.Setenv("RESUMECTL_AUTH_EMAIL", "jane@example.com")
	t.Setenv("RESUMECTL_SERVER_APIKEYS", "a, b ,c")
	path := writeConfigFile(t, "app:\n  logLevel: warn\n")

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://api.internal:8081", cfg.API.BaseURL)
	assert.Equal(t, "jane@example.com", cfg.Auth.Email)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Server.APIKeys)
}

func TestLoadConfigFileMissingExplicitFile(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "http://localhost:8080",
			Timeout:        time.Second,
			AnalyzeTimeout: time.Second,
			TLS:            TLSConfig{Mode: "system"},
		},
		Auth:   AuthConfig{TokenFile: "/tmp/token"},
		Server: ServerConfig{Port: "8090"},
		App: AppConfig{
			DefaultFormat:    "text",
			SupportedFormats: []string{"json", "text"},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing base url", mutate: func(c *Config) { c.API.BaseURL = "" }, errorMsg: "base URL is required"},
		{name: "bad scheme", mutate: func(c *Config) { c.API.BaseURL = "ftp://x" }, errorMsg: "http or https"},
		{name: "no host", mutate: func(c *Config) { c.API.BaseURL = "http://" }, errorMsg: "has no host"},
		{name: "zero timeout", mutate: func(c *Config) { c.API.Timeout = 0 }, errorMsg: "timeout must be positive"},
		{name: "negative retries", mutate: func(c *Config) { c.API.MaxRetries = -1 }, errorMsg: "cannot be negative"},
		{
			name: "rate limit without rate",
			mutate: func(c *Config) {
				c.API.RateLimit = ClientRateLimit{Enabled: true, Burst: 1}
			},
			errorMsg: "requestsPerSecond",
		},
		{
			name: "breaker threshold out of range",
			mutate: func(c *Config) {
				c.API.CircuitBreaker = CircuitBreakerConfig{Enabled: true, FailureThreshold: 1.5}
			},
			errorMsg: "failure threshold",
		},
		{
			name: "negative gateway quota",
			mutate: func(c *Config) {
				c.Server.RateLimit = RateLimitConfig{Enabled: true, RequestsPerMin: 60, AnalyzePerMin: -1}
			},
			errorMsg: "quotas cannot be negative",
		},
		{name: "no token file", mutate: func(c *Config) { c.Auth.TokenFile = "" }, errorMsg: "token file"},
		{name: "bad default format", mutate: func(c *Config) { c.App.DefaultFormat = "xml" }, errorMsg: "invalid default format"},
		{name: "bad tls", mutate: func(c *Config) { c.API.TLS.Mode = "custom" }, errorMsg: "TLS configuration error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errorMsg)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("RESUMECTL_TEST_DIR", "/var/lib/resumectl")

	assert.Equal(t, filepath.Join(home, ".resumectl", "token"), ExpandPath("~/.resumectl/token"))
	assert.Equal(t, "/var/lib/resumectl/token", ExpandPath("$RESUMECTL_TEST_DIR/token"))
	assert.Equal(t, "", ExpandPath(""))
}
