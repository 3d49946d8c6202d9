package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyServerAPIKeyFallbacks()
	c.applyTLSDefaults()
	c.applyObservabilityDefaults()
	c.Auth.TokenFile = ExpandPath(c.Auth.TokenFile)
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
}

// applyServerAPIKeyFallbacks applies API key fallbacks from environment variables
// and trims whitespace left over from comma separated values
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("RESUMECTL_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitAndTrim(apiKeysEnv)
		}
		return
	}
	c.Server.APIKeys = splitAndTrim(strings.Join(c.Server.APIKeys, ","))
}

// applyTLSDefaults applies default TLS configuration values
func (c *Config) applyTLSDefaults() {
	if c.API.TLS.Mode == "" {
		c.API.TLS.Mode = "system"
	}
	if c.API.TLS.MinVersion == "" {
		c.API.TLS.MinVersion = "1.2"
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// ExpandPath resolves a leading ~ and environment variables in p.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	p = os.ExpandEnv(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return filepath.Clean(p)
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	debugf("=== Configuration Sources Summary ===")

	if configFileUsed != "" {
		debugf("Config file: %s", configFileUsed)
	} else {
		debugf("Config file: None (using defaults)")
	}

	envVars := []string{
		"RESUMECTL_API_BASEURL",
		"RESUMECTL_API_TIMEOUT",
		"RESUMECTL_AUTH_TOKENFILE",
		"RESUMECTL_AUTH_EMAIL",
		"RESUMECTL_AUTH_PASSWORD",
		"RESUMECTL_SERVER_PORT",
		"RESUMECTL_SERVER_HOST",
		"RESUMECTL_SERVER_APIKEYS",
		"RESUMECTL_APP_LOGLEVEL",
		"RESUMECTL_VAULT_ENABLED",
	}

	debugf("Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			lower := strings.ToLower(envVar)
			if strings.Contains(lower, "password") || strings.Contains(lower, "key") {
				debugf("  %s=***MASKED***", envVar)
			} else {
				debugf("  %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		debugf("  None set")
	}

	debugf("=== Key Configuration Values ===")
	debugf("API Base URL: %s", c.API.BaseURL)
	debugf("API Timeout: %s (analyze %s)", c.API.Timeout, c.API.AnalyzeTimeout)
	debugf("Token File: %s", c.Auth.TokenFile)
	if c.Auth.Password != "" {
		debugf("Login Password: ***CONFIGURED***")
	}
	debugf("Gateway: %s:%s", c.Server.Host, c.Server.Port)
	debugf("Log Level: %s", c.App.LogLevel)
	debugf("TLS Mode: %s", c.API.TLS.Mode)
	debugf("Vault Enabled: %t", c.Vault.Enabled)
	debugf("Observability Enabled: %t", c.Observability.Enabled)
	debugf("=====================================")
}
