package config

import (
	"fmt"
	"log"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
// Credential Precedence Order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (RESUMECTL_AUTH_EMAIL, etc.)
// 4. Default values - Lowest priority
type Config struct {
	API           APIConfig           `mapstructure:"api"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// APIConfig holds settings for the remote resume analyzer API
type APIConfig struct {
	BaseURL           string               `mapstructure:"baseURL"`
	Timeout           time.Duration        `mapstructure:"timeout"`
	AnalyzeTimeout    time.Duration        `mapstructure:"analyzeTimeout"` // Scoring is slower than CRUD calls
	MaxRetries        int                  `mapstructure:"maxRetries"`     // Applies to idempotent reads only
	UserAgent         string               `mapstructure:"userAgent"`
	ValidateResponses bool                 `mapstructure:"validateResponses"` // Check analyzer output against the result schema
	RateLimit         ClientRateLimit      `mapstructure:"rateLimit"`
	CircuitBreaker    CircuitBreakerConfig `mapstructure:"circuitBreaker"`
	TLS               TLSConfig            `mapstructure:"tls"`
}

// ClientRateLimit throttles outgoing API calls
type ClientRateLimit struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requestsPerSecond"`
	Burst             int     `mapstructure:"burst"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// TLSConfig holds TLS settings for connections to the API
type TLSConfig struct {
	Mode     string `mapstructure:"mode"`     // TLS mode: "system", "custom", "mutual"
	CAFile   string `mapstructure:"caFile"`   // CA bundle used to verify the API (PEM)
	CertFile string `mapstructure:"certFile"` // Client certificate for mutual mode (PEM)
	KeyFile  string `mapstructure:"keyFile"`  // Client private key for mutual mode (PEM)

	// Certificate content (used when loaded from Vault instead of files)
	CAContent   string `mapstructure:"caContent"`
	CertContent string `mapstructure:"certContent"`
	KeyContent  string `mapstructure:"keyContent"`

	MinVersion         string `mapstructure:"minVersion"`         // Minimum TLS version: "1.2", "1.3"
	InsecureSkipVerify bool   `mapstructure:"insecureSkipVerify"` // Skip certificate verification (dev only)
	ServerName         string `mapstructure:"serverName"`         // Override the expected server name
}

// AuthConfig controls where the bearer credential lives
type AuthConfig struct {
	TokenFile     string        `mapstructure:"tokenFile"`
	Watch         bool          `mapstructure:"watch"` // Reload the token when another process logs in or out
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`
	Email         string        `mapstructure:"email"`
	Password      string        `mapstructure:"password"`
	ExpiryLeeway  time.Duration `mapstructure:"expiryLeeway"`

	// Token is a pre-issued bearer token supplied by Vault, never read from files or env.
	Token string `mapstructure:"-"`
}

// ServerConfig holds settings for the local session gateway
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout    time.Duration `mapstructure:"idleTimeout"`
	MaxRequestSize int64         `mapstructure:"maxRequestSize"`
	SessionTTL     time.Duration `mapstructure:"sessionTTL"` // Idle sessions are closed after this long
	MaxSessions    int           `mapstructure:"maxSessions"`

	// API Authentication
	APIKeys        []string      `mapstructure:"apiKeys"`
	APIKeysRefresh time.Duration `mapstructure:"apiKeysRefresh"` // Vault poll interval for rotated keys, 0 disables

	// Rate Limiting Configuration
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`        // Enable/disable rate limiting
	RequestsPerMin int  `mapstructure:"requestsPerMin"` // Requests allowed per minute
	BurstCapacity  int  `mapstructure:"burstCapacity"`  // Burst capacity for token bucket
	ByIP           bool `mapstructure:"byIP"`           // Enable per-IP rate limiting
	ByAPIKey       bool `mapstructure:"byAPIKey"`       // Enable per-API-key rate limiting
	SessionsPerMin int  `mapstructure:"sessionsPerMin"` // Session creations per client per minute, 0 disables
	AnalyzePerMin  int  `mapstructure:"analyzePerMin"`  // Analysis runs per session per minute, 0 disables
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig holds fine-grained custom metrics configuration
type CustomMetricsConfig struct {
	APIRequests    APIRequestMetricsConfig     `mapstructure:"apiRequests"`
	SessionEvents  SessionEventMetricsConfig   `mapstructure:"sessionEvents"`
	Infrastructure InfrastructureMetricsConfig `mapstructure:"infrastructure"`
}

// APIRequestMetricsConfig holds remote API call metrics configuration
type APIRequestMetricsConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	TrackDuration bool `mapstructure:"trackDuration"`
}

// SessionEventMetricsConfig holds analysis-session metrics configuration
type SessionEventMetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// InfrastructureMetricsConfig holds infrastructure metrics configuration
type InfrastructureMetricsConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	TrackRateLimits  bool `mapstructure:"trackRateLimits"`
	TrackTokenExpiry bool `mapstructure:"trackTokenExpiry"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	return LoadConfigFile("")
}

// LoadConfigFile behaves like LoadConfig but reads an explicit file when path is set.
func LoadConfigFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RESUMECTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/resumectl/")
		v.AddConfigPath("$HOME/.resumectl")
		v.AddConfigPath(".")
	}

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		configFileUsed = v.ConfigFileUsed()
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()

	if config.App.LogLevel == "debug" {
		config.logConfigurationSources(configFileUsed)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validateBaseURL(c.API.BaseURL); err != nil {
		return err
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("API timeout must be positive")
	}

	if c.API.AnalyzeTimeout <= 0 {
		return fmt.Errorf("API analyze timeout must be positive")
	}

	if c.API.MaxRetries < 0 {
		return fmt.Errorf("API max retries cannot be negative")
	}

	if c.API.RateLimit.Enabled && (c.API.RateLimit.RequestsPerSecond <= 0 || c.API.RateLimit.Burst <= 0) {
		return fmt.Errorf("API rate limit requires positive requestsPerSecond and burst")
	}

	if cb := c.API.CircuitBreaker; cb.Enabled && (cb.FailureThreshold <= 0 || cb.FailureThreshold > 1) {
		return fmt.Errorf("circuit breaker failure threshold must be within (0, 1]")
	}

	if c.Auth.TokenFile == "" {
		return fmt.Errorf("auth token file is required")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if rl := c.Server.RateLimit; rl.RequestsPerMin < 0 || rl.SessionsPerMin < 0 || rl.AnalyzePerMin < 0 {
		return fmt.Errorf("server rate limit quotas cannot be negative")
	}

	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("API base URL is required (set RESUMECTL_API_BASEURL)")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid API base URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API base URL must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("API base URL %q has no host", raw)
	}
	return nil
}

// debugf prints loader progress in the same prefix style as the source summary.
func debugf(format string, args ...any) {
	log.Printf("[CONFIG] "+format, args...)
}
