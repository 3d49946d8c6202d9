package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Remote API
	v.SetDefault("api.baseURL", "http://localhost:8080")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.analyzeTimeout", 120*time.Second) // Scoring runs an LLM on the server side
	v.SetDefault("api.maxRetries", 2)
	v.SetDefault("api.userAgent", "resumectl")
	v.SetDefault("api.validateResponses", true)

	// Outgoing request throttle
	v.SetDefault("api.rateLimit.enabled", false)
	v.SetDefault("api.rateLimit.requestsPerSecond", 5.0)
	v.SetDefault("api.rateLimit.burst", 10)

	// Circuit breaker around the remote API
	v.SetDefault("api.circuitBreaker.enabled", true)
	v.SetDefault("api.circuitBreaker.maxRequests", 3)
	v.SetDefault("api.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("api.circuitBreaker.timeout", 30*time.Second)
	v.SetDefault("api.circuitBreaker.minRequests", 5)
	v.SetDefault("api.circuitBreaker.failureThreshold", 0.6)

	// TLS towards the API
	v.SetDefault("api.tls.mode", "system") // system, custom, mutual
	v.SetDefault("api.tls.caFile", "")
	v.SetDefault("api.tls.certFile", "")
	v.SetDefault("api.tls.keyFile", "")
	v.SetDefault("api.tls.caContent", "")
	v.SetDefault("api.tls.certContent", "")
	v.SetDefault("api.tls.keyContent", "")
	v.SetDefault("api.tls.minVersion", "1.2")
	v.SetDefault("api.tls.insecureSkipVerify", false)
	v.SetDefault("api.tls.serverName", "")

	// Bearer credential
	v.SetDefault("auth.tokenFile", "~/.resumectl/token")
	v.SetDefault("auth.watch", true)
	v.SetDefault("auth.debounceDelay", 500*time.Millisecond)
	v.SetDefault("auth.email", "")
	v.SetDefault("auth.password", "")
	v.SetDefault("auth.expiryLeeway", 30*time.Second)

	// Local session gateway
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8090")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 150*time.Second) // Must outlast api.analyzeTimeout
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.maxRequestSize", 1024*1024)
	v.SetDefault("server.sessionTTL", 30*time.Minute)
	v.SetDefault("server.maxSessions", 100)
	v.SetDefault("server.apiKeys", []string{})
	v.SetDefault("server.apiKeysRefresh", 0)
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.rateLimit.sessionsPerMin", 10)
	v.SetDefault("server.rateLimit.analyzePerMin", 6)

	// App Configuration
	v.SetDefault("app.logLevel", "warn")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 10*1024*1024) // 10MB, matches the upload limit of the API

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.credentials", "")
	v.SetDefault("vault.secrets.gatewayKeys", "")
	v.SetDefault("vault.secrets.tlsCerts", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", false)
	v.SetDefault("observability.serviceName", "resumectl")
	v.SetDefault("observability.serviceVersion", "")  // Will use app version if empty
	v.SetDefault("observability.serviceInstance", "") // Will be auto-generated if empty
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)
	v.SetDefault("observability.customMetrics.apiRequests.enabled", true)
	v.SetDefault("observability.customMetrics.apiRequests.trackDuration", true)
	v.SetDefault("observability.customMetrics.sessionEvents.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackRateLimits", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackTokenExpiry", true)
	v.SetDefault("observability.console.prettyPrint", true)
	v.SetDefault("observability.prometheus.enabled", false)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
}
