package server

import (
	"context"
	"net/http"
	"time"

	"resumectl/internal/config"
	"resumectl/internal/errors"
	"resumectl/internal/session"
	"resumectl/internal/types"
)

// SelectResumeRequest is the body of POST /sessions/{id}/resume. A null
// resumeId clears the selection.
type SelectResumeRequest struct {
	ResumeID *string `json:"resumeId" validate:"omitempty,min=1"`
}

// JobDescriptionRequest is the body of PUT /sessions/{id}/job-description
type JobDescriptionRequest struct {
	Text string `json:"text" validate:"max=20000"`
}

// ViewAnalysisRequest is the body of POST /sessions/{id}/view. A null
// analysisId leaves the saved analysis view.
type ViewAnalysisRequest struct {
	AnalysisID *string `json:"analysisId" validate:"omitempty,min=1"`
}

// SessionResponse carries a session snapshot
type SessionResponse struct {
	ID      string               `json:"id"`
	State   session.State        `json:"state"`
	Saved   *types.SavedAnalysis `json:"saved,omitempty"`
	Warning string               `json:"warning,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// HitRecorder is told about requests rejected by the rate limiter.
type HitRecorder interface {
	RecordRateLimitHit(ctx context.Context, limiter string)
}

// Server exposes analysis sessions over local HTTP
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// API Authentication
	APIKeys *KeySet

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Sessions *Registry

	// Middleware wraps the whole mux, typically with tracing.
	Middleware func(http.Handler) http.Handler
	Hits       HitRecorder

	Logger *errors.Logger

	keyWatcher *VaultWatcher
	started    time.Time
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
	SessionTTL     time.Duration
	MaxSessions    int
}

// ServerConfigFrom copies the gateway settings out of the application config.
func ServerConfigFrom(cfg *config.Config, version string) ServerConfig {
	rateLimit := cfg.Server.RateLimit
	return ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        version,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.Server.MaxRequestSize,
		RateLimit:      &rateLimit,
		SessionTTL:     cfg.Server.SessionTTL,
		MaxSessions:    cfg.Server.MaxSessions,
	}
}

// NewServer creates a new Server instance. newSession builds the controller
// behind every session created through the API.
func NewServer(appCfg *config.Config, cfg ServerConfig, newSession SessionFactory, logger *errors.Logger) *Server {
	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(*cfg.RateLimit, logger)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		APIKeys:        NewKeySet(cfg.APIKeys),
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Sessions:       NewRegistry(newSession, cfg.SessionTTL, cfg.MaxSessions, logger),
		Logger:         logger,
		started:        time.Now(),
	}
}

// Handler returns the fully wired HTTP handler
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.setupRoutes()
	if s.Middleware != nil {
		handler = s.Middleware(handler)
	}
	return handler
}
