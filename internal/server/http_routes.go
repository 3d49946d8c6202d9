package server

import (
	"net/http"
	"strings"

	"resumectl/internal/errors"
)

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	requestQuota := s.limit(QuotaRequests)
	requestLimitHandler := s.requestSizeLimitMiddleware()
	protect := func(h http.HandlerFunc) http.HandlerFunc {
		return requestQuota(s.authMiddleware(requestLimitHandler(h)))
	}
	sessionQuota := s.limit(QuotaSessions)
	analyzeQuota := s.limit(QuotaAnalyze)

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)

	mux.HandleFunc("POST /sessions", protect(sessionQuota(s.createSessionHandler)))
	mux.HandleFunc("GET /sessions/{id}", protect(s.withSession(s.getSessionHandler)))
	mux.HandleFunc("DELETE /sessions/{id}", protect(s.deleteSessionHandler))
	mux.HandleFunc("POST /sessions/{id}/resume", protect(s.withSession(s.selectResumeHandler)))
	mux.HandleFunc("PUT /sessions/{id}/job-description", protect(s.withSession(s.jobDescriptionHandler)))
	mux.HandleFunc("POST /sessions/{id}/analyze", protect(analyzeQuota(s.withSession(s.analyzeHandler))))
	mux.HandleFunc("POST /sessions/{id}/save", protect(s.withSession(s.saveHandler)))
	mux.HandleFunc("POST /sessions/{id}/view", protect(s.withSession(s.viewHandler)))
	mux.HandleFunc("DELETE /sessions/{id}/analyses/{analysisId}", protect(s.withSession(s.deleteAnalysisHandler)))
	mux.HandleFunc("DELETE /sessions/{id}/resumes/{resumeId}", protect(s.withSession(s.deleteResumeHandler)))

	return mux
}

// authMiddleware provides API key authentication
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Skip authentication if no API keys are configured
		if s.APIKeys == nil || s.APIKeys.Len() == 0 {
			next(w, r)
			return
		}

		apiKey := extractAPIKey(r)
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", r.RemoteAddr)
			writeErrorResponse(w, "Missing API key", errors.ErrCodeMissingToken,
				"X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
			return
		}

		if !s.APIKeys.Valid(apiKey) {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", r.RemoteAddr,
				"api_key_prefix", maskAPIKey(apiKey))
			writeErrorResponse(w, "Invalid API key", errors.ErrCodeUnauthorized, "Unauthorized access", http.StatusUnauthorized)
			return
		}

		s.Logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"client_ip", r.RemoteAddr,
			"api_key_prefix", maskAPIKey(apiKey))

		next(w, r)
	}
}

// extractAPIKey reads X-API-Key, falling back to an Authorization Bearer token
func extractAPIKey(r *http.Request) string {
	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		return apiKey
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return after
	}
	return ""
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}

			next(w, r)
		}
	}
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
