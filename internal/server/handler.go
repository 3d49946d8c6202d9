package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"resumectl/internal/errors"
	"resumectl/internal/session"
	"resumectl/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type sessionHandlerFunc func(w http.ResponseWriter, r *http.Request, id string, ctrl *session.Controller)

// withSession resolves the {id} path value to a live controller
func (s *Server) withSession(next sessionHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("session.id", id))

		ctrl, err := s.Sessions.Get(id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		next(w, r, id, ctrl)
	}
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	id, ctrl, err := s.Sessions.Create()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if _, err := ctrl.LoadResumes(r.Context()); err != nil {
		s.Sessions.Remove(id)
		s.writeError(w, r, err)
		return
	}

	s.Logger.Info("Session opened", "session_id", id)
	writeJSON(w, http.StatusCreated, SessionResponse{ID: id, State: ctrl.State()})
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request, id string, ctrl *session.Controller) {
	writeJSON(w, http.StatusOK, SessionResponse{ID: id, State: ctrl.State()})
}

func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.Sessions.Remove(id) {
		s.writeError(w, r, errors.NewSessionError(errors.ErrCodeNotFound, "session not found", nil))
		return
	}
	if s.RateLimiter != nil {
		s.RateLimiter.Forget(id)
	}
	s.Logger.Info("Session closed", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) selectResumeHandler(w http.ResponseWriter, r *http.Request, id string, ctrl *session.Controller) {
	var req SelectResumeRequest
	if !s.decode(w, r, &req) {
		return
	}

	if req.ResumeID == nil {
		ctrl.SelectResume(nil)
		writeJSON(w, http.StatusOK, SessionResponse{ID: id, State: ctrl.State()})
		return
	}

	resume := findResume(ctrl.State().Resumes, *req.ResumeID)
	if resume == nil {
		s.writeError(w, r, errors.NewSessionError(errors.ErrCodeNotFound, "resume not found", nil).
			WithContext("resume_id", *req.ResumeID))
		return
	}

	resp := SessionResponse{ID: id}
	refresh := ctrl.SelectResume(resume)
	if err := refresh.Wait(r.Context()); err != nil && !session.IsStale(err) {
		s.Logger.LogError(err, "Saved analyses could not be loaded", "session_id", id, "resume_id", resume.ID)
		resp.Warning = errors.Message(err)
	}
	resp.State = ctrl.State()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) jobDescriptionHandler(w http.ResponseWriter, r *http.Request, id string, ctrl *session.Controller) {
	var req JobDescriptionRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctrl.EditJobDescription(req.Text)
	writeJSON(w, http.StatusOK, SessionResponse{ID: id, State: ctrl.State()})
}

func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request, id string, ctrl *session.Controller) {
	span := trace.SpanFromContext(r.Context())

	result, err := ctrl.Analyze(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if result == nil {
		s.writeError(w, r, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"select a resume and enter a job description before analyzing", nil))
		return
	}

	span.SetAttributes(
		attribute.Int("analysis.match_score", result.MatchScore),
		attribute.String("analysis.band", string(result.Band())),
	)
	writeJSON(w, http.StatusOK, SessionResponse{ID: id, State: ctrl.State()})
}

func (s *Server) saveHandler(w http.ResponseWriter, r *http.Request, id string, ctrl *session.Controller) {
	saved, err := ctrl.Save(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{ID: id, State: ctrl.State(), Saved: saved})
}

func (s *Server) viewHandler(w http.ResponseWriter, r *http.Request, id string, ctrl *session.Controller) {
	var req ViewAnalysisRequest
	if !s.decode(w, r, &req) {
		return
	}

	var target *types.SavedAnalysis
	if req.AnalysisID != nil {
		target = findSaved(ctrl.State().SavedAnalyses, *req.AnalysisID)
		if target == nil {
			s.writeError(w, r, errors.NewSessionError(errors.ErrCodeNotFound, "saved analysis not found", nil).
				WithContext("analysis_id", *req.AnalysisID))
			return
		}
	}

	if err := ctrl.ViewSavedAnalysis(target); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{ID: id, State: ctrl.State()})
}

func (s *Server) deleteAnalysisHandler(w http.ResponseWriter, r *http.Request, id string, ctrl *session.Controller) {
	if err := ctrl.DeleteSavedAnalysis(r.Context(), r.PathValue("analysisId")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{ID: id, State: ctrl.State()})
}

func (s *Server) deleteResumeHandler(w http.ResponseWriter, r *http.Request, id string, ctrl *session.Controller) {
	if err := ctrl.DeleteResume(r.Context(), r.PathValue("resumeId")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{ID: id, State: ctrl.State()})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"service":  "resumectl",
		"version":  s.Version,
		"sessions": s.Sessions.Len(),
	})
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service":        "resumectl",
		"version":        s.Version,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"api_keys":               s.APIKeys.Len(),
		},
		"sessions": s.Sessions.GetStats(),
	}

	// Add rate limiting stats if enabled
	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"sessions_per_min": s.RateLimit.SessionsPerMin,
			"analyze_per_min":  s.RateLimit.AnalyzePerMin,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	if s.keyWatcher != nil {
		response["key_watcher"] = s.keyWatcher.Status()
	}

	writeJSON(w, http.StatusOK, response)
}

// decode parses and validates a JSON body, writing a 400 on failure
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := parseJSONRequest(r, v); err != nil {
		s.writeError(w, r, errors.NewValidationError(errors.ErrCodeInvalidRequest, err.Error(), err))
		return false
	}
	if err := types.ValidateStruct(v); err != nil {
		s.writeError(w, r, errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid request body", err))
		return false
	}
	return true
}

// parseJSONRequest parses a JSON request body
func parseJSONRequest(r *http.Request, v any) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

// statusFor maps an error onto the gateway's HTTP status
func statusFor(err error) int {
	switch {
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case session.IsStale(err):
		return http.StatusConflict
	case errors.HasCode(err, errors.ErrCodeSessionClosed):
		return http.StatusGone
	case errors.HasCode(err, errors.ErrCodeSessionLimit):
		return http.StatusTooManyRequests
	case errors.HasCode(err, errors.ErrCodeCircuitOpen), errors.HasCode(err, errors.ErrCodeRateLimited):
		return http.StatusServiceUnavailable
	case errors.HasCode(err, errors.ErrCodeNetworkTimeout), stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	if appErr, ok := errors.As(err); ok {
		switch appErr.Type {
		case errors.ErrorTypeValidation:
			return http.StatusBadRequest
		case errors.ErrorTypeInternal, errors.ErrorTypeConfig:
			return http.StatusInternalServerError
		default:
			// Upstream fetch, upload, analysis, save and delete failures
			return http.StatusBadGateway
		}
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	code := ""
	if appErr, ok := errors.As(err); ok {
		code = appErr.Code
	}

	span := trace.SpanFromContext(r.Context())
	span.RecordError(err)
	span.SetStatus(codes.Error, errors.Message(err))
	span.SetAttributes(attribute.String("error.code", code))

	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, "Session request failed", "endpoint", r.URL.Path, "status", status)
	} else {
		s.Logger.Debug("Session request rejected", "endpoint", r.URL.Path, "status", status, "error", err.Error())
	}

	writeErrorResponse(w, http.StatusText(status), code, errors.Message(err), status)
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, title, code, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   title,
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already out, an encode failure has nowhere to go.
	_ = json.NewEncoder(w).Encode(v)
}

func findResume(resumes []types.Resume, id string) *types.Resume {
	for i := range resumes {
		if resumes[i].ID == id {
			return &resumes[i]
		}
	}
	return nil
}

func findSaved(saved []types.SavedAnalysis, id string) *types.SavedAnalysis {
	for i := range saved {
		if saved[i].ID == id {
			return &saved[i]
		}
	}
	return nil
}
