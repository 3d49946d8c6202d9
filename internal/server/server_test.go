package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"resumectl/internal/config"
	"resumectl/internal/errors"
	"resumectl/internal/session"
	"resumectl/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryBackend is an in-memory resume and analysis store
type memoryBackend struct {
	mu         sync.Mutex
	resumes    []types.Resume
	analyses   map[string]types.SavedAnalysis
	nextID     int
	result     types.AnalysisResult
	analyzeErr error
	listErr    error
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{
		resumes: []types.Resume{
			{ID: "r1", FileName: "ana.pdf"},
			{ID: "r2", FileName: "ben.pdf"},
		},
		analyses: make(map[string]types.SavedAnalysis),
		result: types.AnalysisResult{
			MatchScore:        72,
			KeyStrengths:      []string{"Go"},
			SkillsGap:         []string{"Kubernetes"},
			OverallAssessment: "Solid backend profile",
		},
	}
}

func (b *memoryBackend) ListResumes(ctx context.Context) ([]types.Resume, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]types.Resume, len(b.resumes))
	copy(out, b.resumes)
	return out, nil
}

func (b *memoryBackend) UploadResume(ctx context.Context, fileName string, data []byte) (*types.Resume, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	resume := types.Resume{ID: fmt.Sprintf("r%d", 100+b.nextID), FileName: fileName}
	b.resumes = append(b.resumes, resume)
	return &resume, nil
}

func (b *memoryBackend) DeleteResume(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.resumes {
		if b.resumes[i].ID == id {
			b.resumes = append(b.resumes[:i], b.resumes[i+1:]...)
			return nil
		}
	}
	return errors.NewAPIError(errors.ErrCodeNotFound, "resume not found", nil)
}

func (b *memoryBackend) ListAnalyses(ctx context.Context, resumeID string) ([]types.SavedAnalysis, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listErr != nil {
		return nil, b.listErr
	}
	var out []types.SavedAnalysis
	for _, a := range b.analyses {
		if a.ResumeID == resumeID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (b *memoryBackend) CreateAnalysis(ctx context.Context, in types.CreateAnalysisRequest) (*types.SavedAnalysis, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	saved := types.SavedAnalysis{
		ID:             fmt.Sprintf("a%d", b.nextID),
		ResumeID:       in.ResumeID,
		JobDescription: in.JobDescription,
		AISummary:      in.AISummary,
	}
	b.analyses[saved.ID] = saved
	return &saved, nil
}

func (b *memoryBackend) UpdateAnalysis(ctx context.Context, id string, in types.UpdateAnalysisRequest) (*types.SavedAnalysis, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	saved, ok := b.analyses[id]
	if !ok {
		return nil, errors.NewAPIError(errors.ErrCodeNotFound, "analysis not found", nil)
	}
	saved.JobDescription = in.JobDescription
	saved.AISummary = in.AISummary
	b.analyses[id] = saved
	return &saved, nil
}

func (b *memoryBackend) DeleteAnalysis(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.analyses[id]; !ok {
		return errors.NewAPIError(errors.ErrCodeNotFound, "analysis not found", nil)
	}
	delete(b.analyses, id)
	return nil
}

func (b *memoryBackend) Analyze(ctx context.Context, resumeID, jobDescription string) (*types.AnalysisResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.analyzeErr != nil {
		return nil, b.analyzeErr
	}
	return b.result.Clone(), nil
}

type hitCounter struct {
	mu       sync.Mutex
	hits     int
	limiters []string
}

func (h *hitCounter) RecordRateLimitHit(ctx context.Context, limiter string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hits++
	h.limiters = append(h.limiters, limiter)
}

func newTestServer(t *testing.T, backend *memoryBackend, cfg ServerConfig) *Server {
	t.Helper()
	logger := errors.NewNopLogger()
	srv := NewServer(&config.Config{}, cfg, func() *session.Controller {
		return session.NewWithBackend(backend, session.WithLogger(logger))
	}, logger)
	t.Cleanup(srv.cleanup)
	return srv
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) SessionResponse {
	t.Helper()
	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func strPtr(s string) *string { return &s }

func TestHealthHandler(t *testing.T) {
	srv := newTestServer(t, newMemoryBackend(), ServerConfig{Version: "1.2.3", APIKeys: []string{"secret-key-123"}})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.2.3", body["version"])
}

func TestSessionWorkflow(t *testing.T) {
	backend := newMemoryBackend()
	srv := newTestServer(t, backend, ServerConfig{})
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeSession(t, rec)
	require.NotEmpty(t, created.ID)
	assert.Len(t, created.State.Resumes, 2)
	assert.Equal(t, session.PhaseEmpty, created.State.Phase)
	base := "/sessions/" + created.ID

	rec = doJSON(t, h, http.MethodPost, base+"/resume", SelectResumeRequest{ResumeID: strPtr("r1")})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeSession(t, rec)
	require.NotNil(t, resp.State.SelectedResume)
	assert.Equal(t, "r1", resp.State.SelectedResume.ID)
	assert.Empty(t, resp.State.SavedAnalyses)

	rec = doJSON(t, h, http.MethodPut, base+"/job-description", JobDescriptionRequest{Text: "Senior Go engineer"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.PhaseDrafting, decodeSession(t, rec).State.Phase)

	rec = doJSON(t, h, http.MethodPost, base+"/analyze", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp = decodeSession(t, rec)
	require.NotNil(t, resp.State.CurrentResult)
	assert.Equal(t, 72, resp.State.CurrentResult.MatchScore)
	assert.Equal(t, types.BandFair, resp.State.CurrentResult.Band())
	assert.True(t, resp.State.Dirty)

	rec = doJSON(t, h, http.MethodPost, base+"/save", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp = decodeSession(t, rec)
	require.NotNil(t, resp.Saved)
	assert.False(t, resp.State.Dirty)
	require.Len(t, resp.State.SavedAnalyses, 1)
	savedID := resp.Saved.ID

	rec = doJSON(t, h, http.MethodPost, base+"/view", ViewAnalysisRequest{})
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeSession(t, rec)
	assert.Nil(t, resp.State.SelectedSavedAnalysis)
	assert.Empty(t, resp.State.JobDescription)

	rec = doJSON(t, h, http.MethodPost, base+"/view", ViewAnalysisRequest{AnalysisID: strPtr(savedID)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp = decodeSession(t, rec)
	require.NotNil(t, resp.State.SelectedSavedAnalysis)
	assert.Equal(t, "Senior Go engineer", resp.State.JobDescription)

	rec = doJSON(t, h, http.MethodDelete, base+"/analyses/"+savedID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp = decodeSession(t, rec)
	assert.Empty(t, resp.State.SavedAnalyses)
	assert.Nil(t, resp.State.CurrentResult)

	rec = doJSON(t, h, http.MethodDelete, base+"/resumes/r1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp = decodeSession(t, rec)
	assert.Nil(t, resp.State.SelectedResume)
	assert.Len(t, resp.State.Resumes, 1)

	rec = doJSON(t, h, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, errors.ErrCodeNotFound, decodeError(t, rec).Code)
}

func TestSessionErrors(t *testing.T) {
	t.Run("analyze before anything is selected", func(t *testing.T) {
		srv := newTestServer(t, newMemoryBackend(), ServerConfig{})
		h := srv.Handler()
		id := decodeSession(t, doJSON(t, h, http.MethodPost, "/sessions", nil)).ID

		rec := doJSON(t, h, http.MethodPost, "/sessions/"+id+"/analyze", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, errors.ErrCodeInvalidRequest, decodeError(t, rec).Code)
	})

	t.Run("unknown resume", func(t *testing.T) {
		srv := newTestServer(t, newMemoryBackend(), ServerConfig{})
		h := srv.Handler()
		id := decodeSession(t, doJSON(t, h, http.MethodPost, "/sessions", nil)).ID

		rec := doJSON(t, h, http.MethodPost, "/sessions/"+id+"/resume", SelectResumeRequest{ResumeID: strPtr("nope")})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("analysis failure maps to bad gateway", func(t *testing.T) {
		backend := newMemoryBackend()
		backend.analyzeErr = fmt.Errorf("upstream exploded")
		srv := newTestServer(t, backend, ServerConfig{})
		h := srv.Handler()
		id := decodeSession(t, doJSON(t, h, http.MethodPost, "/sessions", nil)).ID
		doJSON(t, h, http.MethodPost, "/sessions/"+id+"/resume", SelectResumeRequest{ResumeID: strPtr("r1")})
		doJSON(t, h, http.MethodPut, "/sessions/"+id+"/job-description", JobDescriptionRequest{Text: "Go"})

		rec := doJSON(t, h, http.MethodPost, "/sessions/"+id+"/analyze", nil)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, errors.ErrCodeAnalysisFailed, decodeError(t, rec).Code)
	})

	t.Run("saved list failure is reported as a warning", func(t *testing.T) {
		backend := newMemoryBackend()
		backend.listErr = fmt.Errorf("list down")
		srv := newTestServer(t, backend, ServerConfig{})
		h := srv.Handler()
		id := decodeSession(t, doJSON(t, h, http.MethodPost, "/sessions", nil)).ID

		rec := doJSON(t, h, http.MethodPost, "/sessions/"+id+"/resume", SelectResumeRequest{ResumeID: strPtr("r2")})
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeSession(t, rec)
		assert.NotEmpty(t, resp.Warning)
		assert.Empty(t, resp.State.SavedAnalyses)
		assert.Equal(t, "r2", resp.State.SelectedResume.ID)
	})

	t.Run("blank resume id fails validation", func(t *testing.T) {
		srv := newTestServer(t, newMemoryBackend(), ServerConfig{})
		h := srv.Handler()
		id := decodeSession(t, doJSON(t, h, http.MethodPost, "/sessions", nil)).ID

		rec := doJSON(t, h, http.MethodPost, "/sessions/"+id+"/resume", SelectResumeRequest{ResumeID: strPtr("")})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, errors.ErrCodeInvalidRequest, decodeError(t, rec).Code)
	})

	t.Run("wrong content type", func(t *testing.T) {
		srv := newTestServer(t, newMemoryBackend(), ServerConfig{})
		h := srv.Handler()
		id := decodeSession(t, doJSON(t, h, http.MethodPost, "/sessions", nil)).ID

		req := httptest.NewRequest(http.MethodPut, "/sessions/"+id+"/job-description", bytes.NewBufferString(`{"text":"x"}`))
		req.Header.Set("Content-Type", "text/plain")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("request too large", func(t *testing.T) {
		srv := newTestServer(t, newMemoryBackend(), ServerConfig{MaxRequestSize: 32})
		h := srv.Handler()
		id := decodeSession(t, doJSON(t, h, http.MethodPost, "/sessions", nil)).ID

		rec := doJSON(t, h, http.MethodPut, "/sessions/"+id+"/job-description",
			JobDescriptionRequest{Text: string(bytes.Repeat([]byte("x"), 100))})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec).Message, "too large")
	})

	t.Run("session limit", func(t *testing.T) {
		srv := newTestServer(t, newMemoryBackend(), ServerConfig{MaxSessions: 1})
		h := srv.Handler()

		require.Equal(t, http.StatusCreated, doJSON(t, h, http.MethodPost, "/sessions", nil).Code)
		rec := doJSON(t, h, http.MethodPost, "/sessions", nil)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, errors.ErrCodeSessionLimit, decodeError(t, rec).Code)
	})
}

func TestAuthMiddleware(t *testing.T) {
	srv := newTestServer(t, newMemoryBackend(), ServerConfig{APIKeys: []string{"secret-key-123"}})
	h := srv.Handler()

	tests := []struct {
		name     string
		headers  []string
		expected int
	}{
		{name: "missing key", expected: http.StatusUnauthorized},
		{name: "wrong key", headers: []string{"X-API-Key", "nope"}, expected: http.StatusUnauthorized},
		{name: "header key", headers: []string{"X-API-Key", "secret-key-123"}, expected: http.StatusCreated},
		{name: "bearer key", headers: []string{"Authorization", "Bearer secret-key-123"}, expected: http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/sessions", nil, tt.headers...)
			assert.Equal(t, tt.expected, rec.Code)
		})
	}

	t.Run("rotated keys", func(t *testing.T) {
		srv.APIKeys.Replace([]string{"rotated-key"})
		assert.Equal(t, http.StatusUnauthorized,
			doJSON(t, h, http.MethodPost, "/sessions", nil, "X-API-Key", "secret-key-123").Code)
		assert.Equal(t, http.StatusCreated,
			doJSON(t, h, http.MethodPost, "/sessions", nil, "X-API-Key", "rotated-key").Code)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	srv := newTestServer(t, newMemoryBackend(), ServerConfig{
		RateLimit: &config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 1, ByIP: true},
	})
	hits := &hitCounter{}
	srv.Hits = hits
	h := srv.Handler()

	assert.Equal(t, http.StatusCreated, doJSON(t, h, http.MethodPost, "/sessions", nil).Code)
	rec := doJSON(t, h, http.MethodPost, "/sessions", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, errors.ErrCodeRateLimited, decodeError(t, rec).Code)
	assert.Equal(t, []string{"requests"}, hits.limiters)

	// health stays outside the limiter
	assert.Equal(t, http.StatusOK, doJSON(t, h, http.MethodGet, "/health", nil).Code)
}

func TestSessionQuotaIsPerClient(t *testing.T) {
	srv := newTestServer(t, newMemoryBackend(), ServerConfig{
		RateLimit: &config.RateLimitConfig{Enabled: true, SessionsPerMin: 1, ByIP: true},
	})
	hits := &hitCounter{}
	srv.Hits = hits
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeSession(t, rec).ID

	assert.Equal(t, http.StatusTooManyRequests, doJSON(t, h, http.MethodPost, "/sessions", nil).Code)
	assert.Equal(t, []string{"sessions"}, hits.limiters)

	// other calls from the same client are not charged to the session quota
	assert.Equal(t, http.StatusOK, doJSON(t, h, http.MethodGet, "/sessions/"+id, nil).Code)

	assert.Equal(t, http.StatusCreated,
		doJSON(t, h, http.MethodPost, "/sessions", nil, "X-Forwarded-For", "198.51.100.7").Code)
}

func TestAnalyzeQuotaIsPerSession(t *testing.T) {
	srv := newTestServer(t, newMemoryBackend(), ServerConfig{
		RateLimit: &config.RateLimitConfig{Enabled: true, AnalyzePerMin: 1, ByIP: true},
	})
	hits := &hitCounter{}
	srv.Hits = hits
	h := srv.Handler()

	open := func() string {
		rec := doJSON(t, h, http.MethodPost, "/sessions", nil)
		require.Equal(t, http.StatusCreated, rec.Code)
		id := decodeSession(t, rec).ID
		require.Equal(t, http.StatusOK,
			doJSON(t, h, http.MethodPost, "/sessions/"+id+"/resume", SelectResumeRequest{ResumeID: strPtr("r1")}).Code)
		require.Equal(t, http.StatusOK,
			doJSON(t, h, http.MethodPut, "/sessions/"+id+"/job-description", JobDescriptionRequest{Text: "Go engineer"}).Code)
		return id
	}
	first, second := open(), open()

	assert.Equal(t, http.StatusOK, doJSON(t, h, http.MethodPost, "/sessions/"+first+"/analyze", nil).Code)
	rec := doJSON(t, h, http.MethodPost, "/sessions/"+first+"/analyze", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, errors.ErrCodeRateLimited, decodeError(t, rec).Code)
	assert.Equal(t, []string{"analyze"}, hits.limiters)

	// the same client still has budget in another session
	assert.Equal(t, http.StatusOK, doJSON(t, h, http.MethodPost, "/sessions/"+second+"/analyze", nil).Code)

	require.Equal(t, http.StatusNoContent, doJSON(t, h, http.MethodDelete, "/sessions/"+first, nil).Code)
	srv.RateLimiter.mu.Lock()
	_, kept := srv.RateLimiter.buckets[bucketKey(QuotaAnalyze, first)]
	srv.RateLimiter.mu.Unlock()
	assert.False(t, kept)

	stats := srv.RateLimiter.GetStats()["quotas"].(map[string]any)
	assert.Equal(t, int64(1), stats["analyze"].(map[string]any)["rejected"])
}

func TestRateLimiterSweepsIdleBuckets(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 1}, errors.NewNopLogger())
	l.now = func() time.Time { return now }
	l.lastSweep = now

	assert.True(t, l.Allow(QuotaRequests, "ip:10.0.0.1"))
	assert.False(t, l.Allow(QuotaRequests, "ip:10.0.0.1"))

	// unmetered quotas never allocate a bucket
	assert.True(t, l.Allow(QuotaAnalyze, "s1"))
	assert.True(t, l.Allow(QuotaSessions, "ip:10.0.0.1"))
	assert.Equal(t, 1, l.GetStats()["active_buckets"])

	now = now.Add(bucketIdleAge + time.Minute)
	assert.True(t, l.Allow(QuotaRequests, "ip:10.0.0.2"))
	l.mu.Lock()
	_, kept := l.buckets[bucketKey(QuotaRequests, "ip:10.0.0.1")]
	l.mu.Unlock()
	assert.False(t, kept)
	assert.Equal(t, 1, l.GetStats()["active_buckets"])
}

func TestStatsHandler(t *testing.T) {
	srv := newTestServer(t, newMemoryBackend(), ServerConfig{MaxSessions: 5})
	h := srv.Handler()
	doJSON(t, h, http.MethodPost, "/sessions", nil)

	rec := doJSON(t, h, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	sessions := body["sessions"].(map[string]any)
	assert.Equal(t, float64(1), sessions["open_sessions"])
	assert.Equal(t, float64(5), sessions["max_sessions"])
	assert.Equal(t, false, body["rate_limiting"].(map[string]any)["enabled"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "not found", err: errors.NewAPIError(errors.ErrCodeNotFound, "gone", nil), expected: http.StatusNotFound},
		{name: "stale", err: errors.NewSessionError(errors.ErrCodeStaleResult, "stale", nil), expected: http.StatusConflict},
		{name: "closed", err: errors.NewSessionError(errors.ErrCodeSessionClosed, "closed", nil), expected: http.StatusGone},
		{name: "validation", err: errors.NewValidationError(errors.ErrCodeInvalidRequest, "bad", nil), expected: http.StatusBadRequest},
		{name: "save failed", err: errors.NewAPIError(errors.ErrCodeSaveFailed, "nope", nil), expected: http.StatusBadGateway},
		{name: "fetch failed", err: errors.NewAPIError(errors.ErrCodeFetchFailed, "nope", nil), expected: http.StatusBadGateway},
		{name: "circuit open", err: errors.NewNetworkError(errors.ErrCodeCircuitOpen, "open", nil), expected: http.StatusServiceUnavailable},
		{name: "timeout", err: fmt.Errorf("wrapped: %w", context.DeadlineExceeded), expected: http.StatusGatewayTimeout},
		{name: "not found under analysis failure", err: errors.NewAPIError(errors.ErrCodeDeleteFailed, "x",
			errors.NewAPIError(errors.ErrCodeNotFound, "gone", nil)), expected: http.StatusNotFound},
		{name: "plain error", err: fmt.Errorf("boom"), expected: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, statusFor(tt.err))
		})
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expected   string
	}{
		{name: "remote addr", remoteAddr: "10.0.0.1:5555", expected: "10.0.0.1"},
		{name: "forwarded for", remoteAddr: "10.0.0.1:5555", headers: map[string]string{"X-Forwarded-For": "junk, 203.0.113.9, 10.0.0.2"}, expected: "203.0.113.9"},
		{name: "real ip", remoteAddr: "10.0.0.1:5555", headers: map[string]string{"X-Real-IP": "198.51.100.4"}, expected: "198.51.100.4"},
		{name: "remote addr without port", remoteAddr: "10.0.0.1", expected: "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, getClientIP(req))
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcdefgh****", maskAPIKey("abcdefghijkl"))
	assert.Equal(t, "api:abcdefgh****", maskRateLimitKey("api:abcdefghijkl"))
	assert.Equal(t, "ip:10.0.0.1", maskRateLimitKey("ip:10.0.0.1"))
}
