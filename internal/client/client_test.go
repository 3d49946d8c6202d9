package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"resumectl/internal/auth"
	"resumectl/internal/config"
	"resumectl/internal/errors"
	"resumectl/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	resumeID   = "6f1c2b9e-8a52-4c1e-9d6b-2f0a7e3c5d11"
	analysisID = "0b7d4c3a-1e2f-4a5b-8c9d-7e6f5a4b3c2d"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		API: config.APIConfig{
			BaseURL:           baseURL,
			Timeout:           5 * time.Second,
			AnalyzeTimeout:    5 * time.Second,
			MaxRetries:        2,
			UserAgent:         "resumectl-test",
			ValidateResponses: true,
		},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc, token string, opts ...Option) (*Client, *auth.Store) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := auth.NewMemoryStore(token)
	opts = append([]Option{WithBackoff(func(int) time.Duration { return time.Millisecond })}, opts...)
	c, err := New(testConfig(server.URL), store, errors.NewNopLogger(), opts...)
	require.NoError(t, err)
	return c, store
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"timestamp": "2025-03-01T10:00:00",
		"message":   message,
		"details":   "uri=/api/v1/test",
	})
}

type recordedCall struct {
	operation string
	status    int
	failed    bool
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (r *fakeRecorder) RecordAPIRequest(_ context.Context, operation string, statusCode int, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{operation: operation, status: statusCode, failed: err != nil})
}

func TestListResumes(t *testing.T) {
	recorder := &fakeRecorder{}
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/resumes/user/me", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "resumectl-test", r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		_, _ = io.WriteString(w, `[{"id":"`+resumeID+`","fileName":"cv.pdf","fileType":"application/pdf","uploadedAt":"2025-03-01T09:30:15.123456"}]`)
	}, "test-token", WithRecorder(recorder))

	resumes, err := c.ListResumes(context.Background())
	require.NoError(t, err)
	require.Len(t, resumes, 1)
	assert.Equal(t, resumeID, resumes[0].ID)
	assert.Equal(t, "cv.pdf", resumes[0].FileName)
	assert.Equal(t, 2025, resumes[0].UploadedAt.Year())

	require.Len(t, recorder.calls, 1)
	assert.Equal(t, recordedCall{operation: "list_resumes", status: 200}, recorder.calls[0])
}

func TestListResumesEmptyBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `null`)
	}, "test-token")

	resumes, err := c.ListResumes(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, resumes)
	assert.Empty(t, resumes)
}

func TestGetRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeAPIError(w, http.StatusServiceUnavailable, "warming up")
			return
		}
		_, _ = io.WriteString(w, `[]`)
	}, "test-token")

	_, err := c.ListAnalyses(context.Background(), resumeID)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeAPIError(w, http.StatusBadGateway, "upstream down")
	}, "test-token")

	_, err := c.ListResumes(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeFetchFailed))
	assert.Equal(t, "upstream down", errors.Message(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestAnalyzeIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeAPIError(w, http.StatusServiceUnavailable, "AI service unavailable")
	}, "test-token")

	result, err := c.Analyze(context.Background(), resumeID, "Go developer")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.HasCode(err, errors.ErrCodeAnalysisFailed))
	assert.Equal(t, "AI service unavailable", errors.Message(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestAnalyze(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/resumes/analyze/"+resumeID, r.URL.Path)

		var body types.AnalyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Senior Go engineer", body.JobDescription)

		writeJSON(w, http.StatusOK, types.AnalysisResult{
			MatchScore:        72,
			KeyStrengths:      []string{"Go"},
			SkillsGap:         []string{"Kubernetes"},
			OverallAssessment: "Solid fit",
		})
	}, "test-token")

	result, err := c.Analyze(context.Background(), resumeID, "Senior Go engineer")
	require.NoError(t, err)
	assert.Equal(t, 72, result.MatchScore)
	assert.Equal(t, []string{"Kubernetes"}, result.SkillsGap)
	assert.Equal(t, types.BandFair, result.Band())
}

func TestAnalyzeRejectsInvalidResult(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"MatchScore": 150, "KeyStrengths": "Go"}`)
	}, "test-token")

	_, err := c.Analyze(context.Background(), resumeID, "Go developer")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeAnalysisFailed))
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidResponse))
}

func TestNotFoundMapping(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusNotFound, "Resume not found with id: "+resumeID)
	}, "test-token")

	_, err := c.GetResume(context.Background(), resumeID)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Contains(t, errors.Message(err), "Resume not found")

	err = c.DeleteAnalysis(context.Background(), analysisID)
	assert.True(t, errors.IsNotFound(err))
}

func TestUnauthorizedClearsToken(t *testing.T) {
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusUnauthorized, "Unauthorized")
	}, "stale-token")

	_, err := c.ListResumes(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsUnauthorized(err))
	assert.True(t, errors.HasCode(err, errors.ErrCodeFetchFailed))
	assert.Empty(t, store.Token())
}

func TestMissingTokenSkipsRequest(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, "")

	_, err := c.ListResumes(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingToken))
	assert.Equal(t, int32(0), calls.Load())
}

func TestLogin(t *testing.T) {
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/authenticate", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var creds types.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Password != "correct-horse" {
			writeAPIError(w, http.StatusUnauthorized, "Bad credentials")
			return
		}
		writeJSON(w, http.StatusOK, types.AuthToken{JWT: "issued.jwt.token"})
	}, "")

	_, err := c.Login(context.Background(), types.Credentials{Email: "ana@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, errors.IsUnauthorized(err))
	assert.Empty(t, store.Token())

	token, err := c.Login(context.Background(), types.Credentials{Email: "ana@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "issued.jwt.token", token)
	assert.Equal(t, "issued.jwt.token", store.Token())

	_, err = c.Login(context.Background(), types.Credentials{Email: "not-an-email", Password: "x"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))
}

func TestUploadResume(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/resumes/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)

		assert.Equal(t, "cv.pdf", header.Filename)
		assert.Equal(t, "%PDF-1.4 fake", string(data))
		writeJSON(w, http.StatusOK, map[string]string{"id": resumeID, "fileName": header.Filename})
	}, "test-token")

	resume, err := c.UploadResume(context.Background(), "/home/ana/cv.pdf", []byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.Equal(t, resumeID, resume.ID)

	_, err = c.UploadResume(context.Background(), "empty.pdf", nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidFormat))
}

func TestUploadFailureIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeAPIError(w, http.StatusServiceUnavailable, "Failed to parse PDF")
	}, "test-token")

	_, err := c.UploadResume(context.Background(), "cv.pdf", []byte("%PDF"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUploadFailed))
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreateAndUpdateAnalysis(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/analysis":
			var body types.CreateAnalysisRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, resumeID, body.ResumeID)
			writeJSON(w, http.StatusOK, types.SavedAnalysis{ID: analysisID, ResumeID: body.ResumeID, JobDescription: body.JobDescription, AISummary: body.AISummary})
		case r.Method == http.MethodPut && r.URL.Path == "/api/v1/analysis/"+analysisID:
			var body types.UpdateAnalysisRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			writeJSON(w, http.StatusOK, types.SavedAnalysis{ID: analysisID, ResumeID: resumeID, JobDescription: body.JobDescription, AISummary: body.AISummary})
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	}, "test-token")

	created, err := c.CreateAnalysis(context.Background(), types.CreateAnalysisRequest{
		ResumeID:       resumeID,
		JobDescription: "JD1",
		AISummary:      types.AnalysisResult{MatchScore: 72},
	})
	require.NoError(t, err)
	assert.Equal(t, analysisID, created.ID)
	assert.Equal(t, 72, created.AISummary.MatchScore)

	updated, err := c.UpdateAnalysis(context.Background(), analysisID, types.UpdateAnalysisRequest{
		JobDescription: "JD2",
		AISummary:      types.AnalysisResult{MatchScore: 80},
	})
	require.NoError(t, err)
	assert.Equal(t, "JD2", updated.JobDescription)

	_, err = c.CreateAnalysis(context.Background(), types.CreateAnalysisRequest{ResumeID: resumeID})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))
}

func TestInvalidIDsAreRejectedLocally(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, "test-token")

	_, err := c.GetResume(context.Background(), "../users")
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))
	err = c.DeleteResume(context.Background(), "42")
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))
	assert.Equal(t, int32(0), calls.Load())
}

func TestResumePDF(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/resumes/"+resumeID+"/pdf", r.URL.Path)
		assert.Equal(t, "application/pdf", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = io.WriteString(w, "%PDF-1.7")
	}, "test-token")

	data, err := c.ResumePDF(context.Background(), resumeID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

func TestCircuitBreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeAPIError(w, http.StatusInternalServerError, "boom")
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.API.CircuitBreaker = config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      2,
		FailureThreshold: 0.5,
	}
	c, err := New(cfg, auth.NewMemoryStore("test-token"), errors.NewNopLogger())
	require.NoError(t, err)

	for range 2 {
		_, err := c.GetAnalysis(context.Background(), analysisID)
		require.Error(t, err)
	}

	_, err = c.GetAnalysis(context.Background(), analysisID)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeCircuitOpen))
	assert.Equal(t, int32(2), calls.Load())
	assert.False(t, c.breaker.IsHealthy())
	assert.Equal(t, "open", c.BreakerStats()["state"])
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusNotFound, "missing")
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.API.CircuitBreaker = config.CircuitBreakerConfig{
		Enabled: true, MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, MinRequests: 1, FailureThreshold: 0.1,
	}
	c, err := New(cfg, auth.NewMemoryStore("test-token"), errors.NewNopLogger())
	require.NoError(t, err)

	for range 3 {
		_, err := c.GetAnalysis(context.Background(), analysisID)
		assert.True(t, errors.IsNotFound(err))
	}
	assert.True(t, c.breaker.IsHealthy())
}
