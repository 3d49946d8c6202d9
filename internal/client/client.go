package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"resumectl/internal/auth"
	"resumectl/internal/config"
	"resumectl/internal/errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// maxResponseSize bounds how much of a response body is buffered.
const maxResponseSize = 32 << 20

// Recorder receives one observation per API call. Implemented by observability.Metrics.
type Recorder interface {
	RecordAPIRequest(ctx context.Context, operation string, statusCode int, duration time.Duration, err error)
}

// Client talks to the resume analyzer REST API. It implements the resume
// store, analysis store and analyzer collaborators of a session.
type Client struct {
	baseURL        string
	userAgent      string
	timeout        time.Duration
	analyzeTimeout time.Duration
	maxRetries     int
	leeway         time.Duration

	http   *http.Client // bearer-authenticated
	public *http.Client // login and registration

	tokens   *auth.Store
	breaker  *CircuitBreaker
	limiter  *rate.Limiter
	schema   *resultSchema
	recorder Recorder
	tracer   trace.Tracer
	backoff  func(attempt int) time.Duration
	logger   *errors.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithRecorder reports API calls to r.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithBackoff overrides the retry delay schedule.
func WithBackoff(fn func(attempt int) time.Duration) Option {
	return func(c *Client) { c.backoff = fn }
}

// WithHTTPTransport replaces the base transport beneath auth and tracing.
func WithHTTPTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport = authTransport(c.tokens, c.leeway, tracingTransport(rt))
		c.public.Transport = tracingTransport(rt)
	}
}

// New creates an API client. tokens supplies and stores the bearer credential.
func New(cfg *config.Config, tokens *auth.Store, logger *errors.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	if tokens == nil {
		tokens = auth.NewMemoryStore("")
	}

	base, err := baseTransport(cfg.API.TLS)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to configure API transport", err)
	}

	c := &Client{
		baseURL:        strings.TrimRight(cfg.API.BaseURL, "/"),
		userAgent:      cfg.API.UserAgent,
		timeout:        cfg.API.Timeout,
		analyzeTimeout: cfg.API.AnalyzeTimeout,
		maxRetries:     max(cfg.API.MaxRetries, 0),
		leeway:         cfg.Auth.ExpiryLeeway,
		http:           &http.Client{Transport: authTransport(tokens, cfg.Auth.ExpiryLeeway, tracingTransport(base))},
		public:         &http.Client{Transport: tracingTransport(base)},
		tokens:         tokens,
		breaker:        NewCircuitBreaker("resume-service", cfg.API.CircuitBreaker, logger),
		tracer:         otel.Tracer("resumectl.client"),
		backoff:        backoffDelay,
		logger:         logger,
	}

	if cfg.API.RateLimit.Enabled {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.API.RateLimit.RequestsPerSecond), cfg.API.RateLimit.Burst)
	}
	if cfg.API.ValidateResponses {
		c.schema = newResultSchema()
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Tokens returns the credential store used by the client.
func (c *Client) Tokens() *auth.Store {
	return c.tokens
}

// BreakerStats reports the circuit breaker state for health output.
func (c *Client) BreakerStats() map[string]any {
	return c.breaker.GetStats()
}

// StatusError is a non-2xx API response. Message comes from the API's
// {timestamp, message, details} error body when present.
type StatusError struct {
	StatusCode int    `json:"status"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

type request struct {
	method      string
	path        string
	body        []byte
	contentType string
	accept      string
	public      bool
	timeout     time.Duration
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func jsonRequest(method, path string, payload any) (*request, error) {
	req := &request{method: method, path: path, accept: "application/json"}
	if payload == nil {
		return req, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidRequest, "failed to encode request body", err)
	}
	req.body = body
	req.contentType = "application/json"
	return req, nil
}

// do executes req under tracing, the circuit breaker, and retry, and records metrics.
func (c *Client) do(ctx context.Context, operation string, req *request) (*response, error) {
	ctx, span := c.tracer.Start(ctx, "api."+operation)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", req.method),
		attribute.String("api.path", req.path),
	)

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*response, error) {
		return c.executeWithRetry(ctx, operation, req)
	})
	duration := time.Since(start)

	status := 0
	if resp != nil {
		status = resp.status
	} else if statusErr, ok := asStatusError(err); ok {
		status = statusErr.StatusCode
	}
	span.SetAttributes(attribute.Int("http.status_code", status))
	if c.recorder != nil {
		c.recorder.RecordAPIRequest(ctx, operation, status, duration, err)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if status == http.StatusUnauthorized && !req.public {
			c.dropCredential()
			return nil, errors.NewAuthError(errors.ErrCodeUnauthorized, "session expired or invalid, run 'resumectl login'", err)
		}
		return nil, err
	}
	return resp, nil
}

// dropCredential forgets a token the API rejected.
func (c *Client) dropCredential() {
	if err := c.tokens.Clear(); err != nil {
		c.logger.LogError(err, "Failed to clear rejected token")
		return
	}
	c.logger.Warn("API rejected the stored token, credential cleared")
}

// send performs a single HTTP exchange.
func (c *Client) send(ctx context.Context, req *request) (*response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	timeout := req.timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidRequest, "failed to build request", err)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if req.accept != "" {
		httpReq.Header.Set("Accept", req.accept)
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	httpReq.Header.Set("X-Request-ID", uuid.NewString())

	httpClient := c.http
	if req.public {
		httpClient = c.public
	}

	httpResp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		return nil, decodeStatusError(httpResp.StatusCode, data)
	}

	return &response{status: httpResp.StatusCode, header: httpResp.Header, body: data}, nil
}

func decodeStatusError(status int, body []byte) *StatusError {
	statusErr := &StatusError{}
	if len(body) > 0 && json.Unmarshal(body, statusErr) == nil {
		statusErr.StatusCode = status
		return statusErr
	}
	return &StatusError{StatusCode: status, Message: strings.TrimSpace(truncate(string(body), 200))}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// decode unmarshals a JSON response body into out.
func decode(resp *response, out any) error {
	if err := json.Unmarshal(resp.body, out); err != nil {
		return errors.NewAPIError(errors.ErrCodeInvalidResponse, "unexpected response from the resume service", err)
	}
	return nil
}

// failure converts a transport or status error into the taxonomy code for
// the operation. 404 always maps to NotFound.
func failure(code, fallback string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := errors.As(err); ok && appErr.Code == code {
		return err
	}

	message := fallback
	statusErr, hasStatus := asStatusError(err)
	if hasStatus && statusErr.StatusCode == http.StatusNotFound {
		if statusErr.Message != "" {
			message = statusErr.Message
		}
		return errors.NewAPIError(errors.ErrCodeNotFound, message, err)
	}

	if appErr, ok := errors.As(err); ok && appErr.Type != errors.ErrorTypeInternal {
		message = appErr.Message
	} else if hasStatus && statusErr.Message != "" {
		message = statusErr.Message
	}

	return errors.NewAPIError(code, message, err)
}
