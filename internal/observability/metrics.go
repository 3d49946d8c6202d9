package observability

import (
	"context"
	"fmt"
	"time"

	"resumectl/internal/config"
	"resumectl/internal/errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all custom metrics for resumectl
type Metrics struct {
	// Remote API calls
	APIRequestCount    metric.Int64Counter
	APIRequestDuration metric.Float64Histogram
	APIErrorCount      metric.Int64Counter

	// Analysis session outcomes
	SessionEvents metric.Int64Counter

	// Infrastructure
	RateLimitHits    metric.Int64Counter
	TokenReloadCount metric.Int64Counter
	TokenExpiryTime  metric.Float64Gauge

	custom config.CustomMetricsConfig
}

func newMetrics(meter metric.Meter, custom config.CustomMetricsConfig) (*Metrics, error) {
	m := &Metrics{custom: custom}
	var err error

	m.APIRequestCount, err = meter.Int64Counter(
		"resumectl_api_requests_total",
		metric.WithDescription("Total number of remote API requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create API request count metric: %w", err)
	}

	m.APIRequestDuration, err = meter.Float64Histogram(
		"resumectl_api_request_duration_seconds",
		metric.WithDescription("Remote API request latency including retries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create API request duration metric: %w", err)
	}

	m.APIErrorCount, err = meter.Int64Counter(
		"resumectl_api_errors_total",
		metric.WithDescription("Total number of failed remote API requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create API error count metric: %w", err)
	}

	m.SessionEvents, err = meter.Int64Counter(
		"resumectl_session_events_total",
		metric.WithDescription("Analysis session operations by event and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session events metric: %w", err)
	}

	m.RateLimitHits, err = meter.Int64Counter(
		"resumectl_rate_limit_hits_total",
		metric.WithDescription("Total number of gateway requests rejected by rate limiting"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	m.TokenReloadCount, err = meter.Int64Counter(
		"resumectl_token_reloads_total",
		metric.WithDescription("Total number of credential file reloads"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token reload count metric: %w", err)
	}

	m.TokenExpiryTime, err = meter.Float64Gauge(
		"resumectl_token_expiry_seconds",
		metric.WithDescription("Seconds until the stored bearer token expires"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token expiry metric: %w", err)
	}

	return m, nil
}

// RecordAPIRequest records one remote API call. statusCode is 0 when no
// response was received.
func (m *Metrics) RecordAPIRequest(ctx context.Context, operation string, statusCode int, duration time.Duration, err error) {
	if m.APIRequestCount == nil || !m.custom.APIRequests.Enabled {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Int("status_code", statusCode),
		attribute.Bool("success", err == nil),
	}
	m.APIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))

	if m.custom.APIRequests.TrackDuration {
		m.APIRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}

	if err != nil {
		code := "UNKNOWN"
		if appErr, ok := errors.As(err); ok {
			code = appErr.Code
		}
		m.APIErrorCount.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("error_code", code),
		))
	}
}

// RecordSessionEvent records an analysis session outcome.
func (m *Metrics) RecordSessionEvent(ctx context.Context, event string, success bool) {
	if m.SessionEvents == nil || !m.custom.SessionEvents.Enabled {
		return
	}
	m.SessionEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.Bool("success", success),
	))
}

// RecordRateLimitHit records a request rejected by the gateway limiter.
func (m *Metrics) RecordRateLimitHit(ctx context.Context, limiter string) {
	if m.RateLimitHits == nil || !m.infrastructure(m.custom.Infrastructure.TrackRateLimits) {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("limiter", limiter)))
}

// RecordTokenReload records a credential file reload.
func (m *Metrics) RecordTokenReload(ctx context.Context, changed bool) {
	if m.TokenReloadCount == nil || !m.infrastructure(true) {
		return
	}
	m.TokenReloadCount.Add(ctx, 1, metric.WithAttributes(attribute.Bool("changed", changed)))
}

// RecordTokenExpiry records the time left on the stored bearer token.
func (m *Metrics) RecordTokenExpiry(ctx context.Context, remaining time.Duration) {
	if m.TokenExpiryTime == nil || !m.infrastructure(m.custom.Infrastructure.TrackTokenExpiry) {
		return
	}
	m.TokenExpiryTime.Record(ctx, remaining.Seconds())
}

func (m *Metrics) infrastructure(track bool) bool {
	return m.custom.Infrastructure.Enabled && track
}
