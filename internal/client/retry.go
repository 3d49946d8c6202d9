package client

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"resumectl/internal/errors"
)

const maxBackoff = 30 * time.Second

// executeWithRetry sends req, retrying idempotent reads on transient failures.
// Writes and analysis calls are sent exactly once.
func (c *Client) executeWithRetry(ctx context.Context, operation string, req *request) (*response, error) {
	attempts := 1
	if req.method == http.MethodGet {
		attempts += c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying API request",
				"operation", operation,
				"attempt", attempt,
				"max_retries", c.maxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(c.backoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.send(ctx, req)
		if err == nil {
			if attempt > 0 {
				c.logger.Info("API request succeeded after retry",
					"operation", operation,
					"total_attempts", attempt+1)
			}
			return resp, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	return nil, lastErr
}

// backoffDelay is 2^(attempt-1) seconds plus up to 10% jitter, capped at 30s.
func backoffDelay(attempt int) time.Duration {
	baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
	jitter := time.Duration(0)
	if jitterMax := int64(float64(baseDelay) * 0.1); jitterMax > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(jitterMax)); err == nil {
			jitter = time.Duration(n.Int64())
		}
	}
	return min(baseDelay+jitter, maxBackoff)
}

// isRetryableError reports whether a failed attempt may succeed if repeated
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Local failures such as a missing credential surface wrapped in *url.Error.
	if _, ok := errors.As(err); ok {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if statusErr, ok := asStatusError(err); ok {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var netErr net.Error
	return stderrors.As(err, &netErr)
}

// countsAsFailure reports whether err reflects on the API's health
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := errors.As(err); ok {
		return false
	}
	if stderrors.Is(err, context.Canceled) {
		return false
	}
	if statusErr, ok := asStatusError(err); ok {
		return statusErr.StatusCode >= 500
	}
	return true
}

func asStatusError(err error) (*StatusError, bool) {
	var statusErr *StatusError
	if stderrors.As(err, &statusErr) {
		return statusErr, true
	}
	return nil, false
}
