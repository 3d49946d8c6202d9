package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"resumectl/internal/config"
	"resumectl/internal/errors"

	"golang.org/x/time/rate"
)

// Quota names a family of token buckets the gateway meters separately.
type Quota string

const (
	// QuotaRequests covers every protected call, keyed by caller.
	QuotaRequests Quota = "requests"
	// QuotaSessions covers session creation, keyed by caller.
	QuotaSessions Quota = "sessions"
	// QuotaAnalyze covers analysis runs, keyed by session ID.
	QuotaAnalyze Quota = "analyze"
)

// bucketIdleAge is how long an untouched bucket survives
const bucketIdleAge = 10 * time.Minute

type quotaRule struct {
	limit rate.Limit
	burst int
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter holds the gateway's token buckets. Idle buckets are dropped
// while Allow runs, so there is nothing to stop on shutdown.
type RateLimiter struct {
	mu        sync.Mutex
	rules     map[Quota]quotaRule
	buckets   map[string]*bucket
	rejected  map[Quota]int64
	lastSweep time.Time
	now       func() time.Time
	logger    *errors.Logger
}

// NewRateLimiter builds buckets from cfg. A quota whose per-minute value is
// zero is not metered.
func NewRateLimiter(cfg config.RateLimitConfig, logger *errors.Logger) *RateLimiter {
	rules := make(map[Quota]quotaRule)
	if cfg.RequestsPerMin > 0 {
		rules[QuotaRequests] = perMinute(cfg.RequestsPerMin, cfg.BurstCapacity)
	}
	if cfg.SessionsPerMin > 0 {
		rules[QuotaSessions] = perMinute(cfg.SessionsPerMin, cfg.SessionsPerMin)
	}
	if cfg.AnalyzePerMin > 0 {
		rules[QuotaAnalyze] = perMinute(cfg.AnalyzePerMin, cfg.AnalyzePerMin)
	}

	return &RateLimiter{
		rules:     rules,
		buckets:   make(map[string]*bucket),
		rejected:  make(map[Quota]int64),
		lastSweep: time.Now(),
		now:       time.Now,
		logger:    logger,
	}
}

func perMinute(n, burst int) quotaRule {
	return quotaRule{limit: rate.Limit(float64(n) / 60.0), burst: max(1, burst)}
}

func bucketKey(q Quota, subject string) string {
	return string(q) + "|" + subject
}

// Allow takes one token from the bucket of q for subject.
func (l *RateLimiter) Allow(q Quota, subject string) bool {
	rule, ok := l.rules[q]
	if !ok {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= bucketIdleAge {
		l.sweepLocked(now)
	}

	key := bucketKey(q, subject)
	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{limiter: rate.NewLimiter(rule.limit, rule.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	if !b.limiter.AllowN(now, 1) {
		l.rejected[q]++
		return false
	}
	return true
}

// Forget drops the per-session buckets of a closed session.
func (l *RateLimiter) Forget(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, bucketKey(QuotaAnalyze, sessionID))
}

func (l *RateLimiter) sweepLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > bucketIdleAge {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
	if l.logger != nil {
		l.logger.Debug("Rate limiter sweep completed", "remaining_buckets", len(l.buckets))
	}
}

// GetStats returns current rate limiter statistics
func (l *RateLimiter) GetStats() map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()

	quotas := make(map[string]any, len(l.rules))
	for q, rule := range l.rules {
		quotas[string(q)] = map[string]any{
			"rate_per_minute": float64(rule.limit) * 60.0,
			"burst_capacity":  rule.burst,
			"rejected":        l.rejected[q],
		}
	}
	return map[string]any{
		"enabled":        true,
		"active_buckets": len(l.buckets),
		"quotas":         quotas,
	}
}

// limit meters next against quota q. Caller quotas key on the API key or the
// client IP; the analyze quota keys on the session in the path.
func (s *Server) limit(q Quota) func(http.HandlerFunc) http.HandlerFunc {
	if s.RateLimiter == nil {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			var subject string
			if q == QuotaAnalyze {
				subject = r.PathValue("id")
			} else {
				subject = getRateLimitKey(r, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
			}
			if subject == "" {
				next(w, r)
				return
			}

			if !s.RateLimiter.Allow(q, subject) {
				s.Logger.Info("Rate limit exceeded",
					"quota", string(q),
					"key", maskRateLimitKey(subject),
					"endpoint", r.URL.Path,
					"client_ip", getClientIP(r))
				if s.Hits != nil {
					s.Hits.RecordRateLimitHit(r.Context(), string(q))
				}
				writeErrorResponse(w, "Rate limit exceeded", errors.ErrCodeRateLimited, "Too many requests", http.StatusTooManyRequests)
				return
			}

			next(w, r)
		}
	}
}

// Helper to consolidate key extraction logic
func getRateLimitKey(r *http.Request, byAPIKey, byIP bool) string {
	if byAPIKey {
		if apiKey := extractAPIKey(r); apiKey != "" {
			return "api:" + apiKey
		}
	}

	if byIP {
		return "ip:" + getClientIP(r)
	}

	return ""
}

// maskRateLimitKey keeps API keys out of the logs
func maskRateLimitKey(key string) string {
	if apiKey, ok := strings.CutPrefix(key, "api:"); ok {
		return "api:" + maskAPIKey(apiKey)
	}
	return key
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := parseFirstIP(xff); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// parseFirstIP parses the first valid IP from a comma-separated list
func parseFirstIP(ips string) string {
	for ip := range strings.SplitSeq(ips, ",") {
		ip = strings.TrimSpace(ip)
		if parsed := net.ParseIP(ip); parsed != nil {
			return ip
		}
	}
	return ""
}
