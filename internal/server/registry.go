package server

import (
	"sync"
	"time"

	"resumectl/internal/errors"
	"resumectl/internal/session"

	"github.com/google/uuid"
)

// SessionFactory builds a fresh controller for a new gateway session.
type SessionFactory func() *session.Controller

type registryEntry struct {
	ctrl     *session.Controller
	lastUsed time.Time
}

// Registry holds the gateway's live sessions keyed by a random id. Sessions
// idle for longer than the TTL are closed by a background sweep.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry

	newSession SessionFactory
	ttl        time.Duration
	max        int
	now        func() time.Time

	done      chan struct{}
	closeOnce sync.Once
	logger    *errors.Logger

	created int64
	expired int64
}

// NewRegistry creates a registry. A zero ttl disables expiry and a zero max
// disables the session cap.
func NewRegistry(newSession SessionFactory, ttl time.Duration, maxSessions int, logger *errors.Logger) *Registry {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	r := &Registry{
		entries:    make(map[string]*registryEntry),
		newSession: newSession,
		ttl:        ttl,
		max:        maxSessions,
		now:        time.Now,
		done:       make(chan struct{}),
		logger:     logger,
	}
	if ttl > 0 {
		go r.sweepRoutine(sweepInterval(ttl))
	}
	return r
}

func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

// Create starts a new session
func (r *Registry) Create() (string, *session.Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.max > 0 && len(r.entries) >= r.max {
		return "", nil, errors.NewSessionError(errors.ErrCodeSessionLimit,
			"too many open sessions", nil).WithContext("max_sessions", r.max)
	}

	id := uuid.NewString()
	entry := &registryEntry{ctrl: r.newSession(), lastUsed: r.now()}
	r.entries[id] = entry
	r.created++

	r.logger.Debug("Session created", "session_id", id, "open_sessions", len(r.entries))
	return id, entry.ctrl, nil
}

// Get returns the session's controller and marks it as used.
func (r *Registry) Get(id string) (*session.Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, errors.NewSessionError(errors.ErrCodeNotFound, "session not found", nil).
			WithContext("session_id", id)
	}
	entry.lastUsed = r.now()
	return entry.ctrl, nil
}

// Remove closes and forgets a session. It reports whether the session existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	entry, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if ok {
		entry.ctrl.Close()
		r.logger.Debug("Session removed", "session_id", id)
	}
	return ok
}

// Len returns the number of open sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep closes sessions idle for longer than the TTL and returns how many
// were closed.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}

	r.mu.Lock()
	now := r.now()
	var stale []*session.Controller
	for id, entry := range r.entries {
		if now.Sub(entry.lastUsed) > r.ttl {
			stale = append(stale, entry.ctrl)
			delete(r.entries, id)
		}
	}
	r.expired += int64(len(stale))
	remaining := len(r.entries)
	r.mu.Unlock()

	for _, ctrl := range stale {
		ctrl.Close()
	}
	if len(stale) > 0 {
		r.logger.Info("Expired idle sessions", "expired", len(stale), "remaining", remaining)
	}
	return len(stale)
}

func (r *Registry) sweepRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-r.done:
			return
		}
	}
}

// GetStats returns registry statistics
func (r *Registry) GetStats() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	return map[string]any{
		"open_sessions": len(r.entries),
		"created_total": r.created,
		"expired_total": r.expired,
		"max_sessions":  r.max,
		"session_ttl":   r.ttl.String(),
	}
}

// Close stops the sweeper and closes every session
func (r *Registry) Close() {
	r.closeOnce.Do(func() { close(r.done) })

	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*registryEntry)
	r.mu.Unlock()

	for _, entry := range entries {
		entry.ctrl.Close()
	}
}
