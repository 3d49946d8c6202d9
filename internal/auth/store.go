package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"resumectl/internal/errors"
)

// Store keeps the bearer token issued by the API. A file-backed store
// persists it with owner-only permissions; a memory store never touches disk.
type Store struct {
	mu     sync.RWMutex
	path   string
	token  string
	loaded bool
	logger *errors.Logger
}

// NewStore returns a store backed by the file at path.
func NewStore(path string, logger *errors.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// NewMemoryStore returns a store seeded with token, e.g. a credential from Vault.
func NewMemoryStore(token string) *Store {
	return &Store{token: strings.TrimSpace(token), loaded: true}
}

// Path returns the backing file, empty for memory stores.
func (s *Store) Path() string {
	return s.path
}

// Token returns the current token, reading the file on first use.
// A missing or unreadable file yields an empty token.
func (s *Store) Token() string {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()
		return s.token
	}
	s.mu.RUnlock()

	token, err := s.Load()
	if err != nil && s.logger != nil {
		s.logger.Warn("Failed to read token file", "file", s.path, "error", err)
	}
	return token
}

// Load reads the token file, replacing the cached value.
func (s *Store) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		s.loaded = true
		return s.token, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		s.loaded = true
		if os.IsNotExist(err) {
			s.token = ""
			return "", nil
		}
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read token file", err).
			WithContext("file", s.path)
	}

	s.token = strings.TrimSpace(string(data))
	s.loaded = true
	return s.token, nil
}

// Reload re-reads the file and reports whether the token changed.
func (s *Store) Reload() (bool, error) {
	s.mu.RLock()
	previous := s.token
	s.mu.RUnlock()

	current, err := s.Load()
	if err != nil {
		return false, err
	}
	return current != previous, nil
}

// Save stores token, writing it atomically with mode 0600.
func (s *Store) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.NewAuthError(errors.ErrCodeMissingToken, "refusing to store an empty token", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path != "" {
		if err := writeTokenFile(s.path, token); err != nil {
			return errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to write token file", err).
				WithContext("file", s.path)
		}
	}

	s.token = token
	s.loaded = true
	return nil
}

// Clear forgets the token and removes the file. Clearing an absent token is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.loaded = true

	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to remove token file", err).
			WithContext("file", s.path)
	}
	if s.logger != nil {
		s.logger.Debug("Token cleared", "file", s.path)
	}
	return nil
}

func writeTokenFile(path, token string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.WriteString(token + "\n"); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
