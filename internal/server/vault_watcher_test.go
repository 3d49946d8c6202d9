package server

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"resumectl/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockVaultClient is a mock implementation for testing
type MockVaultClient struct {
	mu      sync.Mutex
	secrets map[string]*config.VaultSecret
	fail    bool
}

func (m *MockVaultClient) GetSecretV2(path string) (*config.VaultSecret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, fmt.Errorf("vault sealed")
	}
	if secret, exists := m.secrets[path]; exists {
		return secret, nil
	}
	return nil, fmt.Errorf("secret not found at path: %s", path)
}

func (m *MockVaultClient) GetStringSliceSecret(path, key string) ([]string, error) {
	secret, err := m.GetSecretV2(path)
	if err != nil {
		return nil, err
	}
	if value, ok := secret.Data[key].([]string); ok {
		return value, nil
	}
	return nil, nil
}

func (m *MockVaultClient) set(path string, version int64, keys []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[path] = &config.VaultSecret{Data: map[string]any{"keys": keys}, Version: version}
}

type reloadRecorder struct {
	mu   sync.Mutex
	keys [][]string
	errs []error
}

func (r *reloadRecorder) callback(keys []string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, keys)
	r.errs = append(r.errs, err)
}

func (r *reloadRecorder) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}

func TestVaultWatcherReloadsOnNewVersion(t *testing.T) {
	client := &MockVaultClient{secrets: map[string]*config.VaultSecret{}}
	client.set("secret/data/gateway", 1, []string{"key-one"})
	rec := &reloadRecorder{}
	vw := NewVaultWatcher(client, "secret/data/gateway", time.Minute, rec.callback, nil)

	vw.poll()
	require.Equal(t, 1, rec.calls())
	assert.Equal(t, []string{"key-one"}, rec.keys[0])
	assert.NoError(t, rec.errs[0])

	// same version, nothing to do
	vw.poll()
	assert.Equal(t, 1, rec.calls())

	client.set("secret/data/gateway", 2, []string{"key-two", "key-three"})
	vw.poll()
	require.Equal(t, 2, rec.calls())
	assert.Equal(t, []string{"key-two", "key-three"}, rec.keys[1])

	status := vw.Status()
	assert.Equal(t, int64(2), status["last_version"])
	assert.Contains(t, status, "last_reload")
}

func TestVaultWatcherEmptyKeys(t *testing.T) {
	client := &MockVaultClient{secrets: map[string]*config.VaultSecret{}}
	client.set("secret/data/gateway", 1, nil)
	rec := &reloadRecorder{}
	vw := NewVaultWatcher(client, "secret/data/gateway", time.Minute, rec.callback, nil)

	vw.poll()
	require.Equal(t, 1, rec.calls())
	assert.Nil(t, rec.keys[0])
	assert.Error(t, rec.errs[0])
}

func TestVaultWatcherReadFailure(t *testing.T) {
	client := &MockVaultClient{secrets: map[string]*config.VaultSecret{}, fail: true}
	rec := &reloadRecorder{}
	vw := NewVaultWatcher(client, "secret/data/gateway", time.Minute, rec.callback, nil)

	changed, err := vw.checkForUpdates()
	assert.Error(t, err)
	assert.False(t, changed)

	vw.poll()
	assert.Equal(t, 0, rec.calls())
}

func TestVaultWatcherStartStop(t *testing.T) {
	client := &MockVaultClient{secrets: map[string]*config.VaultSecret{}}
	vw := NewVaultWatcher(client, "secret/data/gateway", time.Hour, func([]string, error) {}, nil)

	require.NoError(t, vw.Start())
	assert.Error(t, vw.Start())
	assert.Equal(t, true, vw.Status()["running"])

	require.NoError(t, vw.Stop())
	require.NoError(t, vw.Stop())
	assert.Equal(t, false, vw.Status()["running"])
}

func TestReloadAPIKeys(t *testing.T) {
	srv := newTestServer(t, newMemoryBackend(), ServerConfig{APIKeys: []string{"old-key"}})

	srv.reloadAPIKeys(nil, fmt.Errorf("vault sealed"))
	assert.True(t, srv.APIKeys.Valid("old-key"))

	srv.reloadAPIKeys([]string{"new-key", " "}, nil)
	assert.False(t, srv.APIKeys.Valid("old-key"))
	assert.True(t, srv.APIKeys.Valid("new-key"))
	assert.Equal(t, 1, srv.APIKeys.Len())
}
