package server

import (
	"fmt"
	"sync"
	"time"

	"resumectl/internal/config"
	"resumectl/internal/errors"
)

// VaultClientInterface defines the interface for Vault operations
type VaultClientInterface interface {
	GetSecretV2(path string) (*config.VaultSecret, error)
	GetStringSliceSecret(path, key string) ([]string, error)
}

// KeysReloadCallback is called with the gateway API keys after Vault reports
// a new secret version
type KeysReloadCallback func(keys []string, err error)

// VaultWatcher polls the gateway key secret and hands rotated keys to the
// callback whenever the secret version goes up.
type VaultWatcher struct {
	mu sync.RWMutex

	client         VaultClientInterface
	secretPath     string
	pollInterval   time.Duration
	reloadCallback KeysReloadCallback
	logger         *errors.Logger

	stopChan    chan struct{}
	running     bool
	lastVersion int64
	lastReload  time.Time
}

// NewVaultWatcher creates a new VaultWatcher
func NewVaultWatcher(client VaultClientInterface, secretPath string, pollInterval time.Duration, reloadCallback KeysReloadCallback, logger *errors.Logger) *VaultWatcher {
	return &VaultWatcher{
		client:         client,
		secretPath:     secretPath,
		pollInterval:   pollInterval,
		reloadCallback: reloadCallback,
		logger:         logger,
		stopChan:       make(chan struct{}),
	}
}

// Start begins polling Vault for secret changes
func (vw *VaultWatcher) Start() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()
	if vw.running {
		return fmt.Errorf("vault watcher is already running")
	}
	vw.running = true
	go vw.pollLoop()
	if vw.logger != nil {
		vw.logger.Info("Vault watcher started", "secret_path", vw.secretPath, "poll_interval", vw.pollInterval)
	}
	return nil
}

// Stop stops the Vault watcher
func (vw *VaultWatcher) Stop() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()
	if !vw.running {
		return nil
	}
	close(vw.stopChan)
	vw.running = false
	if vw.logger != nil {
		vw.logger.Info("Vault watcher stopped")
	}
	return nil
}

// pollLoop polls Vault for secret changes
func (vw *VaultWatcher) pollLoop() {
	ticker := time.NewTicker(vw.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			vw.poll()
		case <-vw.stopChan:
			return
		}
	}
}

// poll runs one check and reload cycle
func (vw *VaultWatcher) poll() {
	changed, err := vw.checkForUpdates()
	if err != nil {
		if vw.logger != nil {
			vw.logger.LogError(err, "Failed to check Vault for updates")
		}
		return
	}
	if !changed {
		return
	}

	keys, err := vw.fetchKeysFromVault()
	if err != nil {
		if vw.logger != nil {
			vw.logger.LogError(err, "Failed to fetch gateway API keys from Vault")
		}
		vw.reloadCallback(nil, err)
		return
	}

	vw.mu.Lock()
	vw.lastReload = time.Now()
	vw.mu.Unlock()
	if vw.logger != nil {
		vw.logger.Info("Gateway API keys reloaded from Vault", "key_count", len(keys))
	}
	vw.reloadCallback(keys, nil)
}

// checkForUpdates checks if the Vault secret version has changed
func (vw *VaultWatcher) checkForUpdates() (bool, error) {
	secret, err := vw.client.GetSecretV2(vw.secretPath)
	if err != nil {
		return false, fmt.Errorf("failed to read secret: %w", err)
	}

	vw.mu.Lock()
	defer vw.mu.Unlock()
	if secret.Version > vw.lastVersion {
		vw.lastVersion = secret.Version
		return true, nil
	}
	return false, nil
}

// fetchKeysFromVault reads the comma-separated "keys" value
func (vw *VaultWatcher) fetchKeysFromVault() ([]string, error) {
	keys, err := vw.client.GetStringSliceSecret(vw.secretPath, "keys")
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeSecretUnavailable,
			"failed to fetch gateway API keys from vault", err)
	}
	if len(keys) == 0 {
		return nil, errors.NewConfigError(errors.ErrCodeSecretUnavailable,
			"vault returned no gateway API keys", nil)
	}
	return keys, nil
}

// Status returns the current status of the VaultWatcher for health reporting
func (vw *VaultWatcher) Status() map[string]any {
	vw.mu.RLock()
	defer vw.mu.RUnlock()
	status := map[string]any{
		"running":       vw.running,
		"poll_interval": vw.pollInterval.String(),
		"secret_path":   vw.secretPath,
		"last_version":  vw.lastVersion,
	}
	if !vw.lastReload.IsZero() {
		status["last_reload"] = vw.lastReload.Format(time.RFC3339)
	}
	return status
}
