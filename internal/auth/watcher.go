package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"resumectl/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the token store when another process logs in or out.
type Watcher struct {
	mu sync.Mutex

	store   *Store
	file    string
	modTime time.Time
	exists  bool

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}

	onReload func(changed bool)
	logger   *errors.Logger

	running bool
}

// NewWatcher creates a watcher for the store's backing file. onReload may be nil.
func NewWatcher(store *Store, debounceDelay time.Duration, onReload func(changed bool), logger *errors.Logger) (*Watcher, error) {
	if store.Path() == "" {
		return nil, fmt.Errorf("token store has no backing file to watch")
	}
	if debounceDelay <= 0 {
		debounceDelay = 500 * time.Millisecond
	}

	return &Watcher{
		store:         store,
		file:          store.Path(),
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		onReload:      onReload,
		logger:        logger,
	}, nil
}

// Start begins watching. The token file need not exist yet.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("token watcher is already running")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory so atomic renames and first-time creation are seen.
	dir := filepath.Dir(w.file)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		_ = fsWatcher.Close()
		return fmt.Errorf("failed to create token directory %s: %w", dir, err)
	}
	if err := fsWatcher.Add(dir); err != nil {
		_ = fsWatcher.Close()
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	w.fsWatcher = fsWatcher
	w.snapshot()
	w.running = true
	go w.watchLoop()

	if w.logger != nil {
		w.logger.Debug("Token file watcher started", "file", w.file, "debounce_delay", w.debounceDelay)
	}
	return nil
}

// Stop stops the watcher. Stopping a stopped watcher is a no-op.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	close(w.stopChan)
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.running = false

	if err := w.fsWatcher.Close(); err != nil {
		if w.logger != nil {
			w.logger.LogError(err, "Failed to close token file watcher")
		}
		return err
	}
	return nil
}

// IsRunning returns whether the watcher is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if w.shouldProcessEvent(event) {
				w.scheduleReload()
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.LogError(err, "Token file watcher error")
			}

		case <-w.reloadChan:
			if w.hasFileChanged() {
				w.reload()
			}

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(w.file) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, func() {
		select {
		case w.reloadChan <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) reload() {
	changed, err := w.store.Reload()
	if err != nil {
		if w.logger != nil {
			w.logger.LogError(err, "Failed to reload token file", "file", w.file)
		}
		return
	}
	if w.logger != nil {
		w.logger.Info("Token file reloaded", "file", w.file, "changed", changed)
	}
	if w.onReload != nil {
		w.onReload(changed)
	}
}

// snapshot records the file's current state. Callers hold w.mu or own w exclusively.
func (w *Watcher) snapshot() {
	stat, err := os.Stat(w.file)
	if err != nil {
		w.exists = false
		w.modTime = time.Time{}
		return
	}
	w.exists = true
	w.modTime = stat.ModTime()
}

func (w *Watcher) hasFileChanged() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	stat, err := os.Stat(w.file)
	if err != nil {
		if w.exists {
			w.exists = false
			w.modTime = time.Time{}
			return true
		}
		return false
	}
	if !w.exists || !stat.ModTime().Equal(w.modTime) {
		w.exists = true
		w.modTime = stat.ModTime()
		return true
	}
	return false
}
