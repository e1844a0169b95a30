package config

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// ReloadCallback is called with a config that loaded and validated cleanly.
// Callback errors are logged; they do not undo the reload.
type ReloadCallback func(*Config) error

// ErrWatcherClosed is returned when an operation is attempted on a closed watcher.
var ErrWatcherClosed = errors.New("config: watcher already closed")

// DefaultDebounceDelay coalesces the burst of events editors emit on save.
const DefaultDebounceDelay = 100 * time.Millisecond

// Watcher monitors a config file and reloads it on change.
// The parent directory is watched so that atomic temp+rename saves are seen.
type Watcher struct {
	ctx       context.Context
	fsWatcher *fsnotify.Watcher
	cancel    context.CancelFunc
	timer     *time.Timer
	path      string
	callbacks []ReloadCallback
	debounce  time.Duration
	mu        sync.Mutex
	closed    bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDelay sets the debounce delay for file change events.
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher creates a watcher for the config file at path.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:      absPath,
		fsWatcher: fsWatcher,
		debounce:  DefaultDebounceDelay,
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		cancel()
		if closeErr := fsWatcher.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close watcher after add failure")
		}
		return nil, err
	}

	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// OnReload registers a callback. Callbacks run in registration order.
func (w *Watcher) OnReload(cb ReloadCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Watch processes file events until ctx is canceled or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) error {
	target := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			// Chmod from indexers and antivirus is ignored.
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.schedule()
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("config watcher error")
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if w.ctx.Err() != nil {
			return
		}
		w.reload()
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// reload keeps the previous config when the new file fails to load or validate.
func (w *Watcher) reload() {
	cfg, err := LoadValidated(w.path)
	if err != nil {
		log.Error().Err(err).Str("path", w.path).Msg("config reload rejected, keeping previous config")
		return
	}

	log.Info().Str("path", w.path).Msg("config file reloaded")

	w.mu.Lock()
	callbacks := append([]ReloadCallback(nil), w.callbacks...)
	w.mu.Unlock()

	for _, cb := range callbacks {
		if err := cb(cfg); err != nil {
			log.Error().Err(err).Msg("config reload callback error")
		}
	}
}

// Close stops watching and releases resources.
// Returns ErrWatcherClosed if already closed.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	w.closed = true
	w.cancel()
	if w.timer != nil {
		w.timer.Stop()
	}
	return w.fsWatcher.Close()
}
