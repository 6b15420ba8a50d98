package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"storyai/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a config file when it changes on disk and delivers each
// successfully parsed Config on Updates. The parent directory is watched so
// that editors which replace the file on save are still seen.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	updates  chan *Config
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewWatcher creates a watcher for path. Nothing is watched until Start.
func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		watcher:  fw,
		path:     abs,
		debounce: 150 * time.Millisecond, // editors write in bursts
		updates:  make(chan *Config, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Updates delivers reloaded configs. Only the latest pending config is kept.
func (w *Watcher) Updates() <-chan *Config { return w.updates }

// Start begins watching. This method is non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.running = true
	logging.ConfigInfo("Watcher: watching %s", w.path)
	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for cleanup. Updates is closed.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryConfig).Error("Watcher: error closing watcher: %v", err)
	}
	logging.ConfigInfo("Watcher: stopped")
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	defer close(w.updates)

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logging.ConfigDebug("Watcher: %s on %s", event.Op, event.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerCh = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryConfig).Error("Watcher error: %v", err)

		case <-timerCh:
			timerCh = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		logging.ConfigWarn("Watcher: reload failed, keeping previous config: %v", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		logging.ConfigWarn("Watcher: reloaded config invalid, ignoring: %v", err)
		return
	}
	// Replace any undelivered config with the newer one.
	select {
	case <-w.updates:
	default:
	}
	w.updates <- cfg
	logging.ConfigInfo("Watcher: config reloaded (theme=%s)", cfg.Terminal.Theme)
}
