package config

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/snapdog/snapdog/internal/models"
)

// Watcher reloads the configuration file whenever it changes on disk and
// hands the new, validated Config to a callback. A reload that fails
// validation is logged and discarded — the last good config stays active.
type Watcher struct {
	mu      sync.RWMutex
	path    string
	current *models.Config
	watcher *fsnotify.Watcher
	onReload func(*models.Config)
}

// NewWatcher loads path once and starts watching its directory for writes.
// If the filesystem watcher cannot be created, the returned Watcher still
// serves the initially loaded config; it just never hot-reloads.
func NewWatcher(path string, onReload func(*models.Config)) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{path: path, current: cfg, onReload: onReload}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("config: could not create fsnotify watcher, hot-reload disabled", "err", err)
		return w, nil
	}
	w.watcher = fw

	if err := fw.Add(filepath.Dir(path)); err != nil {
		slog.Warn("config: could not watch config dir", "err", err)
	}

	go w.watchLoop()
	return w, nil
}

// Current returns the most recently loaded config.
func (w *Watcher) Current() *models.Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Close stops the filesystem watcher.
func (w *Watcher) Close() {
	if w.watcher != nil {
		w.watcher.Close()
	}
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				slog.Warn("config: reload failed, keeping previous config", "err", err)
				continue
			}
			w.mu.Lock()
			w.current = cfg
			w.mu.Unlock()
			slog.Info("config: reloaded", "path", w.path, "zones", len(cfg.Zones), "clients", len(cfg.Clients))
			if w.onReload != nil {
				w.onReload(cfg)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config: watcher error", "err", err)
		}
	}
}
