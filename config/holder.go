package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/artpar/specgate/adapters/metrics"
)

// Holder provides thread-safe access to configuration with hot reload
// support. A reload is triggered by SIGHUP, by a change of the config file
// and, when specs.watch is set, by a change of a JSON file in a spec
// directory.
type Holder struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	logger   zerolog.Logger
	metrics  *metrics.Collector
	watcher  *fsnotify.Watcher
	onChange []func(*Config)
	stopCh   chan struct{}
	stopOnce sync.Once
}

// HolderOption configures a Holder.
type HolderOption func(*Holder)

// WithReloadMetrics records reload outcomes in m.
func WithReloadMetrics(m *metrics.Collector) HolderOption {
	return func(h *Holder) {
		h.metrics = m
	}
}

// NewHolder creates a new config holder and loads the initial configuration.
func NewHolder(path string, logger zerolog.Logger, opts ...HolderOption) (*Holder, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	h := &Holder{
		config: cfg,
		path:   absPath,
		logger: logger,
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Get returns the current configuration.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// Reload reloads the configuration from disk and notifies listeners.
// On error the old configuration is kept.
func (h *Holder) Reload() error {
	h.logger.Info().Str("path", h.path).Msg("reloading configuration")

	newCfg, err := Load(h.path)
	if err != nil {
		h.metrics.ObserveReload(err, time.Now())
		h.logger.Error().Err(err).Msg("config reload failed, keeping old config")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.config
	h.config = newCfg
	listeners := append([]func(*Config){}, h.onChange...)
	h.mu.Unlock()

	h.logChanges(oldCfg, newCfg)

	for _, fn := range listeners {
		fn(newCfg)
	}

	h.metrics.ObserveReload(nil, time.Now())
	h.logger.Info().Msg("configuration reloaded successfully")
	return nil
}

// OnChange registers a callback to be called when config changes.
func (h *Holder) OnChange(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// Watch starts watching the config file and, when specs.watch is set, the
// spec directories.
func (h *Holder) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher

	// The directory is watched rather than the file so editors that save by
	// rename are still seen.
	dir := filepath.Dir(h.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	specDirs := h.specDirs()
	for _, d := range specDirs {
		if err := watcher.Add(d); err != nil {
			watcher.Close()
			return fmt.Errorf("watch spec directory %s: %w", d, err)
		}
	}

	go h.watchLoop(specDirs)

	h.logger.Info().
		Str("path", h.path).
		Strs("spec_dirs", specDirs).
		Msg("watching configuration for changes")
	return nil
}

func (h *Holder) specDirs() []string {
	cfg := h.Get()
	if !cfg.Specs.Watch {
		return nil
	}
	dirs := make([]string, 0, len(cfg.Specs.Dirs))
	for _, d := range cfg.Specs.Dirs {
		if abs, err := filepath.Abs(d); err == nil {
			dirs = append(dirs, abs)
		}
	}
	return dirs
}

// WatchSignals starts listening for SIGHUP to trigger reload.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP, reloading config")
				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("SIGHUP reload failed")
				}
			case <-h.stopCh:
				signal.Stop(sigCh)
				return
			}
		}
	}()

	h.logger.Info().Msg("listening for SIGHUP to reload config")
}

// Stop stops watching for file changes and signals.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

// relevant reports whether an event should trigger a reload.
func (h *Holder) relevant(event fsnotify.Event, specDirs []string) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if event.Name == h.path {
		return event.Op&(fsnotify.Write|fsnotify.Create) != 0
	}
	if filepath.Ext(event.Name) != ".json" {
		return false
	}
	dir := filepath.Dir(event.Name)
	for _, d := range specDirs {
		if dir == d {
			return true
		}
	}
	return false
}

func (h *Holder) watchLoop(specDirs []string) {
	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if !h.relevant(event, specDirs) {
				continue
			}

			h.logger.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("watched file changed")

			if err := h.Reload(); err != nil {
				h.logger.Error().Err(err).Msg("file watch reload failed")
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("file watcher error")

		case <-h.stopCh:
			return
		}
	}
}

func (h *Holder) logChanges(old, new *Config) {
	if old.Logging.Level != new.Logging.Level {
		h.logger.Info().
			Str("old", old.Logging.Level).
			Str("new", new.Logging.Level).
			Msg("log level changed")
	}

	if len(old.Handlers) != len(new.Handlers) {
		h.logger.Info().
			Int("old", len(old.Handlers)).
			Int("new", len(new.Handlers)).
			Msg("handlers count changed")
	}

	if old.Commands.ValidateEnabled() != new.Commands.ValidateEnabled() {
		h.logger.Info().
			Bool("old", old.Commands.ValidateEnabled()).
			Bool("new", new.Commands.ValidateEnabled()).
			Msg("command validation changed")
	}
}

// ReloadableFields returns which fields can be changed without restart.
func ReloadableFields() []string {
	return []string{
		"handlers",
		"commands.validate",
		"logging.level",
	}
}

// NonReloadableFields returns which fields require a restart.
func NonReloadableFields() []string {
	return []string{
		"server.host",
		"server.port",
		"server.base_path",
		"specs.dirs",
		"specs.database",
	}
}
