package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	FilePath     string
	PollInterval time.Duration // Default: 1s
	Debounce     time.Duration // Default: 200ms
	OnChange     func(oldCfg, newCfg *Config)
	// OnError is called when a changed file fails to load or validate.
	// The previous configuration stays current.
	OnError func(err error)
}

// Watcher polls a configuration file and reports valid changes. A node
// only applies the settings that can change at runtime, the log level.
type Watcher struct {
	filePath     string
	pollInterval time.Duration
	debounce     time.Duration
	onChange     func(oldCfg, newCfg *Config)
	onError      func(err error)

	// Owned by Run.
	modTime time.Time
	size    int64
	current *Config
}

// NewWatcher loads the file once and returns a watcher for it.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	if cfg.FilePath == "" {
		return nil, ErrMissingConfigFile
	}
	if cfg.OnChange == nil {
		return nil, ErrMissingOnChange
	}

	w := &Watcher{
		filePath:     cfg.FilePath,
		pollInterval: cfg.PollInterval,
		debounce:     cfg.Debounce,
		onChange:     cfg.OnChange,
		onError:      cfg.OnError,
	}
	if w.pollInterval <= 0 {
		w.pollInterval = time.Second
	}
	if w.debounce <= 0 {
		w.debounce = 200 * time.Millisecond
	}
	if w.onError == nil {
		w.onError = func(error) {}
	}

	info, err := os.Stat(cfg.FilePath)
	if err != nil {
		return nil, err
	}
	w.modTime, w.size = info.ModTime(), info.Size()

	if w.current, err = LoadConfig(cfg.FilePath); err != nil {
		return nil, err
	}
	return w, nil
}

// Current returns the last valid configuration. Safe to call only from
// OnChange or once Run has returned.
func (w *Watcher) Current() *Config {
	return w.current
}

// Run polls until ctx is done. Bursts of writes within the debounce
// interval produce one reload.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	var debounce *time.Timer
	var debounceCh <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if !w.changed() {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.NewTimer(w.debounce)
			debounceCh = debounce.C

		case <-debounceCh:
			debounce, debounceCh = nil, nil
			w.reload()
		}
	}
}

// changed compares the file's modification time and size with the last poll.
func (w *Watcher) changed() bool {
	info, err := os.Stat(w.filePath)
	if err != nil {
		return false
	}
	if info.ModTime().Equal(w.modTime) && info.Size() == w.size {
		return false
	}
	w.modTime, w.size = info.ModTime(), info.Size()
	return true
}

func (w *Watcher) reload() {
	next, err := LoadConfig(w.filePath)
	if err != nil {
		w.onError(fmt.Errorf("reload %s: %w", w.filePath, err))
		return
	}
	if errs := ValidateConfig(next); len(errs) > 0 {
		w.onError(fmt.Errorf("reload %s: %w", w.filePath, errors.Join(errs...)))
		return
	}

	prev := w.current
	w.current = next
	w.onChange(prev, next)
}
