package schema

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// BuildFunc produces a fresh registry snapshot.
type BuildFunc func() (*Registry, error)

// Holder keeps the current registry snapshot and replaces it wholesale when
// widget contributors change. Snapshots handed out by Get are never mutated.
type Holder struct {
	mu       sync.RWMutex
	current  *Registry
	build    BuildFunc
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	onChange []func(*Registry)
	stopCh   chan struct{}
	stopOnce sync.Once
}

var _ Provider = (*Holder)(nil)

// NewHolder builds the initial snapshot. A build failure is returned as is;
// widget discovery errors are fatal to initialisation.
func NewHolder(build BuildFunc, logger zerolog.Logger) (*Holder, error) {
	if build == nil {
		return nil, errors.New("schema: holder requires a build function")
	}
	reg, err := build()
	if err != nil {
		return nil, fmt.Errorf("schema: build registry: %w", err)
	}
	return &Holder{
		current: reg,
		build:   build,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}, nil
}

// Get returns the current snapshot.
func (h *Holder) Get() *Registry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// OnChange registers a callback invoked with every new snapshot.
func (h *Holder) OnChange(fn func(*Registry)) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// Reload rebuilds the registry. On failure the previous snapshot stays in
// place.
func (h *Holder) Reload() error {
	reg, err := h.build()
	if err != nil {
		h.logger.Error().Err(err).Msg("registry rebuild failed, keeping previous snapshot")
		return fmt.Errorf("schema: rebuild registry: %w", err)
	}

	h.mu.Lock()
	previous := h.current
	h.current = reg
	listeners := slices.Clone(h.onChange)
	h.mu.Unlock()

	h.logger.Info().
		Int("widgets_before", widgetCount(previous)).
		Int("widgets_after", widgetCount(reg)).
		Msg("type schema registry rebuilt")

	for _, fn := range listeners {
		fn(reg)
	}
	return nil
}

// ErrAlreadyWatching is returned when Watch is called on a holder that is
// already watching a directory.
var ErrAlreadyWatching = errors.New("schema: holder is already watching")

// Watch rebuilds the registry whenever the contributor directory or one of
// its immediate subdirectories changes. A holder watches one directory.
func (h *Holder) Watch(dir string) error {
	h.mu.RLock()
	watching := h.watcher != nil
	h.mu.RUnlock()
	if watching {
		return ErrAlreadyWatching
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("schema: create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("schema: watch %s: %w", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("schema: list %s: %w", dir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := watcher.Add(filepath.Join(dir, entry.Name())); err != nil {
			h.logger.Warn().Err(err).Str("dir", entry.Name()).Msg("cannot watch contributor directory")
		}
	}

	h.mu.Lock()
	if h.watcher != nil {
		h.mu.Unlock()
		watcher.Close()
		return ErrAlreadyWatching
	}
	h.watcher = watcher
	h.mu.Unlock()

	go h.watchLoop(watcher)

	h.logger.Info().Str("dir", dir).Msg("watching widget contributors")
	return nil
}

// Stop ends watching. It is safe to call more than once.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

func (h *Holder) watchLoop(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			h.logger.Debug().
				Str("event", event.Op.String()).
				Str("path", event.Name).
				Msg("widget contributors changed")
			_ = h.Reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("widget watcher error")

		case <-h.stopCh:
			return
		}
	}
}

func widgetCount(reg *Registry) int {
	if reg == nil {
		return 0
	}
	node, ok := reg.Lookup(reg.WidgetNode())
	if !ok {
		return 0
	}
	return len(node.Choices)
}
