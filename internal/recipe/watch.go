package recipe

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hammamikhairi/ottofry/internal/logger"
)

// Watcher reloads a file-backed catalog whenever the file changes. It
// watches the parent directory so editors that replace the file by rename
// are picked up too.
type Watcher struct {
	src      *MemorySource
	path     string
	debounce time.Duration
	log      *logger.Logger
	reloaded chan struct{}
}

// WatcherOption configures the watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long to wait after the last change before reloading.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher creates a watcher for path feeding src.
func NewWatcher(src *MemorySource, path string, log *logger.Logger, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		src:      src,
		path:     filepath.Clean(path),
		debounce: 250 * time.Millisecond,
		log:      log,
		reloaded: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Reloaded signals after each reload attempt. Used by tests and the UI.
func (w *Watcher) Reloaded() <-chan struct{} { return w.reloaded }

// Run watches until ctx is cancelled. Blocks.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch catalog dir: %w", err)
	}
	w.log.Info("watching catalog %s for changes", w.path)

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending bool
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("catalog watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.log.Debug("catalog file changed (%s)", event.Op)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C
			pending = true

		case <-timerC:
			if !pending {
				continue
			}
			pending = false
			w.reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("catalog watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	if err := w.src.LoadFile(w.path); err != nil {
		w.log.Error("catalog reload failed, keeping previous catalog: %v", err)
	} else {
		w.log.Info("catalog reloaded from %s (%d foods)", w.path, w.src.Len())
	}
	select {
	case w.reloaded <- struct{}{}:
	default:
	}
}
