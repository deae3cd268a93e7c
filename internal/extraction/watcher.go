package extraction

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize library watcher")

// Watcher keeps a library loaded from a file current. Reads are lock-free;
// a failed reload keeps the previous library.
type Watcher struct {
	path    string
	logger  *zap.Logger
	watcher *fsnotify.Watcher

	current     atomic.Pointer[Library]
	generation  atomic.Uint64
	stop        chan struct{}
	stopOnce    sync.Once
	onReload    func(*Library)
	onReloadErr func(error)
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithReloadHook is called after every successful reload.
func WithReloadHook(fn func(*Library)) WatcherOption {
	return func(w *Watcher) { w.onReload = fn }
}

// WithReloadErrorHook is called when a reload fails.
func WithReloadErrorHook(fn func(error)) WatcherOption {
	return func(w *Watcher) { w.onReloadErr = fn }
}

// NewWatcher loads path once and prepares to watch it. The initial load must
// succeed.
func NewWatcher(path string, logger *zap.Logger, opts ...WatcherOption) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	lib, err := LoadLibrary(path)
	if err != nil {
		return nil, fmt.Errorf("initial library load: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}

	w := &Watcher{
		path:    path,
		logger:  logger,
		watcher: fw,
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.current.Store(lib)
	return w, nil
}

// Current implements LibrarySource.
func (w *Watcher) Current() *Library {
	return w.current.Load()
}

var _ LibrarySource = (*Watcher)(nil)

// Generation counts successful loads, starting at 1.
func (w *Watcher) Generation() uint64 {
	return w.generation.Load() + 1
}

// Start watches the library's directory so editor rename-and-replace saves
// are seen. Events are handled on a background goroutine until Stop or ctx
// cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(w.path), err)
	}
	go w.processEvents(ctx)
	return nil
}

// Stop ends watching and releases the underlying watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		_ = w.watcher.Close()
	})
}

// Reload re-reads the file now. On error the current library is kept.
func (w *Watcher) Reload() error {
	lib, err := LoadLibrary(w.path)
	if err != nil {
		if w.onReloadErr != nil {
			w.onReloadErr(err)
		}
		return err
	}
	w.current.Store(lib)
	w.generation.Add(1)
	if w.onReload != nil {
		w.onReload(lib)
	}
	return nil
}

func (w *Watcher) processEvents(ctx context.Context) {
	target := filepath.Clean(w.path)
	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := w.Reload(); err != nil {
				w.logger.Warn("pattern library reload failed, keeping previous",
					zap.String("path", w.path), zap.Error(err))
				continue
			}
			w.logger.Info("pattern library reloaded",
				zap.String("path", w.path), zap.Uint64("generation", w.Generation()))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("pattern library watcher error", zap.Error(err))
		}
	}
}
