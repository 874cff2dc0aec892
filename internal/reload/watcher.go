// Package reload watches development files and turns bursts of changes into
// a single reload request.
package reload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when no debounce interval is configured.
const DefaultDebounce = 300 * time.Millisecond

// ErrNoPaths is returned by NewWatcher when there is nothing to watch.
var ErrNoPaths = errors.New("reload: no paths to watch")

// TriggerFunc is called once per debounced burst of changes.
type TriggerFunc func(ctx context.Context) error

// Logger is the subset of the host logger the watcher needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Watcher calls a trigger after files under its paths change.
type Watcher struct {
	paths    []string
	files    map[string]struct{}
	debounce time.Duration
	trigger  TriggerFunc
	logger   Logger

	fs *fsnotify.Watcher

	mu      sync.Mutex
	running bool
	timer   *time.Timer
	changed []string
	done    chan struct{}
	wg      sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet interval that ends a burst.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the watcher's logger.
func WithLogger(l Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher creates a watcher for paths. A path naming a file is watched
// through its directory so editors that replace files on save are seen.
func NewWatcher(paths []string, trigger TriggerFunc, opts ...Option) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, ErrNoPaths
	}
	if trigger == nil {
		return nil, errors.New("reload: trigger is nil")
	}

	w := &Watcher{
		paths:    paths,
		files:    make(map[string]struct{}),
		debounce: DefaultDebounce,
		trigger:  trigger,
		logger:   nopLogger{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching. Calling Start on a running watcher does nothing.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("reload: create watcher: %w", err)
	}

	dirs := make(map[string]struct{})
	for _, p := range w.paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = fsw.Close()
			return fmt.Errorf("reload: resolve %s: %w", p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			_ = fsw.Close()
			return fmt.Errorf("reload: stat %s: %w", p, err)
		}
		dir := abs
		if !info.IsDir() {
			dir = filepath.Dir(abs)
			w.files[abs] = struct{}{}
		}
		if _, seen := dirs[dir]; seen {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return fmt.Errorf("reload: watch %s: %w", dir, err)
		}
		dirs[dir] = struct{}{}
	}

	w.fs = fsw
	w.done = make(chan struct{})
	w.running = true
	w.wg.Add(1)
	go w.loop(ctx, fsw, w.done)
	return nil
}

// Stop ends watching and waits for the event loop to exit. It is safe to
// call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	fsw := w.fs
	close(w.done)
	w.mu.Unlock()

	err := fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, done <-chan struct{}) {
	defer w.wg.Done()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				w.schedule(ctx, event.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", "error", err)
		}
	}
}

// relevant filters out editor noise and changes outside watched files.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "#") || strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.files) == 0 {
		return true
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	if _, ok := w.files[name]; ok {
		return true
	}
	// Directory paths are watched wholesale.
	dir := filepath.Dir(name)
	for _, p := range w.paths {
		if abs, err := filepath.Abs(p); err == nil && abs == dir {
			return true
		}
	}
	return false
}

func (w *Watcher) schedule(ctx context.Context, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.changed = append(w.changed, name)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.fire(ctx) })
}

func (w *Watcher) fire(ctx context.Context) {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	changed := w.changed
	w.changed = nil
	w.timer = nil
	w.mu.Unlock()

	w.logger.Debug("Files changed, requesting reload", "files", changed)
	if err := w.trigger(ctx); err != nil {
		w.logger.Error("Reload trigger failed", "error", err)
	}
}
