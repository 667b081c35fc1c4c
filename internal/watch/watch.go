// Package watch reports changes to individual files.
//
// A Watcher watches the parent directory of every file it is asked about,
// since editors commonly save by writing a temporary file and renaming it
// over the watched one. Bursts of events for one file are debounced into a
// single callback.
package watch

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before its callback
// runs.
const DefaultDebounce = 100 * time.Millisecond

// ErrNotWatched is returned by Unwatch for a path that is not watched.
var ErrNotWatched = errors.New("path is not watched")

// Callback receives the absolute path of a changed file. It runs on a timer
// goroutine.
type Callback func(path string)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.delay = d
	}
}

// WithLogger sets the watcher's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

type watched struct {
	cb    Callback
	timer *time.Timer
}

// Watcher dispatches file change callbacks.
type Watcher struct {
	fs     *fsnotify.Watcher
	delay  time.Duration
	logger *slog.Logger

	mu     sync.Mutex
	files  map[string]*watched
	dirs   map[string]int
	closed bool

	wg sync.WaitGroup
}

// New starts a watcher.
func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		fs:     fsw,
		delay:  DefaultDebounce,
		logger: slog.Default(),
		files:  make(map[string]*watched),
		dirs:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Watch calls cb whenever path is written or replaced. Watching a path again
// replaces its callback.
func (w *Watcher) Watch(path string, cb Callback) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fsnotify.ErrClosed
	}
	if f, ok := w.files[abs]; ok {
		f.cb = cb
		return nil
	}
	if w.dirs[dir] == 0 {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	w.dirs[dir]++
	w.files[abs] = &watched{cb: cb}

	w.logger.Debug("Watching file.", "path", abs)
	return nil
}

// Unwatch stops reporting changes to path. A pending callback is cancelled.
func (w *Watcher) Unwatch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()

	f, ok := w.files[abs]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotWatched, abs)
	}
	if f.timer != nil {
		f.timer.Stop()
	}
	delete(w.files, abs)

	w.dirs[dir]--
	if w.dirs[dir] == 0 {
		delete(w.dirs, dir)
		if err := w.fs.Remove(dir); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
			w.logger.Warn("Failed to stop watching directory.", "dir", dir, "error", err)
		}
	}

	w.logger.Debug("Stopped watching file.", "path", abs)
	return nil
}

// Close stops the watcher. Pending callbacks are cancelled.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, f := range w.files {
		if f.timer != nil {
			f.timer.Stop()
		}
	}
	w.mu.Unlock()

	err := w.fs.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				w.changed(filepath.Clean(ev.Name))
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error.", "error", err)
		}
	}
}

func (w *Watcher) changed(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, ok := w.files[path]
	if !ok || w.closed {
		return
	}
	if f.timer != nil {
		f.timer.Stop()
	}
	cb := f.cb
	f.timer = time.AfterFunc(w.delay, func() {
		w.logger.Debug("File changed.", "path", path)
		cb(path)
	})
}
