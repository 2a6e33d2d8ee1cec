// Package watch rebuilds goat sources when they change on disk.
package watch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Options configures a Watcher.
type Options struct {
	Debounce   time.Duration // quiet period after the last event before OnChange runs
	Extensions []string      // only files with these extensions trigger OnChange
	// OnChange is called with the changed file. A returned error is logged.
	OnChange func(path string) error
}

// Watcher monitors source files and calls OnChange for each settled change.
type Watcher struct {
	watcher *fsnotify.Watcher
	opts    Options
	targets map[string]bool // watched files; empty means every matching file
	stdout  io.Writer
	stderr  io.Writer

	mu      sync.Mutex
	pending map[string]*time.Timer
	builds  uint64

	// settled carries debounced paths to the event loop, which runs
	// OnChange one path at a time.
	settled chan string
	done    chan struct{}
	closing sync.Once
	wg      sync.WaitGroup
}

// New creates a watcher for paths, which may be files or directories.
func New(paths []string, opts Options, stdout, stderr io.Writer) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = 100 * time.Millisecond
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".goat"}
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher: fsWatcher,
		opts:    opts,
		targets: make(map[string]bool),
		stdout:  stdout,
		stderr:  stderr,
		pending: make(map[string]*time.Timer),
		settled: make(chan string),
		done:    make(chan struct{}),
	}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsWatcher.Close()
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			fsWatcher.Close()
			return nil, err
		}
		dir := abs
		if !info.IsDir() {
			// Editors replace files on save, so watch the directory.
			dir = filepath.Dir(abs)
			w.targets[abs] = true
		}
		if err := fsWatcher.Add(dir); err != nil {
			fsWatcher.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
		w.logInfo("watching %s", p)
	}
	return w, nil
}

// Start runs the event loop until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.eventLoop(ctx)
	}()
}

func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return

		case path := <-w.settled:
			w.mu.Lock()
			w.builds++
			w.mu.Unlock()
			w.handleChange(path)

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if w.matches(event.Name) {
				w.schedule(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logError("watcher error: %v", err)
		}
	}
}

// matches reports whether a changed path should trigger a rebuild.
func (w *Watcher) matches(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if len(w.targets) > 0 && !w.targets[abs] {
		return false
	}
	ext := strings.ToLower(filepath.Ext(abs))
	for _, e := range w.opts.Extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// schedule restarts the debounce timer for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.opts.Debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case w.settled <- path:
		case <-w.done:
		}
	})
}

func (w *Watcher) handleChange(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	w.logInfo("changed: %s", path)
	if w.opts.OnChange == nil {
		return
	}
	if err := w.opts.OnChange(path); err != nil {
		w.logError("%v", err)
	}
}

// Builds returns how many settled changes have been handled.
func (w *Watcher) Builds() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.builds
}

// Close stops the watcher, drops pending rebuilds and waits for a running
// OnChange to return.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	w.closing.Do(func() { close(w.done) })
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) logInfo(format string, args ...interface{}) {
	fmt.Fprintf(w.stdout, "[WATCH] "+format+"\n", args...)
}

func (w *Watcher) logError(format string, args ...interface{}) {
	fmt.Fprintf(w.stderr, "[WATCH ERROR] "+format+"\n", args...)
}
