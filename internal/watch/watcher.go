// Package watch monitors a repository working tree for file system
// changes and emits a single debounced signal per burst of activity,
// so a caller can rerun its reindex once per burst rather than on
// every individual write.
package watch

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/lci/internal/logging"
)

// Watcher recursively watches a directory tree, skipping paths that
// match any of the configured exclusion globs, and coalesces bursts of
// fsnotify events into a single notification per debounce window.
type Watcher struct {
	fsw      *fsnotify.Watcher
	root     string
	exclude  []string
	debounce time.Duration

	changed chan struct{}
	done    chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// New creates a Watcher rooted at root. exclude holds doublestar glob
// patterns relative to root; matching paths are never watched and never
// trigger a change signal.
func New(root string, exclude []string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	w := &Watcher{
		fsw:      fsw,
		root:     root,
		exclude:  exclude,
		debounce: debounce,
		changed:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	if err := w.addRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}
	go w.loop()
	return w, nil
}

// Changed signals once per debounce window after one or more files
// under root have changed.
func (w *Watcher) Changed() <-chan struct{} { return w.changed }

// Close stops the watcher and releases its underlying OS resources.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // best effort: skip unreadable entries
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr == nil && rel != "." && w.isExcluded(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			logging.Warn("watch: failed to add directory", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) isExcluded(relPath string) bool {
	for _, pattern := range w.exclude {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Warn("watch: fsnotify error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err == nil && w.isExcluded(filepath.ToSlash(rel)) {
		return
	}

	// A newly created directory needs its own watch added so later
	// events inside it are observed too.
	if ev.Op&fsnotify.Create != 0 {
		if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
			if err := w.addRecursive(ev.Name); err != nil {
				logging.Warn("watch: failed to watch new directory", "path", ev.Name, "error", err)
			}
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.changed <- struct{}{}:
		default:
		}
	})
}
