// Package watch reports debounced changes below a content root
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for writes to settle
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches a file or directory tree
type Watcher struct {
	root     string
	debounce time.Duration
	filter   func(name string) bool
	log      *slog.Logger

	w *fsnotify.Watcher
}

// Option configures a Watcher
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce
func WithDebounce(d time.Duration) Option { return func(w *Watcher) { w.debounce = d } }

// WithFilter drops events for names the filter rejects
func WithFilter(f func(name string) bool) Option { return func(w *Watcher) { w.filter = f } }

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option { return func(w *Watcher) { w.log = l } }

// New starts watching root. Directories are watched recursively, skipping
// hidden ones. A file root is watched through its parent directory so
// editors that replace the file on save keep being seen.
func New(root string, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w := &Watcher{
		root:     root,
		debounce: DefaultDebounce,
		filter:   func(string) bool { return true },
		log:      slog.Default(),
		w:        fw,
	}
	for _, o := range opts {
		o(w)
	}

	info, err := os.Stat(root)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		clean := filepath.Clean(root)
		inner := w.filter
		w.filter = func(name string) bool { return filepath.Clean(name) == clean && inner(name) }
		if err := fw.Add(filepath.Dir(root)); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch: %w", err)
		}
		return w, nil
	}
	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// Close stops the underlying watcher
func (w *Watcher) Close() error { return w.w.Close() }

// Run calls onChange with the sorted, de-duplicated names that changed
// once no event has arrived for the debounce interval. It returns when ctx
// is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context, onChange func(names []string)) error {
	debounce := time.NewTimer(w.debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	pending := make(map[string]struct{})
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						w.log.Warn("watch new directory", "path", ev.Name, "error", err)
					}
					continue
				}
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !w.filter(ev.Name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			debounce.Reset(w.debounce)

		case err, ok := <-w.w.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "error", err)

		case <-debounce.C:
			if len(pending) == 0 {
				continue
			}
			names := make([]string, 0, len(pending))
			for n := range pending {
				names = append(names, n)
			}
			sort.Strings(names)
			clear(pending)
			w.log.Debug("content changed", "files", names)
			onChange(names)
		}
	}
}
