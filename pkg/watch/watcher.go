// Package watch reports batches of changed source files under a project root.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 500 * time.Millisecond

// DefaultExtensions are the source and header extensions watched by default.
var DefaultExtensions = []string{".cpp", ".cc", ".cxx", ".c", ".h", ".hpp", ".hxx"}

// Options configures a Watcher.
type Options struct {
	// Root is watched recursively.
	Root string

	// Extensions selects which files count as changes.
	Extensions []string

	// Files are watched regardless of extension, e.g. the compilation database.
	Files []string

	// SkipDir, if set, prunes directories from the recursive watch.
	SkipDir func(path string) bool

	Debounce time.Duration
	Logger   *zap.Logger
}

// Watcher monitors a source tree for changes.
type Watcher struct {
	fsw        *fsnotify.Watcher
	opts       Options
	logger     *zap.Logger
	extensions map[string]bool
	files      map[string]bool
	dirs       int
}

// New creates a Watcher and registers every directory under the root.
func New(opts Options) (*Watcher, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	opts.Root = root
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		fsw:        fsw,
		opts:       opts,
		logger:     logger,
		extensions: make(map[string]bool),
		files:      make(map[string]bool),
	}
	for _, ext := range opts.Extensions {
		w.extensions[strings.ToLower(ext)] = true
	}

	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}

	// Watch the directory containing each file (fsnotify works better this way)
	for _, file := range opts.Files {
		abs, err := filepath.Abs(file)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to resolve path: %w", err)
		}
		w.files[abs] = true
		if err := fsw.Add(filepath.Dir(abs)); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch directory: %w", err)
		}
	}

	return w, nil
}

// Dirs returns the number of directories registered.
func (w *Watcher) Dirs() int {
	return w.dirs
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("failed to walk %s: %w", path, err)
			}
			w.logger.Debug("skipping unreadable directory", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.skip(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", path, err)
		}
		w.dirs++
		return nil
	})
}

func (w *Watcher) skip(dir string) bool {
	if strings.HasPrefix(filepath.Base(dir), ".") {
		return true
	}
	return w.opts.SkipDir != nil && w.opts.SkipDir(dir)
}

func (w *Watcher) relevant(path string) bool {
	if w.files[path] {
		return true
	}
	return w.extensions[strings.ToLower(filepath.Ext(path))]
}

// Run calls onChange with every settled batch of changed paths until ctx is
// cancelled. Batches are delivered one at a time; an error from onChange is logged
// and watching continues.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, paths []string) error) error {
	defer w.fsw.Close()

	pending := make(map[string]bool)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			path, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(path); err == nil && info.IsDir() {
					if !w.skip(path) {
						if err := w.addTree(path); err != nil {
							w.logger.Warn("cannot watch new directory", zap.String("path", path), zap.Error(err))
						}
					}
					continue
				}
			}

			if !w.relevant(path) {
				continue
			}

			// Debounce rapid changes
			pending[path] = true
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
			} else {
				timer.Reset(w.opts.Debounce)
			}
			fire = timer.C

		case <-fire:
			batch := make([]string, 0, len(pending))
			for path := range pending {
				batch = append(batch, path)
			}
			sort.Strings(batch)
			pending = make(map[string]bool)
			timer, fire = nil, nil

			w.logger.Debug("change detected", zap.Strings("paths", batch))
			if err := onChange(ctx, batch); err != nil {
				w.logger.Error("change handler failed", zap.Error(err))
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
