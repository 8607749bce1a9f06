// Package watch re-runs documentation generation when sources or the configuration change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/doctool/internal/logfields"
	"git.home.luguber.info/inful/doctool/internal/pathmatch"
)

// DefaultDebounce is the quiet period after the last change before a rebuild starts.
const DefaultDebounce = 500 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Paths are the source roots; their directory trees are watched.
	Paths []string
	// ConfigPath is watched too; changing it triggers a rebuild like a source change.
	ConfigPath string
	// FileTypes limits the source files that trigger a rebuild. Empty accepts every file.
	FileTypes []string
	Debounce  time.Duration
	Logger    *slog.Logger
}

// Rebuild runs one generation. Its error is logged and watching continues.
type Rebuild func(ctx context.Context, changed []string) error

// Watcher coalesces bursts of file system events into single rebuilds.
type Watcher struct {
	opts    Options
	watcher *fsnotify.Watcher
	config  string
}

// New creates a Watcher and registers every directory below the source roots.
func New(opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{opts: opts, watcher: fw}

	if opts.ConfigPath != "" {
		abs, err := filepath.Abs(opts.ConfigPath)
		if err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("failed to resolve config path: %w", err)
		}
		w.config = abs
		// The directory is watched because editors replace files on save.
		if err := fw.Add(filepath.Dir(abs)); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("failed to watch config directory: %w", err)
		}
	}
	for _, root := range opts.Paths {
		if err := w.addTree(root); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Close releases the underlying watcher.
func (w *Watcher) Close() error { return w.watcher.Close() }

// addTree watches root and its non-hidden subdirectories. A file root watches its directory.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to walk %s: %w", root, err)
		}
		if !d.IsDir() {
			if path == root {
				return w.watcher.Add(filepath.Dir(path))
			}
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// relevant reports whether an event on name should trigger a rebuild.
func (w *Watcher) relevant(name string) bool {
	if name == w.config {
		return true
	}
	if strings.HasPrefix(filepath.Base(name), ".") {
		return false
	}
	return pathmatch.HasExtension(name, w.opts.FileTypes)
}

// Run delivers debounced changes to rebuild until ctx is done. Rebuilds never overlap;
// changes arriving during a rebuild are collected for the next one.
func (w *Watcher) Run(ctx context.Context, rebuild Rebuild) error {
	w.opts.Logger.Info("Watching for changes",
		slog.Int("roots", len(w.opts.Paths)),
		slog.Duration("debounce", w.opts.Debounce))

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	pending := make(map[string]struct{})
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					// Files may already exist in a directory created in one step.
					if err := w.addTree(event.Name); err != nil {
						w.opts.Logger.Warn("Cannot watch new directory", logfields.Path(event.Name), logfields.Error(err))
					}
					pending[event.Name] = struct{}{}
					timer.Reset(w.opts.Debounce)
					continue
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 || !w.relevant(event.Name) {
				continue
			}
			w.opts.Logger.Debug("Change detected", logfields.File(event.Name), slog.String("op", event.Op.String()))
			pending[event.Name] = struct{}{}
			timer.Reset(w.opts.Debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.opts.Logger.Error("File watcher error", logfields.Error(err))
		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for name := range pending {
				changed = append(changed, name)
			}
			clear(pending)
			slices.Sort(changed)
			w.opts.Logger.Info("Rebuilding after changes", logfields.Count(len(changed)))
			if err := rebuild(ctx, changed); err != nil {
				w.opts.Logger.Error("Rebuild failed", logfields.Error(err))
			}
		}
	}
}
