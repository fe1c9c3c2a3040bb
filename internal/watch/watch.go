// Package watch reports batches of changed source files.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/termfx/sift/internal/logging"
)

// Handler receives the changed paths of one debounced batch, sorted.
type Handler func(ctx context.Context, paths []string) error

// Filter decides whether a changed file is reported.
type Filter func(path string) bool

var skipDirs = []string{".git", "node_modules", "vendor"}

// Extensions returns a filter accepting files with one of the extensions.
func Extensions(exts ...string) Filter {
	want := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		want = append(want, e)
	}
	return func(path string) bool {
		return slices.Contains(want, strings.ToLower(filepath.Ext(path)))
	}
}

// Watcher watches directory trees and hands debounced batches of changed
// files to a handler.
type Watcher struct {
	fsw    *fsnotify.Watcher
	delay  time.Duration
	filter Filter
	logger *zap.Logger
}

// New creates a watcher. A nil filter accepts every file; a nil logger
// discards output.
func New(delay time.Duration, filter Filter, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if filter == nil {
		filter = func(string) bool { return true }
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Watcher{fsw: fsw, delay: delay, filter: filter, logger: logger}, nil
}

// AddRecursive watches root and every directory below it.
func (w *Watcher) AddRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && slices.Contains(skipDirs, d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run dispatches batches until ctx is done. Handler errors are logged and do
// not stop the loop.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	pending := make(map[string]struct{})
	timer := time.NewTimer(w.delay)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.accept(event) {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(w.delay)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			slices.Sort(paths)
			if err := handle(ctx, paths); err != nil {
				w.logger.Error("change handler failed", zap.Error(err))
			}
		}
	}
}

// accept reports whether the event is a content change of a wanted file.
// New directories are watched as they appear.
func (w *Watcher) accept(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		return false
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := w.AddRecursive(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
		}
		return false
	}
	return w.filter(event.Name)
}
