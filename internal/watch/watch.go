// Package watch re-runs work when files change.
//
// Directories are watched rather than the files themselves, so editors that
// save by writing a new file and renaming it over the old one are seen.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a burst of events must settle before the
// callback runs.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reports changes to a set of files.
type Watcher struct {
	fs       *fsnotify.Watcher
	files    map[string]bool
	dirs     map[string]bool
	debounce time.Duration
	logger   *slog.Logger
}

// New starts watching files. The parent directory of every file must exist.
func New(files []string, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		fs:       fsw,
		files:    map[string]bool{},
		dirs:     map[string]bool{},
		debounce: DefaultDebounce,
		logger:   logger,
	}

	if err := w.Set(files); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return w, nil
}

// Set replaces the watched files. Directories that no longer hold a watched
// file are released. On error the previous set stays in effect. Set must be
// called before Run or from the onChange callback.
func (w *Watcher) Set(files []string) error {
	if len(files) == 0 {
		return fmt.Errorf("no files to watch")
	}

	next := make(map[string]bool, len(files))
	dirs := map[string]bool{}

	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", f, err)
		}

		next[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	for dir := range dirs {
		if w.dirs[dir] {
			continue
		}

		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}

		w.dirs[dir] = true
	}

	for dir := range w.dirs {
		if dirs[dir] {
			continue
		}

		if err := w.fs.Remove(dir); err != nil {
			w.logger.Debug("unwatch failed", slog.String("dir", dir), slog.String("error", err.Error()))
		}

		delete(w.dirs, dir)
	}

	w.files = next

	return nil
}

// SetDebounce changes the settle time. It must be called before Run.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Files returns the number of files being watched.
func (w *Watcher) Files() int {
	return len(w.files)
}

// Run calls onChange with the last changed file once events settle, until
// ctx is done. onChange runs on Run's goroutine; changes made while it runs
// are delivered afterwards.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, path string)) error {
	defer func() { _ = w.fs.Close() }()

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		changed string
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}

			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if !w.files[filepath.Clean(event.Name)] {
				continue
			}

			changed = event.Name

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}

			fire = timer.C

		case <-fire:
			fire = nil

			w.logger.Debug("watched file changed", slog.String("file", changed))
			onChange(ctx, changed)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

// Close stops watching without running.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
