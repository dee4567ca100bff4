// Package watcher triggers a catalogue reload when files matching the
// catalogue pattern change on disk. Bursts of events are debounced into a
// single reload.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// Watcher watches the directory tree a doublestar pattern can match.
type Watcher struct {
	pattern  string
	debounce time.Duration
	onChange func(ctx context.Context)
	logger   *slog.Logger
}

// New creates a Watcher that calls onChange at most once per debounce window.
func New(pattern string, debounce time.Duration, onChange func(ctx context.Context)) *Watcher {
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	return &Watcher{
		pattern:  filepath.Clean(pattern),
		debounce: debounce,
		onChange: onChange,
		logger:   slog.Default().With("component", "catalogue-watcher", "pattern", pattern),
	}
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fs watcher: %w", err)
	}
	defer fsw.Close()

	base, _ := doublestar.SplitPattern(filepath.ToSlash(w.pattern))
	base = filepath.FromSlash(base)
	recursive := strings.Contains(w.pattern, "**")
	if err := w.add(fsw, base, recursive); err != nil {
		return err
	}
	w.logger.Info("watching catalogue", "base", base, "recursive", recursive)

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("catalogue watcher stopping")
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if recursive && event.Has(fsnotify.Create) {
				// new sub-directories may hold matching files later
				_ = w.add(fsw, event.Name, true)
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("catalogue file event", "path", event.Name, "op", event.Op.String())
			fire = time.After(w.debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("fs watcher error", "error", err)
		case <-fire:
			fire = nil
			w.onChange(ctx)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	matched, err := doublestar.PathMatch(w.pattern, filepath.Clean(event.Name))
	return err == nil && matched
}

func (w *Watcher) add(fsw *fsnotify.Watcher, root string, recursive bool) error {
	if !recursive {
		if err := fsw.Add(root); err != nil {
			return fmt.Errorf("watching %s: %w", root, err)
		}
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
