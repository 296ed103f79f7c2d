// Package fswatch reloads the served directory when its JSON file changes on disk.
package fswatch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/fsnotify/fsnotify"
)

const (
	defaultSettle   = 200 * time.Millisecond
	defaultAttempts = 3
	maxBackoff      = 2 * time.Second
)

// Reloader reloads the directory from path, keeping the old one on error.
type Reloader interface {
	Reload(path string) error
}

// Watcher watches the parent directory of one file. Watching the directory
// rather than the file survives editors and converters that replace the file
// by rename.
type Watcher struct {
	path     string
	reloader Reloader
	settle   time.Duration // quiet period after the last event before reloading
	attempts int
	logger   *slog.Logger
}

// New creates a watcher for path.
func New(path string, reloader Reloader, logger *slog.Logger) *Watcher {
	return &Watcher{
		path:     path,
		reloader: reloader,
		settle:   defaultSettle,
		attempts: defaultAttempts,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, reloading after each burst of create,
// write or rename events on the watched file.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Info("watching directory file", "path", w.path)

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("directory file changed", "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.settle)
			} else {
				timer.Reset(w.settle)
			}
			pending = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		case <-pending:
			pending = nil
			w.reload(ctx)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Base(ev.Name) != filepath.Base(w.path) {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Rename)
}

// reload retries with backoff since a write event can arrive before the
// writer has finished the file.
func (w *Watcher) reload(ctx context.Context) {
	backoff := w.settle
	for attempt := 1; ; attempt++ {
		err := w.reloader.Reload(w.path)
		if err == nil {
			return
		}
		if attempt >= w.attempts {
			w.logger.Error("reload abandoned, serving previous directory", "attempts", attempt, "error", err)
			return
		}
		if !retry.SleepWithContext(ctx, backoff) {
			return
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}
