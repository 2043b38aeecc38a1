package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a file must stay quiet before it is imported.
const DefaultSettle = 2 * time.Second

// Watcher imports export files dropped into a directory.
type Watcher struct {
	dir     string
	settle  time.Duration
	runner  *Runner
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

// NewWatcher creates a Watcher for dir. A settle of zero uses DefaultSettle.
func NewWatcher(dir string, settle time.Duration, runner *Runner, logger *slog.Logger) (*Watcher, error) {
	if settle <= 0 {
		settle = DefaultSettle
	}
	fileWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &Watcher{
		dir:     expandHome(dir),
		settle:  settle,
		runner:  runner,
		logger:  logger,
		watcher: fileWatcher,
		pending: make(map[string]*time.Timer),
	}, nil
}

// Start watches until ctx is done. Imports already scheduled are allowed to
// finish before it returns.
func (w *Watcher) Start(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch path %s: %w", w.dir, err)
	}
	w.logger.Info("export watcher started", "dir", w.dir, "settle", w.settle.String())

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			w.wg.Wait()
			w.logger.Info("export watcher stopped")
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if err != nil {
				w.logger.Error("file watcher error", "error", err)
			}
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !IsExportFile(event.Name) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
		return
	}
	w.schedule(ctx, event.Name)
}

// schedule (re)arms the settle timer for path, so a file still being written
// is imported once.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok && t.Stop() {
		t.Reset(w.settle)
		return
	}

	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.settle, func() {
		defer w.wg.Done()

		w.mu.Lock()
		if w.pending[path] == t {
			delete(w.pending, path)
		}
		w.mu.Unlock()

		w.importFile(ctx, path)
	})
	w.pending[path] = t
}

func (w *Watcher) importFile(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	fs, err := w.runner.ImportFile(ctx, path)
	if err != nil {
		w.logger.Error("watched import failed", "path", path, "error", err)
		return
	}
	w.logger.Info("watched import done",
		"path", path,
		"contact", fs.Contact,
		"status", fs.Status,
		"messages", fs.Messages,
		"duplicate", fs.Duplicate,
	)
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
}
