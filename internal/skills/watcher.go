package skills

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 500 * time.Millisecond

// Watcher observes the workspace skills directory and invalidates the
// loader's cached index when SKILL.md files change. Events are
// debounced so bulk edits produce one refresh.
type Watcher struct {
	dir    string
	loader *Loader
	logger *slog.Logger

	fsw    *fsnotify.Watcher
	doneCh chan struct{}
}

// NewWatcher creates a watcher over dir feeding loader.
func NewWatcher(dir string, loader *Loader, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{dir: dir, loader: loader, logger: logger}
}

// Start begins watching. The skills directory is created when missing
// so the watch can be established.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw
	w.doneCh = make(chan struct{})

	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return err
	}
	// Watch existing skill subdirectories too; fsnotify is not recursive.
	entries, _ := os.ReadDir(w.dir)
	for _, e := range entries {
		if e.IsDir() {
			_ = fsw.Add(filepath.Join(w.dir, e.Name()))
		}
	}

	go w.loop(ctx)
	w.logger.Info("skills watcher started", "dir", w.dir)
	return nil
}

// Stop closes the watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	if w.fsw == nil {
		return
	}
	w.fsw.Close()
	<-w.doneCh
	w.fsw = nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)

	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			// New skill directories need their own watch.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.fsw.Add(event.Name)
				}
			}
			if debounce == nil {
				debounce = time.NewTimer(watchDebounce)
			} else {
				debounce.Reset(watchDebounce)
			}
			debounceC = debounce.C

		case <-debounceC:
			debounceC = nil
			w.loader.Invalidate()
			w.logger.Debug("skills changed, index cache invalidated", "dir", w.dir)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("skills watcher error", "error", err)
		}
	}
}
