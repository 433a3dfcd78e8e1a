package preview

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/pagesmith/internal/document"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
)

// Watcher follows a project JSON file on disk and hands every valid version
// to a callback. Invalid intermediate writes are logged and skipped.
type Watcher struct {
	path     string
	onLoad   func(*document.Document)
	watcher  *fsnotify.Watcher
	debounce time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger

	mu    sync.Mutex
	timer clockwork.Timer
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatchClock sets the clock driving the reload debounce.
func WithWatchClock(c clockwork.Clock) WatcherOption {
	return func(w *Watcher) {
		if c != nil {
			w.clock = c
		}
	}
}

// WithWatchDebounce sets the quiet period before a changed file is reloaded.
func WithWatchDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher for path. The parent directory is watched so
// editors that replace the file by rename are followed too.
func NewWatcher(path string, onLoad func(*document.Document), logger *slog.Logger, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve watched file: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{
		path:     abs,
		onLoad:   onLoad,
		watcher:  fw,
		debounce: DefaultRebuildDelay,
		clock:    clockwork.NewRealClock(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run processes filesystem events until ctx ends and then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.close()
	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = w.clock.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn("Watched project unreadable", logfields.Path(w.path), logfields.Error(err))
		return
	}
	doc, err := document.FromJSON(data)
	if err != nil {
		w.logger.Warn("Watched project is not a valid document", logfields.Path(w.path), logfields.Error(err))
		return
	}
	w.logger.Info("Project file changed; reloading", logfields.Path(w.path))
	w.onLoad(doc)
}

func (w *Watcher) close() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	_ = w.watcher.Close()
}
