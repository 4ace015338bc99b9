package ingest

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/donbr/graphiti-qdrant/internal/config"
	"github.com/donbr/graphiti-qdrant/internal/fetch"
)

// Watcher watches the raw data directory and re-splits a source whenever
// its llms-full.txt changes.
type Watcher struct {
	rawDir   string
	sources  map[string]config.SourceConfig // keyed by source name
	splitter *Splitter

	watcher *fsnotify.Watcher

	// Debouncing
	pendingMu      sync.Mutex
	pendingSources map[string]time.Time
	debounceTime   time.Duration
}

// WatcherConfig contains watcher configuration.
type WatcherConfig struct {
	RawDir       string
	Sources      []config.SourceConfig
	Splitter     *Splitter
	DebounceTime time.Duration // Default: 500ms
}

// NewWatcher creates a new raw-file watcher. Only sources with a splitting
// strategy are watched.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounceTime := cfg.DebounceTime
	if debounceTime == 0 {
		debounceTime = 500 * time.Millisecond
	}

	sources := make(map[string]config.SourceConfig, len(cfg.Sources))
	for _, src := range cfg.Sources {
		if src.Strategy != "" {
			sources[src.Name] = src
		}
	}

	return &Watcher{
		rawDir:         cfg.RawDir,
		sources:        sources,
		splitter:       cfg.Splitter,
		watcher:        watcher,
		pendingSources: make(map[string]time.Time),
		debounceTime:   debounceTime,
	}, nil
}

// Watch starts watching for raw file changes.
// It blocks until the context is cancelled.
func (w *Watcher) Watch(ctx context.Context) error {
	if err := w.addWatchDirs(); err != nil {
		return err
	}

	slog.Info("Watching for raw file changes", "dir", w.rawDir, "sources", len(w.sources))

	// Start debounce processor
	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopping watcher")
			return w.watcher.Close()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", "error", err)
		}
	}
}

// addWatchDirs watches the raw dir and every source subdirectory.
func (w *Watcher) addWatchDirs() error {
	if err := w.watcher.Add(w.rawDir); err != nil {
		return err
	}
	for name := range w.sources {
		dir := filepath.Join(w.rawDir, name)
		if err := w.watcher.Add(dir); err != nil {
			// Directory may not exist until the first download.
			slog.Debug("Not watching source dir yet", "dir", dir, "error", err)
		}
	}
	return nil
}

// handleEvent queues a source for re-splitting when its llms-full.txt is
// written or created.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	// A new source directory appeared: start watching it.
	if event.Has(fsnotify.Create) {
		if name := filepath.Base(event.Name); filepath.Dir(event.Name) == w.rawDir {
			if _, ok := w.sources[name]; ok {
				if err := w.watcher.Add(event.Name); err != nil {
					slog.Warn("Failed to watch new source dir", "dir", event.Name, "error", err)
				}
				return
			}
		}
	}

	if filepath.Base(event.Name) != fetch.FullFileName {
		return
	}
	source := filepath.Base(filepath.Dir(event.Name))
	if _, ok := w.sources[source]; !ok {
		return
	}

	w.pendingMu.Lock()
	w.pendingSources[source] = time.Now()
	w.pendingMu.Unlock()

	slog.Debug("Raw file changed", "source", source, "op", event.Op.String())
}

// processDebounced re-splits pending sources after the debounce period.
func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processPending(ctx)
		}
	}
}

// processPending re-splits sources that have been stable for the debounce
// period.
func (w *Watcher) processPending(ctx context.Context) {
	w.pendingMu.Lock()
	now := time.Now()
	var toProcess []string
	for source, changedAt := range w.pendingSources {
		if now.Sub(changedAt) >= w.debounceTime {
			toProcess = append(toProcess, source)
			delete(w.pendingSources, source)
		}
	}
	w.pendingMu.Unlock()

	for _, source := range toProcess {
		if ctx.Err() != nil {
			return
		}
		src := w.sources[source]
		report, err := w.splitter.SplitSource(src)
		if err != nil {
			slog.Warn("Failed to re-split source", "source", source, "error", err)
			continue
		}
		slog.Info("Re-split source",
			"source", source,
			"status", report.Status,
			"pages", report.PageCount)
	}
}

// Close closes the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
