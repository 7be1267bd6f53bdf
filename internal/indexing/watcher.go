package indexing

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/f1r3fly-io/rholang-language-server/internal/debug"
)

// FileEventKind classifies file system events for the engine.
type FileEventKind int

const (
	FileCreated FileEventKind = iota
	FileChanged
	FileDeleted
)

// String returns a string representation of the event kind
func (k FileEventKind) String() string {
	switch k {
	case FileCreated:
		return "created"
	case FileChanged:
		return "changed"
	case FileDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Watcher monitors the workspace for changes and reports them through a
// single callback. Raw fsnotify events for one path coalesce in the
// engine's dirty tracker, which does the debouncing.
type Watcher struct {
	watcher *fsnotify.Watcher
	scanner *Scanner
	onEvent func(path string, kind FileEventKind)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	statsMu         sync.RWMutex
	eventsProcessed int64
	errorCount      int64
	lastEventTime   time.Time
}

// NewWatcher creates a watcher over the scanner's root.
func NewWatcher(scanner *Scanner, onEvent func(path string, kind FileEventKind)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		watcher: fsw,
		scanner: scanner,
		onEvent: onEvent,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start adds recursive directory watches and begins event processing.
func (w *Watcher) Start() error {
	debug.LogIndexing("starting file watcher for %s\n", w.scanner.Root)
	if err := w.addWatches(w.scanner.Root); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.processEvents()
	return nil
}

// Stop shuts the watcher down and waits for its goroutine.
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

// addWatches walks the tree adding a watch per directory. Symlink cycles
// are broken by tracking resolved paths; per-directory errors are skipped.
func (w *Watcher) addWatches(root string) error {
	visited := make(map[string]bool)
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return filepath.SkipDir
		}
		if visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true

		if rel, err := filepath.Rel(root, path); err == nil && rel != "." && w.scanner.excluded(filepath.ToSlash(rel)+"/x") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			log.Printf("warning: failed to watch %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("file watcher error: %v", err)
			w.incrementStats(0, 1)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	info, statErr := os.Stat(path)
	if statErr != nil {
		// Gone: only interesting if it was an indexable file.
		if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && w.scanner.MatchesAbs(path) {
			w.emit(path, FileDeleted)
		}
		return
	}

	if info.IsDir() {
		// A new directory needs its own watch for events below it.
		if event.Op&fsnotify.Create != 0 {
			if err := w.watcher.Add(path); err != nil {
				log.Printf("warning: failed to watch new directory %s: %v", path, err)
			}
		}
		return
	}

	if info.Size() > w.scanner.MaxFileSize || !w.scanner.MatchesAbs(path) {
		return
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		w.emit(path, FileCreated)
	case event.Op&fsnotify.Write != 0:
		w.emit(path, FileChanged)
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.emit(path, FileDeleted)
	}
}

func (w *Watcher) emit(path string, kind FileEventKind) {
	debug.LogIndexing("watcher: %s %s\n", kind, path)
	w.incrementStats(1, 0)
	if w.onEvent != nil {
		w.onEvent(path, kind)
	}
}

func (w *Watcher) incrementStats(events, errors int64) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.eventsProcessed += events
	w.errorCount += errors
	w.lastEventTime = time.Now()
}

// WatchStats contains statistics about file watching operations.
type WatchStats struct {
	EventsProcessed int64
	ErrorCount      int64
	LastEventTime   time.Time
	IsActive        bool
}

// Stats returns current watcher statistics.
func (w *Watcher) Stats() WatchStats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	return WatchStats{
		EventsProcessed: w.eventsProcessed,
		ErrorCount:      w.errorCount,
		LastEventTime:   w.lastEventTime,
		IsActive:        w.ctx.Err() == nil,
	}
}
