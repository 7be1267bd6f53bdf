// Package core wires the document intelligence pipeline together: the hot
// and cold caches, the dependency graph, the debounced incremental
// re-indexer, the pattern index and the resolver pipeline, behind the
// operations the protocol adapter consumes.
package core

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"lukechampine.com/blake3"

	"github.com/f1r3fly-io/rholang-language-server/internal/analysis"
	"github.com/f1r3fly-io/rholang-language-server/internal/cache"
	"github.com/f1r3fly-io/rholang-language-server/internal/completion"
	"github.com/f1r3fly-io/rholang-language-server/internal/config"
	"github.com/f1r3fly-io/rholang-language-server/internal/debug"
	"github.com/f1r3fly-io/rholang-language-server/internal/deps"
	"github.com/f1r3fly-io/rholang-language-server/internal/indexing"
	"github.com/f1r3fly-io/rholang-language-server/internal/pattern"
	"github.com/f1r3fly-io/rholang-language-server/internal/position"
	"github.com/f1r3fly-io/rholang-language-server/internal/resolver"
	"github.com/f1r3fly-io/rholang-language-server/internal/symbols"
	"github.com/f1r3fly-io/rholang-language-server/pkg/pathutil"
)

// flushPollInterval is how often the background loop checks the dirty
// tracker. Well under the debounce window so a due flush never waits long.
const flushPollInterval = 20 * time.Millisecond

// openState tracks a document the editor has open: its rope and version.
type openState struct {
	text    string
	version int32
}

// Engine is the long-lived workspace object. All of its shared state is
// internally synchronized; queries read consistent snapshots and never see
// a half-applied flush.
type Engine struct {
	cfg *config.Config

	hot     *cache.DocumentCache
	cold    *cache.PersistentCache
	mod     *cache.ModTracker
	graph   *deps.Graph
	dirty   *indexing.DirtyTracker
	dict    *completion.Dictionary
	suffix  *symbols.SuffixIndex
	scanner *indexing.Scanner
	watcher *indexing.Watcher

	// patterns and global are immutable snapshots swapped by link passes.
	patterns atomic.Pointer[pattern.Trie]
	global   atomic.Pointer[globalIndex]

	// docs is the workspace document table: uri -> *cache.Document.
	docs sync.Map

	openMu sync.Mutex
	open   map[string]*openState

	publish PublishFunc

	flushMu sync.Mutex // serializes incremental flushes
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closed  atomic.Bool
}

// globalIndex is the linked workspace-wide definition index.
type globalIndex struct {
	defs map[string][]resolver.Candidate
}

// NewEngine constructs an engine for a workspace. Call Initialize before
// serving queries and Shutdown before discarding it.
func NewEngine(cfg *config.Config, publish PublishFunc) *Engine {
	coldRoot := cfg.Project.Root
	cold := cache.NewPersistentCache(coldRoot)
	if cfg.Cache.Dir != "" {
		cold = cache.NewPersistentCacheAt(cfg.Cache.Dir)
	}

	e := &Engine{
		cfg:     cfg,
		hot:     cache.NewDocumentCache(cfg.Cache.Capacity),
		cold:    cold,
		mod:     cache.NewModTracker(cold.Dir()),
		graph:   deps.NewGraph(),
		dirty:   indexing.NewDirtyTracker(time.Duration(cfg.Index.WatchDebounceMs) * time.Millisecond),
		dict:    completion.NewDictionary(),
		suffix:  symbols.NewSuffixIndex(),
		scanner: indexing.NewScanner(cfg.Project.Root, cfg.Include, cfg.Exclude, cfg.Index.MaxFileSize),
		open:    make(map[string]*openState),
		publish: publish,
	}
	e.patterns.Store(pattern.NewTrie())
	e.global.Store(&globalIndex{defs: map[string][]resolver.Candidate{}})
	return e
}

// Initialize performs the warm or cold start: load persisted state, index
// what changed on disk, link symbols, then start the watcher and the flush
// loop. It must complete before the first query is served.
func (e *Engine) Initialize(ctx context.Context) error {
	start := time.Now()

	if err := e.mod.Load(); err != nil {
		log.Printf("warning: file timestamp state unavailable, cold start: %v", err)
	}
	if err := e.dict.LoadFromFile(e.cold.Dir()); err != nil {
		log.Printf("warning: completion dictionary unavailable: %v", err)
	}

	// Warm start: adopt every cold entry whose file is unchanged.
	warm := 0
	if e.cfg.Cache.Persistent {
		result := e.cold.Load(e.mod.CurrentMtime)
		for _, doc := range result.Loaded {
			e.adoptDocument(doc)
			warm++
		}
		if result.ColdStart {
			debug.LogCache("cold start for %s\n", e.cfg.Project.Root)
		}
	}

	// Discover and index everything new or changed since the cache was
	// written.
	paths, err := e.scanner.Scan()
	if err != nil {
		log.Printf("warning: workspace scan incomplete: %v", err)
	}

	workers := e.cfg.Performance.ParallelFileWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	group, _ := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for _, rel := range paths {
		uri := pathutil.PathToURI(filepath.Join(e.cfg.Project.Root, rel))
		if _, loaded := e.docs.Load(uri); loaded && !e.mod.HasChanged(uri) {
			continue
		}
		group.Go(func() error {
			if err := e.indexFromDisk(uri); err != nil {
				log.Printf("warning: failed to index %s: %v", uri, err)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	e.linkSymbols()

	if e.cfg.Index.WatchMode {
		watcher, err := indexing.NewWatcher(e.scanner, e.onWatcherEvent)
		if err != nil {
			log.Printf("warning: file watching unavailable: %v", err)
		} else if err := watcher.Start(); err != nil {
			log.Printf("warning: file watching unavailable: %v", err)
		} else {
			e.watcher = watcher
		}
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.wg.Add(1)
	go e.flushLoop(loopCtx)

	log.Printf("workspace %s ready: %d documents (%d from cache) in %v",
		e.cfg.Project.Root, e.documentCount(), warm, time.Since(start))
	return nil
}

// Shutdown flushes pending work, drains the flush loop and persists every
// cache. Safe to call once.
func (e *Engine) Shutdown(ctx context.Context) error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	if e.watcher != nil {
		if err := e.watcher.Stop(); err != nil {
			log.Printf("warning: watcher shutdown: %v", err)
		}
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()

	// Final flush of anything still pending, then persist.
	e.Flush()

	if e.cfg.Cache.Persistent {
		if err := e.cold.Save(e.hot.Documents()); err != nil {
			log.Printf("warning: persistent cache write incomplete: %v", err)
		}
	}
	if err := e.mod.Persist(); err != nil {
		log.Printf("warning: timestamp persistence failed: %v", err)
	}
	if err := e.dict.SaveToFile(e.cold.Dir()); err != nil {
		log.Printf("warning: completion dictionary persistence failed: %v", err)
	}
	return nil
}

// flushLoop drives debounced incremental re-indexing.
func (e *Engine) flushLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(flushPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if e.dirty.ShouldFlush() {
				e.Flush()
			}
		}
	}
}

// Open indexes a document the editor opened and returns its diagnostics.
func (e *Engine) Open(uri string, text string, version int32) []Diagnostic {
	e.openMu.Lock()
	e.open[uri] = &openState{text: text, version: version}
	e.openMu.Unlock()

	result, hit := e.indexText(uri, text, version)
	diags := diagnosticsFor(result)
	if !hit {
		e.linkSymbols()
	}
	e.publishDiagnostics(uri, version, diags)
	return diags
}

// Change applies an edit to the stored rope and schedules a debounced
// re-index. Incremental range edits are applied in order; a nil range
// replaces the whole text.
func (e *Engine) Change(uri string, edits []TextChange, version int32) error {
	e.openMu.Lock()
	state, ok := e.open[uri]
	if !ok {
		state = &openState{}
		if doc, found := e.documentByURI(uri); found {
			state.text = e.textOf(doc)
		}
		e.open[uri] = state
	}
	text := state.text
	for _, edit := range edits {
		applied, err := applyChange(text, edit)
		if err != nil {
			e.openMu.Unlock()
			return err
		}
		text = applied
	}
	state.text = text
	state.version = version
	e.openMu.Unlock()

	e.dirty.MarkDirty(uri, indexing.PriorityOpen, indexing.ReasonEdit)
	return nil
}

// Close forgets the editor's rope for the document. The cached index entry
// is retained until LRU pressure evicts it.
func (e *Engine) Close(uri string) {
	e.openMu.Lock()
	delete(e.open, uri)
	e.openMu.Unlock()
}

// Save marks the document for priority re-indexing.
func (e *Engine) Save(uri string) {
	e.dirty.MarkDirty(uri, indexing.PriorityOpen, indexing.ReasonSave)
}

// FileWatcherEvent routes a file system notification.
func (e *Engine) FileWatcherEvent(uri string, kind indexing.FileEventKind) {
	switch kind {
	case indexing.FileDeleted:
		e.removeDocument(uri)
		e.linkSymbols()
	default:
		e.dirty.MarkDirty(uri, indexing.PriorityBackground, indexing.ReasonFileWatcher)
	}
}

// onWatcherEvent adapts watcher paths to uris.
func (e *Engine) onWatcherEvent(path string, kind indexing.FileEventKind) {
	e.FileWatcherEvent(pathutil.PathToURI(path), kind)
}

// adoptDocument installs a warm-loaded document into every table without
// re-parsing.
func (e *Engine) adoptDocument(doc *cache.Document) {
	e.hot.Insert(doc)
	e.docs.Store(doc.URI, doc)
	e.suffix.ReplaceDocument(doc.URI, doc.Symbols.All())
	e.dict.RemoveDocumentSymbols(doc.URI)
	e.dict.AddSymbols(doc.URI, doc.Symbols.All())
}

// removeDocument drops a deleted file from every structure.
func (e *Engine) removeDocument(uri string) {
	e.hot.Remove(uri)
	e.docs.Delete(uri)
	e.graph.RemoveFile(uri)
	e.dict.RemoveDocumentSymbols(uri)
	e.suffix.RemoveDocument(uri)
	e.mod.Remove(uri)
	e.cold.RemoveEntry(uri)
}

// indexText indexes in-memory text through the hot cache: a content hash
// hit reuses the cached document wholesale.
func (e *Engine) indexText(uri, text string, version int32) (*analysis.Result, bool) {
	hash := cache.Hash(blake3.Sum256([]byte(text)))
	if doc, ok := e.hot.Get(uri, hash); ok {
		e.docs.Store(uri, doc)
		e.mod.MarkIndexed(uri)
		return &analysis.Result{Doc: doc}, true
	}

	mtime := time.Now()
	if current, ok := e.mod.CurrentMtime(uri); ok {
		mtime = current
	}
	result := analysis.Build(uri, text, version, mtime)
	e.hot.Insert(result.Doc)
	e.docs.Store(uri, result.Doc)
	e.suffix.ReplaceDocument(uri, result.Doc.Symbols.All())
	e.dict.RemoveDocumentSymbols(uri)
	e.dict.AddSymbols(uri, result.Doc.Symbols.All())
	e.mod.MarkIndexed(uri)
	return result, false
}

// indexFromDisk reads a file and indexes it.
func (e *Engine) indexFromDisk(uri string) error {
	data, err := os.ReadFile(pathutil.URIToPath(uri))
	if err != nil {
		return err
	}
	result, _ := e.indexText(uri, string(data), 0)
	e.publishDiagnostics(uri, 0, diagnosticsFor(result))
	return nil
}

// documentByURI returns the current document table entry.
func (e *Engine) documentByURI(uri string) (*cache.Document, bool) {
	if v, ok := e.docs.Load(uri); ok {
		return v.(*cache.Document), true
	}
	return nil, false
}

// documentCount returns the number of documents in the workspace table.
func (e *Engine) documentCount() int {
	n := 0
	e.docs.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// allDocuments snapshots the document table.
func (e *Engine) allDocuments() []*cache.Document {
	var out []*cache.Document
	e.docs.Range(func(_, v any) bool {
		out = append(out, v.(*cache.Document))
		return true
	})
	return out
}

// textOf returns a document's text, reading it from disk when the rope was
// not persisted. The refreshed document (a pointer copy with the rope and
// line index attached) replaces the table entry.
func (e *Engine) textOf(doc *cache.Document) string {
	if doc.Text != "" || doc.ContentHash == cache.Hash(blake3.Sum256(nil)) {
		return doc.Text
	}
	data, err := os.ReadFile(pathutil.URIToPath(doc.URI))
	if err != nil {
		return ""
	}
	// Only adopt the text if it still matches the indexed content.
	if cache.Hash(blake3.Sum256(data)) != doc.ContentHash {
		return string(data)
	}
	fresh := *doc
	fresh.Text = string(data)
	fresh.LineIndex = position.NewLineIndex(data)
	e.docs.Store(doc.URI, &fresh)
	e.hot.Insert(&fresh)
	return fresh.Text
}

// ensureLineIndex guarantees the document has a line index, reloading the
// text lazily if necessary. Returns the (possibly refreshed) document.
func (e *Engine) ensureLineIndex(doc *cache.Document) *cache.Document {
	if doc.LineIndex != nil {
		return doc
	}
	e.textOf(doc)
	if fresh, ok := e.documentByURI(doc.URI); ok && fresh.LineIndex != nil {
		return fresh
	}
	return doc
}

// Stats exposes hot cache statistics.
func (e *Engine) Stats() cache.Stats {
	return e.hot.Stats()
}

// PatternIndex returns the current pattern trie snapshot.
func (e *Engine) PatternIndex() *pattern.Trie {
	return e.patterns.Load()
}

// pipeline builds a resolver over the current snapshots.
func (e *Engine) pipeline() *resolver.Pipeline {
	global := e.global.Load()
	return resolver.NewPipeline(e.patterns.Load(), func(name string) []resolver.Candidate {
		return global.defs[name]
	})
}
