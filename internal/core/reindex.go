package core

import (
	"log"
	"os"
	"time"

	"github.com/f1r3fly-io/rholang-language-server/internal/debug"
	"github.com/f1r3fly-io/rholang-language-server/internal/indexing"
	"github.com/f1r3fly-io/rholang-language-server/internal/pattern"
	"github.com/f1r3fly-io/rholang-language-server/internal/resolver"
	"github.com/f1r3fly-io/rholang-language-server/internal/symbols"
	"github.com/f1r3fly-io/rholang-language-server/pkg/pathutil"
)

// Flush drains the dirty tracker and brings the workspace to a consistent
// state: re-index the changed files plus their transitive dependents, then
// one cross-file link pass, then persistence of the trackers. Single-file
// failures are localized; persistence failures retry at the next flush.
func (e *Engine) Flush() {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	drained := e.dirty.Drain()
	if len(drained) == 0 {
		return
	}
	start := time.Now()

	// Affected set: the drained files plus everyone who depends on them,
	// preserving drain order (open documents first) and appending
	// dependents behind their triggers.
	seen := make(map[string]bool, len(drained))
	var affected []string
	for _, entry := range drained {
		if !seen[entry.URI] {
			seen[entry.URI] = true
			affected = append(affected, entry.URI)
		}
	}
	for _, entry := range drained {
		for _, dep := range e.graph.Dependents(entry.URI) {
			if !seen[dep] {
				seen[dep] = true
				affected = append(affected, dep)
			}
		}
	}

	indexed := 0
	for _, uri := range affected {
		if e.reindexOne(uri) {
			indexed++
		}
	}

	e.linkSymbols()

	if err := e.mod.Persist(); err != nil {
		log.Printf("warning: timestamp persistence failed, will retry: %v", err)
	}
	if err := e.dict.SaveToFile(e.cold.Dir()); err != nil {
		log.Printf("warning: completion dictionary persistence failed, will retry: %v", err)
	}

	log.Printf("re-indexed %d/%d files in %v", indexed, len(affected), time.Since(start))
}

// reindexOne refreshes a single file from the editor rope or disk. Returns
// false when the file vanished or failed; the failure never aborts the
// flush.
func (e *Engine) reindexOne(uri string) bool {
	e.openMu.Lock()
	state, isOpen := e.open[uri]
	var text string
	var version int32
	if isOpen {
		text = state.text
		version = state.version
	}
	e.openMu.Unlock()

	if !isOpen {
		data, err := os.ReadFile(pathutil.URIToPath(uri))
		if err != nil {
			debug.LogIndexing("removing unreadable %s: %v\n", uri, err)
			e.removeDocument(uri)
			return false
		}
		text = string(data)
	}

	result, _ := e.indexText(uri, text, version)
	e.publishDiagnostics(uri, version, diagnosticsFor(result))
	return true
}

// linkSymbols is the workspace-wide cross-file pass, run once per flush
// unconditionally: it rebuilds the pattern trie, the global definition
// index and the dependency edges from every document's contributions, then
// publishes them as immutable snapshots in a single swap each.
func (e *Engine) linkSymbols() {
	docs := e.allDocuments()

	trie := pattern.NewTrie()
	defs := make(map[string][]resolver.Candidate)
	seenDef := make(map[string]bool)
	addDef := func(name string, c resolver.Candidate) {
		key := name + "\x00" + c.Location.URI + "\x00" + c.Location.Range.Start.String()
		if seenDef[key] {
			return
		}
		seenDef[key] = true
		defs[name] = append(defs[name], c)
	}
	for _, doc := range docs {
		for _, c := range doc.Patterns {
			trie.Insert(c.Key, c.Meta)
			// Contracts declared on new-bound names have no root symbol
			// entry; the pattern metadata is their global address.
			addDef(c.Meta.Name, resolver.Candidate{
				Name:     c.Meta.Name,
				Location: c.Meta.Location,
				Language: c.Meta.Language,
			})
		}
		for _, info := range doc.Symbols.All() {
			if !crossFileVisible(info.Kind) {
				continue
			}
			addDef(info.Name, resolver.Candidate{
				Name:     info.Name,
				Location: locationOf(doc, info),
				Language: info.Language,
			})
		}
	}

	// Dependency edges: a file depends on every file defining one of its
	// free names.
	definers := make(map[string][]string)
	for _, doc := range docs {
		for _, info := range doc.Symbols.AllInScope(symbols.RootScope) {
			definers[info.Name] = append(definers[info.Name], doc.URI)
		}
		for _, c := range doc.Patterns {
			definers[c.Meta.Name] = append(definers[c.Meta.Name], doc.URI)
		}
	}
	for _, doc := range docs {
		var tos []string
		dedup := map[string]bool{}
		for _, f := range doc.FreeUses {
			for _, definer := range definers[f.Name] {
				if definer != doc.URI && !dedup[definer] {
					dedup[definer] = true
					tos = append(tos, definer)
				}
			}
		}
		e.graph.SetDependencies(doc.URI, tos)
	}

	e.patterns.Store(trie)
	e.global.Store(&globalIndex{defs: defs})
	debug.LogIndexing("linked %d documents: %d patterns, %d global names\n",
		len(docs), trie.Len(), len(defs))
}

// crossFileVisible reports whether a symbol kind is addressable from other
// files. Locals like parameters and case binders are not.
func crossFileVisible(kind symbols.SymbolKind) bool {
	switch kind {
	case symbols.KindContractBind, symbols.KindFunctionDef, symbols.KindTypeAnnotation, symbols.KindGroundedVar:
		return true
	default:
		return false
	}
}

// Dependents exposes the dependency graph for the protocol adapter and
// tests.
func (e *Engine) Dependents(uri string) []string {
	return e.graph.Dependents(uri)
}

// MarkDirty exposes the dirty tracker for tests and the save/watch paths.
func (e *Engine) MarkDirty(uri string, priority indexing.Priority, reason indexing.Reason) {
	e.dirty.MarkDirty(uri, priority, reason)
}
