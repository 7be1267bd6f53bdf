package core

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/f1r3fly-io/rholang-language-server/internal/cache"
	"github.com/f1r3fly-io/rholang-language-server/internal/completion"
	"github.com/f1r3fly-io/rholang-language-server/internal/ir"
	"github.com/f1r3fly-io/rholang-language-server/internal/pattern"
	"github.com/f1r3fly-io/rholang-language-server/internal/position"
	"github.com/f1r3fly-io/rholang-language-server/internal/resolver"
	"github.com/f1r3fly-io/rholang-language-server/internal/symbols"
)

// offsetFor resolves a protocol (line, column) position to a byte offset
// within the document's current text.
func (e *Engine) offsetFor(doc *cache.Document, line, column int) (int, *cache.Document, bool) {
	doc = e.ensureLineIndex(doc)
	if doc.LineIndex == nil {
		return 0, doc, false
	}
	offset, ok := doc.LineIndex.ByteFor(line, column)
	return offset, doc, ok
}

// GotoDefinition resolves the defining locations of the symbol at a
// position. Out-of-range or unnamed positions yield an empty list.
func (e *Engine) GotoDefinition(uri string, line, column int) []position.Location {
	doc, ok := e.documentByURI(uri)
	if !ok {
		return nil
	}
	offset, doc, ok := e.offsetFor(doc, line, column)
	if !ok {
		return nil
	}
	return e.pipeline().Definition(doc, offset)
}

// References finds every reference to the symbol at a position, optionally
// including the declaration itself.
func (e *Engine) References(uri string, line, column int, includeDecl bool) []position.Location {
	doc, ok := e.documentByURI(uri)
	if !ok {
		return nil
	}
	offset, doc, ok := e.offsetFor(doc, line, column)
	if !ok {
		return nil
	}

	defs := e.pipeline().Definition(doc, offset)
	if len(defs) == 0 {
		return nil
	}
	def := defs[0]

	defDoc, ok := e.documentByURI(def.URI)
	if !ok {
		return nil
	}
	defNode, ok := defDoc.Positions.At(def.Range.Start.Byte)
	if !ok {
		return nil
	}
	name := nameAt(defDoc, defNode)
	return resolver.References(defDoc, defNode, name, includeDecl, e.allDocuments())
}

// Hover renders the symbol under the cursor: contract signatures from the
// pattern index, plain kind/name descriptions otherwise.
func (e *Engine) Hover(uri string, line, column int) (string, position.Range, bool) {
	doc, ok := e.documentByURI(uri)
	if !ok {
		return "", position.Range{}, false
	}
	offset, doc, ok := e.offsetFor(doc, line, column)
	if !ok {
		return "", position.Range{}, false
	}
	id, ok := doc.Positions.At(offset)
	if !ok {
		return "", position.Range{}, false
	}
	node := ir.FindByID(doc.Root, id)
	if node == nil {
		return "", position.Range{}, false
	}
	name := nameAt(doc, id)
	if name == "" {
		return "", position.Range{}, false
	}
	rng := resolver.NodeRange(doc, id)

	ns := pattern.NamespaceContract
	keyword := "contract"
	if doc.Language == ir.LangMeTTa {
		ns = pattern.NamespaceDefinition
		keyword = "function"
	}
	matches := e.patterns.Load().Restrict(pattern.NamePrefix(ns, name)).All()
	if len(matches) > 0 {
		meta := matches[0].Meta
		var sig strings.Builder
		fmt.Fprintf(&sig, "```rholang\n%s %s(", keyword, meta.Name)
		for i := 0; i < meta.Arity; i++ {
			if i > 0 {
				sig.WriteString(", ")
			}
			if i < len(meta.ParamNames) && meta.ParamNames[i] != "" {
				sig.WriteString("@" + meta.ParamNames[i])
			} else {
				sig.WriteString("_")
			}
		}
		fmt.Fprintf(&sig, ")\n```\n\ndefined in %s", meta.Location.URI)
		return sig.String(), rng, true
	}

	for _, info := range doc.Symbols.All() {
		if info.Name == name {
			return fmt.Sprintf("**%s** `%s` (%s)", info.Kind, name, doc.Language), rng, true
		}
	}
	return fmt.Sprintf("`%s`", name), rng, true
}

// TextEdit is one replacement inside a rename's workspace edit.
type TextEdit struct {
	Range   position.Range
	NewText string
}

// WorkspaceEdit groups rename edits per document.
type WorkspaceEdit struct {
	Changes map[string][]TextEdit
}

// Rename produces the workspace edit renaming the symbol at a position.
// An unresolvable position yields an empty edit set.
func (e *Engine) Rename(uri string, line, column int, newName string) WorkspaceEdit {
	edit := WorkspaceEdit{Changes: make(map[string][]TextEdit)}
	for _, loc := range e.References(uri, line, column, true) {
		edit.Changes[loc.URI] = append(edit.Changes[loc.URI], TextEdit{Range: loc.Range, NewText: newName})
	}
	return edit
}

// Completion answers prefix completion at a position using the hybrid
// dictionary. The prefix is the identifier run ending at the cursor.
func (e *Engine) Completion(uri string, line, column int) []completion.Item {
	doc, ok := e.documentByURI(uri)
	if !ok {
		return e.dict.Query("", 200)
	}
	offset, doc, ok := e.offsetFor(doc, line, column)
	if !ok {
		return e.dict.Query("", 200)
	}
	prefix := identifierPrefix(e.textOf(doc), offset)
	return e.dict.Query(prefix, 200)
}

// identifierPrefix extracts the identifier characters immediately before
// the byte offset.
func identifierPrefix(text string, offset int) string {
	if offset > len(text) {
		offset = len(text)
	}
	start := offset
	for start > 0 {
		r := rune(text[start-1])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			break
		}
		start--
	}
	return text[start:offset]
}

// DocSymbol is one node of the document symbol tree.
type DocSymbol struct {
	Name     string
	Kind     symbols.SymbolKind
	Range    position.Range
	Children []DocSymbol
}

// DocumentSymbols returns the document's symbols as a tree: definitions at
// the top, the binders their constructs introduce nested below them.
func (e *Engine) DocumentSymbols(uri string) []DocSymbol {
	doc, ok := e.documentByURI(uri)
	if !ok {
		return nil
	}

	spans := map[ir.NodeID]ir.Span{}
	for _, s := range ir.Spans(doc.Root, 0) {
		spans[s.ID] = s
	}
	// Owner spans: a symbol whose defining node sits inside another
	// definition's construct nests under it.
	ownerSpan := ownerSpans(doc)

	all := doc.Symbols.All()
	var roots []DocSymbol
	type placed struct {
		sym  *DocSymbol
		span ir.Span
	}
	var tops []placed

	for _, info := range all {
		ds := DocSymbol{Name: info.Name, Kind: info.Kind, Range: resolver.NodeRange(doc, info.Node)}
		span := spans[info.Node]

		var parent *placed
		for i := range tops {
			owner, ok := ownerSpan[tops[i].sym.Name]
			if !ok {
				continue
			}
			if owner.Start <= span.Start && span.End <= owner.End && tops[i].span != span {
				parent = &tops[i]
			}
		}
		if parent != nil {
			parent.sym.Children = append(parent.sym.Children, ds)
			continue
		}
		tops = append(tops, placed{sym: &ds, span: span})
	}
	for _, p := range tops {
		roots = append(roots, *p.sym)
	}
	return roots
}

// ownerSpans maps definition names to the span of their whole construct
// (the contract or definition node, not just the name).
func ownerSpans(doc *cache.Document) map[string]ir.Span {
	out := map[string]ir.Span{}
	var walk func(n ir.SemanticNode, parentStart int)
	walk = func(n ir.SemanticNode, parentStart int) {
		if n == nil {
			return
		}
		start := parentStart + n.Base().Rel.ByteDelta
		switch v := n.(type) {
		case *ir.Contract:
			if name, ok := v.Name.(*ir.Var); ok {
				out[name.Name] = ir.Span{Start: start, End: start + n.Base().Len}
			}
		case *ir.MDefinition:
			if name := v.HeadName(); name != "" {
				out[name] = ir.Span{Start: start, End: start + n.Base().Len}
			}
		}
		for i := 0; i < n.ChildrenCount(); i++ {
			walk(n.ChildAt(i), start)
		}
	}
	walk(doc.Root, 0)
	return out
}

// WorkspaceSymbol is one fuzzy workspace symbol result.
type WorkspaceSymbol struct {
	Name     string
	Kind     symbols.SymbolKind
	Location position.Location
	Score    float64
}

// WorkspaceSymbols answers a fuzzy query over every indexed symbol.
func (e *Engine) WorkspaceSymbols(query string) []WorkspaceSymbol {
	results := e.suffix.Search(query, 100)
	out := make([]WorkspaceSymbol, 0, len(results))
	for _, r := range results {
		loc := position.Location{URI: r.Entry.URI, Range: position.Range{Start: r.Entry.Info.Pos, End: r.Entry.Info.Pos}}
		if doc, ok := e.documentByURI(r.Entry.URI); ok {
			loc.Range = resolver.NodeRange(doc, r.Entry.Info.Node)
		}
		out = append(out, WorkspaceSymbol{
			Name:     r.Entry.Info.Name,
			Kind:     r.Entry.Info.Kind,
			Location: loc,
			Score:    r.Score,
		})
	}
	return out
}

// nameAt returns the name of the node with the given id, or "".
func nameAt(doc *cache.Document, id ir.NodeID) string {
	node := ir.FindByID(doc.Root, id)
	if node == nil {
		return ""
	}
	switch v := node.(type) {
	case *ir.Var:
		return v.Name
	case *ir.NameDecl:
		return v.Name
	case *ir.MAtom:
		return v.Name
	case *ir.MVar:
		return v.Name
	default:
		return ""
	}
}

// locationOf resolves a symbol's defining location in its document.
func locationOf(doc *cache.Document, info symbols.SymbolInfo) position.Location {
	return position.Location{URI: doc.URI, Range: resolver.NodeRange(doc, info.Node)}
}
