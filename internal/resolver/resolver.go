// Package resolver answers "where is this defined?" and "who references
// this?" through a fixed three-stage pipeline: the pattern-aware primary
// resolver over the canonical trie, a chain of narrowing filters, and a
// lexical scope-walk fallback. The pipeline is deterministic for a fixed
// workspace snapshot and never touches the file system.
package resolver

import (
	"errors"

	"github.com/f1r3fly-io/rholang-language-server/internal/cache"
	"github.com/f1r3fly-io/rholang-language-server/internal/debug"
	lserrors "github.com/f1r3fly-io/rholang-language-server/internal/errors"
	"github.com/f1r3fly-io/rholang-language-server/internal/ir"
	"github.com/f1r3fly-io/rholang-language-server/internal/pattern"
	"github.com/f1r3fly-io/rholang-language-server/internal/position"
)

// Candidate is a possible defining location for a query.
type Candidate struct {
	Name     string
	Location position.Location
	Language ir.Language
	Meta     *pattern.Metadata // set by the pattern primary, nil otherwise
}

// Query carries everything a filter may inspect.
type Query struct {
	Doc    *cache.Document
	Offset int
	Node   ir.SemanticNode
	Name   string
}

// Filter is a side-effect-free predicate over candidates. Filters may only
// narrow the set.
type Filter interface {
	Keep(q *Query, c Candidate) bool
}

// SameLanguage keeps candidates defined in the query document's language.
type SameLanguage struct{}

// Keep implements Filter.
func (SameLanguage) Keep(q *Query, c Candidate) bool {
	return c.Language == q.Doc.Language
}

// Pipeline resolves definitions against one workspace snapshot. Patterns
// and Global are snapshots captured by the engine; replacing the engine's
// snapshot never mutates a pipeline mid-query.
type Pipeline struct {
	Patterns *pattern.Trie
	// Global answers name lookups against the linked workspace-wide symbol
	// index; the lexical fallback consults it for free names.
	Global  func(name string) []Candidate
	Filters []Filter
}

// NewPipeline builds the standard pipeline with the default filter chain.
func NewPipeline(patterns *pattern.Trie, global func(name string) []Candidate) *Pipeline {
	return &Pipeline{
		Patterns: patterns,
		Global:   global,
		Filters:  []Filter{SameLanguage{}},
	}
}

// Definition resolves the defining locations of the symbol at a byte
// offset. The order is fixed: pattern primary, filters, lexical fallback.
func (p *Pipeline) Definition(doc *cache.Document, offset int) []position.Location {
	q := p.queryAt(doc, offset)
	if q == nil {
		return nil
	}

	candidates := p.primary(q)
	candidates = p.applyFilters(q, candidates)
	if len(candidates) == 0 {
		candidates = p.applyFilters(q, p.lexical(q))
	}

	out := make([]position.Location, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.Location)
	}
	return out
}

// queryAt locates the named node at the offset. Unnamed nodes resolve to
// nothing.
func (p *Pipeline) queryAt(doc *cache.Document, offset int) *Query {
	id, ok := doc.Positions.At(offset)
	if !ok {
		return nil
	}
	node := ir.FindByID(doc.Root, id)
	if node == nil {
		return nil
	}
	name := nameOf(node)
	if name == "" {
		return nil
	}
	return &Query{Doc: doc, Offset: offset, Node: node, Name: name}
}

func nameOf(n ir.SemanticNode) string {
	switch v := n.(type) {
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

// primary is the pattern-aware resolver. At an invocation site it encodes
// the call's arguments as ground values and unifies against the trie
// restricted to the name's namespace; at a definition site it looks the
// name up directly. Encoding failures are logged and yield no candidates,
// handing the query to the lexical fallback.
func (p *Pipeline) primary(q *Query) []Candidate {
	if p.Patterns == nil {
		return nil
	}
	ns := pattern.NamespaceContract
	if q.Doc.Language == ir.LangMeTTa {
		ns = pattern.NamespaceDefinition
	}

	if args, ok := invocationArgs(q.Doc.Root, q.Node); ok {
		return p.resolveCall(q, ns, args)
	}

	// Definition-site or bare-name query: enumerate the name's sub-trie.
	var out []Candidate
	for _, m := range p.Patterns.Restrict(pattern.NamePrefix(ns, q.Name)).All() {
		meta := m.Meta
		out = append(out, Candidate{Name: meta.Name, Location: meta.Location, Language: meta.Language, Meta: &meta})
	}
	return out
}

func (p *Pipeline) resolveCall(q *Query, ns string, args []ir.SemanticNode) []Candidate {
	params := make([][]byte, 0, len(args))
	for _, arg := range args {
		encoded, err := pattern.EncodeValue(arg)
		if err != nil {
			var ee *lserrors.EncodeError
			if errors.As(err, &ee) {
				debug.LogResolve("pattern primary unavailable for %s: %v\n", q.Name, err)
			}
			// Not cached, not fatal: the lexical fallback takes over and
			// the next query retries the encoding.
			return nil
		}
		params = append(params, encoded)
	}
	key := pattern.KeyForNamespace(ns, q.Name, params)

	matches := p.Patterns.Restrict(pattern.NamePrefix(ns, q.Name)).UnifyQuery(key)
	out := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		meta := m.Meta
		out = append(out, Candidate{Name: meta.Name, Location: meta.Location, Language: meta.Language, Meta: &meta})
	}
	return out
}

// invocationArgs reports whether node is the channel head of a send (or
// the head atom of a MeTTa application) and returns the call's arguments.
func invocationArgs(root, node ir.SemanticNode) ([]ir.SemanticNode, bool) {
	id := node.Base().ID
	var args []ir.SemanticNode
	found := false

	var walk func(n ir.SemanticNode) bool
	walk = func(n ir.SemanticNode) bool {
		if n == nil || found {
			return false
		}
		switch v := n.(type) {
		case *ir.Send:
			if subtreeContains(v.Channel, id) {
				args = v.Args
				found = true
				return true
			}
		case *ir.MSExpr:
			if len(v.Elems) > 0 && v.Elems[0].Base().ID == id {
				args = v.Elems[1:]
				found = true
				return true
			}
		}
		for i := 0; i < n.ChildrenCount(); i++ {
			if walk(n.ChildAt(i)) {
				return true
			}
		}
		return false
	}
	walk(root)
	return args, found
}

func subtreeContains(n ir.SemanticNode, id ir.NodeID) bool {
	if n == nil {
		return false
	}
	if n.Base().ID == id {
		return true
	}
	for i := 0; i < n.ChildrenCount(); i++ {
		if subtreeContains(n.ChildAt(i), id) {
			return true
		}
	}
	return false
}

// lexical is the fallback: the build pass already resolved every locally
// bound use into the reference map, so a use site finds its definition by
// the range containing the query offset; a definition site answers itself;
// a free name consults the linked global index.
func (p *Pipeline) lexical(q *Query) []Candidate {
	doc := q.Doc
	id := q.Node.Base().ID

	// Definition site: the symbol table knows this node as a binder.
	for _, info := range doc.Symbols.All() {
		if info.Node == id {
			return []Candidate{{
				Name:     info.Name,
				Location: position.Location{URI: doc.URI, Range: NodeRange(doc, id)},
				Language: info.Language,
			}}
		}
	}

	// Locally bound use: the inverted reference map points back.
	for defNode, ranges := range doc.References {
		for _, r := range ranges {
			if r.Contains(q.Offset) {
				return []Candidate{{
					Name:     q.Name,
					Location: position.Location{URI: doc.URI, Range: NodeRange(doc, defNode)},
					Language: doc.Language,
				}}
			}
		}
	}

	// Free name: the workspace-wide linked index.
	if p.Global != nil {
		for _, f := range doc.FreeUses {
			if f.Node == id {
				return p.Global(q.Name)
			}
		}
		// A node the builder never classified (e.g. inside a partially
		// parsed region) still gets a best-effort global lookup.
		return p.Global(q.Name)
	}
	return nil
}

func (p *Pipeline) applyFilters(q *Query, candidates []Candidate) []Candidate {
	out := candidates
	for _, f := range p.Filters {
		kept := out[:0]
		for _, c := range out {
			if f.Keep(q, c) {
				kept = append(kept, c)
			}
		}
		out = kept
	}
	return out
}

// NodeRange resolves a node's full range within its document. Start
// line/column come from the relative position spine; the end column is
// derived from the line index when present, else from the byte length
// (identifiers never span lines).
func NodeRange(doc *cache.Document, id ir.NodeID) position.Range {
	start, ok := ir.AbsoluteStart(doc.Root, id, position.Position{})
	if !ok {
		return position.Range{}
	}
	node := ir.FindByID(doc.Root, id)
	length := 0
	if node != nil {
		length = node.Base().Len
	}
	endByte := start.Byte + length
	if doc.LineIndex != nil {
		if end, ok := doc.LineIndex.PositionFor(endByte); ok {
			return position.Range{Start: start, End: end}
		}
	}
	return position.Range{
		Start: start,
		End:   position.Position{Line: start.Line, Column: start.Column + length, Byte: endByte},
	}
}

// References collects every reference to the symbol defined at defNode in
// def's document plus the given dependent documents. includeDecl adds the
// definition itself.
func References(def *cache.Document, defNode ir.NodeID, name string, includeDecl bool, dependents []*cache.Document) []position.Location {
	var out []position.Location
	if includeDecl {
		out = append(out, position.Location{URI: def.URI, Range: NodeRange(def, defNode)})
	}
	for _, r := range def.References[defNode] {
		out = append(out, position.Location{URI: def.URI, Range: r})
	}
	for _, dep := range dependents {
		if dep.URI == def.URI {
			continue
		}
		for _, f := range dep.FreeUses {
			if f.Name != name {
				continue
			}
			out = append(out, position.Location{URI: dep.URI, Range: NodeRange(dep, f.Node)})
		}
	}
	return out
}
