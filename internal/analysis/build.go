// Package analysis lowers parsed IR into the per-document artifacts the
// workspace consumes: the symbol table with its scope tree, the frozen
// position index, pattern-trie contributions, the intra-document reference
// map, and the free-name uses the cross-file linker resolves.
package analysis

import (
	"time"

	"lukechampine.com/blake3"

	"github.com/f1r3fly-io/rholang-language-server/internal/cache"
	"github.com/f1r3fly-io/rholang-language-server/internal/debug"
	lserrors "github.com/f1r3fly-io/rholang-language-server/internal/errors"
	"github.com/f1r3fly-io/rholang-language-server/internal/ir"
	"github.com/f1r3fly-io/rholang-language-server/internal/parser"
	"github.com/f1r3fly-io/rholang-language-server/internal/pattern"
	"github.com/f1r3fly-io/rholang-language-server/internal/posindex"
	"github.com/f1r3fly-io/rholang-language-server/internal/position"
	"github.com/f1r3fly-io/rholang-language-server/internal/symbols"
)

// Result is a built document plus the diagnostics the build produced.
type Result struct {
	Doc         *cache.Document
	ParseErrors []*lserrors.ParseError
	Conflicts   []*lserrors.DuplicateInScopeError
}

// Build parses and indexes one document. It never fails outright: parse
// errors yield a partial document, and conflicts keep the first definition.
func Build(uri string, text string, version int32, mtime time.Time) *Result {
	src := []byte(text)
	lang := parser.DetectLanguage(uri)
	parsed := parser.Parse(uri, src)

	b := &builder{
		uri:    uri,
		lang:   lang,
		lines:  parsed.Lines,
		table:  symbols.NewTable(),
		refs:   make(map[ir.NodeID][]position.Range),
		posbld: posindex.NewBuilder(),
	}
	b.posbld.AddSpans(ir.Spans(parsed.Root, 0))
	b.walk(parsed.Root, symbols.RootScope, position.Position{})

	doc := &cache.Document{
		URI:         uri,
		Version:     version,
		ContentHash: blake3.Sum256(src),
		ModTime:     mtime,
		Language:    lang,
		Root:        parsed.Root,
		Symbols:     b.table,
		Positions:   b.posbld.Freeze(),
		References:  b.refs,
		Patterns:    b.patterns,
		FreeUses:    b.freeUses,
		Text:        text,
		LineIndex:   parsed.Lines,
	}
	debug.LogIndexing("built %s: %d nodes, %d symbols, %d patterns\n",
		uri, parsed.Nodes, b.table.Len(), len(b.patterns))
	return &Result{Doc: doc, ParseErrors: parsed.Errors, Conflicts: b.conflicts}
}

type builder struct {
	uri   string
	lang  ir.Language
	lines *position.LineIndex

	table     *symbols.Table
	refs      map[ir.NodeID][]position.Range
	posbld    *posindex.Builder
	patterns  []cache.PatternContribution
	freeUses  []cache.FreeUse
	conflicts []*lserrors.DuplicateInScopeError
}

// rangeFor resolves a node's absolute byte span to a full range given its
// absolute start position.
func (b *builder) rangeFor(n ir.SemanticNode, abs position.Position) position.Range {
	end, ok := b.lines.PositionFor(abs.Byte + n.Base().Len)
	if !ok {
		end = position.Position{Line: abs.Line, Column: abs.Column + n.Base().Len, Byte: abs.Byte + n.Base().Len}
	}
	return position.Range{Start: abs, End: end}
}

func (b *builder) insert(scope symbols.ScopeID, info symbols.SymbolInfo) {
	info.Language = b.lang
	if err := b.table.Insert(scope, info); err != nil {
		if dup, ok := err.(*lserrors.DuplicateInScopeError); ok {
			b.conflicts = append(b.conflicts, dup)
		}
	}
}

// walk builds scopes, symbols and references in one descent. parentAbs is
// the parent node's absolute start; each node's absolute position resolves
// through its relative offset.
func (b *builder) walk(n ir.SemanticNode, scope symbols.ScopeID, parentAbs position.Position) {
	if n == nil {
		return
	}
	abs := n.Base().Rel.Resolve(parentAbs)

	switch v := n.(type) {
	case *ir.New:
		child := b.table.PushChild(scope)
		for _, d := range v.Decls {
			decl := d.(*ir.NameDecl)
			declAbs := decl.Rel.Resolve(abs)
			kind := symbols.KindNewBind
			if decl.URI != "" {
				kind = symbols.KindGroundedVar
			}
			b.insert(child, symbols.SymbolInfo{Name: decl.Name, Kind: kind, Pos: declAbs, Node: decl.ID})
		}
		b.walk(v.Body, child, abs)

	case *ir.Contract:
		if name, ok := v.Name.(*ir.Var); ok {
			nameAbs := name.Rel.Resolve(abs)
			// A contract on a name bound by an enclosing new attaches to
			// that binding; otherwise the contract itself is the binder.
			if info, found := b.table.Lookup(scope, name.Name); found {
				b.refs[info.Node] = append(b.refs[info.Node], b.rangeFor(name, nameAbs))
			} else {
				b.insert(scope, symbols.SymbolInfo{Name: name.Name, Kind: symbols.KindContractBind, Pos: nameAbs, Node: name.ID})
			}
			b.contributeContract(v, name, nameAbs)
		}
		child := b.table.PushChild(scope)
		for _, formal := range v.Formals {
			b.bindPatternVars(formal, child, abs, symbols.KindParameter)
		}
		b.walk(v.Body, child, abs)

	case *ir.Receive:
		child := b.table.PushChild(scope)
		for _, bn := range v.Binds {
			bind := bn.(*ir.ReceiveBind)
			bindAbs := bind.Rel.Resolve(abs)
			// The channel is a use in the enclosing scope.
			b.walk(bind.Channel, scope, bindAbs)
			for _, pat := range bind.Patterns {
				b.bindPatternVars(pat, child, bindAbs, symbols.KindInputBind)
			}
		}
		b.walk(v.Body, child, abs)

	case *ir.Match:
		b.walk(v.Target, scope, abs)
		for _, cn := range v.Cases {
			c := cn.(*ir.MatchCase)
			caseAbs := c.Rel.Resolve(abs)
			child := b.table.PushChild(scope)
			b.bindPatternVars(c.Pattern, child, caseAbs, symbols.KindCaseBind)
			b.walk(c.Body, child, caseAbs)
		}

	case *ir.Let:
		child := b.table.PushChild(scope)
		for _, bn := range v.Binds {
			bind := bn.(*ir.LetBind)
			bindAbs := bind.Rel.Resolve(abs)
			// The bound value is evaluated in the enclosing scope.
			b.walk(bind.Value, scope, bindAbs)
			b.insert(child, symbols.SymbolInfo{Name: bind.Name, Kind: symbols.KindLetBind, Pos: bindAbs, Node: bind.ID})
		}
		b.walk(v.Body, child, abs)

	case *ir.Var:
		b.use(v.Name, v, scope, abs)

	case *ir.MProgram:
		for _, e := range v.Exprs {
			b.walkMeTTa(e, scope, abs)
		}

	default:
		for i := 0; i < n.ChildrenCount(); i++ {
			b.walk(n.ChildAt(i), scope, abs)
		}
	}
}

// use records a reference when the name resolves locally, or a free use for
// the cross-file linker when it does not.
func (b *builder) use(name string, n ir.SemanticNode, scope symbols.ScopeID, abs position.Position) {
	if info, ok := b.table.Lookup(scope, name); ok {
		b.refs[info.Node] = append(b.refs[info.Node], b.rangeFor(n, abs))
		return
	}
	b.freeUses = append(b.freeUses, cache.FreeUse{Name: name, Node: n.Base().ID})
}

// bindPatternVars inserts every variable occurring in a pattern subtree as
// a binder of the given kind. Wildcards bind nothing.
func (b *builder) bindPatternVars(pat ir.SemanticNode, scope symbols.ScopeID, parentAbs position.Position, kind symbols.SymbolKind) {
	if pat == nil {
		return
	}
	abs := pat.Base().Rel.Resolve(parentAbs)
	switch v := pat.(type) {
	case *ir.Var:
		b.insert(scope, symbols.SymbolInfo{Name: v.Name, Kind: kind, Pos: abs, Node: v.ID})
	case *ir.MVar:
		b.insert(scope, symbols.SymbolInfo{Name: v.Name, Kind: kind, Pos: abs, Node: v.ID})
	case *ir.Wildcard:
		// binds nothing
	default:
		for i := 0; i < pat.ChildrenCount(); i++ {
			b.bindPatternVars(pat.ChildAt(i), scope, abs, kind)
		}
	}
}

// contributeContract adds a contract's trie key. Encoding failures are
// logged and dropped; the lexical resolver still covers the contract.
func (b *builder) contributeContract(c *ir.Contract, name *ir.Var, nameAbs position.Position) {
	key, params, err := pattern.ContractKey(name.Name, c.Formals)
	if err != nil {
		debug.LogIndexing("pattern encoding failed for contract %s: %v\n", name.Name, err)
		return
	}
	meta := pattern.Metadata{
		Name:          name.Name,
		Arity:         len(c.Formals),
		ParamPatterns: params,
		ParamNames:    formalNames(c.Formals),
		Location:      position.Location{URI: b.uri, Range: b.rangeFor(name, nameAbs)},
		Language:      b.lang,
	}
	b.patterns = append(b.patterns, cache.PatternContribution{Key: key, Meta: meta})
}

// formalNames extracts display names for formal parameters; unnamed
// patterns yield "".
func formalNames(formals []ir.SemanticNode) []string {
	names := make([]string, len(formals))
	for i, f := range formals {
		names[i] = patternName(f)
	}
	return names
}

func patternName(n ir.SemanticNode) string {
	switch v := n.(type) {
	case *ir.Var:
		return v.Name
	case *ir.MVar:
		return v.Name
	case *ir.Quote:
		return patternName(v.Proc)
	case *ir.Eval:
		return patternName(v.Name)
	default:
		return ""
	}
}

// walkMeTTa handles the MeTTa top level: definitions, type declarations and
// expression forms.
func (b *builder) walkMeTTa(n ir.SemanticNode, scope symbols.ScopeID, parentAbs position.Position) {
	if n == nil {
		return
	}
	abs := n.Base().Rel.Resolve(parentAbs)

	switch v := n.(type) {
	case *ir.MDefinition:
		b.walkDefinition(v, scope, abs)
	case *ir.MTypeDecl:
		if atom, ok := v.Name.(*ir.MAtom); ok {
			atomAbs := atom.Rel.Resolve(abs)
			// A type declaration for an already-defined function is a
			// reference to it, not a second binder.
			if info, found := b.table.Lookup(scope, atom.Name); found {
				b.refs[info.Node] = append(b.refs[info.Node], b.rangeFor(atom, atomAbs))
			} else {
				b.insert(scope, symbols.SymbolInfo{Name: atom.Name, Kind: symbols.KindTypeAnnotation, Pos: atomAbs, Node: atom.ID})
			}
		}
	case *ir.MVar:
		b.use(v.Name, v, scope, abs)
	case *ir.MAtom:
		b.use(v.Name, v, scope, abs)
	default:
		for i := 0; i < n.ChildrenCount(); i++ {
			b.walkMeTTa(n.ChildAt(i), scope, abs)
		}
	}
}

func (b *builder) walkDefinition(def *ir.MDefinition, scope symbols.ScopeID, abs position.Position) {
	name := def.HeadName()
	headAbs := def.Head.Base().Rel.Resolve(abs)

	var headArgs []ir.SemanticNode
	var nameNode ir.SemanticNode = def.Head
	if sexpr, ok := def.Head.(*ir.MSExpr); ok && len(sexpr.Elems) > 0 {
		nameNode = sexpr.Elems[0]
		headArgs = sexpr.Elems[1:]
		headAbs = nameNode.Base().Rel.Resolve(def.Head.Base().Rel.Resolve(abs))
	}

	if name != "" {
		// Multiple equations for one function are expected in MeTTa; only
		// the first one lands in the root scope, the rest are pattern
		// entries only.
		if _, exists := b.table.Lookup(scope, name); !exists {
			b.insert(scope, symbols.SymbolInfo{Name: name, Kind: symbols.KindFunctionDef, Pos: headAbs, Node: nameNode.Base().ID})
		}
		b.contributeDefinition(name, nameNode, headArgs, headAbs)
	}

	child := b.table.PushChild(scope)
	headParent := def.Head.Base().Rel.Resolve(abs)
	for _, arg := range headArgs {
		b.bindPatternVars(arg, child, headParent, symbols.KindParameter)
	}
	b.walkMeTTa(def.Body, child, abs)
}

func (b *builder) contributeDefinition(name string, nameNode ir.SemanticNode, args []ir.SemanticNode, headAbs position.Position) {
	key, params, err := pattern.DefinitionKey(name, args)
	if err != nil {
		debug.LogIndexing("pattern encoding failed for definition %s: %v\n", name, err)
		return
	}
	meta := pattern.Metadata{
		Name:          name,
		Arity:         len(args),
		ParamPatterns: params,
		ParamNames:    formalNames(args),
		Location:      position.Location{URI: b.uri, Range: b.rangeFor(nameNode, headAbs)},
		Language:      b.lang,
	}
	b.patterns = append(b.patterns, cache.PatternContribution{Key: key, Meta: meta})
}
