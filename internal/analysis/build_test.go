package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/blake3"

	"github.com/f1r3fly-io/rholang-language-server/internal/ir"
	"github.com/f1r3fly-io/rholang-language-server/internal/pattern"
	"github.com/f1r3fly-io/rholang-language-server/internal/symbols"
)

func build(t *testing.T, uri, text string) *Result {
	t.Helper()
	result := Build(uri, text, 1, time.Unix(1700000000, 0))
	require.NotNil(t, result.Doc)
	return result
}

func TestBuildEmptyFile(t *testing.T) {
	result := build(t, "file:///ws/empty.rho", "")

	assert.Empty(t, result.ParseErrors)
	assert.Equal(t, 0, result.Doc.Symbols.Len())
	assert.Equal(t, ir.CategoryBlock, result.Doc.Root.Category())
	assert.Empty(t, result.Doc.Patterns)
	assert.Equal(t, blake3.Sum256(nil), [32]byte(result.Doc.ContentHash))
}

func TestBuildSingleContract(t *testing.T) {
	result := build(t, "file:///ws/c.rho", `contract myC(@x) = { Nil }`)

	// Symbol table: the contract plus its parameter.
	info, ok := result.Doc.Symbols.Lookup(symbols.RootScope, "myC")
	require.True(t, ok)
	assert.Equal(t, symbols.KindContractBind, info.Kind)
	assert.Equal(t, 9, info.Pos.Byte)

	// Exactly one pattern contribution, in the contract namespace.
	require.Len(t, result.Doc.Patterns, 1)
	assert.Equal(t, "myC", result.Doc.Patterns[0].Meta.Name)
	assert.Equal(t, 1, result.Doc.Patterns[0].Meta.Arity)
	assert.Equal(t, []string{"x"}, result.Doc.Patterns[0].Meta.ParamNames)

	// Position index is non-empty and resolves the contract name.
	assert.Greater(t, result.Doc.Positions.Len(), 0)
	id, ok := result.Doc.Positions.At(9)
	require.True(t, ok)
	assert.Equal(t, info.Node, id)
}

func TestBuildNonContractSymbolHasNoPattern(t *testing.T) {
	result := build(t, "file:///ws/n.rho", `new x in { Nil }`)
	assert.Equal(t, 1, result.Doc.Symbols.Len())
	assert.Empty(t, result.Doc.Patterns)
}

func TestBuildScopesAndReferences(t *testing.T) {
	src := `new out in {
  contract out(@msg) = { Nil } |
  out!("hello")
}`
	result := build(t, "file:///ws/s.rho", src)
	doc := result.Doc

	// The new binding is the definition site.
	var declID ir.NodeID
	ir.Inspect(doc.Root, func(n ir.SemanticNode) bool {
		if d, ok := n.(*ir.NameDecl); ok && d.Name == "out" {
			declID = d.ID
		}
		return true
	})
	require.NotZero(t, declID)

	// Both the contract head and the send channel reference it.
	refs := doc.References[declID]
	require.Len(t, refs, 2)
	assert.Empty(t, doc.FreeUses, "every name is locally bound")
}

func TestBuildFreeUses(t *testing.T) {
	result := build(t, "file:///ws/call.rho", `helper!(42)`)

	require.Len(t, result.Doc.FreeUses, 1)
	assert.Equal(t, "helper", result.Doc.FreeUses[0].Name)
}

func TestBuildReceiveBindings(t *testing.T) {
	src := `new inbox in { for (@msg <- inbox) { stdout!(msg) } }`
	result := build(t, "file:///ws/r.rho", src)
	doc := result.Doc

	all := doc.Symbols.All()
	names := map[string]symbols.SymbolKind{}
	for _, s := range all {
		names[s.Name] = s.Kind
	}
	assert.Equal(t, symbols.KindNewBind, names["inbox"])
	assert.Equal(t, symbols.KindInputBind, names["msg"])

	// msg is referenced once from the body; stdout stays free.
	freeNames := map[string]bool{}
	for _, f := range doc.FreeUses {
		freeNames[f.Name] = true
	}
	assert.True(t, freeNames["stdout"])
	assert.False(t, freeNames["msg"])
}

func TestBuildMatchCaseBindings(t *testing.T) {
	src := `new x in { match 42 { y => x!(y) } }`
	result := build(t, "file:///ws/m.rho", src)

	found := false
	for _, s := range result.Doc.Symbols.All() {
		if s.Name == "y" {
			assert.Equal(t, symbols.KindCaseBind, s.Kind)
			found = true
		}
	}
	assert.True(t, found)
	assert.Empty(t, result.Doc.FreeUses)
}

func TestBuildLetBindings(t *testing.T) {
	result := build(t, "file:///ws/l.rho", `new out in { let v = 1 in { out!(v) } }`)

	found := false
	for _, s := range result.Doc.Symbols.All() {
		if s.Name == "v" {
			assert.Equal(t, symbols.KindLetBind, s.Kind)
			found = true
		}
	}
	assert.True(t, found)
	assert.Empty(t, result.Doc.FreeUses)
}

func TestBuildGroundedVar(t *testing.T) {
	result := build(t, "file:///ws/g.rho", "new stdout(`rho:io:stdout`) in { stdout!(\"x\") }")

	info, ok := result.Doc.Symbols.Lookup(symbols.ScopeID(1), "stdout")
	require.True(t, ok)
	assert.Equal(t, symbols.KindGroundedVar, info.Kind)
}

func TestBuildDuplicateBindingConflict(t *testing.T) {
	result := build(t, "file:///ws/d.rho", `new x, x in { Nil }`)

	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "x", result.Conflicts[0].Name)
	// The first definition wins; the table holds exactly one x.
	assert.Equal(t, 1, result.Doc.Symbols.Len())
}

func TestBuildIndexingIsDeterministic(t *testing.T) {
	src := `new a in { contract a(@x) = { Nil } | a!(7) }`
	first := build(t, "file:///ws/i.rho", src)
	second := build(t, "file:///ws/i.rho", src)

	assert.Equal(t, first.Doc.ContentHash, second.Doc.ContentHash)
	assert.Equal(t, first.Doc.Symbols.Len(), second.Doc.Symbols.Len())
	assert.Equal(t, first.Doc.Positions.Len(), second.Doc.Positions.Len())
	require.Len(t, second.Doc.Patterns, len(first.Doc.Patterns))
	for i := range first.Doc.Patterns {
		assert.Equal(t, first.Doc.Patterns[i].Key, second.Doc.Patterns[i].Key)
	}
}

func TestBuildParseErrorStillIndexes(t *testing.T) {
	result := build(t, "file:///ws/broken.rho", `contract ok(@x) = { Nil } | ?`)

	assert.NotEmpty(t, result.ParseErrors)
	_, found := result.Doc.Symbols.Lookup(symbols.RootScope, "ok")
	assert.True(t, found, "partial IR must still be indexed")
	assert.Len(t, result.Doc.Patterns, 1)
}

func TestBuildMeTTaDefinitions(t *testing.T) {
	src := `(= (double $x) (* 2 $x))
(: double (-> Number Number))`
	result := build(t, "file:///ws/d.metta", src)
	doc := result.Doc

	require.Equal(t, ir.LangMeTTa, doc.Language)

	info, ok := doc.Symbols.Lookup(symbols.RootScope, "double")
	require.True(t, ok)
	assert.Equal(t, symbols.KindFunctionDef, info.Kind)

	// One pattern contribution in the definition namespace.
	require.Len(t, doc.Patterns, 1)
	prefix := pattern.NamespacePrefix(pattern.NamespaceDefinition)
	assert.Equal(t, prefix, doc.Patterns[0].Key[:len(prefix)])

	// $x binds as a parameter and is referenced from the body.
	kinds := map[string]symbols.SymbolKind{}
	for _, s := range doc.Symbols.All() {
		kinds[s.Name] = s.Kind
	}
	assert.Equal(t, symbols.KindParameter, kinds["x"])
}

func TestBuildCallSiteUnifiesWithContribution(t *testing.T) {
	def := build(t, "file:///ws/def.rho", `contract add(@a, @b) = { Nil }`)
	require.Len(t, def.Doc.Patterns, 1)

	trie := pattern.NewTrie()
	trie.Insert(def.Doc.Patterns[0].Key, def.Doc.Patterns[0].Meta)

	call, err := pattern.CallKey("add", []ir.SemanticNode{
		&ir.Ground{Kind: ir.GroundInt, IntVal: 1},
		&ir.Ground{Kind: ir.GroundInt, IntVal: 2},
	})
	require.NoError(t, err)

	matches := trie.Restrict(pattern.NamePrefix(pattern.NamespaceContract, "add")).UnifyQuery(call)
	require.Len(t, matches, 1)
	assert.Equal(t, "file:///ws/def.rho", matches[0].Meta.Location.URI)
}
