package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f1r3fly-io/rholang-language-server/internal/ir"
	"github.com/f1r3fly-io/rholang-language-server/internal/position"
)

func contractMeta(name, uri string, arity int) Metadata {
	return Metadata{
		Name:     name,
		Arity:    arity,
		Location: position.Location{URI: uri},
	}
}

// insertContract indexes contract name(@formals...) and returns its key.
func insertContract(t *testing.T, trie *Trie, name, uri string, formals ...ir.SemanticNode) []byte {
	t.Helper()
	key, params, err := ContractKey(name, formals)
	require.NoError(t, err)
	meta := contractMeta(name, uri, len(formals))
	meta.ParamPatterns = params
	trie.Insert(key, meta)
	return key
}

func TestInsertAndQuery(t *testing.T) {
	trie := NewTrie()
	key := insertContract(t, trie, "myC", "file:///ws/contract.rho", q(v("x")), q(v("y")))
	assert.Equal(t, 1, trie.Len())

	matches := trie.Query(key)
	require.Len(t, matches, 1)
	assert.Equal(t, "myC", matches[0].Meta.Name)
	assert.Equal(t, key, matches[0].Key)
}

func TestRestrictByNamePrefix(t *testing.T) {
	trie := NewTrie()
	insertContract(t, trie, "myC", "file:///ws/a.rho", q(v("x")))
	insertContract(t, trie, "myC", "file:///ws/b.rho", q(v("x")), q(v("y")))
	insertContract(t, trie, "other", "file:///ws/c.rho", q(v("z")))

	sub := trie.Restrict(NamePrefix(NamespaceContract, "myC"))
	matches := sub.All()
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.Equal(t, "myC", m.Meta.Name)
	}
}

func TestRestrictEquivalentToFiltering(t *testing.T) {
	// Invariant: sub-trie restriction by prefix equals filtering the full
	// enumeration by that prefix.
	trie := NewTrie()
	insertContract(t, trie, "alpha", "file:///ws/a.rho", q(v("x")))
	insertContract(t, trie, "alphabet", "file:///ws/b.rho", q(v("x")))
	insertContract(t, trie, "beta", "file:///ws/c.rho", q(v("x")))

	prefix := NamePrefix(NamespaceContract, "alpha")
	restricted := trie.Restrict(prefix).All()

	var filtered []Match
	for _, m := range trie.Restrict(NamespacePrefix(NamespaceContract)).All() {
		if len(m.Key) >= len(prefix) && string(m.Key[:len(prefix)]) == string(prefix) {
			filtered = append(filtered, m)
		}
	}
	require.Equal(t, len(filtered), len(restricted))
	for i := range filtered {
		assert.Equal(t, filtered[i].Key, restricted[i].Key)
	}
}

func TestRestrictViewIsCached(t *testing.T) {
	trie := NewTrie()
	insertContract(t, trie, "myC", "file:///ws/a.rho", q(v("x")))

	prefix := NamePrefix(NamespaceContract, "myC")
	first := trie.Restrict(prefix)
	second := trie.Restrict(prefix)
	assert.Same(t, first, second)
}

func TestRestrictUnknownPrefixIsEmpty(t *testing.T) {
	trie := NewTrie()
	insertContract(t, trie, "myC", "file:///ws/a.rho", q(v("x")))

	sub := trie.Restrict(NamePrefix(NamespaceContract, "nothing"))
	assert.True(t, sub.Empty())
	assert.Empty(t, sub.UnifyQuery([]byte{TagGround, GroundKindNil}))
}

func TestUnifyQueryBindsCallArguments(t *testing.T) {
	// contract myC(@x, @y) = { ... } queried with myC!(42, 100):
	// one match with bindings x -> 42, y -> 100.
	trie := NewTrie()
	insertContract(t, trie, "myC", "file:///ws/contract.rho", q(v("x")), q(v("y")))

	query, err := CallKey("myC", []ir.SemanticNode{gi(42), gi(100)})
	require.NoError(t, err)

	matches := trie.Restrict(NamePrefix(NamespaceContract, "myC")).UnifyQuery(query)
	require.Len(t, matches, 1)
	assert.Equal(t, "file:///ws/contract.rho", matches[0].Meta.Location.URI)

	require.Len(t, matches[0].Bindings, 2)
	x, err := DecodeValue(matches[0].Bindings[0])
	require.NoError(t, err)
	assert.Equal(t, int64(42), x.(*ir.Ground).IntVal)
	y, err := DecodeValue(matches[0].Bindings[1])
	require.NoError(t, err)
	assert.Equal(t, int64(100), y.(*ir.Ground).IntVal)
}

func TestUnifyQueryArityMismatch(t *testing.T) {
	trie := NewTrie()
	insertContract(t, trie, "myC", "file:///ws/contract.rho", q(v("x")), q(v("y")))

	query, err := CallKey("myC", []ir.SemanticNode{gi(42)})
	require.NoError(t, err)

	matches := trie.Restrict(NamePrefix(NamespaceContract, "myC")).UnifyQuery(query)
	assert.Empty(t, matches)
}

func TestUnifyQueryRepeatedVariable(t *testing.T) {
	// contract eq(@x, @x) matches eq!(7, 7) but not eq!(7, 8).
	trie := NewTrie()
	insertContract(t, trie, "eq", "file:///ws/eq.rho", q(v("x")), q(v("x")))

	same, err := CallKey("eq", []ir.SemanticNode{gi(7), gi(7)})
	require.NoError(t, err)
	diff, err := CallKey("eq", []ir.SemanticNode{gi(7), gi(8)})
	require.NoError(t, err)

	sub := trie.Restrict(NamePrefix(NamespaceContract, "eq"))
	assert.Len(t, sub.UnifyQuery(same), 1)
	assert.Empty(t, sub.UnifyQuery(diff))
}

func TestUnifyQueryGroundFormals(t *testing.T) {
	// contract route(@"get", @path) only unifies with matching literal.
	trie := NewTrie()
	insertContract(t, trie, "route", "file:///ws/r.rho", q(gs("get")), q(v("path")))

	hit, err := CallKey("route", []ir.SemanticNode{gs("get"), gs("/users")})
	require.NoError(t, err)
	miss, err := CallKey("route", []ir.SemanticNode{gs("post"), gs("/users")})
	require.NoError(t, err)

	sub := trie.Restrict(NamePrefix(NamespaceContract, "route"))
	matches := sub.UnifyQuery(hit)
	require.Len(t, matches, 1)
	require.Len(t, matches[0].Bindings, 1)
	path, err := DecodeValue(matches[0].Bindings[0])
	require.NoError(t, err)
	assert.Equal(t, "/users", path.(*ir.Ground).StrVal)

	assert.Empty(t, sub.UnifyQuery(miss))
}

func TestNamespacesDoNotCollide(t *testing.T) {
	trie := NewTrie()
	insertContract(t, trie, "f", "file:///ws/a.rho", q(v("x")))

	key, _, err := DefinitionKey("f", []ir.SemanticNode{&ir.MVar{Name: "x"}})
	require.NoError(t, err)
	trie.Insert(key, Metadata{Name: "f", Language: ir.LangMeTTa})

	contracts := trie.Restrict(NamespacePrefix(NamespaceContract)).All()
	definitions := trie.Restrict(NamespacePrefix(NamespaceDefinition)).All()
	assert.Len(t, contracts, 1)
	assert.Len(t, definitions, 1)
	assert.NotEqual(t, contracts[0].Key, definitions[0].Key)
}

func TestInternerSharesSymbolBytes(t *testing.T) {
	in := NewInterner()
	a := in.SymbolBytes("contract")
	b := in.SymbolBytes("contract")
	assert.Equal(t, a, b)
	// Same backing array: interning reuses the allocation.
	assert.Same(t, &a[0], &b[0])
}
