package pattern

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lserrors "github.com/f1r3fly-io/rholang-language-server/internal/errors"
	"github.com/f1r3fly-io/rholang-language-server/internal/ir"
)

func v(name string) *ir.Var            { return &ir.Var{Name: name} }
func q(p ir.SemanticNode) *ir.Quote    { return &ir.Quote{Proc: p} }
func gi(n int64) *ir.Ground            { return &ir.Ground{Kind: ir.GroundInt, IntVal: n} }
func gs(s string) *ir.Ground           { return &ir.Ground{Kind: ir.GroundString, StrVal: s} }
func gb(b bool) *ir.Ground             { return &ir.Ground{Kind: ir.GroundBool, BoolVal: b} }
func gnil() *ir.Ground                 { return &ir.Ground{Kind: ir.GroundNil} }
func list(es ...ir.SemanticNode) *ir.Collection {
	return &ir.Collection{Kind: ir.CollList, Elems: es}
}

func TestEncodeDeterminism(t *testing.T) {
	p := list(q(v("x")), gi(7), q(v("x")))

	a, err := EncodePattern(p)
	require.NoError(t, err)
	b, err := EncodePattern(p)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncodeAlphaEquivalence(t *testing.T) {
	// (x, y, x) and (a, b, a) differ only in variable names; their de
	// Bruijn encodings must be identical.
	p1 := list(v("x"), v("y"), v("x"))
	p2 := list(v("a"), v("b"), v("a"))

	b1, err := EncodePattern(p1)
	require.NoError(t, err)
	b2, err := EncodePattern(p2)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)

	// (x, y, y) has different reference structure and must differ.
	p3 := list(v("x"), v("y"), v("y"))
	b3, err := EncodePattern(p3)
	require.NoError(t, err)
	assert.NotEqual(t, b1, b3)
}

func TestEncodeWildcardsNeverAlias(t *testing.T) {
	// (_, _) encodes as two fresh variables, like two distinct names, not
	// as a variable plus a backreference.
	wild, err := EncodePattern(list(&ir.Wildcard{}, &ir.Wildcard{}))
	require.NoError(t, err)
	distinct, err := EncodePattern(list(v("a"), v("b")))
	require.NoError(t, err)
	aliased, err := EncodePattern(list(v("a"), v("a")))
	require.NoError(t, err)

	assert.Equal(t, distinct, wild)
	assert.NotEqual(t, aliased, wild)
}

func TestEncodeValueRejectsVariables(t *testing.T) {
	_, err := EncodeValue(list(gi(1), v("x")))

	var ee *lserrors.EncodeError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, lserrors.EncodeVariableInValue, ee.Kind)
}

func TestEncodeUnsupportedNode(t *testing.T) {
	_, err := EncodePattern(&ir.Bundle{Proc: gnil()})

	var ee *lserrors.EncodeError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, lserrors.EncodeUnsupportedNode, ee.Kind)
	assert.Equal(t, "Bundle", ee.NodeType)
}

func TestEncodePatternAcceptsValuePositions(t *testing.T) {
	// A pattern may be fully ground; that is just a value-shaped pattern.
	b, err := EncodePattern(list(gi(1), gs("hi"), gb(true), gnil()))
	require.NoError(t, err)
	assert.NotEmpty(t, b)
}

func TestValueRoundTrip(t *testing.T) {
	cases := []ir.SemanticNode{
		gi(42),
		gi(-17),
		gb(true),
		gs("hello"),
		gnil(),
		list(gi(1), list(gs("nested"), gb(false))),
	}
	for _, value := range cases {
		encoded, err := EncodeValue(value)
		require.NoError(t, err)

		decoded, err := DecodeValue(encoded)
		require.NoError(t, err)

		reencoded, err := EncodeValue(decoded)
		require.NoError(t, err)
		assert.Equal(t, encoded, reencoded, "decode must invert encode")
	}
}

func TestDecodeValueRejectsPatternTags(t *testing.T) {
	encoded, err := EncodePattern(v("x"))
	require.NoError(t, err)

	_, err = DecodeValue(encoded)
	assert.Error(t, err)
}

func TestStructuralEqualityMatchesEncodingEquality(t *testing.T) {
	// Invariant: encodings are equal iff the patterns are structurally
	// equal under alpha-equivalence.
	patterns := []ir.SemanticNode{
		list(v("x"), v("x")),
		list(v("x"), v("y")),
		list(gi(1), v("x")),
		list(gi(2), v("x")),
	}
	encodings := make([][]byte, len(patterns))
	for i, p := range patterns {
		b, err := EncodePattern(p)
		require.NoError(t, err)
		encodings[i] = b
	}
	for i := range patterns {
		for j := range patterns {
			equal := string(encodings[i]) == string(encodings[j])
			assert.Equal(t, i == j, equal, "patterns %d and %d", i, j)
		}
	}
}

func TestSkipTerm(t *testing.T) {
	cases := []ir.SemanticNode{
		gi(123456),
		gs("text"),
		list(gi(1), gi(2), gi(3)),
	}
	for _, value := range cases {
		encoded, err := EncodeValue(value)
		require.NoError(t, err)

		n, ok := SkipTerm(encoded)
		require.True(t, ok)
		assert.Equal(t, len(encoded), n)
	}

	// A term embedded in a longer stream stops at its own boundary.
	first, err := EncodeValue(gi(5))
	require.NoError(t, err)
	second, err := EncodeValue(gs("rest"))
	require.NoError(t, err)
	stream := append(append([]byte(nil), first...), second...)

	n, ok := SkipTerm(stream)
	require.True(t, ok)
	assert.Equal(t, len(first), n)

	_, ok = SkipTerm(nil)
	assert.False(t, ok)
}

func TestQuoteIsTransparent(t *testing.T) {
	// @42 and 42 encode identically: patterns conflate names and processes.
	a, err := EncodePattern(q(gi(42)))
	require.NoError(t, err)
	b, err := EncodePattern(gi(42))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMeTTaEncoding(t *testing.T) {
	// ($x 42 $x) with de Bruijn backreference.
	expr := &ir.MSExpr{Elems: []ir.SemanticNode{
		&ir.MVar{Name: "x"},
		&ir.MGround{Kind: ir.MGroundInt, Text: "42"},
		&ir.MVar{Name: "x"},
	}}
	b, err := EncodePattern(expr)
	require.NoError(t, err)

	// Alpha-equivalent to ($y 42 $y), distinct from ($y 42 $z).
	same, err := EncodePattern(&ir.MSExpr{Elems: []ir.SemanticNode{
		&ir.MVar{Name: "y"},
		&ir.MGround{Kind: ir.MGroundInt, Text: "42"},
		&ir.MVar{Name: "y"},
	}})
	require.NoError(t, err)
	other, err := EncodePattern(&ir.MSExpr{Elems: []ir.SemanticNode{
		&ir.MVar{Name: "y"},
		&ir.MGround{Kind: ir.MGroundInt, Text: "42"},
		&ir.MVar{Name: "z"},
	}})
	require.NoError(t, err)

	assert.Equal(t, same, b)
	assert.NotEqual(t, other, b)
}
