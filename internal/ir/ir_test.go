package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f1r3fly-io/rholang-language-server/internal/position"
)

// buildSendTree constructs myC!(42, x) with hand-assigned IDs and relative
// positions matching the source text `myC!(42, x)`.
func buildSendTree() *Send {
	return &Send{
		NodeBase: NodeBase{ID: 1, Len: 11},
		Channel:  &Var{NodeBase: NodeBase{ID: 2, Len: 3}, Name: "myC"},
		Args: []SemanticNode{
			&Ground{NodeBase: NodeBase{ID: 3, Rel: position.RelPosition{Column: 5, ByteDelta: 5}, Len: 2}, Kind: GroundInt, IntVal: 42},
			&Var{NodeBase: NodeBase{ID: 4, Rel: position.RelPosition{Column: 9, ByteDelta: 9}, Len: 1}, Name: "x"},
		},
	}
}

func TestWalkVisitsPreOrder(t *testing.T) {
	var names []string
	Inspect(buildSendTree(), func(n SemanticNode) bool {
		names = append(names, n.TypeName())
		return true
	})
	assert.Equal(t, []string{"Send", "Var", "GroundInt", "Var"}, names)
}

func TestInspectSkipsChildren(t *testing.T) {
	count := 0
	Inspect(buildSendTree(), func(n SemanticNode) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count)
}

func TestSpansSumRelativeOffsets(t *testing.T) {
	spans := Spans(buildSendTree(), 0)
	require.Len(t, spans, 4)

	byID := map[NodeID]Span{}
	for _, s := range spans {
		byID[s.ID] = s
	}
	assert.Equal(t, Span{ID: 1, Start: 0, End: 11}, byID[1])
	assert.Equal(t, Span{ID: 3, Start: 5, End: 7}, byID[3])
	assert.Equal(t, Span{ID: 4, Start: 9, End: 10}, byID[4])
}

func TestSpansNestStrictly(t *testing.T) {
	spans := Spans(buildSendTree(), 0)
	for _, a := range spans {
		for _, b := range spans {
			if a.ID == b.ID {
				continue
			}
			disjoint := a.End <= b.Start || b.End <= a.Start
			aInB := b.Start <= a.Start && a.End <= b.End
			bInA := a.Start <= b.Start && b.End <= a.End
			assert.True(t, disjoint || aInB || bInA,
				"spans %v and %v neither disjoint nor nested", a, b)
		}
	}
}

func TestStructuralEqualIgnoresIDs(t *testing.T) {
	a := buildSendTree()
	b := buildSendTree()
	b.NodeBase.ID = 100
	b.Args[0].(*Ground).NodeBase.ID = 101

	assert.True(t, StructuralEqual(a, b))
}

func TestStructuralEqualDistinguishesContent(t *testing.T) {
	a := buildSendTree()

	b := buildSendTree()
	b.Args[0] = &Ground{NodeBase: NodeBase{ID: 3}, Kind: GroundInt, IntVal: 43}
	assert.False(t, StructuralEqual(a, b))

	c := buildSendTree()
	c.Channel = &Var{NodeBase: NodeBase{ID: 2}, Name: "other"}
	assert.False(t, StructuralEqual(a, c))
}

func TestFindByID(t *testing.T) {
	tree := buildSendTree()
	n := FindByID(tree, 3)
	require.NotNil(t, n)
	assert.Equal(t, "GroundInt", n.TypeName())

	assert.Nil(t, FindByID(tree, 99))
}

func TestLowerToUnifiedPreservesCategories(t *testing.T) {
	contract := &Contract{
		NodeBase: NodeBase{ID: 1, Len: 30},
		Name:     &Var{NodeBase: NodeBase{ID: 2, Len: 3}, Name: "myC"},
		Formals: []SemanticNode{
			&Var{NodeBase: NodeBase{ID: 3, Len: 1}, Name: "x"},
		},
		Body: &Quote{
			NodeBase: NodeBase{ID: 4, Len: 4},
			Proc:     &Ground{NodeBase: NodeBase{ID: 5}, Kind: GroundNil},
		},
	}

	lowered := LowerToUnified(contract, LangRholang)

	root, ok := lowered.(*Unified)
	require.True(t, ok)
	assert.Equal(t, CategoryBinding, root.Category())
	assert.Equal(t, "Contract", root.Name)
	require.Equal(t, 3, root.ChildrenCount())

	// The quote is language-specific and must be wrapped, not dropped.
	ext, ok := root.ChildAt(2).(*LanguageExt)
	require.True(t, ok)
	assert.Equal(t, LangRholang, ext.Lang)
	assert.Equal(t, "Quote", ext.Inner.TypeName())
}

type renameVisitor struct {
	from, to string
}

func (r renameVisitor) Transform(n SemanticNode, children []SemanticNode) SemanticNode {
	if v, ok := n.(*Var); ok && v.Name == r.from {
		out := *v
		out.Name = r.to
		return &out
	}
	return nil
}

func TestTransformLeavesSourceUntouched(t *testing.T) {
	src := buildSendTree()
	result := Transform(src, LangRholang, renameVisitor{from: "myC", to: "yourC"})

	// Source is untouched.
	assert.Equal(t, "myC", src.Channel.(*Var).Name)

	out, ok := result.(*Send)
	require.True(t, ok)
	assert.Equal(t, "yourC", out.Channel.(*Var).Name)

	// Unchanged subtrees are shared, not copied.
	assert.Same(t, src.Args[0], out.Args[0])
}

func TestTransformNoChangeReturnsSameTree(t *testing.T) {
	src := buildSendTree()
	result := Transform(src, LangRholang, renameVisitor{from: "absent", to: "x"})
	assert.Same(t, SemanticNode(src), result)
}
