// Package ir defines the immutable semantic trees built from parsed Rholang
// and MeTTa source, plus the language-agnostic SemanticNode abstraction that
// lets visitors, the position index, and the resolvers traverse any tree
// without knowing its language.
package ir

import (
	"github.com/f1r3fly-io/rholang-language-server/internal/position"
)

// NodeID identifies a node within one document build. IDs are stable across
// pointer-copies of the tree and are the key the position index uses to
// disambiguate structurally identical siblings.
type NodeID uint32

// InvalidNodeID is the zero value; real IDs start at 1.
const InvalidNodeID NodeID = 0

// Language tags the source language of a tree.
type Language uint8

const (
	LangRholang Language = iota
	LangMeTTa
	LangUnified
)

// String returns a string representation of the language
func (l Language) String() string {
	switch l {
	case LangRholang:
		return "rholang"
	case LangMeTTa:
		return "metta"
	case LangUnified:
		return "unified"
	default:
		return "unknown"
	}
}

// SemanticCategory is the closed, language-agnostic classification every
// node exposes. Language-specific constructs that fit no universal category
// report CategoryLanguageSpecific.
type SemanticCategory uint8

const (
	CategoryLiteral SemanticCategory = iota
	CategoryVariable
	CategoryBinding
	CategoryInvocation
	CategoryMatch
	CategoryCollection
	CategoryConditional
	CategoryBlock
	CategoryLanguageSpecific
	CategoryUnknown
)

// String returns a string representation of the category
func (c SemanticCategory) String() string {
	switch c {
	case CategoryLiteral:
		return "literal"
	case CategoryVariable:
		return "variable"
	case CategoryBinding:
		return "binding"
	case CategoryInvocation:
		return "invocation"
	case CategoryMatch:
		return "match"
	case CategoryCollection:
		return "collection"
	case CategoryConditional:
		return "conditional"
	case CategoryBlock:
		return "block"
	case CategoryLanguageSpecific:
		return "language_specific"
	default:
		return "unknown"
	}
}

// NodeBase carries the identity and position every node shares. The position
// is stored relative to the parent's start so that subtree edits recompute
// absolute positions by summing down the spine. Nodes are never mutated
// after a build pass completes.
type NodeBase struct {
	ID   NodeID
	Rel  position.RelPosition
	Len  int               // byte length of the node's span
	Meta map[string]string // optional metadata, nil for most nodes
}

// SemanticNode is the polymorphic tree interface. Children are
// index-addressable so one visitor implementation serves every language.
type SemanticNode interface {
	Base() *NodeBase
	Category() SemanticCategory
	TypeName() string
	ChildrenCount() int
	ChildAt(i int) SemanticNode
}

// Visitor walks a tree read-only. Visit returning false skips the node's
// children.
type Visitor interface {
	Visit(n SemanticNode) bool
}

// Walk performs a pre-order traversal of the tree rooted at n.
func Walk(n SemanticNode, v Visitor) {
	if n == nil {
		return
	}
	if !v.Visit(n) {
		return
	}
	for i := 0; i < n.ChildrenCount(); i++ {
		Walk(n.ChildAt(i), v)
	}
}

type inspector func(SemanticNode) bool

func (f inspector) Visit(n SemanticNode) bool { return f(n) }

// Inspect walks the tree calling f for each node; f returning false skips
// that node's children.
func Inspect(n SemanticNode, f func(SemanticNode) bool) {
	Walk(n, inspector(f))
}

// Span is a resolved absolute byte range for one node.
type Span struct {
	ID    NodeID
	Start int
	End   int
}

// Spans resolves absolute byte spans for every node in a single descent,
// summing relative offsets down the spine. docStart is the byte offset of
// the root (normally 0).
func Spans(root SemanticNode, docStart int) []Span {
	var out []Span
	var walk func(n SemanticNode, parentStart int)
	walk = func(n SemanticNode, parentStart int) {
		if n == nil {
			return
		}
		base := n.Base()
		start := parentStart + base.Rel.ByteDelta
		out = append(out, Span{ID: base.ID, Start: start, End: start + base.Len})
		for i := 0; i < n.ChildrenCount(); i++ {
			walk(n.ChildAt(i), start)
		}
	}
	walk(root, docStart)
	return out
}

// AbsoluteStart resolves the absolute start position of a node found on the
// path from root, given the root's absolute position. Returns ok=false when
// the node is not in the tree.
func AbsoluteStart(root SemanticNode, id NodeID, rootStart position.Position) (position.Position, bool) {
	var found position.Position
	ok := false
	var walk func(n SemanticNode, parent position.Position) bool
	walk = func(n SemanticNode, parent position.Position) bool {
		if n == nil {
			return false
		}
		abs := n.Base().Rel.Resolve(parent)
		if n.Base().ID == id {
			found, ok = abs, true
			return true
		}
		for i := 0; i < n.ChildrenCount(); i++ {
			if walk(n.ChildAt(i), abs) {
				return true
			}
		}
		return false
	}
	walk(root, rootStart)
	return found, ok
}

// FindByID locates a node by identity anywhere in the tree.
func FindByID(root SemanticNode, id NodeID) SemanticNode {
	var found SemanticNode
	Inspect(root, func(n SemanticNode) bool {
		if found != nil {
			return false
		}
		if n.Base().ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// CountNodes returns the number of nodes in the tree.
func CountNodes(root SemanticNode) int {
	count := 0
	Inspect(root, func(SemanticNode) bool {
		count++
		return true
	})
	return count
}

// StructuralEqual compares two trees by content, ignoring node identity and
// position. This is the semantic notion of "same" the canonical encoder
// relies on; the position index uses NodeID identity instead.
func StructuralEqual(a, b SemanticNode) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.TypeName() != b.TypeName() || a.Category() != b.Category() {
		return false
	}
	if label(a) != label(b) {
		return false
	}
	if a.ChildrenCount() != b.ChildrenCount() {
		return false
	}
	for i := 0; i < a.ChildrenCount(); i++ {
		if !StructuralEqual(a.ChildAt(i), b.ChildAt(i)) {
			return false
		}
	}
	return true
}

// Labeled is implemented by nodes whose content is a single atom: variables,
// ground literals, atoms. The label participates in structural equality and
// canonical encoding.
type Labeled interface {
	Label() string
}

func label(n SemanticNode) string {
	if l, ok := n.(Labeled); ok {
		return l.Label()
	}
	return ""
}
