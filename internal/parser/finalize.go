package parser

import (
	"github.com/f1r3fly-io/rholang-language-server/internal/ir"
	"github.com/f1r3fly-io/rholang-language-server/internal/position"
)

// finalize converts the parser's absolute byte offsets (stashed in
// Rel.ByteDelta during construction) into true parent-relative positions,
// resolves line/column deltas through the line index, and assigns node ids
// in pre-order. It runs once at the end of a parse, while the tree is still
// private to the build pass. Returns the node count.
func finalize(root ir.SemanticNode, lines *position.LineIndex) int {
	if root == nil {
		return 0
	}
	nextID := ir.NodeID(0)

	var walk func(n ir.SemanticNode, parentAbs position.Position)
	walk = func(n ir.SemanticNode, parentAbs position.Position) {
		base := n.Base()
		absByte := base.Rel.ByteDelta
		absPos, ok := lines.PositionFor(absByte)
		if !ok {
			absPos = position.Position{Byte: absByte}
		}

		nextID++
		base.ID = nextID
		base.Rel = position.RelativeTo(absPos, parentAbs)

		for i := 0; i < n.ChildrenCount(); i++ {
			if c := n.ChildAt(i); c != nil {
				walk(c, absPos)
			}
		}
	}
	walk(root, position.Position{})
	return int(nextID)
}
