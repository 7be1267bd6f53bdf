// Package position provides the absolute and relative source position model
// shared by the IR, the position index, and the protocol adapter.
//
// Lines and columns are zero-based; columns count Unicode scalar values
// within the line, not bytes. Byte offsets address the raw UTF-8 source.
// Ranges are half-open [start, end).
package position

import "fmt"

// Position is an absolute location in a document.
type Position struct {
	Line   int // zero-based line
	Column int // zero-based column in Unicode scalar values
	Byte   int // byte offset into the UTF-8 source
}

// String returns a human-readable one-based line:column form.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Column+1)
}

// Before reports whether p precedes other in byte order.
func (p Position) Before(other Position) bool {
	return p.Byte < other.Byte
}

// Range is a half-open byte span [Start, End) with resolved line/column
// endpoints.
type Range struct {
	Start Position
	End   Position
}

// Contains reports whether the byte offset b falls inside the range.
func (r Range) Contains(b int) bool {
	return b >= r.Start.Byte && b < r.End.Byte
}

// ContainsRange reports whether other is fully inside r.
func (r Range) ContainsRange(other Range) bool {
	return r.Start.Byte <= other.Start.Byte && other.End.Byte <= r.End.Byte
}

// Len returns the byte length of the range.
func (r Range) Len() int {
	return r.End.Byte - r.Start.Byte
}

// String returns "start-end" in one-based form.
func (r Range) String() string {
	return r.Start.String() + "-" + r.End.String()
}

// RelPosition is a position stored relative to the parent node's start, so
// that subtree edits recompute absolute positions by summing down the spine.
// LineDelta is the number of lines below the parent start; Column is the
// absolute column when LineDelta > 0 and the column delta when the node
// starts on the parent's line.
type RelPosition struct {
	LineDelta int
	Column    int
	ByteDelta int
}

// Resolve computes the absolute position of a node given its parent start.
func (r RelPosition) Resolve(parent Position) Position {
	abs := Position{
		Line: parent.Line + r.LineDelta,
		Byte: parent.Byte + r.ByteDelta,
	}
	if r.LineDelta == 0 {
		abs.Column = parent.Column + r.Column
	} else {
		abs.Column = r.Column
	}
	return abs
}

// RelativeTo computes the relative position of abs with respect to parent.
// It is the inverse of Resolve.
func RelativeTo(abs, parent Position) RelPosition {
	rel := RelPosition{
		LineDelta: abs.Line - parent.Line,
		ByteDelta: abs.Byte - parent.Byte,
	}
	if rel.LineDelta == 0 {
		rel.Column = abs.Column - parent.Column
	} else {
		rel.Column = abs.Column
	}
	return rel
}
