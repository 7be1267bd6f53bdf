// Package posindex answers "which IR node is at byte B?" in O(log n). The
// index is built in a batch while a document is indexed, then frozen and
// shared read-only; lookups need no lock.
package posindex

import (
	"sort"

	"github.com/f1r3fly-io/rholang-language-server/internal/ir"
)

// entry is one node's byte range. Ranges are half-open [Start, End).
type entry struct {
	start int
	end   int
	id    ir.NodeID
}

// Builder accumulates ranges during a document build.
type Builder struct {
	entries []entry
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add records a node's byte range. Zero-length ranges are skipped: nothing
// can be "at" them.
func (b *Builder) Add(start, end int, id ir.NodeID) {
	if end <= start {
		return
	}
	b.entries = append(b.entries, entry{start: start, end: end, id: id})
}

// AddSpans records every span from an IR descent.
func (b *Builder) AddSpans(spans []ir.Span) {
	for _, s := range spans {
		b.Add(s.Start, s.End, s.ID)
	}
}

// Freeze sorts the accumulated entries and returns the immutable index.
// Entries sort by start ascending, then by end descending so that an outer
// range precedes the inner ranges sharing its start.
func (b *Builder) Freeze() *Index {
	entries := b.entries
	b.entries = nil
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].start != entries[j].start {
			return entries[i].start < entries[j].start
		}
		if entries[i].end != entries[j].end {
			return entries[i].end > entries[j].end
		}
		return entries[i].id < entries[j].id
	})
	return &Index{entries: entries}
}

// Index is the frozen ordered map from byte ranges to node ids.
type Index struct {
	entries []entry
}

// Len returns the number of indexed ranges.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// At returns the innermost node whose range contains the byte offset.
// Smaller ranges win ties. Returns ok=false when no range covers the point.
func (idx *Index) At(b int) (ir.NodeID, bool) {
	// Binary search for the first entry starting after b. Everything at or
	// before index i-1 starts at or before b.
	i := sort.Search(len(idx.entries), func(i int) bool {
		return idx.entries[i].start > b
	})

	// Ranges nest strictly, so among entries covering b the one with the
	// greatest start is innermost; equal starts sort end-descending, so the
	// later entry is the smaller range. Scanning backwards, the first entry
	// still open at b is the innermost covering node.
	for j := i - 1; j >= 0; j-- {
		if e := idx.entries[j]; e.end > b {
			return e.id, true
		}
	}
	return ir.InvalidNodeID, false
}

// RangeOf returns the byte range recorded for a node id. Linear scan; used
// by diagnostics and tests, not on the query hot path.
func (idx *Index) RangeOf(id ir.NodeID) (start, end int, ok bool) {
	for _, e := range idx.entries {
		if e.id == id {
			return e.start, e.end, true
		}
	}
	return 0, 0, false
}

// Covering returns every node whose range contains the byte offset,
// outermost first.
func (idx *Index) Covering(b int) []ir.NodeID {
	var out []ir.NodeID
	for _, e := range idx.entries {
		if e.start > b {
			break
		}
		if e.end > b {
			out = append(out, e.id)
		}
	}
	return out
}
