// Package cache provides the hot in-memory document cache, the cold
// persistent cache it spills to on shutdown, and the file modification
// tracker that decides whether a cold entry is still valid.
package cache

import (
	"encoding/gob"
	"time"

	"github.com/f1r3fly-io/rholang-language-server/internal/ir"
	"github.com/f1r3fly-io/rholang-language-server/internal/pattern"
	"github.com/f1r3fly-io/rholang-language-server/internal/posindex"
	"github.com/f1r3fly-io/rholang-language-server/internal/position"
	"github.com/f1r3fly-io/rholang-language-server/internal/symbols"
)

// Hash is a blake3 content hash.
type Hash [32]byte

// PatternContribution is one trie entry a document contributes to the
// workspace pattern index.
type PatternContribution struct {
	Key  []byte
	Meta pattern.Metadata
}

// FreeUse is a name used in a document without a local definition; the
// cross-file linking pass resolves these against the workspace index and
// derives dependency edges from them.
type FreeUse struct {
	Name string
	Node ir.NodeID
}

// Document is one parsed-and-indexed file. All reference-typed fields are
// shared: cloning a Document is a pointer copy, and nothing mutates the
// shared trees after a build pass. Re-indexing produces a fresh Document.
type Document struct {
	URI         string
	Version     int32
	ContentHash Hash
	ModTime     time.Time
	Language    ir.Language

	Root       ir.SemanticNode
	MettaRoot  ir.SemanticNode // non-nil only for embedded MeTTa documents
	Symbols    *symbols.Table
	Positions  *posindex.Index
	References map[ir.NodeID][]position.Range
	Patterns   []PatternContribution
	FreeUses   []FreeUse

	// Regenerated lazily, never persisted.
	Text      string
	LineIndex *position.LineIndex
	Unified   ir.SemanticNode
}

// persistedDocument is the serialized subset of Document. The rope, parse
// tree, unified IR and completion contributions are rebuilt lazily after a
// warm load.
type persistedDocument struct {
	URI         string
	Version     int32
	ContentHash Hash
	ModTime     time.Time
	Language    ir.Language
	Root        ir.SemanticNode
	MettaRoot   ir.SemanticNode
	Symbols     *symbols.Table
	Positions   *posindex.Index
	References  map[ir.NodeID][]position.Range
	Patterns    []PatternContribution
	FreeUses    []FreeUse
}

func toPersisted(d *Document) persistedDocument {
	return persistedDocument{
		URI:         d.URI,
		Version:     d.Version,
		ContentHash: d.ContentHash,
		ModTime:     d.ModTime,
		Language:    d.Language,
		Root:        d.Root,
		MettaRoot:   d.MettaRoot,
		Symbols:     d.Symbols,
		Positions:   d.Positions,
		References:  d.References,
		Patterns:    d.Patterns,
		FreeUses:    d.FreeUses,
	}
}

func fromPersisted(p persistedDocument) *Document {
	return &Document{
		URI:         p.URI,
		Version:     p.Version,
		ContentHash: p.ContentHash,
		ModTime:     p.ModTime,
		Language:    p.Language,
		Root:        p.Root,
		MettaRoot:   p.MettaRoot,
		Symbols:     p.Symbols,
		Positions:   p.Positions,
		References:  p.References,
		Patterns:    p.Patterns,
		FreeUses:    p.FreeUses,
	}
}

// init registers every concrete IR node type so trees round-trip through
// gob behind the SemanticNode interface.
func init() {
	gob.Register(&ir.Par{})
	gob.Register(&ir.Send{})
	gob.Register(&ir.Receive{})
	gob.Register(&ir.ReceiveBind{})
	gob.Register(&ir.Contract{})
	gob.Register(&ir.New{})
	gob.Register(&ir.NameDecl{})
	gob.Register(&ir.Match{})
	gob.Register(&ir.MatchCase{})
	gob.Register(&ir.IfElse{})
	gob.Register(&ir.Let{})
	gob.Register(&ir.LetBind{})
	gob.Register(&ir.Var{})
	gob.Register(&ir.Wildcard{})
	gob.Register(&ir.Quote{})
	gob.Register(&ir.Eval{})
	gob.Register(&ir.Ground{})
	gob.Register(&ir.Collection{})
	gob.Register(&ir.KeyValue{})
	gob.Register(&ir.Bundle{})
	gob.Register(&ir.BinOp{})
	gob.Register(&ir.MethodCall{})
	gob.Register(&ir.MProgram{})
	gob.Register(&ir.MSExpr{})
	gob.Register(&ir.MAtom{})
	gob.Register(&ir.MVar{})
	gob.Register(&ir.MDefinition{})
	gob.Register(&ir.MTypeDecl{})
	gob.Register(&ir.MGround{})
	gob.Register(&ir.Unified{})
	gob.Register(&ir.LanguageExt{})
}
