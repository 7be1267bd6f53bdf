// Package symbols provides the per-document hierarchical symbol table and
// the workspace-wide symbol search index.
package symbols

import (
	"fmt"

	lserrors "github.com/f1r3fly-io/rholang-language-server/internal/errors"
	"github.com/f1r3fly-io/rholang-language-server/internal/ir"
	"github.com/f1r3fly-io/rholang-language-server/internal/position"
)

// ScopeID identifies a scope within one document's table. The root scope is
// always 0.
type ScopeID int

// RootScope is the document-level scope.
const RootScope ScopeID = 0

// SymbolKind classifies how a symbol was introduced.
type SymbolKind uint8

const (
	KindNewBind SymbolKind = iota
	KindLetBind
	KindContractBind
	KindParameter
	KindVariable
	KindInputBind
	KindCaseBind
	KindFunctionDef
	KindTypeAnnotation
	KindGroundedVar
)

// String returns a string representation of the symbol kind
func (k SymbolKind) String() string {
	switch k {
	case KindNewBind:
		return "new"
	case KindLetBind:
		return "let"
	case KindContractBind:
		return "contract"
	case KindParameter:
		return "parameter"
	case KindVariable:
		return "variable"
	case KindInputBind:
		return "input"
	case KindCaseBind:
		return "case"
	case KindFunctionDef:
		return "function"
	case KindTypeAnnotation:
		return "type"
	case KindGroundedVar:
		return "grounded"
	default:
		return "unknown"
	}
}

// SymbolInfo describes one defined symbol.
type SymbolInfo struct {
	Name     string
	Kind     SymbolKind
	Pos      position.Position // defining position
	Node     ir.NodeID         // defining IR node
	Scope    ScopeID
	Language ir.Language
}

// scope is one node of the scope forest. Symbols keep insertion order.
type scope struct {
	parent ScopeID // -1 for the root
	names  map[string]int
	order  []SymbolInfo
}

// Table is the per-document symbol table. Scopes are append-only within a
// build pass; after the build the table is shared read-only.
type Table struct {
	scopes []scope
}

// NewTable creates a table containing only the root scope.
func NewTable() *Table {
	return &Table{scopes: []scope{{parent: -1, names: make(map[string]int)}}}
}

// PushChild creates a fresh scope under parent and returns its id.
func (t *Table) PushChild(parent ScopeID) ScopeID {
	id := ScopeID(len(t.scopes))
	t.scopes = append(t.scopes, scope{parent: parent, names: make(map[string]int)})
	return id
}

// Parent returns the parent of a scope; ok is false for the root or an
// unknown scope.
func (t *Table) Parent(id ScopeID) (ScopeID, bool) {
	if !t.valid(id) || t.scopes[id].parent < 0 {
		return 0, false
	}
	return t.scopes[id].parent, true
}

// ScopeCount returns the number of scopes in the table.
func (t *Table) ScopeCount() int {
	return len(t.scopes)
}

// Insert adds a symbol to a scope. A second insert of the same name in the
// same scope fails with DuplicateInScope and leaves the first definition in
// place.
func (t *Table) Insert(id ScopeID, info SymbolInfo) error {
	if !t.valid(id) {
		return fmt.Errorf("unknown scope %d", id)
	}
	s := &t.scopes[id]
	if _, exists := s.names[info.Name]; exists {
		return lserrors.NewDuplicateInScopeError(info.Name, int(id))
	}
	info.Scope = id
	s.names[info.Name] = len(s.order)
	s.order = append(s.order, info)
	return nil
}

// Lookup walks the parent chain from id and returns the innermost symbol
// with the given name.
func (t *Table) Lookup(id ScopeID, name string) (SymbolInfo, bool) {
	for t.valid(id) {
		s := &t.scopes[id]
		if i, ok := s.names[name]; ok {
			return s.order[i], true
		}
		if s.parent < 0 {
			break
		}
		id = s.parent
	}
	return SymbolInfo{}, false
}

// AllInScope enumerates the symbols of one scope in insertion order,
// parents excluded.
func (t *Table) AllInScope(id ScopeID) []SymbolInfo {
	if !t.valid(id) {
		return nil
	}
	out := make([]SymbolInfo, len(t.scopes[id].order))
	copy(out, t.scopes[id].order)
	return out
}

// AllReachable enumerates symbols visible from a scope, innermost first.
// Shadowed names appear once, with the innermost definition winning.
func (t *Table) AllReachable(id ScopeID) []SymbolInfo {
	var out []SymbolInfo
	seen := make(map[string]bool)
	for t.valid(id) {
		for _, info := range t.scopes[id].order {
			if !seen[info.Name] {
				seen[info.Name] = true
				out = append(out, info)
			}
		}
		if t.scopes[id].parent < 0 {
			break
		}
		id = t.scopes[id].parent
	}
	return out
}

// All enumerates every symbol in the table, scope by scope.
func (t *Table) All() []SymbolInfo {
	var out []SymbolInfo
	for i := range t.scopes {
		out = append(out, t.scopes[i].order...)
	}
	return out
}

// Len returns the total number of symbols across all scopes.
func (t *Table) Len() int {
	n := 0
	for i := range t.scopes {
		n += len(t.scopes[i].order)
	}
	return n
}

func (t *Table) valid(id ScopeID) bool {
	return id >= 0 && int(id) < len(t.scopes)
}
