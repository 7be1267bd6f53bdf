package symbols

import (
	"bytes"
	"encoding/gob"
)

// gobScope mirrors scope with exported fields for encoding. The name map is
// rebuilt on decode from insertion order.
type gobScope struct {
	Parent  ScopeID
	Symbols []SymbolInfo
}

// GobEncode serializes the table for the persistent cache.
func (t *Table) GobEncode() ([]byte, error) {
	scopes := make([]gobScope, len(t.scopes))
	for i, s := range t.scopes {
		scopes[i] = gobScope{Parent: s.parent, Symbols: s.order}
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(scopes); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode restores a table serialized with GobEncode.
func (t *Table) GobDecode(data []byte) error {
	var scopes []gobScope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&scopes); err != nil {
		return err
	}
	t.scopes = make([]scope, len(scopes))
	for i, s := range scopes {
		names := make(map[string]int, len(s.Symbols))
		for j, info := range s.Symbols {
			names[info.Name] = j
		}
		t.scopes[i] = scope{parent: s.Parent, names: names, order: s.Symbols}
	}
	return nil
}
