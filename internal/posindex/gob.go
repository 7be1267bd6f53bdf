package posindex

import (
	"bytes"
	"encoding/gob"

	"github.com/f1r3fly-io/rholang-language-server/internal/ir"
)

// gobEntry mirrors entry with exported fields for encoding.
type gobEntry struct {
	Start int
	End   int
	ID    ir.NodeID
}

// GobEncode serializes the frozen index for the persistent cache.
func (idx *Index) GobEncode() ([]byte, error) {
	entries := make([]gobEntry, len(idx.entries))
	for i, e := range idx.entries {
		entries[i] = gobEntry{Start: e.start, End: e.end, ID: e.id}
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode restores an index serialized with GobEncode.
func (idx *Index) GobDecode(data []byte) error {
	var entries []gobEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entries); err != nil {
		return err
	}
	idx.entries = make([]entry, len(entries))
	for i, e := range entries {
		idx.entries[i] = entry{start: e.Start, end: e.End, id: e.ID}
	}
	return nil
}
