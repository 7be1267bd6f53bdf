// Package completion provides the hybrid prefix dictionary answering
// completion queries: a static trie of language keywords built once per
// process, and a dynamic trie of workspace identifiers owned per document
// and persisted across restarts.
package completion

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/f1r3fly-io/rholang-language-server/internal/cache"
	"github.com/f1r3fly-io/rholang-language-server/internal/debug"
	lserrors "github.com/f1r3fly-io/rholang-language-server/internal/errors"
	"github.com/f1r3fly-io/rholang-language-server/internal/ir"
	"github.com/f1r3fly-io/rholang-language-server/internal/symbols"
)

// dictionaryFile is the persisted dynamic part.
const dictionaryFile = "completion_index.bin"

// Item is one completion candidate.
type Item struct {
	Label  string
	Kind   ItemKind
	Detail string
	URI    string // declaring document, empty for keywords
}

// ItemKind classifies completion candidates.
type ItemKind uint8

const (
	ItemKeyword ItemKind = iota
	ItemOperator
	ItemContract
	ItemFunction
	ItemVariable
)

// String returns a string representation of the item kind
func (k ItemKind) String() string {
	switch k {
	case ItemKeyword:
		return "keyword"
	case ItemOperator:
		return "operator"
	case ItemContract:
		return "contract"
	case ItemFunction:
		return "function"
	case ItemVariable:
		return "variable"
	default:
		return "unknown"
	}
}

// rholangKeywords and mettaCoreAtoms seed the static dictionary. Rebuilt on
// every startup, never persisted.
var rholangKeywords = []string{
	"new", "in", "contract", "for", "match", "if", "else", "let",
	"bundle", "true", "false", "Nil", "Set", "or", "and", "not",
}

var mettaCoreAtoms = []string{
	"=", ":", "->", "if", "let", "match", "case", "superpose", "collapse",
}

// trieNode is one vertex of a rune trie.
type trieNode struct {
	children map[rune]*trieNode
	items    []Item
}

func newTrieNode() *trieNode {
	return &trieNode{}
}

func (n *trieNode) insert(label string, item Item) {
	cur := n
	for _, r := range strings.ToLower(label) {
		if cur.children == nil {
			cur.children = make(map[rune]*trieNode)
		}
		next, ok := cur.children[r]
		if !ok {
			next = newTrieNode()
			cur.children[r] = next
		}
		cur = next
	}
	cur.items = append(cur.items, item)
}

// descend returns the node at the prefix, or nil.
func (n *trieNode) descend(prefix string) *trieNode {
	cur := n
	for _, r := range strings.ToLower(prefix) {
		cur = cur.children[r]
		if cur == nil {
			return nil
		}
	}
	return cur
}

// collect enumerates all items below the node.
func (n *trieNode) collect(acc []Item) []Item {
	acc = append(acc, n.items...)
	for _, child := range n.children {
		acc = child.collect(acc)
	}
	return acc
}

// Dictionary is the hybrid completion index. The static part is immutable
// after construction; a single read-write lock covers the dynamic part so
// readers proceed concurrently.
type Dictionary struct {
	static *trieNode

	mu      sync.RWMutex
	dynamic *trieNode
	byURI   map[string][]string // uri -> labels owned by that document
}

// NewDictionary builds the dictionary with a freshly constructed static
// keyword part.
func NewDictionary() *Dictionary {
	static := newTrieNode()
	for _, kw := range rholangKeywords {
		static.insert(kw, Item{Label: kw, Kind: ItemKeyword, Detail: "rholang keyword"})
	}
	for _, atom := range mettaCoreAtoms {
		static.insert(atom, Item{Label: atom, Kind: ItemOperator, Detail: "metta builtin"})
	}
	return &Dictionary{
		static:  static,
		dynamic: newTrieNode(),
		byURI:   make(map[string][]string),
	}
}

// itemKindFor maps a symbol kind to a completion kind.
func itemKindFor(kind symbols.SymbolKind, lang ir.Language) ItemKind {
	switch kind {
	case symbols.KindContractBind:
		return ItemContract
	case symbols.KindFunctionDef:
		return ItemFunction
	default:
		if lang == ir.LangMeTTa && kind == symbols.KindTypeAnnotation {
			return ItemFunction
		}
		return ItemVariable
	}
}

// AddSymbols indexes a document's symbols under its uri.
func (d *Dictionary) AddSymbols(uri string, infos []symbols.SymbolInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, info := range infos {
		item := Item{
			Label:  info.Name,
			Kind:   itemKindFor(info.Kind, info.Language),
			Detail: info.Kind.String(),
			URI:    uri,
		}
		d.dynamic.insert(info.Name, item)
		d.byURI[uri] = append(d.byURI[uri], info.Name)
	}
}

// RemoveDocumentSymbols drops every entry a document contributed. The
// dynamic trie is rebuilt from the remaining ownership map; mutation is
// re-index-driven and far rarer than queries.
func (d *Dictionary) RemoveDocumentSymbols(uri string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byURI[uri]; !ok {
		return
	}
	delete(d.byURI, uri)
	d.rebuildLocked()
}

// rebuildLocked reconstructs the dynamic trie from the ownership map. Items
// whose (uri, label) survives are carried over with their details intact.
func (d *Dictionary) rebuildLocked() {
	old := d.dynamic
	fresh := newTrieNode()
	survivors := make(map[string]map[string]bool, len(d.byURI))
	for uri, labels := range d.byURI {
		set := make(map[string]bool, len(labels))
		for _, l := range labels {
			set[l] = true
		}
		survivors[uri] = set
	}
	for _, item := range old.collect(nil) {
		if set, ok := survivors[item.URI]; ok && set[item.Label] {
			fresh.insert(item.Label, item)
		}
	}
	d.dynamic = fresh
}

// Query enumerates candidates matching the prefix across both parts,
// deduplicated by (label, uri), sorted by label then uri.
func (d *Dictionary) Query(prefix string, limit int) []Item {
	var out []Item
	if node := d.static.descend(prefix); node != nil {
		out = node.collect(out)
	}

	d.mu.RLock()
	if node := d.dynamic.descend(prefix); node != nil {
		out = node.collect(out)
	}
	d.mu.RUnlock()

	seen := make(map[string]bool, len(out))
	deduped := out[:0]
	for _, item := range out {
		key := item.Label + "\x00" + item.URI
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, item)
	}
	sort.Slice(deduped, func(i, j int) bool {
		if deduped[i].Label != deduped[j].Label {
			return deduped[i].Label < deduped[j].Label
		}
		return deduped[i].URI < deduped[j].URI
	})
	if limit > 0 && len(deduped) > limit {
		deduped = deduped[:limit]
	}
	return deduped
}

// Len returns the number of dynamic items.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.dynamic.collect(nil))
}

// persistedDictionary is the gob payload: only the dynamic part.
type persistedDictionary struct {
	Items []Item
}

// SaveToFile persists the dynamic dictionary inside the standard envelope.
func (d *Dictionary) SaveToFile(dir string) error {
	d.mu.RLock()
	payload := persistedDictionary{Items: d.dynamic.collect(nil)}
	d.mu.RUnlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(payload); err != nil {
		return err
	}
	path := filepath.Join(dir, dictionaryFile)
	if err := cache.AtomicWriteFile(path, cache.WriteEnvelope(buf.Bytes())); err != nil {
		return lserrors.NewFileError("write", path, err)
	}
	debug.LogIndexing("persisted %d completion items\n", len(payload.Items))
	return nil
}

// LoadFromFile restores the dynamic dictionary. Missing files are a clean
// cold start; corrupt ones are discarded.
func (d *Dictionary) LoadFromFile(dir string) error {
	path := filepath.Join(dir, dictionaryFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return lserrors.NewFileError("read", path, err)
	}
	payload, err := cache.ReadEnvelope(path, data)
	if err != nil {
		return err
	}

	var persisted persistedDictionary
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&persisted); err != nil {
		return lserrors.NewCacheCorruptionError(path, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.dynamic = newTrieNode()
	d.byURI = make(map[string][]string)
	for _, item := range persisted.Items {
		d.dynamic.insert(item.Label, item)
		d.byURI[item.URI] = append(d.byURI[item.URI], item.Label)
	}
	return nil
}
