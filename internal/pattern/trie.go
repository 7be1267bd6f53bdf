package pattern

import (
	"bytes"
	"encoding/binary"
	"sort"
	"sync"

	"github.com/f1r3fly-io/rholang-language-server/internal/ir"
	"github.com/f1r3fly-io/rholang-language-server/internal/position"
)

// Metadata describes one contract or definition stored in the trie. The
// index never stores the original IR; the canonical bytes are the key and
// the formals are kept in their canonical form too.
type Metadata struct {
	Name          string
	Arity         int
	ParamPatterns [][]byte
	ParamNames    []string
	Location      position.Location
	Language      ir.Language
}

// node is one trie vertex keyed by a single byte of the canonical path.
type node struct {
	children map[byte]*node
	entries  []Metadata
}

func newNode() *node {
	return &node{}
}

func (n *node) child(b byte, create bool) *node {
	if n.children == nil {
		if !create {
			return nil
		}
		n.children = make(map[byte]*node)
	}
	c, ok := n.children[b]
	if !ok {
		if !create {
			return nil
		}
		c = newNode()
		n.children[b] = c
	}
	return c
}

// Match is one enumerated trie entry.
type Match struct {
	Key  []byte
	Meta Metadata
}

// UnifyMatch is one entry whose stored key unified with a query value,
// together with the values bound to the key's pattern variables in de
// Bruijn order.
type UnifyMatch struct {
	Key      []byte
	Meta     Metadata
	Bindings [][]byte
}

// Trie is the path-addressable index over canonical pattern bytes. Build it
// from the re-indexer, then share it immutably: lookups take no lock. The
// restriction cache is internally synchronized so concurrent readers may
// restrict the same prefix.
type Trie struct {
	root  *node
	size  int
	cache sync.Map // string(prefix) -> *Subtrie
}

// NewTrie creates an empty trie.
func NewTrie() *Trie {
	return &Trie{root: newNode()}
}

// Len returns the number of stored entries.
func (t *Trie) Len() int {
	return t.size
}

// Insert stores metadata under the canonical key bytes. Multiple entries
// may share a key (identical signatures in different documents).
func (t *Trie) Insert(key []byte, meta Metadata) {
	n := t.root
	for _, b := range key {
		n = n.child(b, true)
	}
	n.entries = append(n.entries, meta)
	t.size++
}

// Restrict produces the subtrie rooted at prefix in O(len(prefix)). The
// view is cached: repeated restrictions of the same prefix return the same
// view, so enumeration cost is paid per distinct prefix, not per query.
func (t *Trie) Restrict(prefix []byte) *Subtrie {
	if cached, ok := t.cache.Load(string(prefix)); ok {
		return cached.(*Subtrie)
	}
	n := t.root
	for _, b := range prefix {
		if n = n.child(b, false); n == nil {
			break
		}
	}
	view := &Subtrie{prefix: append([]byte(nil), prefix...), root: n}
	actual, _ := t.cache.LoadOrStore(string(prefix), view)
	return actual.(*Subtrie)
}

// Query enumerates every entry whose key starts with the given bytes.
func (t *Trie) Query(key []byte) []Match {
	return t.Restrict(key).All()
}

// UnifyQuery enumerates entries whose stored key unifies with the query
// value under the de Bruijn encoding, producing variable bindings.
func (t *Trie) UnifyQuery(query []byte) []UnifyMatch {
	return (&Subtrie{root: t.root}).UnifyQuery(query)
}

// Subtrie is a lazy view over the part of a trie below a prefix.
type Subtrie struct {
	prefix []byte
	root   *node

	once sync.Once
	all  []Match
}

// Empty reports whether the view contains no entries.
func (s *Subtrie) Empty() bool {
	return s.root == nil || len(s.All()) == 0
}

// All enumerates the view's entries in deterministic byte order. The
// enumeration is computed once and reused: O(m) after the first call.
func (s *Subtrie) All() []Match {
	s.once.Do(func() {
		if s.root == nil {
			return
		}
		key := append([]byte(nil), s.prefix...)
		s.all = collect(s.root, key, s.all)
	})
	return s.all
}

// UnifyQuery unifies the query value against each key in the view. The
// query must share the view's prefix for bindings to be meaningful; the
// prefix bytes participate in unification like any others.
func (s *Subtrie) UnifyQuery(query []byte) []UnifyMatch {
	var out []UnifyMatch
	for _, m := range s.All() {
		if bindings, ok := Unify(m.Key, query); ok {
			out = append(out, UnifyMatch{Key: m.Key, Meta: m.Meta, Bindings: bindings})
		}
	}
	return out
}

func collect(n *node, key []byte, acc []Match) []Match {
	for _, meta := range n.entries {
		acc = append(acc, Match{Key: append([]byte(nil), key...), Meta: meta})
	}
	if n.children == nil {
		return acc
	}
	bs := make([]int, 0, len(n.children))
	for b := range n.children {
		bs = append(bs, int(b))
	}
	sort.Ints(bs)
	for _, b := range bs {
		acc = collect(n.children[byte(b)], append(key, byte(b)), acc)
	}
	return acc
}

// Unify matches a stored pattern key against a ground query value. Stored
// NewVar tags bind the next complete query term; VarRef tags require the
// referenced binding to recur byte-identically. All other bytes must match
// exactly. Returns the bindings in de Bruijn order.
func Unify(stored, query []byte) ([][]byte, bool) {
	var bindings [][]byte
	si, qi := 0, 0
	for si < len(stored) {
		if qi >= len(query) {
			return nil, false
		}
		switch stored[si] {
		case TagNewVar:
			l, ok := SkipTerm(query[qi:])
			if !ok {
				return nil, false
			}
			bindings = append(bindings, query[qi:qi+l])
			si++
			qi += l
		case TagVarRef:
			idx, size := binary.Uvarint(stored[si+1:])
			if size <= 0 || int(idx) >= len(bindings) {
				return nil, false
			}
			l, ok := SkipTerm(query[qi:])
			if !ok || !bytes.Equal(bindings[idx], query[qi:qi+l]) {
				return nil, false
			}
			si += 1 + size
			qi += l
		default:
			l, ok := tokenLen(stored[si:])
			if !ok || qi+l > len(query) || !bytes.Equal(stored[si:si+l], query[qi:qi+l]) {
				return nil, false
			}
			si += l
			qi += l
		}
	}
	return bindings, si == len(stored) && qi == len(query)
}

// tokenLen returns the length of a single token header: an arity header, a
// complete symbol, or a complete ground. Children of an arity token are
// separate tokens.
func tokenLen(b []byte) (int, bool) {
	if len(b) == 0 {
		return 0, false
	}
	switch b[0] {
	case TagArity:
		_, size := binary.Uvarint(b[1:])
		if size <= 0 {
			return 0, false
		}
		return 1 + size, true
	case TagSymbol, TagGround:
		return SkipTerm(b)
	default:
		return 0, false
	}
}
