package pattern

import (
	"encoding/binary"
	"sync"

	"github.com/f1r3fly-io/rholang-language-server/internal/ir"
)

// Namespaces partition the trie by definition kind so a name's canonical
// prefix is unique to its kind. Restricting by namespace is equivalent to
// filtering the full index.
const (
	NamespaceContract   = "contract"
	NamespaceDefinition = "definition"
)

// Interner caches the canonical byte form of symbols. Encoding the same
// identifier across thousands of call sites reuses one allocation.
type Interner struct {
	mu sync.RWMutex
	m  map[string][]byte
}

// NewInterner creates an empty interner.
func NewInterner() *Interner {
	return &Interner{m: make(map[string][]byte)}
}

// SymbolBytes returns the canonical token for a symbol: SymbolTag,
// uvarint(len), raw bytes. The returned slice is shared; callers must not
// modify it.
func (in *Interner) SymbolBytes(s string) []byte {
	in.mu.RLock()
	b, ok := in.m[s]
	in.mu.RUnlock()
	if ok {
		return b
	}

	b = append(b, TagSymbol)
	b = binary.AppendUvarint(b, uint64(len(s)))
	b = append(b, s...)

	in.mu.Lock()
	if existing, ok := in.m[s]; ok {
		b = existing
	} else {
		in.m[s] = b
	}
	in.mu.Unlock()
	return b
}

// defaultInterner serves the key builders; one per process is enough since
// the canonical form of a symbol never varies.
var defaultInterner = NewInterner()

// KeyForNamespace builds a trie key: namespace symbol, name symbol, arity
// header, then the already-encoded parameters.
func KeyForNamespace(ns, name string, params [][]byte) []byte {
	key := append([]byte(nil), defaultInterner.SymbolBytes(ns)...)
	key = append(key, defaultInterner.SymbolBytes(name)...)
	key = append(key, TagArity)
	key = binary.AppendUvarint(key, uint64(len(params)))
	for _, p := range params {
		key = append(key, p...)
	}
	return key
}

// NamePrefix builds the restriction prefix for a namespace and head name.
func NamePrefix(ns, name string) []byte {
	prefix := append([]byte(nil), defaultInterner.SymbolBytes(ns)...)
	return append(prefix, defaultInterner.SymbolBytes(name)...)
}

// NamespacePrefix builds the restriction prefix for a whole namespace.
func NamespacePrefix(ns string) []byte {
	return append([]byte(nil), defaultInterner.SymbolBytes(ns)...)
}

// ContractKey encodes a contract definition's trie key from its formal
// parameter patterns.
func ContractKey(name string, formals []ir.SemanticNode) ([]byte, [][]byte, error) {
	// One encoder spans all formals, so a variable repeated across formals
	// (contract eq(@x, @x)) encodes as a back-reference.
	e := &encoder{vars: make(map[string]int), pattern: true}
	params := make([][]byte, 0, len(formals))
	for _, f := range formals {
		e.buf = nil
		if err := e.encode(f); err != nil {
			return nil, nil, err
		}
		params = append(params, e.buf)
	}
	return KeyForNamespace(NamespaceContract, name, params), params, nil
}

// CallKey encodes a call site's trie query from its ground argument values.
func CallKey(name string, args []ir.SemanticNode) ([]byte, error) {
	params := make([][]byte, 0, len(args))
	for _, a := range args {
		v, err := EncodeValue(a)
		if err != nil {
			return nil, err
		}
		params = append(params, v)
	}
	return KeyForNamespace(NamespaceContract, name, params), nil
}

// DefinitionKey encodes a MeTTa definition's trie key from its head
// argument patterns.
func DefinitionKey(name string, args []ir.SemanticNode) ([]byte, [][]byte, error) {
	params := make([][]byte, 0, len(args))
	for _, a := range args {
		p, err := EncodePattern(a)
		if err != nil {
			return nil, nil, err
		}
		params = append(params, p)
	}
	return KeyForNamespace(NamespaceDefinition, name, params), params, nil
}
