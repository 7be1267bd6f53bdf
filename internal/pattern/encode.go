// Package pattern implements the canonical byte encoding of contract
// patterns and call-site values, and the trie index over those encodings
// that drives pattern-aware symbol resolution.
//
// The byte format is stable across releases unless the on-disk cache
// version bumps:
//
//	compound:  ArityTag, uvarint(n), head, child1 … childn
//	symbol:    SymbolTag, uvarint(len), raw bytes
//	variable:  NewVarTag for the first occurrence,
//	           VarRefTag, uvarint(i) for later occurrences (de Bruijn)
//	ground:    GroundTag, kind byte, payload
//
// Variable identity is positional: names never reach the encoding, so
// structurally equal patterns produce equal bytes regardless of how their
// formals are spelled.
package pattern

import (
	"encoding/binary"
	"math"

	lserrors "github.com/f1r3fly-io/rholang-language-server/internal/errors"
	"github.com/f1r3fly-io/rholang-language-server/internal/ir"
)

// Tag bytes of the canonical encoding.
const (
	TagArity  byte = 0x01
	TagSymbol byte = 0x02
	TagNewVar byte = 0x03
	TagVarRef byte = 0x04
	TagGround byte = 0x05
)

// Ground payload kinds.
const (
	GroundKindInt byte = iota
	GroundKindFloat
	GroundKindBool
	GroundKindString
	GroundKindBytes
	GroundKindNil
)

// encoder accumulates bytes for one pattern or value. vars maps a variable
// name to its de Bruijn index within the pattern being encoded; nil when
// encoding a value.
type encoder struct {
	buf     []byte
	vars    map[string]int
	pattern bool
}

// EncodePattern converts a pattern (a contract formal, a match arm) to its
// canonical byte form. Variables are admitted and numbered positionally.
func EncodePattern(n ir.SemanticNode) ([]byte, error) {
	e := &encoder{vars: make(map[string]int), pattern: true}
	if err := e.encode(n); err != nil {
		return nil, err
	}
	return e.buf, nil
}

// EncodeValue converts a ground value (a call-site argument) to its
// canonical byte form. Any variable is a VariableInValue error.
func EncodeValue(n ir.SemanticNode) ([]byte, error) {
	e := &encoder{pattern: false}
	if err := e.encode(n); err != nil {
		return nil, err
	}
	return e.buf, nil
}

func (e *encoder) encode(n ir.SemanticNode) error {
	if n == nil {
		return lserrors.NewEncodeError(lserrors.EncodeUnsupportedNode, "nil")
	}
	switch v := n.(type) {
	case *ir.Var:
		return e.variable(v.Name, n.TypeName())
	case *ir.Wildcard:
		// Each wildcard is a fresh variable; it can never be referred back to.
		return e.variable("", n.TypeName())
	case *ir.MVar:
		return e.variable(v.Name, n.TypeName())
	case *ir.Quote:
		// Patterns conflate names and processes: @P encodes as P.
		return e.encode(v.Proc)
	case *ir.Eval:
		return e.encode(v.Name)
	case *ir.Ground:
		e.ground(v)
		return nil
	case *ir.MAtom:
		e.symbol(v.Name)
		return nil
	case *ir.MGround:
		e.mettaGround(v)
		return nil
	case *ir.Collection:
		e.arity(len(v.Elems) + 1)
		e.symbol(v.Kind.String())
		for _, c := range v.Elems {
			if err := e.encode(c); err != nil {
				return err
			}
		}
		return nil
	case *ir.KeyValue:
		e.arity(3)
		e.symbol("KeyValue")
		if err := e.encode(v.Key); err != nil {
			return err
		}
		return e.encode(v.Value)
	case *ir.MSExpr:
		e.arity(len(v.Elems))
		for _, c := range v.Elems {
			if err := e.encode(c); err != nil {
				return err
			}
		}
		return nil
	case *ir.Send:
		e.arity(len(v.Args) + 2)
		e.symbol("Send")
		if err := e.encode(v.Channel); err != nil {
			return err
		}
		for _, c := range v.Args {
			if err := e.encode(c); err != nil {
				return err
			}
		}
		return nil
	case *ir.BinOp:
		e.arity(3)
		e.symbol(v.Op)
		if err := e.encode(v.Left); err != nil {
			return err
		}
		return e.encode(v.Right)
	default:
		return lserrors.NewEncodeError(lserrors.EncodeUnsupportedNode, n.TypeName())
	}
}

func (e *encoder) variable(name, nodeType string) error {
	if !e.pattern {
		return lserrors.NewEncodeError(lserrors.EncodeVariableInValue, nodeType)
	}
	if name != "" {
		if idx, seen := e.vars[name]; seen {
			e.buf = append(e.buf, TagVarRef)
			e.buf = binary.AppendUvarint(e.buf, uint64(idx))
			return nil
		}
		e.vars[name] = len(e.vars)
	}
	e.buf = append(e.buf, TagNewVar)
	return nil
}

func (e *encoder) arity(n int) {
	e.buf = append(e.buf, TagArity)
	e.buf = binary.AppendUvarint(e.buf, uint64(n))
}

func (e *encoder) symbol(s string) {
	e.buf = append(e.buf, TagSymbol)
	e.buf = binary.AppendUvarint(e.buf, uint64(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *encoder) ground(g *ir.Ground) {
	e.buf = append(e.buf, TagGround)
	switch g.Kind {
	case ir.GroundInt:
		e.buf = append(e.buf, GroundKindInt)
		e.buf = binary.AppendVarint(e.buf, g.IntVal)
	case ir.GroundFloat:
		e.buf = append(e.buf, GroundKindFloat)
		e.buf = binary.AppendUvarint(e.buf, uint64(len(g.StrVal)))
		e.buf = append(e.buf, g.StrVal...)
	case ir.GroundBool:
		e.buf = append(e.buf, GroundKindBool)
		if g.BoolVal {
			e.buf = append(e.buf, 1)
		} else {
			e.buf = append(e.buf, 0)
		}
	case ir.GroundString:
		e.buf = append(e.buf, GroundKindString)
		e.buf = binary.AppendUvarint(e.buf, uint64(len(g.StrVal)))
		e.buf = append(e.buf, g.StrVal...)
	case ir.GroundURI:
		e.buf = append(e.buf, GroundKindBytes)
		e.buf = binary.AppendUvarint(e.buf, uint64(len(g.StrVal)))
		e.buf = append(e.buf, g.StrVal...)
	case ir.GroundNil:
		e.buf = append(e.buf, GroundKindNil)
	}
}

func (e *encoder) mettaGround(g *ir.MGround) {
	e.buf = append(e.buf, TagGround)
	switch g.Kind {
	case ir.MGroundInt:
		e.buf = append(e.buf, GroundKindInt)
		e.buf = binary.AppendVarint(e.buf, parseIntText(g.Text))
	case ir.MGroundFloat:
		e.buf = append(e.buf, GroundKindFloat)
		e.buf = binary.AppendUvarint(e.buf, uint64(len(g.Text)))
		e.buf = append(e.buf, g.Text...)
	case ir.MGroundString:
		e.buf = append(e.buf, GroundKindString)
		e.buf = binary.AppendUvarint(e.buf, uint64(len(g.Text)))
		e.buf = append(e.buf, g.Text...)
	}
}

func parseIntText(s string) int64 {
	var v int64
	neg := false
	for i, c := range s {
		if i == 0 && c == '-' {
			neg = true
			continue
		}
		if c < '0' || c > '9' {
			return 0
		}
		if v > (math.MaxInt64-int64(c-'0'))/10 {
			return 0
		}
		v = v*10 + int64(c-'0')
	}
	if neg {
		return -v
	}
	return v
}

// DecodeValue materializes the IR value a canonical encoding denotes.
// Defined for ground values only; pattern variable tags fail.
func DecodeValue(b []byte) (ir.SemanticNode, error) {
	n, rest, err := decodeTerm(b)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, lserrors.NewCacheCorruptionError("value", errTrailing)
	}
	return n, nil
}

var errTrailing = errorString("trailing bytes after value")

type errorString string

func (e errorString) Error() string { return string(e) }

func decodeTerm(b []byte) (ir.SemanticNode, []byte, error) {
	if len(b) == 0 {
		return nil, nil, errorString("empty encoding")
	}
	switch b[0] {
	case TagGround:
		return decodeGround(b[1:])
	case TagSymbol:
		s, rest, err := readSized(b[1:])
		if err != nil {
			return nil, nil, err
		}
		return &ir.MAtom{Name: string(s)}, rest, nil
	case TagArity:
		n, size := binary.Uvarint(b[1:])
		if size <= 0 {
			return nil, nil, errorString("bad arity")
		}
		rest := b[1+size:]
		elems := make([]ir.SemanticNode, 0, n)
		for i := uint64(0); i < n; i++ {
			var (
				c   ir.SemanticNode
				err error
			)
			c, rest, err = decodeTerm(rest)
			if err != nil {
				return nil, nil, err
			}
			elems = append(elems, c)
		}
		return &ir.MSExpr{Elems: elems}, rest, nil
	case TagNewVar, TagVarRef:
		return nil, nil, lserrors.NewEncodeError(lserrors.EncodeVariableInValue, "encoded variable")
	default:
		return nil, nil, errorString("unknown tag")
	}
}

func decodeGround(b []byte) (ir.SemanticNode, []byte, error) {
	if len(b) == 0 {
		return nil, nil, errorString("truncated ground")
	}
	kind, b := b[0], b[1:]
	switch kind {
	case GroundKindInt:
		v, size := binary.Varint(b)
		if size <= 0 {
			return nil, nil, errorString("bad int")
		}
		return &ir.Ground{Kind: ir.GroundInt, IntVal: v}, b[size:], nil
	case GroundKindFloat:
		s, rest, err := readSized(b)
		if err != nil {
			return nil, nil, err
		}
		return &ir.Ground{Kind: ir.GroundFloat, StrVal: string(s)}, rest, nil
	case GroundKindBool:
		if len(b) == 0 {
			return nil, nil, errorString("bad bool")
		}
		return &ir.Ground{Kind: ir.GroundBool, BoolVal: b[0] == 1}, b[1:], nil
	case GroundKindString:
		s, rest, err := readSized(b)
		if err != nil {
			return nil, nil, err
		}
		return &ir.Ground{Kind: ir.GroundString, StrVal: string(s)}, rest, nil
	case GroundKindBytes:
		s, rest, err := readSized(b)
		if err != nil {
			return nil, nil, err
		}
		return &ir.Ground{Kind: ir.GroundURI, StrVal: string(s)}, rest, nil
	case GroundKindNil:
		return &ir.Ground{Kind: ir.GroundNil}, b, nil
	default:
		return nil, nil, errorString("unknown ground kind")
	}
}

func readSized(b []byte) ([]byte, []byte, error) {
	n, size := binary.Uvarint(b)
	if size <= 0 || uint64(len(b)-size) < n {
		return nil, nil, errorString("truncated payload")
	}
	return b[size : size+int(n)], b[size+int(n):], nil
}

// SkipTerm returns the byte length of the single complete term at the head
// of b, or ok=false if b is malformed. The trie's unification walk uses it
// to consume whole subterms.
func SkipTerm(b []byte) (int, bool) {
	if len(b) == 0 {
		return 0, false
	}
	switch b[0] {
	case TagNewVar:
		return 1, true
	case TagVarRef:
		_, size := binary.Uvarint(b[1:])
		if size <= 0 {
			return 0, false
		}
		return 1 + size, true
	case TagSymbol:
		n, size := binary.Uvarint(b[1:])
		if size <= 0 || uint64(len(b)-1-size) < n {
			return 0, false
		}
		return 1 + size + int(n), true
	case TagArity:
		n, size := binary.Uvarint(b[1:])
		if size <= 0 {
			return 0, false
		}
		total := 1 + size
		for i := uint64(0); i < n; i++ {
			l, ok := SkipTerm(b[total:])
			if !ok {
				return 0, false
			}
			total += l
		}
		return total, true
	case TagGround:
		if len(b) < 2 {
			return 0, false
		}
		switch b[1] {
		case GroundKindInt:
			_, size := binary.Varint(b[2:])
			if size <= 0 {
				return 0, false
			}
			return 2 + size, true
		case GroundKindBool:
			if len(b) < 3 {
				return 0, false
			}
			return 3, true
		case GroundKindNil:
			return 2, true
		case GroundKindFloat, GroundKindString, GroundKindBytes:
			n, size := binary.Uvarint(b[2:])
			if size <= 0 || uint64(len(b)-2-size) < n {
				return 0, false
			}
			return 2 + size + int(n), true
		default:
			return 0, false
		}
	default:
		return 0, false
	}
}
