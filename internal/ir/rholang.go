package ir

import "strconv"

// Rholang process nodes. Every node embeds NodeBase and is immutable after
// construction; trees are shared by pointer between the cache, the resolver
// and in-flight queries.

// Par is parallel composition of processes.
type Par struct {
	NodeBase
	Procs []SemanticNode
}

func (p *Par) Base() *NodeBase             { return &p.NodeBase }
func (p *Par) Category() SemanticCategory  { return CategoryBlock }
func (p *Par) TypeName() string            { return "Par" }
func (p *Par) ChildrenCount() int          { return len(p.Procs) }
func (p *Par) ChildAt(i int) SemanticNode  { return p.Procs[i] }

// Send is a message send: channel!(args) or channel!!(args) for persistent
// sends.
type Send struct {
	NodeBase
	Channel    SemanticNode
	Args       []SemanticNode
	Persistent bool
}

func (s *Send) Base() *NodeBase            { return &s.NodeBase }
func (s *Send) Category() SemanticCategory { return CategoryInvocation }
func (s *Send) TypeName() string           { return "Send" }
func (s *Send) ChildrenCount() int         { return 1 + len(s.Args) }
func (s *Send) ChildAt(i int) SemanticNode {
	if i == 0 {
		return s.Channel
	}
	return s.Args[i-1]
}

// ReceiveBind is one "patterns <- channel" binder inside a for
// comprehension.
type ReceiveBind struct {
	NodeBase
	Patterns []SemanticNode
	Channel  SemanticNode
}

func (r *ReceiveBind) Base() *NodeBase            { return &r.NodeBase }
func (r *ReceiveBind) Category() SemanticCategory { return CategoryBinding }
func (r *ReceiveBind) TypeName() string           { return "ReceiveBind" }
func (r *ReceiveBind) ChildrenCount() int         { return len(r.Patterns) + 1 }
func (r *ReceiveBind) ChildAt(i int) SemanticNode {
	if i < len(r.Patterns) {
		return r.Patterns[i]
	}
	return r.Channel
}

// Receive is a for comprehension: for (binds) { body }. Persistent receives
// use <= instead of <-.
type Receive struct {
	NodeBase
	Binds      []SemanticNode // *ReceiveBind
	Body       SemanticNode
	Persistent bool
}

func (r *Receive) Base() *NodeBase            { return &r.NodeBase }
func (r *Receive) Category() SemanticCategory { return CategoryBinding }
func (r *Receive) TypeName() string           { return "Receive" }
func (r *Receive) ChildrenCount() int         { return len(r.Binds) + 1 }
func (r *Receive) ChildAt(i int) SemanticNode {
	if i < len(r.Binds) {
		return r.Binds[i]
	}
	return r.Body
}

// Contract is a contract definition: contract name(formals) = { body }.
type Contract struct {
	NodeBase
	Name    SemanticNode // *Var or *Quote
	Formals []SemanticNode
	Body    SemanticNode
}

func (c *Contract) Base() *NodeBase            { return &c.NodeBase }
func (c *Contract) Category() SemanticCategory { return CategoryBinding }
func (c *Contract) TypeName() string           { return "Contract" }
func (c *Contract) ChildrenCount() int         { return 2 + len(c.Formals) }
func (c *Contract) ChildAt(i int) SemanticNode {
	switch {
	case i == 0:
		return c.Name
	case i <= len(c.Formals):
		return c.Formals[i-1]
	default:
		return c.Body
	}
}

// NameDecl is a single name introduced by new, optionally bound to a URI:
// new stdout(`rho:io:stdout`) in ...
type NameDecl struct {
	NodeBase
	Name string
	URI  string // empty unless the name is URI-bound
}

func (n *NameDecl) Base() *NodeBase            { return &n.NodeBase }
func (n *NameDecl) Category() SemanticCategory { return CategoryVariable }
func (n *NameDecl) TypeName() string           { return "NameDecl" }
func (n *NameDecl) ChildrenCount() int         { return 0 }
func (n *NameDecl) ChildAt(i int) SemanticNode { return nil }
func (n *NameDecl) Label() string              { return n.Name }

// New introduces fresh unforgeable names: new x, y in { body }.
type New struct {
	NodeBase
	Decls []SemanticNode // *NameDecl
	Body  SemanticNode
}

func (n *New) Base() *NodeBase            { return &n.NodeBase }
func (n *New) Category() SemanticCategory { return CategoryBinding }
func (n *New) TypeName() string           { return "New" }
func (n *New) ChildrenCount() int         { return len(n.Decls) + 1 }
func (n *New) ChildAt(i int) SemanticNode {
	if i < len(n.Decls) {
		return n.Decls[i]
	}
	return n.Body
}

// MatchCase is one pattern => body arm of a match.
type MatchCase struct {
	NodeBase
	Pattern SemanticNode
	Body    SemanticNode
}

func (m *MatchCase) Base() *NodeBase            { return &m.NodeBase }
func (m *MatchCase) Category() SemanticCategory { return CategoryMatch }
func (m *MatchCase) TypeName() string           { return "MatchCase" }
func (m *MatchCase) ChildrenCount() int         { return 2 }
func (m *MatchCase) ChildAt(i int) SemanticNode {
	if i == 0 {
		return m.Pattern
	}
	return m.Body
}

// Match is pattern matching: match target { cases }.
type Match struct {
	NodeBase
	Target SemanticNode
	Cases  []SemanticNode // *MatchCase
}

func (m *Match) Base() *NodeBase            { return &m.NodeBase }
func (m *Match) Category() SemanticCategory { return CategoryMatch }
func (m *Match) TypeName() string           { return "Match" }
func (m *Match) ChildrenCount() int         { return 1 + len(m.Cases) }
func (m *Match) ChildAt(i int) SemanticNode {
	if i == 0 {
		return m.Target
	}
	return m.Cases[i-1]
}

// IfElse is a conditional; Else may be nil.
type IfElse struct {
	NodeBase
	Cond SemanticNode
	Then SemanticNode
	Else SemanticNode
}

func (f *IfElse) Base() *NodeBase            { return &f.NodeBase }
func (f *IfElse) Category() SemanticCategory { return CategoryConditional }
func (f *IfElse) TypeName() string           { return "IfElse" }
func (f *IfElse) ChildrenCount() int {
	if f.Else == nil {
		return 2
	}
	return 3
}
func (f *IfElse) ChildAt(i int) SemanticNode {
	switch i {
	case 0:
		return f.Cond
	case 1:
		return f.Then
	default:
		return f.Else
	}
}

// LetBind is one name = value binder of a let.
type LetBind struct {
	NodeBase
	Name  string
	Value SemanticNode
}

func (l *LetBind) Base() *NodeBase            { return &l.NodeBase }
func (l *LetBind) Category() SemanticCategory { return CategoryBinding }
func (l *LetBind) TypeName() string           { return "LetBind" }
func (l *LetBind) ChildrenCount() int         { return 1 }
func (l *LetBind) ChildAt(i int) SemanticNode { return l.Value }
func (l *LetBind) Label() string              { return l.Name }

// Let is let x = v in { body }.
type Let struct {
	NodeBase
	Binds []SemanticNode // *LetBind
	Body  SemanticNode
}

func (l *Let) Base() *NodeBase            { return &l.NodeBase }
func (l *Let) Category() SemanticCategory { return CategoryBinding }
func (l *Let) TypeName() string           { return "Let" }
func (l *Let) ChildrenCount() int         { return len(l.Binds) + 1 }
func (l *Let) ChildAt(i int) SemanticNode {
	if i < len(l.Binds) {
		return l.Binds[i]
	}
	return l.Body
}

// Var is a variable or name reference.
type Var struct {
	NodeBase
	Name string
}

func (v *Var) Base() *NodeBase            { return &v.NodeBase }
func (v *Var) Category() SemanticCategory { return CategoryVariable }
func (v *Var) TypeName() string           { return "Var" }
func (v *Var) ChildrenCount() int         { return 0 }
func (v *Var) ChildAt(i int) SemanticNode { return nil }
func (v *Var) Label() string              { return v.Name }

// Wildcard is the _ pattern.
type Wildcard struct {
	NodeBase
}

func (w *Wildcard) Base() *NodeBase            { return &w.NodeBase }
func (w *Wildcard) Category() SemanticCategory { return CategoryVariable }
func (w *Wildcard) TypeName() string           { return "Wildcard" }
func (w *Wildcard) ChildrenCount() int         { return 0 }
func (w *Wildcard) ChildAt(i int) SemanticNode { return nil }

// Quote lifts a process to a name: @P.
type Quote struct {
	NodeBase
	Proc SemanticNode
}

func (q *Quote) Base() *NodeBase            { return &q.NodeBase }
func (q *Quote) Category() SemanticCategory { return CategoryLanguageSpecific }
func (q *Quote) TypeName() string           { return "Quote" }
func (q *Quote) ChildrenCount() int         { return 1 }
func (q *Quote) ChildAt(i int) SemanticNode { return q.Proc }

// Eval drops a name back to a process: *x.
type Eval struct {
	NodeBase
	Name SemanticNode
}

func (e *Eval) Base() *NodeBase            { return &e.NodeBase }
func (e *Eval) Category() SemanticCategory { return CategoryLanguageSpecific }
func (e *Eval) TypeName() string           { return "Eval" }
func (e *Eval) ChildrenCount() int         { return 1 }
func (e *Eval) ChildAt(i int) SemanticNode { return e.Name }

// GroundKind enumerates Rholang ground literal kinds.
type GroundKind uint8

const (
	GroundInt GroundKind = iota
	GroundFloat
	GroundBool
	GroundString
	GroundURI
	GroundNil
)

// String returns a string representation of the ground kind
func (k GroundKind) String() string {
	switch k {
	case GroundInt:
		return "Int"
	case GroundFloat:
		return "Float"
	case GroundBool:
		return "Bool"
	case GroundString:
		return "String"
	case GroundURI:
		return "Uri"
	case GroundNil:
		return "Nil"
	default:
		return "Unknown"
	}
}

// Ground is a ground literal: integers, booleans, strings, URIs and Nil.
type Ground struct {
	NodeBase
	Kind    GroundKind
	IntVal  int64
	BoolVal bool
	StrVal  string // string and URI content, float text
}

func (g *Ground) Base() *NodeBase            { return &g.NodeBase }
func (g *Ground) Category() SemanticCategory { return CategoryLiteral }
func (g *Ground) TypeName() string           { return "Ground" + g.Kind.String() }
func (g *Ground) ChildrenCount() int         { return 0 }
func (g *Ground) ChildAt(i int) SemanticNode { return nil }

// Label returns the literal's canonical text form.
func (g *Ground) Label() string {
	switch g.Kind {
	case GroundInt:
		return strconv.FormatInt(g.IntVal, 10)
	case GroundBool:
		return strconv.FormatBool(g.BoolVal)
	case GroundNil:
		return "Nil"
	default:
		return g.StrVal
	}
}

// CollKind enumerates Rholang collection kinds.
type CollKind uint8

const (
	CollList CollKind = iota
	CollTuple
	CollSet
	CollMap
)

// String returns a string representation of the collection kind
func (k CollKind) String() string {
	switch k {
	case CollList:
		return "List"
	case CollTuple:
		return "Tuple"
	case CollSet:
		return "Set"
	case CollMap:
		return "Map"
	default:
		return "Unknown"
	}
}

// KeyValue is one key: value pair inside a map literal.
type KeyValue struct {
	NodeBase
	Key   SemanticNode
	Value SemanticNode
}

func (kv *KeyValue) Base() *NodeBase            { return &kv.NodeBase }
func (kv *KeyValue) Category() SemanticCategory { return CategoryCollection }
func (kv *KeyValue) TypeName() string           { return "KeyValue" }
func (kv *KeyValue) ChildrenCount() int         { return 2 }
func (kv *KeyValue) ChildAt(i int) SemanticNode {
	if i == 0 {
		return kv.Key
	}
	return kv.Value
}

// Collection is a list, tuple, set or map literal.
type Collection struct {
	NodeBase
	Kind  CollKind
	Elems []SemanticNode // KeyValue nodes for maps
}

func (c *Collection) Base() *NodeBase            { return &c.NodeBase }
func (c *Collection) Category() SemanticCategory { return CategoryCollection }
func (c *Collection) TypeName() string           { return c.Kind.String() }
func (c *Collection) ChildrenCount() int         { return len(c.Elems) }
func (c *Collection) ChildAt(i int) SemanticNode { return c.Elems[i] }

// Bundle restricts a name's read/write capabilities: bundle+ { P }.
type Bundle struct {
	NodeBase
	Proc      SemanticNode
	ReadOnly  bool
	WriteOnly bool
}

func (b *Bundle) Base() *NodeBase            { return &b.NodeBase }
func (b *Bundle) Category() SemanticCategory { return CategoryLanguageSpecific }
func (b *Bundle) TypeName() string           { return "Bundle" }
func (b *Bundle) ChildrenCount() int         { return 1 }
func (b *Bundle) ChildAt(i int) SemanticNode { return b.Proc }

// BinOp is an arithmetic, logical or comparison operator application.
type BinOp struct {
	NodeBase
	Op    string
	Left  SemanticNode
	Right SemanticNode
}

func (b *BinOp) Base() *NodeBase            { return &b.NodeBase }
func (b *BinOp) Category() SemanticCategory { return CategoryInvocation }
func (b *BinOp) TypeName() string           { return "BinOp" }
func (b *BinOp) ChildrenCount() int         { return 2 }
func (b *BinOp) ChildAt(i int) SemanticNode {
	if i == 0 {
		return b.Left
	}
	return b.Right
}
func (b *BinOp) Label() string { return b.Op }

// MethodCall is receiver.method(args).
type MethodCall struct {
	NodeBase
	Receiver SemanticNode
	Method   string
	Args     []SemanticNode
}

func (m *MethodCall) Base() *NodeBase            { return &m.NodeBase }
func (m *MethodCall) Category() SemanticCategory { return CategoryInvocation }
func (m *MethodCall) TypeName() string           { return "MethodCall" }
func (m *MethodCall) ChildrenCount() int         { return 1 + len(m.Args) }
func (m *MethodCall) ChildAt(i int) SemanticNode {
	if i == 0 {
		return m.Receiver
	}
	return m.Args[i-1]
}
func (m *MethodCall) Label() string { return m.Method }
