package ir

// MeTTa expression nodes. MeTTa source is a sequence of s-expressions; the
// document root is an MProgram holding them in order.

// MProgram is the root of a MeTTa document.
type MProgram struct {
	NodeBase
	Exprs []SemanticNode
}

func (p *MProgram) Base() *NodeBase            { return &p.NodeBase }
func (p *MProgram) Category() SemanticCategory { return CategoryBlock }
func (p *MProgram) TypeName() string           { return "MProgram" }
func (p *MProgram) ChildrenCount() int         { return len(p.Exprs) }
func (p *MProgram) ChildAt(i int) SemanticNode { return p.Exprs[i] }

// MSExpr is a compound expression (head applied to arguments).
type MSExpr struct {
	NodeBase
	Elems []SemanticNode
}

func (s *MSExpr) Base() *NodeBase            { return &s.NodeBase }
func (s *MSExpr) Category() SemanticCategory { return CategoryInvocation }
func (s *MSExpr) TypeName() string           { return "MSExpr" }
func (s *MSExpr) ChildrenCount() int         { return len(s.Elems) }
func (s *MSExpr) ChildAt(i int) SemanticNode { return s.Elems[i] }

// MAtom is a bare symbol.
type MAtom struct {
	NodeBase
	Name string
}

func (a *MAtom) Base() *NodeBase            { return &a.NodeBase }
func (a *MAtom) Category() SemanticCategory { return CategoryLiteral }
func (a *MAtom) TypeName() string           { return "MAtom" }
func (a *MAtom) ChildrenCount() int         { return 0 }
func (a *MAtom) ChildAt(i int) SemanticNode { return nil }
func (a *MAtom) Label() string              { return a.Name }

// MVar is a pattern variable: $x.
type MVar struct {
	NodeBase
	Name string // without the leading $
}

func (v *MVar) Base() *NodeBase            { return &v.NodeBase }
func (v *MVar) Category() SemanticCategory { return CategoryVariable }
func (v *MVar) TypeName() string           { return "MVar" }
func (v *MVar) ChildrenCount() int         { return 0 }
func (v *MVar) ChildAt(i int) SemanticNode { return nil }
func (v *MVar) Label() string              { return v.Name }

// MDefinition is an equality definition: (= head body).
type MDefinition struct {
	NodeBase
	Head SemanticNode
	Body SemanticNode
}

func (d *MDefinition) Base() *NodeBase            { return &d.NodeBase }
func (d *MDefinition) Category() SemanticCategory { return CategoryBinding }
func (d *MDefinition) TypeName() string           { return "MDefinition" }
func (d *MDefinition) ChildrenCount() int         { return 2 }
func (d *MDefinition) ChildAt(i int) SemanticNode {
	if i == 0 {
		return d.Head
	}
	return d.Body
}

// HeadName returns the defined symbol's name, or "" when the head is not a
// symbol application.
func (d *MDefinition) HeadName() string {
	switch h := d.Head.(type) {
	case *MAtom:
		return h.Name
	case *MSExpr:
		if len(h.Elems) > 0 {
			if a, ok := h.Elems[0].(*MAtom); ok {
				return a.Name
			}
		}
	}
	return ""
}

// MTypeDecl is a type declaration: (: name type).
type MTypeDecl struct {
	NodeBase
	Name SemanticNode
	Type SemanticNode
}

func (t *MTypeDecl) Base() *NodeBase            { return &t.NodeBase }
func (t *MTypeDecl) Category() SemanticCategory { return CategoryLanguageSpecific }
func (t *MTypeDecl) TypeName() string           { return "MTypeDecl" }
func (t *MTypeDecl) ChildrenCount() int         { return 2 }
func (t *MTypeDecl) ChildAt(i int) SemanticNode {
	if i == 0 {
		return t.Name
	}
	return t.Type
}

// MGroundKind enumerates MeTTa ground literal kinds.
type MGroundKind uint8

const (
	MGroundInt MGroundKind = iota
	MGroundFloat
	MGroundString
)

// String returns a string representation of the ground kind
func (k MGroundKind) String() string {
	switch k {
	case MGroundInt:
		return "Int"
	case MGroundFloat:
		return "Float"
	case MGroundString:
		return "String"
	default:
		return "Unknown"
	}
}

// MGround is a numeric or string literal.
type MGround struct {
	NodeBase
	Kind MGroundKind
	Text string // literal text: "42", "3.14", string content
}

func (g *MGround) Base() *NodeBase            { return &g.NodeBase }
func (g *MGround) Category() SemanticCategory { return CategoryLiteral }
func (g *MGround) TypeName() string           { return "MGround" + g.Kind.String() }
func (g *MGround) ChildrenCount() int         { return 0 }
func (g *MGround) ChildAt(i int) SemanticNode { return nil }
func (g *MGround) Label() string              { return g.Text }
