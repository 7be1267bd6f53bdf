package ir

// UnifiedIR is the language-agnostic lowering of a Rholang or MeTTa tree.
// It preserves category structure; language-specific nodes that fit no
// universal category are wrapped in a LanguageExt so that a fully generic
// consumer can still traverse them.

// Unified is a category-shaped node in the lowered tree.
type Unified struct {
	NodeBase
	Cat      SemanticCategory
	Name     string // the source node's TypeName
	Text     string // label of atom-like sources, "" otherwise
	Children []SemanticNode
}

func (u *Unified) Base() *NodeBase            { return &u.NodeBase }
func (u *Unified) Category() SemanticCategory { return u.Cat }
func (u *Unified) TypeName() string           { return "Unified" }
func (u *Unified) ChildrenCount() int         { return len(u.Children) }
func (u *Unified) ChildAt(i int) SemanticNode { return u.Children[i] }
func (u *Unified) Label() string              { return u.Text }

// LanguageExt wraps a language-specific node inside a unified tree. The
// wrapped node stays reachable through the generic child interface.
type LanguageExt struct {
	NodeBase
	Lang  Language
	Inner SemanticNode
}

func (e *LanguageExt) Base() *NodeBase            { return &e.NodeBase }
func (e *LanguageExt) Category() SemanticCategory { return CategoryLanguageSpecific }
func (e *LanguageExt) TypeName() string           { return "LanguageExt" }
func (e *LanguageExt) ChildrenCount() int         { return 1 }
func (e *LanguageExt) ChildAt(i int) SemanticNode { return e.Inner }

// LowerToUnified produces a fresh unified tree from any semantic tree. The
// source tree is left untouched; node IDs are reallocated because the
// unified tree is a distinct document artifact.
func LowerToUnified(root SemanticNode, lang Language) SemanticNode {
	next := NodeID(0)
	alloc := func() NodeID {
		next++
		return next
	}
	var lower func(n SemanticNode) SemanticNode
	lower = func(n SemanticNode) SemanticNode {
		if n == nil {
			return nil
		}
		base := NodeBase{ID: alloc(), Rel: n.Base().Rel, Len: n.Base().Len}
		if n.Category() == CategoryLanguageSpecific {
			return &LanguageExt{NodeBase: base, Lang: lang, Inner: n}
		}
		children := make([]SemanticNode, 0, n.ChildrenCount())
		for i := 0; i < n.ChildrenCount(); i++ {
			if c := lower(n.ChildAt(i)); c != nil {
				children = append(children, c)
			}
		}
		return &Unified{
			NodeBase: base,
			Cat:      n.Category(),
			Name:     n.TypeName(),
			Text:     label(n),
			Children: children,
		}
	}
	return lower(root)
}
