package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	lserrors "github.com/f1r3fly-io/rholang-language-server/internal/errors"
	"github.com/f1r3fly-io/rholang-language-server/internal/ir"
	"github.com/f1r3fly-io/rholang-language-server/internal/position"
)

// ParseMeTTa parses MeTTa source: a sequence of s-expressions. (= head
// body) forms become definitions and (: name type) forms become type
// declarations; everything else stays a plain expression.
func ParseMeTTa(uri string, src []byte) *ParseResult {
	lines := position.NewLineIndex(src)
	p := &mettaParser{uri: uri, src: src, lines: lines}

	var exprs []ir.SemanticNode
	for {
		p.skipSpace()
		if p.eof() {
			break
		}
		expr := p.parseExpr()
		if expr == nil {
			// Skip one rune to guarantee progress after an error.
			p.bump()
			continue
		}
		exprs = append(exprs, expr)
	}

	root := &ir.MProgram{NodeBase: base(0, len(src)), Exprs: exprs}
	nodes := finalize(root, lines)
	return &ParseResult{Root: root, Errors: p.errors, Lines: lines, Nodes: nodes}
}

type mettaParser struct {
	uri   string
	src   []byte
	off   int
	lines *position.LineIndex

	errors []*lserrors.ParseError
}

func (p *mettaParser) eof() bool { return p.off >= len(p.src) }

func (p *mettaParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.off]
}

func (p *mettaParser) bump() {
	if p.eof() {
		return
	}
	_, w := utf8.DecodeRune(p.src[p.off:])
	p.off += w
}

func (p *mettaParser) errorAt(off int, lit, msg string) {
	if len(p.errors) >= maxParseErrors {
		return
	}
	pos, _ := p.lines.PositionFor(off)
	p.errors = append(p.errors, lserrors.NewParseError(p.uri, pos.Line, pos.Column, lit, msg))
}

// skipSpace skips whitespace and ; line comments.
func (p *mettaParser) skipSpace() {
	for !p.eof() {
		switch c := p.peek(); {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			p.off++
		case c == ';':
			for !p.eof() && p.peek() != '\n' {
				p.off++
			}
		default:
			return
		}
	}
}

// parseExpr parses one s-expression, atom, variable or literal.
func (p *mettaParser) parseExpr() ir.SemanticNode {
	p.skipSpace()
	if p.eof() {
		p.errorAt(p.off, "", "unexpected end of input")
		return nil
	}
	start := p.off
	switch c := p.peek(); {
	case c == '(':
		return p.parseSExpr()
	case c == ')':
		p.errorAt(start, ")", "unexpected closing parenthesis")
		return nil
	case c == '$':
		p.off++
		name := p.scanSymbol()
		if name == "" {
			p.errorAt(start, "$", "expected variable name after $")
			return nil
		}
		return &ir.MVar{NodeBase: base(start, p.off), Name: name}
	case c == '"':
		return p.parseString(start)
	case c == '-' || unicode.IsDigit(rune(c)):
		return p.parseNumberOrSymbol(start)
	default:
		name := p.scanSymbol()
		if name == "" {
			p.errorAt(start, string(c), "unexpected character")
			return nil
		}
		return &ir.MAtom{NodeBase: base(start, p.off), Name: name}
	}
}

// parseSExpr parses (elem*) and classifies = and : head forms.
func (p *mettaParser) parseSExpr() ir.SemanticNode {
	start := p.off
	p.off++ // (

	var elems []ir.SemanticNode
	for {
		p.skipSpace()
		if p.eof() {
			p.errorAt(start, "(", "unclosed s-expression")
			break
		}
		if p.peek() == ')' {
			p.off++
			break
		}
		elem := p.parseExpr()
		if elem == nil {
			p.bump()
			continue
		}
		elems = append(elems, elem)
	}

	span := base(start, p.off)
	if len(elems) == 3 {
		if head, ok := elems[0].(*ir.MAtom); ok {
			switch head.Name {
			case "=":
				return &ir.MDefinition{NodeBase: span, Head: elems[1], Body: elems[2]}
			case ":":
				return &ir.MTypeDecl{NodeBase: span, Name: elems[1], Type: elems[2]}
			}
		}
	}
	return &ir.MSExpr{NodeBase: span, Elems: elems}
}

func (p *mettaParser) parseString(start int) ir.SemanticNode {
	p.off++ // opening quote
	contentStart := p.off
	for !p.eof() && p.peek() != '"' && p.peek() != '\n' {
		if p.peek() == '\\' {
			p.off++
			if p.eof() {
				break
			}
		}
		p.bump()
	}
	content := string(p.src[contentStart:p.off])
	if p.eof() || p.peek() != '"' {
		p.errorAt(start, content, "string literal not terminated")
	} else {
		p.off++
	}
	return &ir.MGround{NodeBase: base(start, p.off), Kind: ir.MGroundString, Text: content}
}

// parseNumberOrSymbol distinguishes 42, -1, 3.14 from symbols like -> that
// merely start with a dash.
func (p *mettaParser) parseNumberOrSymbol(start int) ir.SemanticNode {
	text := p.scanSymbol()
	if text == "" {
		p.errorAt(start, "", "unexpected character")
		return nil
	}
	trimmed := strings.TrimPrefix(text, "-")
	if trimmed == "" || !isNumeric(trimmed) {
		return &ir.MAtom{NodeBase: base(start, p.off), Name: text}
	}
	kind := ir.MGroundInt
	if strings.Contains(trimmed, ".") {
		kind = ir.MGroundFloat
	}
	return &ir.MGround{NodeBase: base(start, p.off), Kind: kind, Text: text}
}

// scanSymbol consumes a maximal run of symbol characters.
func (p *mettaParser) scanSymbol() string {
	start := p.off
	for !p.eof() {
		c := p.peek()
		if c == '(' || c == ')' || c == '"' || c == ';' || c == '$' ||
			c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			break
		}
		p.bump()
	}
	return string(p.src[start:p.off])
}

func isNumeric(s string) bool {
	dots := 0
	for _, c := range s {
		if c == '.' {
			dots++
			if dots > 1 {
				return false
			}
			continue
		}
		if !unicode.IsDigit(c) {
			return false
		}
	}
	return true
}
