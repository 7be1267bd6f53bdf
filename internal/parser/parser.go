// Package parser turns Rholang and MeTTa source text into IR trees. Both
// parsers are hand-written recursive descent: the Rholang parser reads
// tokens from Scanner, the MeTTa parser scans its bytes directly. Parse
// errors are collected, never fatal, and a partial tree is produced for
// everything that did parse.
package parser

import (
	"strconv"
	"strings"

	lserrors "github.com/f1r3fly-io/rholang-language-server/internal/errors"
	"github.com/f1r3fly-io/rholang-language-server/internal/ir"
	"github.com/f1r3fly-io/rholang-language-server/internal/position"
)

// maxParseErrors bounds error collection so a pathological file cannot
// allocate without limit.
const maxParseErrors = 50

// ParseResult is a parsed document: the IR root, the collected errors and
// the line index of the text that produced it.
type ParseResult struct {
	Root   ir.SemanticNode
	Errors []*lserrors.ParseError
	Lines  *position.LineIndex
	Nodes  int
}

// DetectLanguage maps a uri suffix to a language: .rho is Rholang,
// .metta/.metta2 are MeTTa, anything else defaults to Rholang.
func DetectLanguage(uri string) ir.Language {
	switch {
	case strings.HasSuffix(uri, ".metta"), strings.HasSuffix(uri, ".metta2"):
		return ir.LangMeTTa
	default:
		return ir.LangRholang
	}
}

// Parse dispatches on the detected language.
func Parse(uri string, src []byte) *ParseResult {
	if DetectLanguage(uri) == ir.LangMeTTa {
		return ParseMeTTa(uri, src)
	}
	return ParseRholang(uri, src)
}

// ParseRholang parses Rholang source into an IR tree.
func ParseRholang(uri string, src []byte) *ParseResult {
	lines := position.NewLineIndex(src)
	p := &rhoParser{uri: uri, lines: lines}
	p.scanner = newScanner(src, p.scanError)
	p.next()

	root := p.parseProgram(len(src))
	nodes := finalize(root, lines)
	return &ParseResult{Root: root, Errors: p.errors, Lines: lines, Nodes: nodes}
}

type rhoParser struct {
	uri     string
	scanner *Scanner
	lines   *position.LineIndex

	tok     item
	prevEnd int

	errors []*lserrors.ParseError
}

func (p *rhoParser) next() {
	p.prevEnd = p.tok.end
	p.tok = p.scanner.scan()
}

func (p *rhoParser) scanError(off int, lit, msg string) {
	p.errorAt(off, lit, msg)
}

func (p *rhoParser) errorAt(off int, lit, msg string) {
	if len(p.errors) >= maxParseErrors {
		return
	}
	pos, _ := p.lines.PositionFor(off)
	p.errors = append(p.errors, lserrors.NewParseError(p.uri, pos.Line, pos.Column, lit, msg))
}

// expect consumes the given token or records an error and leaves the
// current token in place for recovery.
func (p *rhoParser) expect(tok Token) bool {
	if p.tok.tok == tok {
		p.next()
		return true
	}
	p.errorAt(p.tok.off, p.tok.lit, "expected "+tok.String()+", found "+p.describe())
	return false
}

func (p *rhoParser) describe() string {
	if p.tok.lit != "" {
		return strconv.Quote(p.tok.lit)
	}
	return p.tok.tok.String()
}

// sync skips tokens until a likely process boundary.
func (p *rhoParser) sync() {
	for {
		switch p.tok.tok {
		case EOF, PAR, RBRACE, RPAREN, SEMI:
			return
		}
		p.next()
	}
}

// base builds a NodeBase carrying the absolute byte span; finalize rewrites
// it to the relative form and assigns ids.
func base(start, end int) ir.NodeBase {
	return ir.NodeBase{Rel: position.RelPosition{ByteDelta: start}, Len: end - start}
}

// parseProgram parses the top-level process. An empty file produces a bare
// Par with no children spanning the whole (empty) text.
func (p *rhoParser) parseProgram(srcLen int) ir.SemanticNode {
	if p.tok.tok == EOF {
		return &ir.Par{NodeBase: base(0, srcLen)}
	}
	proc := p.parsePar()
	if proc == nil {
		proc = &ir.Par{NodeBase: base(0, srcLen)}
	}
	if p.tok.tok != EOF {
		p.errorAt(p.tok.off, p.tok.lit, "unexpected trailing input")
	}
	return proc
}

// parsePar parses proc ('|' proc)*.
func (p *rhoParser) parsePar() ir.SemanticNode {
	start := p.tok.off
	first := p.parseProc()
	if p.tok.tok != PAR {
		return first
	}
	var procs []ir.SemanticNode
	if first != nil {
		procs = append(procs, first)
	}
	for p.tok.tok == PAR {
		p.next()
		if next := p.parseProc(); next != nil {
			procs = append(procs, next)
		}
	}
	return &ir.Par{NodeBase: base(start, p.prevEnd), Procs: procs}
}

// parseProc parses a single non-par process.
func (p *rhoParser) parseProc() ir.SemanticNode {
	switch p.tok.tok {
	case NEW:
		return p.parseNew()
	case CONTRACT:
		return p.parseContract()
	case FOR:
		return p.parseFor()
	case MATCH:
		return p.parseMatch()
	case IF:
		return p.parseIf()
	case LET:
		return p.parseLet()
	case BUNDLE:
		return p.parseBundle()
	case EOF:
		p.errorAt(p.tok.off, "", "unexpected end of input")
		return nil
	default:
		return p.parseSendOrExpr()
	}
}

// parseNew parses new x, y(`uri`) in proc.
func (p *rhoParser) parseNew() ir.SemanticNode {
	start := p.tok.off
	p.next() // new

	var decls []ir.SemanticNode
	for {
		if p.tok.tok != IDENT {
			p.errorAt(p.tok.off, p.tok.lit, "expected name declaration")
			p.sync()
			break
		}
		decl := &ir.NameDecl{NodeBase: base(p.tok.off, p.tok.end), Name: p.tok.lit}
		p.next()
		if p.tok.tok == LPAREN {
			p.next()
			if p.tok.tok == URI {
				decl.URI = p.tok.lit
				p.next()
			} else {
				p.errorAt(p.tok.off, p.tok.lit, "expected uri literal")
			}
			p.expect(RPAREN)
			decl.Len = p.prevEnd - decl.Rel.ByteDelta
		}
		decls = append(decls, decl)
		if p.tok.tok != COMMA {
			break
		}
		p.next()
	}

	p.expect(IN)
	body := p.parseProc()
	if body == nil {
		body = &ir.Par{NodeBase: base(p.prevEnd, p.prevEnd)}
	}
	return &ir.New{NodeBase: base(start, p.prevEnd), Decls: decls, Body: body}
}

// parseContract parses contract name(@x, @y) = { body }.
func (p *rhoParser) parseContract() ir.SemanticNode {
	start := p.tok.off
	p.next() // contract

	var name ir.SemanticNode
	switch p.tok.tok {
	case IDENT:
		name = &ir.Var{NodeBase: base(p.tok.off, p.tok.end), Name: p.tok.lit}
		p.next()
	case AT:
		name = p.parsePrimary()
	default:
		p.errorAt(p.tok.off, p.tok.lit, "expected contract name")
		p.sync()
		return nil
	}

	var formals []ir.SemanticNode
	if p.expect(LPAREN) {
		for p.tok.tok != RPAREN && p.tok.tok != EOF {
			formal := p.parseExpr()
			if formal == nil {
				break
			}
			formals = append(formals, formal)
			if p.tok.tok != COMMA {
				break
			}
			p.next()
		}
		p.expect(RPAREN)
	}

	p.expect(ASSIGN)
	body := p.parseProc()
	if body == nil {
		body = &ir.Par{NodeBase: base(p.prevEnd, p.prevEnd)}
	}
	return &ir.Contract{NodeBase: base(start, p.prevEnd), Name: name, Formals: formals, Body: body}
}

// parseFor parses for (patterns <- chan; ...) { body }. A <= receipt is a
// persistent receive.
func (p *rhoParser) parseFor() ir.SemanticNode {
	start := p.tok.off
	p.next() // for
	persistent := false

	var binds []ir.SemanticNode
	if p.expect(LPAREN) {
		for p.tok.tok != RPAREN && p.tok.tok != EOF {
			bindStart := p.tok.off
			var patterns []ir.SemanticNode
			var channel ir.SemanticNode
			for {
				pat := p.parseExpr()
				if pat == nil {
					break
				}
				// The expression parser reads "<=" as a comparison, so a
				// persistent receipt arrives here as pattern <= channel.
				if op, ok := pat.(*ir.BinOp); ok && op.Op == "<=" {
					patterns = append(patterns, op.Left)
					channel = op.Right
					persistent = true
					break
				}
				patterns = append(patterns, pat)
				if p.tok.tok != COMMA {
					break
				}
				p.next()
			}

			if channel == nil {
				if p.tok.tok == LE {
					persistent = true
					p.next()
				} else if !p.expect(RECV) {
					p.sync()
				}
				channel = p.parseExpr()
			}
			if channel == nil {
				channel = &ir.Var{NodeBase: base(p.prevEnd, p.prevEnd)}
			}
			binds = append(binds, &ir.ReceiveBind{
				NodeBase: base(bindStart, p.prevEnd),
				Patterns: patterns,
				Channel:  channel,
			})

			if p.tok.tok != SEMI {
				break
			}
			p.next()
		}
		p.expect(RPAREN)
	}

	body := p.parseProc()
	if body == nil {
		body = &ir.Par{NodeBase: base(p.prevEnd, p.prevEnd)}
	}
	return &ir.Receive{NodeBase: base(start, p.prevEnd), Binds: binds, Body: body, Persistent: persistent}
}

// parseMatch parses match target { pattern => proc ... }.
func (p *rhoParser) parseMatch() ir.SemanticNode {
	start := p.tok.off
	p.next() // match

	target := p.parseExpr()
	if target == nil {
		target = &ir.Par{NodeBase: base(p.prevEnd, p.prevEnd)}
	}

	var cases []ir.SemanticNode
	if p.expect(LBRACE) {
		for p.tok.tok != RBRACE && p.tok.tok != EOF {
			caseStart := p.tok.off
			pat := p.parseExpr()
			if pat == nil {
				p.sync()
				if p.tok.tok != RBRACE && p.tok.tok != EOF {
					p.next()
				}
				continue
			}
			p.expect(ARROW)
			body := p.parseProc()
			if body == nil {
				body = &ir.Par{NodeBase: base(p.prevEnd, p.prevEnd)}
			}
			cases = append(cases, &ir.MatchCase{NodeBase: base(caseStart, p.prevEnd), Pattern: pat, Body: body})
		}
		p.expect(RBRACE)
	}
	return &ir.Match{NodeBase: base(start, p.prevEnd), Target: target, Cases: cases}
}

// parseIf parses if (cond) proc else proc.
func (p *rhoParser) parseIf() ir.SemanticNode {
	start := p.tok.off
	p.next() // if

	p.expect(LPAREN)
	cond := p.parseExpr()
	if cond == nil {
		cond = &ir.Ground{NodeBase: base(p.prevEnd, p.prevEnd), Kind: ir.GroundBool}
	}
	p.expect(RPAREN)

	then := p.parseProc()
	if then == nil {
		then = &ir.Par{NodeBase: base(p.prevEnd, p.prevEnd)}
	}
	var els ir.SemanticNode
	if p.tok.tok == ELSE {
		p.next()
		els = p.parseProc()
	}
	return &ir.IfElse{NodeBase: base(start, p.prevEnd), Cond: cond, Then: then, Else: els}
}

// parseLet parses let x = v; y = w in { body }.
func (p *rhoParser) parseLet() ir.SemanticNode {
	start := p.tok.off
	p.next() // let

	var binds []ir.SemanticNode
	for {
		if p.tok.tok != IDENT {
			p.errorAt(p.tok.off, p.tok.lit, "expected let binder")
			break
		}
		bindStart := p.tok.off
		name := p.tok.lit
		p.next()
		if p.tok.tok == ASSIGN || p.tok.tok == RECV {
			p.next()
		} else {
			p.errorAt(p.tok.off, p.tok.lit, "expected = in let binding")
		}
		value := p.parseExpr()
		if value == nil {
			value = &ir.Par{NodeBase: base(p.prevEnd, p.prevEnd)}
		}
		binds = append(binds, &ir.LetBind{NodeBase: base(bindStart, p.prevEnd), Name: name, Value: value})
		if p.tok.tok != SEMI {
			break
		}
		p.next()
	}

	p.expect(IN)
	body := p.parseProc()
	if body == nil {
		body = &ir.Par{NodeBase: base(p.prevEnd, p.prevEnd)}
	}
	return &ir.Let{NodeBase: base(start, p.prevEnd), Binds: binds, Body: body}
}

// parseBundle parses bundle, bundle+ and bundle- blocks.
func (p *rhoParser) parseBundle() ir.SemanticNode {
	start := p.tok.off
	p.next() // bundle

	readOnly, writeOnly := false, false
	switch p.tok.tok {
	case PLUS:
		writeOnly = true
		p.next()
	case MINUS:
		readOnly = true
		p.next()
	}

	proc := p.parseProc()
	if proc == nil {
		proc = &ir.Par{NodeBase: base(p.prevEnd, p.prevEnd)}
	}
	return &ir.Bundle{NodeBase: base(start, p.prevEnd), Proc: proc, ReadOnly: readOnly, WriteOnly: writeOnly}
}

// parseSendOrExpr parses an expression, then upgrades it to a send when a
// ! or !! follows: chan!(args).
func (p *rhoParser) parseSendOrExpr() ir.SemanticNode {
	start := p.tok.off
	expr := p.parseExpr()
	if expr == nil {
		// Ensure progress so callers' loops terminate.
		if p.tok.tok != EOF {
			p.next()
		}
		return nil
	}

	if p.tok.tok == BANG || p.tok.tok == BANGBANG {
		persistent := p.tok.tok == BANGBANG
		p.next()
		var args []ir.SemanticNode
		if p.expect(LPAREN) {
			for p.tok.tok != RPAREN && p.tok.tok != EOF {
				arg := p.parseExpr()
				if arg == nil {
					break
				}
				args = append(args, arg)
				if p.tok.tok != COMMA {
					break
				}
				p.next()
			}
			p.expect(RPAREN)
		}
		return &ir.Send{NodeBase: base(start, p.prevEnd), Channel: expr, Args: args, Persistent: persistent}
	}
	return expr
}

// Binary operator precedence, loosest first.
var binaryPrec = map[Token]int{
	OR:      1,
	AND:     2,
	EQ:      3,
	NEQ:     3,
	LT:      3,
	LE:      3,
	GT:      3,
	GE:      3,
	PLUS:    4,
	MINUS:   4,
	CONCAT:  4,
	STAR:    5,
	SLASH:   5,
	PERCENT: 5,
}

// parseExpr parses a binary expression with precedence climbing.
func (p *rhoParser) parseExpr() ir.SemanticNode {
	return p.parseBinary(1)
}

func (p *rhoParser) parseBinary(minPrec int) ir.SemanticNode {
	start := p.tok.off
	left := p.parseUnary()
	if left == nil {
		return nil
	}
	for {
		prec, ok := binaryPrec[p.tok.tok]
		if !ok || prec < minPrec {
			return left
		}
		op := p.tok.tok.String()
		p.next()
		right := p.parseBinary(prec + 1)
		if right == nil {
			return left
		}
		left = &ir.BinOp{NodeBase: base(start, p.prevEnd), Op: op, Left: left, Right: right}
	}
}

func (p *rhoParser) parseUnary() ir.SemanticNode {
	switch p.tok.tok {
	case NOT:
		start := p.tok.off
		op := p.tok.tok.String()
		p.next()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		// Unary operators are modeled as single-operand method calls.
		return &ir.MethodCall{NodeBase: base(start, p.prevEnd), Receiver: operand, Method: op}
	case MINUS:
		start := p.tok.off
		p.next()
		if p.tok.tok == INT {
			value, _ := strconv.ParseInt(p.tok.lit, 10, 64)
			g := &ir.Ground{NodeBase: base(start, p.tok.end), Kind: ir.GroundInt, IntVal: -value}
			p.next()
			return g
		}
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &ir.MethodCall{NodeBase: base(start, p.prevEnd), Receiver: operand, Method: "-"}
	default:
		return p.parsePostfix()
	}
}

// parsePostfix parses primary expressions followed by method calls:
// receiver.method(args).
func (p *rhoParser) parsePostfix() ir.SemanticNode {
	start := p.tok.off
	expr := p.parsePrimary()
	if expr == nil {
		return nil
	}
	for p.tok.tok == DOT {
		p.next()
		if p.tok.tok != IDENT {
			p.errorAt(p.tok.off, p.tok.lit, "expected method name")
			return expr
		}
		method := p.tok.lit
		p.next()
		var args []ir.SemanticNode
		if p.tok.tok == LPAREN {
			p.next()
			for p.tok.tok != RPAREN && p.tok.tok != EOF {
				arg := p.parseExpr()
				if arg == nil {
					break
				}
				args = append(args, arg)
				if p.tok.tok != COMMA {
					break
				}
				p.next()
			}
			p.expect(RPAREN)
		}
		expr = &ir.MethodCall{NodeBase: base(start, p.prevEnd), Receiver: expr, Method: method, Args: args}
	}
	return expr
}

func (p *rhoParser) parsePrimary() ir.SemanticNode {
	start := p.tok.off
	switch p.tok.tok {
	case INT:
		value, err := strconv.ParseInt(p.tok.lit, 10, 64)
		if err != nil {
			p.errorAt(start, p.tok.lit, "integer literal out of range")
		}
		g := &ir.Ground{NodeBase: base(start, p.tok.end), Kind: ir.GroundInt, IntVal: value}
		p.next()
		return g
	case STRING:
		g := &ir.Ground{NodeBase: base(start, p.tok.end), Kind: ir.GroundString, StrVal: p.tok.lit}
		p.next()
		return g
	case URI:
		g := &ir.Ground{NodeBase: base(start, p.tok.end), Kind: ir.GroundURI, StrVal: p.tok.lit}
		p.next()
		return g
	case TRUE, FALSE:
		g := &ir.Ground{NodeBase: base(start, p.tok.end), Kind: ir.GroundBool, BoolVal: p.tok.tok == TRUE}
		p.next()
		return g
	case NIL:
		g := &ir.Ground{NodeBase: base(start, p.tok.end), Kind: ir.GroundNil}
		p.next()
		return g
	case IDENT:
		v := &ir.Var{NodeBase: base(start, p.tok.end), Name: p.tok.lit}
		p.next()
		return v
	case UNDERSCORE:
		w := &ir.Wildcard{NodeBase: base(start, p.tok.end)}
		p.next()
		return w
	case AT:
		p.next()
		inner := p.parsePrimary()
		if inner == nil {
			return nil
		}
		return &ir.Quote{NodeBase: base(start, p.prevEnd), Proc: inner}
	case STAR:
		p.next()
		inner := p.parsePrimary()
		if inner == nil {
			return nil
		}
		return &ir.Eval{NodeBase: base(start, p.prevEnd), Name: inner}
	case LBRACK:
		return p.parseCollection(RBRACK, ir.CollList)
	case SET:
		p.next()
		if p.tok.tok != LPAREN {
			p.errorAt(p.tok.off, p.tok.lit, "expected ( after Set")
			return nil
		}
		coll := p.parseCollection(RPAREN, ir.CollSet)
		if coll != nil {
			coll.Base().Rel.ByteDelta = start
			coll.Base().Len = p.prevEnd - start
		}
		return coll
	case LPAREN:
		return p.parseParenOrTuple()
	case LBRACE:
		return p.parseBlockOrMap()
	case NEW, CONTRACT, FOR, MATCH, IF, LET, BUNDLE:
		// Process-level constructs are legal wherever a pattern or quoted
		// process is expected.
		return p.parseProc()
	default:
		p.errorAt(p.tok.off, p.tok.lit, "unexpected "+p.describe())
		return nil
	}
}

// parseCollection parses [..] and Set(..) bodies. The opening delimiter is
// the current token.
func (p *rhoParser) parseCollection(closing Token, kind ir.CollKind) ir.SemanticNode {
	start := p.tok.off
	p.next() // opening delimiter
	var elems []ir.SemanticNode
	for p.tok.tok != closing && p.tok.tok != EOF {
		elem := p.parseExpr()
		if elem == nil {
			break
		}
		elems = append(elems, elem)
		if p.tok.tok != COMMA {
			break
		}
		p.next()
	}
	p.expect(closing)
	return &ir.Collection{NodeBase: base(start, p.prevEnd), Kind: kind, Elems: elems}
}

// parseParenOrTuple parses (expr) grouping or (a, b, ...) tuples.
func (p *rhoParser) parseParenOrTuple() ir.SemanticNode {
	start := p.tok.off
	p.next() // (
	first := p.parseExpr()
	if first == nil {
		p.expect(RPAREN)
		return nil
	}
	if p.tok.tok != COMMA {
		p.expect(RPAREN)
		return first
	}
	elems := []ir.SemanticNode{first}
	for p.tok.tok == COMMA {
		p.next()
		if p.tok.tok == RPAREN {
			break
		}
		elem := p.parseExpr()
		if elem == nil {
			break
		}
		elems = append(elems, elem)
	}
	p.expect(RPAREN)
	return &ir.Collection{NodeBase: base(start, p.prevEnd), Kind: ir.CollTuple, Elems: elems}
}

// parseBlockOrMap disambiguates { proc | proc } blocks from { k: v } map
// literals by the token after the first expression.
func (p *rhoParser) parseBlockOrMap() ir.SemanticNode {
	start := p.tok.off
	p.next() // {

	if p.tok.tok == RBRACE {
		p.next()
		return &ir.Par{NodeBase: base(start, p.prevEnd)}
	}

	first := p.parseProc()
	if first == nil {
		p.sync()
		p.expect(RBRACE)
		return &ir.Par{NodeBase: base(start, p.prevEnd)}
	}

	if p.tok.tok == COLON {
		return p.parseMapRest(start, first)
	}

	procs := []ir.SemanticNode{first}
	for p.tok.tok == PAR {
		p.next()
		if next := p.parseProc(); next != nil {
			procs = append(procs, next)
		}
	}
	p.expect(RBRACE)
	return &ir.Par{NodeBase: base(start, p.prevEnd), Procs: procs}
}

// parseMapRest continues a map literal after its first key.
func (p *rhoParser) parseMapRest(start int, firstKey ir.SemanticNode) ir.SemanticNode {
	var elems []ir.SemanticNode
	key := firstKey
	for {
		p.expect(COLON)
		value := p.parseExpr()
		if value == nil {
			break
		}
		kvStart := key.Base().Rel.ByteDelta
		elems = append(elems, &ir.KeyValue{NodeBase: base(kvStart, p.prevEnd), Key: key, Value: value})
		if p.tok.tok != COMMA {
			break
		}
		p.next()
		key = p.parseExpr()
		if key == nil {
			break
		}
	}
	p.expect(RBRACE)
	return &ir.Collection{NodeBase: base(start, p.prevEnd), Kind: ir.CollMap, Elems: elems}
}
