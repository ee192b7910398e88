// parser.go
//
// Minimal associative-DesignScript front end: enough surface to declare
// global dataflow variables and the expressions that connect them.
//
//	count = 3;
//	arr = { 1, 2, 3 };
//	b = a + 1;
//	x = arr[0] * 2.5;
//
// One statement per assignment, `{ ... }` array literals, `+ - * /` with the
// usual precedence, unary minus, indexing, parentheses, and int / double /
// bool / string / char / null literals. Statements end with `;` or a
// newline. Nothing here is bytecode compilation: the engine evaluates these
// ASTs directly.
package protocore

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ---------- AST ----------

type Expr interface{ exprNode() }

type IdentExpr struct {
	Name      string
	Line, Col int
}

type IntLit struct{ Value int64 }
type DoubleLit struct{ Value float64 }
type BoolLit struct{ Value bool }
type StringLit struct{ Value string }
type CharLit struct{ Value rune }
type NullLit struct{}

type ArrayLit struct{ Elems []Expr }

type BinaryExpr struct {
	Op   string
	L, R Expr
}

type UnaryExpr struct {
	Op      string
	Operand Expr
}

type IndexExpr struct {
	Target Expr
	Index  Expr
}

func (*IdentExpr) exprNode()  {}
func (*IntLit) exprNode()     {}
func (*DoubleLit) exprNode()  {}
func (*BoolLit) exprNode()    {}
func (*StringLit) exprNode()  {}
func (*CharLit) exprNode()    {}
func (*NullLit) exprNode()    {}
func (*ArrayLit) exprNode()   {}
func (*BinaryExpr) exprNode() {}
func (*UnaryExpr) exprNode()  {}
func (*IndexExpr) exprNode()  {}

// AssignStmt is one associative statement: name = expr.
type AssignStmt struct {
	Name string
	RHS  Expr
	Line int
}

// FreeIdents collects the identifier names an expression reads, in first-use
// order. The engine turns these into dependency edges.
func FreeIdents(e Expr) []string {
	var out []string
	seen := map[string]bool{}
	var walk func(Expr)
	walk = func(e Expr) {
		switch x := e.(type) {
		case *IdentExpr:
			if !seen[x.Name] {
				seen[x.Name] = true
				out = append(out, x.Name)
			}
		case *ArrayLit:
			for _, el := range x.Elems {
				walk(el)
			}
		case *BinaryExpr:
			walk(x.L)
			walk(x.R)
		case *UnaryExpr:
			walk(x.Operand)
		case *IndexExpr:
			walk(x.Target)
			walk(x.Index)
		}
	}
	walk(e)
	return out
}

// ---------- lexer ----------

type tokKind int

const (
	tkEOF tokKind = iota
	tkIdent
	tkInt
	tkDouble
	tkString
	tkChar
	tkPunct // = ; , { } [ ] ( ) + - * /
)

type token struct {
	kind      tokKind
	text      string
	line, col int
}

type lexer struct {
	src       []rune
	pos       int
	line, col int
}

func newLexer(src string) *lexer { return &lexer{src: []rune(src), line: 1, col: 1} }

func (lx *lexer) errorf(format string, args ...interface{}) error {
	return &ParseError{Line: lx.line, Col: lx.col, Msg: fmt.Sprintf(format, args...)}
}

func (lx *lexer) advance() rune {
	r := lx.src[lx.pos]
	lx.pos++
	if r == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}
	return r
}

func (lx *lexer) peek() rune {
	if lx.pos >= len(lx.src) {
		return 0
	}
	return lx.src[lx.pos]
}

func (lx *lexer) tokens() ([]token, error) {
	var toks []token
	for lx.pos < len(lx.src) {
		r := lx.peek()
		switch {
		case r == ' ' || r == '\t' || r == '\r':
			lx.advance()
		case r == '\n':
			lx.advance()
			toks = append(toks, token{kind: tkPunct, text: ";", line: lx.line - 1, col: lx.col})
		case r == '/' && lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == '/':
			for lx.pos < len(lx.src) && lx.peek() != '\n' {
				lx.advance()
			}
		case unicode.IsLetter(r) || r == '_':
			line, col := lx.line, lx.col
			var b strings.Builder
			for lx.pos < len(lx.src) && (unicode.IsLetter(lx.peek()) || unicode.IsDigit(lx.peek()) || lx.peek() == '_') {
				b.WriteRune(lx.advance())
			}
			toks = append(toks, token{kind: tkIdent, text: b.String(), line: line, col: col})
		case unicode.IsDigit(r):
			line, col := lx.line, lx.col
			var b strings.Builder
			isDouble := false
			for lx.pos < len(lx.src) && (unicode.IsDigit(lx.peek()) || lx.peek() == '.') {
				if lx.peek() == '.' {
					if isDouble {
						break
					}
					isDouble = true
				}
				b.WriteRune(lx.advance())
			}
			kind := tkInt
			if isDouble {
				kind = tkDouble
			}
			toks = append(toks, token{kind: kind, text: b.String(), line: line, col: col})
		case r == '"':
			line, col := lx.line, lx.col
			lx.advance()
			var b strings.Builder
			closed := false
			for lx.pos < len(lx.src) {
				c := lx.advance()
				if c == '\\' && lx.pos < len(lx.src) {
					b.WriteRune(unescape(lx.advance()))
					continue
				}
				if c == '"' {
					closed = true
					break
				}
				b.WriteRune(c)
			}
			if !closed {
				return nil, &ParseError{Line: line, Col: col, Msg: "unterminated string literal"}
			}
			toks = append(toks, token{kind: tkString, text: b.String(), line: line, col: col})
		case r == '\'':
			line, col := lx.line, lx.col
			lx.advance()
			if lx.pos >= len(lx.src) {
				return nil, &ParseError{Line: line, Col: col, Msg: "unterminated char literal"}
			}
			c := lx.advance()
			if c == '\\' && lx.pos < len(lx.src) {
				c = unescape(lx.advance())
			}
			if lx.pos >= len(lx.src) || lx.advance() != '\'' {
				return nil, &ParseError{Line: line, Col: col, Msg: "unterminated char literal"}
			}
			toks = append(toks, token{kind: tkChar, text: string(c), line: line, col: col})
		case strings.ContainsRune("=;,{}[]()+-*/", r):
			line, col := lx.line, lx.col
			lx.advance()
			toks = append(toks, token{kind: tkPunct, text: string(r), line: line, col: col})
		default:
			return nil, lx.errorf("unexpected character %q", string(r))
		}
	}
	toks = append(toks, token{kind: tkEOF, text: "", line: lx.line, col: lx.col})
	return toks, nil
}

func unescape(r rune) rune {
	switch r {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return r
	}
}

// ---------- parser ----------

type parser struct {
	toks []token
	pos  int
}

// Parse turns associative source into assignment statements.
func Parse(src string) ([]*AssignStmt, error) {
	toks, err := newLexer(src).tokens()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	var stmts []*AssignStmt
	for {
		p.skipTerminators()
		if p.at(tkEOF, "") {
			return stmts, nil
		}
		st, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
	}
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) next() token { t := p.toks[p.pos]; p.pos++; return t }

func (p *parser) at(kind tokKind, text string) bool {
	t := p.cur()
	return t.kind == kind && (text == "" || t.text == text)
}

func (p *parser) skipTerminators() {
	for p.at(tkPunct, ";") {
		p.next()
	}
}

func (p *parser) errorf(t token, format string, args ...interface{}) error {
	return &ParseError{Line: t.line, Col: t.col, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseAssign() (*AssignStmt, error) {
	name := p.cur()
	if name.kind != tkIdent {
		return nil, p.errorf(name, "expected identifier, got %q", name.text)
	}
	p.next()
	if !p.at(tkPunct, "=") {
		return nil, p.errorf(p.cur(), "expected '=' after %q", name.text)
	}
	p.next()
	rhs, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if !p.at(tkPunct, ";") && !p.at(tkEOF, "") {
		return nil, p.errorf(p.cur(), "unexpected token %q", p.cur().text)
	}
	return &AssignStmt{Name: name.text, RHS: rhs, Line: name.line}, nil
}

func binPrec(op string) int {
	switch op {
	case "+", "-":
		return 10
	case "*", "/":
		return 20
	default:
		return 0
	}
}

func (p *parser) parseExpr(minPrec int) (Expr, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		if t.kind != tkPunct {
			break
		}
		prec := binPrec(t.text)
		if prec == 0 || prec < minPrec {
			break
		}
		p.next()
		rhs, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		lhs = &BinaryExpr{Op: t.text, L: lhs, R: rhs}
	}
	return lhs, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.at(tkPunct, "-") {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: "-", Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.at(tkPunct, "[") {
		p.next()
		idx, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if !p.at(tkPunct, "]") {
			return nil, p.errorf(p.cur(), "expected ']'")
		}
		p.next()
		e = &IndexExpr{Target: e, Index: idx}
	}
	return e, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.cur()
	switch t.kind {
	case tkInt:
		p.next()
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, p.errorf(t, "bad integer literal %q", t.text)
		}
		return &IntLit{Value: n}, nil
	case tkDouble:
		p.next()
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errorf(t, "bad double literal %q", t.text)
		}
		return &DoubleLit{Value: f}, nil
	case tkString:
		p.next()
		return &StringLit{Value: t.text}, nil
	case tkChar:
		p.next()
		return &CharLit{Value: []rune(t.text)[0]}, nil
	case tkIdent:
		p.next()
		switch t.text {
		case "true":
			return &BoolLit{Value: true}, nil
		case "false":
			return &BoolLit{Value: false}, nil
		case "null":
			return &NullLit{}, nil
		}
		return &IdentExpr{Name: t.text, Line: t.line, Col: t.col}, nil
	case tkPunct:
		switch t.text {
		case "(":
			p.next()
			e, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			if !p.at(tkPunct, ")") {
				return nil, p.errorf(p.cur(), "expected ')'")
			}
			p.next()
			return e, nil
		case "{":
			p.next()
			var elems []Expr
			if !p.at(tkPunct, "}") {
				for {
					e, err := p.parseExpr(0)
					if err != nil {
						return nil, err
					}
					elems = append(elems, e)
					if p.at(tkPunct, ",") {
						p.next()
						continue
					}
					break
				}
			}
			if !p.at(tkPunct, "}") {
				return nil, p.errorf(p.cur(), "expected '}'")
			}
			p.next()
			return &ArrayLit{Elems: elems}, nil
		}
	}
	return nil, p.errorf(t, "unexpected token %q", t.text)
}
