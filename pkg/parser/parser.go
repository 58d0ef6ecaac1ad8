// Package parser implements the recursive-descent parser.
package parser

import (
	"github.com/thomasrohde/rlux/pkg/ast"
	"github.com/thomasrohde/rlux/pkg/diagnostics"
	"github.com/thomasrohde/rlux/pkg/lexer"
	"github.com/thomasrohde/rlux/pkg/token"
	"github.com/thomasrohde/rlux/pkg/value"
)

// Parse error messages.
const (
	msgExpectExpr         = "expected expression"
	msgExpectVarName      = "expected a variable name"
	msgExpectSemiValue    = "expected ';' after value"
	msgExpectSemiExpr     = "expected ';' after expression"
	msgExpectSemiVar      = "expected ';' after variable declaration"
	msgExpectRBrace       = "expected '}' after block"
	msgExpectRParenGroup  = "expected ')' after expression"
	msgExpectLParenIf     = "expected '(' after 'if'"
	msgExpectRParenIf     = "expected ')' after if condition"
	msgExpectLParenWhile  = "expected '(' after 'while'"
	msgExpectRParenWhile  = "expected ')' after condition"
	msgExpectLParenFor    = "expected '(' after 'for'"
	msgExpectSemiLoopCond = "expected ';' after loop condition"
	msgExpectRParenFor    = "expected ')' after for clauses"
	msgInvalidAssign      = "invalid assignment target"
)

type parser struct {
	tokens []token.Token
	pos    int
	diags  []diagnostics.Diagnostic
}

// Parse turns a token sequence ending in EOF into a program. A declaration
// that fails to parse is reported, the parser resynchronizes at the next
// statement boundary, and parsing continues. The returned program holds
// every declaration that parsed cleanly, so it is never nil.
func Parse(tokens []token.Token) (*ast.Program, []diagnostics.Diagnostic) {
	if len(tokens) == 0 || tokens[len(tokens)-1].Kind != token.EOF {
		line := 1
		if len(tokens) > 0 {
			line = tokens[len(tokens)-1].Line
		}
		tokens = append(tokens, token.New(token.EOF, "", line))
	}
	p := &parser{tokens: tokens}
	return p.parseProgram(), p.diags
}

// ParseSource scans and parses source. Lex diagnostics come first, followed
// by parse diagnostics.
func ParseSource(source string) (*ast.Program, []diagnostics.Diagnostic) {
	tokens, lexDiags := lexer.Scan(source)
	prog, parseDiags := Parse(tokens)
	return prog, append(lexDiags, parseDiags...)
}

func (p *parser) current() token.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() token.Kind {
	return p.current().Kind
}

func (p *parser) previous() token.Token {
	if p.pos == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.pos-1]
}

func (p *parser) atEnd() bool {
	return p.peek() == token.EOF
}

func (p *parser) advance() token.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

// match consumes the current token when it is one of kinds.
func (p *parser) match(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.peek() == k {
			p.advance()
			return true
		}
	}
	return false
}

func (p *parser) expect(kind token.Kind, msg string) (token.Token, bool) {
	tok := p.current()
	if tok.Kind != kind {
		p.errorAt(tok, msg)
		return tok, false
	}
	return p.advance(), true
}

func (p *parser) errorAt(tok token.Token, msg string) {
	if tok.Kind == token.EOF {
		p.diags = append(p.diags, diagnostics.MakeEndDiag(diagnostics.EParse, msg, tok.Line))
		return
	}
	p.diags = append(p.diags, diagnostics.MakeDiag(diagnostics.EParse, msg, tok.Line, tok.Lexeme))
}

// synchronize discards tokens until the start of the next statement: just
// past a ';' or just before a statement keyword. It always consumes at
// least one token unless already at EOF.
func (p *parser) synchronize() {
	p.advance()
	for !p.atEnd() {
		if p.previous().Kind == token.Semicolon {
			return
		}
		switch p.peek() {
		case token.Class, token.Fun, token.Var, token.For, token.If,
			token.While, token.Print, token.Return:
			return
		}
		p.advance()
	}
}

// --- Program ---

func (p *parser) parseProgram() *ast.Program {
	stmts := []ast.Stmt{}
	for !p.atEnd() {
		stmt := p.parseDeclaration()
		if stmt == nil {
			p.synchronize()
			continue
		}
		stmts = append(stmts, stmt)
	}
	return &ast.Program{Statements: stmts}
}

// --- Statements ---
//
// Every parse function returns nil after recording a diagnostic. Failures
// propagate up to the enclosing top-level declaration.

func (p *parser) parseDeclaration() ast.Stmt {
	if p.match(token.Var) {
		return p.parseVarDecl()
	}
	return p.parseStmt()
}

func (p *parser) parseVarDecl() ast.Stmt {
	name, ok := p.expect(token.Identifier, msgExpectVarName)
	if !ok {
		return nil
	}

	var init ast.Expr
	if p.match(token.Equal) {
		init = p.parseExpr()
		if init == nil {
			return nil
		}
	}

	if _, ok := p.expect(token.Semicolon, msgExpectSemiVar); !ok {
		return nil
	}
	return &ast.VarDecl{Name: name.Lexeme, NameTok: name, Initializer: init}
}

func (p *parser) parseStmt() ast.Stmt {
	switch p.peek() {
	case token.Print:
		return p.parsePrintStmt()
	case token.LeftBrace:
		return p.blockStmt()
	case token.If:
		return p.parseIfStmt()
	case token.While:
		return p.parseWhileStmt()
	case token.For:
		return p.parseForStmt()
	default:
		return p.parseExprStmt()
	}
}

func (p *parser) parsePrintStmt() ast.Stmt {
	kw := p.advance() // consume 'print'
	expr := p.parseExpr()
	if expr == nil {
		return nil
	}
	if _, ok := p.expect(token.Semicolon, msgExpectSemiValue); !ok {
		return nil
	}
	return &ast.Print{Keyword: kw, Expr: expr}
}

func (p *parser) parseExprStmt() ast.Stmt {
	expr := p.parseExpr()
	if expr == nil {
		return nil
	}
	if _, ok := p.expect(token.Semicolon, msgExpectSemiExpr); !ok {
		return nil
	}
	return &ast.ExprStmt{Expr: expr}
}

func (p *parser) parseBlock() *ast.Block {
	open := p.advance() // consume '{'
	stmts := []ast.Stmt{}
	for p.peek() != token.RightBrace && !p.atEnd() {
		stmt := p.parseDeclaration()
		if stmt == nil {
			return nil
		}
		stmts = append(stmts, stmt)
	}
	if _, ok := p.expect(token.RightBrace, msgExpectRBrace); !ok {
		return nil
	}
	return &ast.Block{LineNo: open.Line, Stmts: stmts}
}

// blockStmt keeps a nil *ast.Block from turning into a non-nil ast.Stmt.
func (p *parser) blockStmt() ast.Stmt {
	if b := p.parseBlock(); b != nil {
		return b
	}
	return nil
}

func (p *parser) parseIfStmt() ast.Stmt {
	kw := p.advance() // consume 'if'
	if _, ok := p.expect(token.LeftParen, msgExpectLParenIf); !ok {
		return nil
	}
	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	if _, ok := p.expect(token.RightParen, msgExpectRParenIf); !ok {
		return nil
	}

	then := p.parseStmt()
	if then == nil {
		return nil
	}

	var els ast.Stmt
	if p.match(token.Else) {
		els = p.parseStmt()
		if els == nil {
			return nil
		}
	}

	return &ast.If{Keyword: kw, Cond: cond, Then: then, Else: els}
}

func (p *parser) parseWhileStmt() ast.Stmt {
	kw := p.advance() // consume 'while'
	if _, ok := p.expect(token.LeftParen, msgExpectLParenWhile); !ok {
		return nil
	}
	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	if _, ok := p.expect(token.RightParen, msgExpectRParenWhile); !ok {
		return nil
	}
	body := p.parseStmt()
	if body == nil {
		return nil
	}
	return &ast.While{Keyword: kw, Cond: cond, Body: body}
}

// parseForStmt desugars
//
//	for (init; cond; incr) body
//
// into
//
//	{ init; while (cond) { body; incr; } }
//
// A missing condition becomes the literal true.
func (p *parser) parseForStmt() ast.Stmt {
	kw := p.advance() // consume 'for'
	if _, ok := p.expect(token.LeftParen, msgExpectLParenFor); !ok {
		return nil
	}

	var init ast.Stmt
	switch {
	case p.match(token.Semicolon):
	case p.match(token.Var):
		if init = p.parseVarDecl(); init == nil {
			return nil
		}
	default:
		if init = p.parseExprStmt(); init == nil {
			return nil
		}
	}

	var cond ast.Expr
	if p.peek() != token.Semicolon {
		if cond = p.parseExpr(); cond == nil {
			return nil
		}
	}
	if _, ok := p.expect(token.Semicolon, msgExpectSemiLoopCond); !ok {
		return nil
	}

	var incr ast.Expr
	if p.peek() != token.RightParen {
		if incr = p.parseExpr(); incr == nil {
			return nil
		}
	}
	if _, ok := p.expect(token.RightParen, msgExpectRParenFor); !ok {
		return nil
	}

	body := p.parseStmt()
	if body == nil {
		return nil
	}

	loopBody := &ast.Block{LineNo: kw.Line, Stmts: []ast.Stmt{body}}
	if incr != nil {
		loopBody.Stmts = append(loopBody.Stmts, &ast.ExprStmt{Expr: incr})
	}
	if cond == nil {
		cond = &ast.Literal{Value: value.NewBool(true), LineNo: kw.Line}
	}

	outer := &ast.Block{LineNo: kw.Line}
	if init != nil {
		outer.Stmts = append(outer.Stmts, init)
	}
	outer.Stmts = append(outer.Stmts, &ast.While{Keyword: kw, Cond: cond, Body: loopBody})
	return outer
}

// --- Expressions ---

func (p *parser) parseExpr() ast.Expr {
	return p.parseAssignment()
}

func (p *parser) parseAssignment() ast.Expr {
	expr := p.parseOr()
	if expr == nil {
		return nil
	}
	if p.peek() != token.Equal {
		return expr
	}

	equals := p.advance()
	v, ok := expr.(*ast.Variable)
	if !ok {
		p.errorAt(equals, msgInvalidAssign)
		return nil
	}
	val := p.parseAssignment()
	if val == nil {
		return nil
	}
	return &ast.Assign{Name: v.Name, Value: val}
}

func (p *parser) parseOr() ast.Expr {
	left := p.parseAnd()
	if left == nil {
		return nil
	}
	for p.peek() == token.Or {
		op := p.advance()
		right := p.parseAnd()
		if right == nil {
			return nil
		}
		left = &ast.Logical{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *parser) parseAnd() ast.Expr {
	left := p.parseEquality()
	if left == nil {
		return nil
	}
	for p.peek() == token.And {
		op := p.advance()
		right := p.parseEquality()
		if right == nil {
			return nil
		}
		left = &ast.Logical{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *parser) parseEquality() ast.Expr {
	return p.parseBinary(p.parseComparison, token.EqualEqual, token.BangEqual)
}

func (p *parser) parseComparison() ast.Expr {
	return p.parseBinary(p.parseTerm, token.Greater, token.GreaterEqual, token.Less, token.LessEqual)
}

func (p *parser) parseTerm() ast.Expr {
	return p.parseBinary(p.parseFactor, token.Plus, token.Minus)
}

func (p *parser) parseFactor() ast.Expr {
	return p.parseBinary(p.parseUnary, token.Star, token.Slash)
}

// parseBinary parses a left-associative chain of operands joined by any of
// ops.
func (p *parser) parseBinary(operand func() ast.Expr, ops ...token.Kind) ast.Expr {
	left := operand()
	if left == nil {
		return nil
	}
	for isOneOf(p.peek(), ops) {
		op := p.advance()
		right := operand()
		if right == nil {
			return nil
		}
		left = &ast.Binary{Left: left, Op: op, Right: right}
	}
	return left
}

func isOneOf(k token.Kind, kinds []token.Kind) bool {
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

func (p *parser) parseUnary() ast.Expr {
	if p.peek() == token.Bang || p.peek() == token.Minus {
		op := p.advance()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		return &ast.Unary{Op: op, Right: right}
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() ast.Expr {
	tok := p.current()

	switch tok.Kind {
	case token.Number, token.String, token.True, token.False, token.Nil:
		p.advance()
		lit := tok.Literal
		if lit == nil {
			lit = value.NewNil()
		}
		return &ast.Literal{Value: lit, LineNo: tok.Line}

	case token.Identifier:
		p.advance()
		return &ast.Variable{Name: tok}

	case token.LeftParen:
		p.advance()
		inner := p.parseExpr()
		if inner == nil {
			return nil
		}
		if _, ok := p.expect(token.RightParen, msgExpectRParenGroup); !ok {
			return nil
		}
		return &ast.Grouping{Inner: inner}

	default:
		p.errorAt(tok, msgExpectExpr)
		return nil
	}
}
