// Package parser implements a recursive-descent, operator-precedence
// parser producing an ast.Program from a token stream. On a syntax
// error it records a diagnostic and enters panic-mode recovery so one
// source file can report more than one syntax error.
package parser

import (
	"strconv"

	"github.com/babellang/babel/ast"
	"github.com/babellang/babel/diagnostics"
	"github.com/babellang/babel/lang"
	"github.com/babellang/babel/lexer"
)

// Parser holds two tokens of lookahead over a Lexer, in the same
// shape as this codebase's other hand-written recursive-descent
// parser: current token, one token of peek, and an accumulated error
// list rather than an immediate panic.
type Parser struct {
	lex *lexer.Lexer

	cur  lexer.Token
	peek lexer.Token

	diags []diagnostics.Diagnostic
}

// New creates a Parser over source, tokenized against language.
func New(source string, language lang.Language) *Parser {
	p := &Parser{lex: lexer.New(source, language)}
	p.nextToken()
	p.nextToken()
	return p
}

// Diagnostics returns every error recorded during parsing.
func (p *Parser) Diagnostics() []diagnostics.Diagnostic { return p.diags }

func (p *Parser) nextToken() {
	p.cur = p.peek
	p.peek = p.lex.NextToken()
}

func (p *Parser) curIs(k lexer.Kind) bool  { return p.cur.Kind == k }
func (p *Parser) peekIs(k lexer.Kind) bool { return p.peek.Kind == k }

func (p *Parser) errorAt(kind diagnostics.Kind, tok lexer.Token, format string, args ...any) {
	p.diags = append(p.diags, diagnostics.New(kind, tok.Line, tok.Column, format, args...))
}

// unexpectedKind classifies an unexpected token: an UNKNOWN token
// (one the lexer couldn't recognize at all) is a LexicalError; any
// other token in the wrong place is a SyntaxError.
func unexpectedKind(tok lexer.Token) diagnostics.Kind {
	if tok.Kind == lexer.UNKNOWN {
		return diagnostics.LexicalError
	}
	return diagnostics.SyntaxError
}

// expect consumes the current token if it has kind k, else records a
// syntax (or, for an UNKNOWN token, lexical) error and leaves the
// token stream positioned at the offending token for synchronize to
// clean up.
func (p *Parser) expect(k lexer.Kind, context string) bool {
	if p.curIs(k) {
		p.nextToken()
		return true
	}
	p.errorAt(unexpectedKind(p.cur), p.cur, "expected %s %s, got %s", k, context, p.cur.Kind)
	return false
}

func (p *Parser) pos() ast.Position {
	return ast.Position{Line: p.cur.Line, Column: p.cur.Column}
}

// synchronize implements panic-mode recovery: discard tokens until a
// statement boundary is reached (a consumed ';', an unconsumed
// statement-starting keyword, or EOF), then resume parsing there.
func (p *Parser) synchronize() {
	for !p.curIs(lexer.EOF) {
		if p.curIs(lexer.SEMICOLON) {
			p.nextToken()
			return
		}
		switch p.cur.Kind {
		case lexer.IF, lexer.WHILE, lexer.FOR, lexer.FUNCTION, lexer.VAR, lexer.RETURN:
			return
		}
		p.nextToken()
	}
}

// ---------------------------------------------------------------------------
// Program / declarations
// ---------------------------------------------------------------------------

// Parse tokenizes and parses source completely, returning the
// program parsed so far (which may be partial) and every diagnostic
// recorded along the way.
func Parse(source string, language lang.Language) (*ast.Program, []diagnostics.Diagnostic) {
	p := New(source, language)
	return p.ParseProgram(), p.Diagnostics()
}

func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{}
	for !p.curIs(lexer.EOF) {
		before := len(p.diags)
		stmt := p.parseDeclaration()
		if stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
		if len(p.diags) > before {
			p.synchronize()
		}
	}
	return prog
}

func (p *Parser) parseDeclaration() ast.Stmt {
	switch p.cur.Kind {
	case lexer.FUNCTION:
		return p.parseFunctionDecl()
	case lexer.VAR:
		return p.parseVarDecl()
	default:
		return p.parseStatement()
	}
}

func (p *Parser) parseFunctionDecl() ast.Stmt {
	pos := p.pos()
	p.nextToken() // consume 'function'

	name := p.cur.Lexeme
	p.expect(lexer.IDENTIFIER, "as function name")
	p.expect(lexer.LPAREN, "after function name")

	var params []string
	if !p.curIs(lexer.RPAREN) {
		params = append(params, p.cur.Lexeme)
		p.expect(lexer.IDENTIFIER, "as parameter name")
		for p.curIs(lexer.COMMA) {
			p.nextToken()
			params = append(params, p.cur.Lexeme)
			p.expect(lexer.IDENTIFIER, "as parameter name")
		}
	}
	p.expect(lexer.RPAREN, "after parameter list")

	body := p.parseBlock()
	return &ast.FunctionDecl{Name: name, Params: params, Body: body, Position: pos}
}

func (p *Parser) parseVarDecl() ast.Stmt {
	pos := p.pos()
	p.nextToken() // consume 'var'

	name := p.cur.Lexeme
	p.expect(lexer.IDENTIFIER, "as variable name")

	var init ast.Expr
	if p.curIs(lexer.ASSIGN) {
		p.nextToken()
		init = p.parseExpression()
	}
	p.expect(lexer.SEMICOLON, "after variable declaration")
	return &ast.VarDecl{Name: name, Init: init, Position: pos}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *Parser) parseStatement() ast.Stmt {
	switch p.cur.Kind {
	case lexer.IF:
		return p.parseIfStmt()
	case lexer.WHILE:
		return p.parseWhileStmt()
	case lexer.FOR:
		return p.parseForStmt()
	case lexer.RETURN:
		return p.parseReturnStmt()
	case lexer.LBRACE:
		return p.parseBlock()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseExprStmt() ast.Stmt {
	pos := p.pos()
	expr := p.parseExpression()
	p.expect(lexer.SEMICOLON, "after expression")
	return &ast.ExprStmt{Expr: expr, Position: pos}
}

func (p *Parser) parseIfStmt() ast.Stmt {
	pos := p.pos()
	p.nextToken() // consume 'if'
	p.expect(lexer.LPAREN, "after if")
	cond := p.parseExpression()
	p.expect(lexer.RPAREN, "after if condition")
	then := p.parseStatement()

	var elseBranch ast.Stmt
	if p.curIs(lexer.ELSE) {
		p.nextToken()
		elseBranch = p.parseStatement()
	}
	return &ast.If{Cond: cond, Then: then, Else: elseBranch, Position: pos}
}

func (p *Parser) parseWhileStmt() ast.Stmt {
	pos := p.pos()
	p.nextToken() // consume 'while'
	p.expect(lexer.LPAREN, "after while")
	cond := p.parseExpression()
	p.expect(lexer.RPAREN, "after while condition")
	body := p.parseStatement()
	return &ast.While{Cond: cond, Body: body, Position: pos}
}

func (p *Parser) parseForStmt() ast.Stmt {
	pos := p.pos()
	p.nextToken() // consume 'for'
	p.expect(lexer.LPAREN, "after for")

	var init ast.Stmt
	switch {
	case p.curIs(lexer.SEMICOLON):
		p.nextToken()
	case p.curIs(lexer.VAR):
		init = p.parseVarDecl()
	default:
		init = p.parseExprStmt()
	}

	var cond ast.Expr
	if !p.curIs(lexer.SEMICOLON) {
		cond = p.parseExpression()
	}
	p.expect(lexer.SEMICOLON, "after for condition")

	var post ast.Expr
	if !p.curIs(lexer.RPAREN) {
		post = p.parseExpression()
	}
	p.expect(lexer.RPAREN, "after for clauses")

	body := p.parseStatement()

	var postStmt ast.Stmt
	if post != nil {
		postStmt = &ast.ExprStmt{Expr: post, Position: post.Pos()}
	}
	return &ast.For{Init: init, Cond: cond, Post: postStmt, Body: body, Position: pos}
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	pos := p.pos()
	p.nextToken() // consume 'return'
	var value ast.Expr
	if !p.curIs(lexer.SEMICOLON) {
		value = p.parseExpression()
	}
	p.expect(lexer.SEMICOLON, "after return value")
	return &ast.Return{Value: value, Position: pos}
}

func (p *Parser) parseBlock() *ast.Block {
	pos := p.pos()
	p.expect(lexer.LBRACE, "to start block")
	block := &ast.Block{Position: pos}
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		before := len(p.diags)
		stmt := p.parseDeclaration()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		if len(p.diags) > before {
			p.synchronize()
		}
	}
	p.expect(lexer.RBRACE, "to close block")
	return block
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (p *Parser) parseExpression() ast.Expr { return p.parseAssignment() }

// parseAssignment parses an `or`-expression and, if an '=' follows,
// reinterprets it as an assignment target. The target must be a bare
// identifier; anything else (a literal, a call, a parenthesized
// expression) is a SyntaxError at the '=' token.
func (p *Parser) parseAssignment() ast.Expr {
	left := p.parseOr()
	if !p.curIs(lexer.ASSIGN) {
		return left
	}
	eqPos := p.pos()
	p.nextToken() // consume '='
	value := p.parseAssignment()

	ident, ok := left.(*ast.Identifier)
	if !ok {
		p.errorAt(diagnostics.SyntaxError, lexer.Token{Line: eqPos.Line, Column: eqPos.Column}, "invalid assignment target")
		return value
	}
	return &ast.Assignment{Name: ident.Name, Value: value, Position: ident.Position}
}

func (p *Parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.curIs(lexer.OR) {
		pos := p.pos()
		op := p.cur.Kind
		p.nextToken()
		right := p.parseAnd()
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, Position: pos}
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	left := p.parseEquality()
	for p.curIs(lexer.AND) {
		pos := p.pos()
		op := p.cur.Kind
		p.nextToken()
		right := p.parseEquality()
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, Position: pos}
	}
	return left
}

func (p *Parser) parseEquality() ast.Expr {
	left := p.parseComparison()
	for p.curIs(lexer.EQ) || p.curIs(lexer.NOTEQ) {
		pos := p.pos()
		op := p.cur.Kind
		p.nextToken()
		right := p.parseComparison()
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, Position: pos}
	}
	return left
}

func (p *Parser) parseComparison() ast.Expr {
	left := p.parseTerm()
	for p.curIs(lexer.LT) || p.curIs(lexer.LE) || p.curIs(lexer.GT) || p.curIs(lexer.GE) {
		pos := p.pos()
		op := p.cur.Kind
		p.nextToken()
		right := p.parseTerm()
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, Position: pos}
	}
	return left
}

func (p *Parser) parseTerm() ast.Expr {
	left := p.parseFactor()
	for p.curIs(lexer.PLUS) || p.curIs(lexer.MINUS) {
		pos := p.pos()
		op := p.cur.Kind
		p.nextToken()
		right := p.parseFactor()
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, Position: pos}
	}
	return left
}

func (p *Parser) parseFactor() ast.Expr {
	left := p.parseUnary()
	for p.curIs(lexer.STAR) || p.curIs(lexer.SLASH) || p.curIs(lexer.PERCENT) {
		pos := p.pos()
		op := p.cur.Kind
		p.nextToken()
		right := p.parseUnary()
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, Position: pos}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	if p.curIs(lexer.NOT) || p.curIs(lexer.MINUS) {
		pos := p.pos()
		op := p.cur.Kind
		p.nextToken()
		right := p.parseUnary()
		return &ast.UnaryExpr{Op: op, Right: right, Position: pos}
	}
	return p.parseCall()
}

func (p *Parser) parseCall() ast.Expr {
	expr := p.parsePrimary()
	for p.curIs(lexer.LPAREN) {
		pos := p.pos()
		p.nextToken() // consume '('
		var args []ast.Expr
		if !p.curIs(lexer.RPAREN) {
			args = append(args, p.parseExpression())
			for p.curIs(lexer.COMMA) {
				p.nextToken()
				args = append(args, p.parseExpression())
			}
		}
		p.expect(lexer.RPAREN, "after call arguments")
		expr = &ast.CallExpr{Callee: expr, Args: args, Position: pos}
	}
	return expr
}

func (p *Parser) parsePrimary() ast.Expr {
	pos := p.pos()
	switch p.cur.Kind {
	case lexer.NUMBER:
		lit := p.cur.Lexeme
		p.nextToken()
		n, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			p.errorAt(diagnostics.SyntaxError, lexer.Token{Line: pos.Line, Column: pos.Column}, "invalid number literal %q", lit)
			return &ast.NumberLiteral{Value: 0, Position: pos}
		}
		return &ast.NumberLiteral{Value: n, Position: pos}

	case lexer.STRING:
		lit := p.cur.Lexeme
		p.nextToken()
		return &ast.StringLiteral{Value: lit, Position: pos}

	case lexer.TRUE:
		p.nextToken()
		return &ast.BoolLiteral{Value: true, Position: pos}

	case lexer.FALSE:
		p.nextToken()
		return &ast.BoolLiteral{Value: false, Position: pos}

	case lexer.NULL:
		p.nextToken()
		return &ast.NullLiteral{Position: pos}

	case lexer.IDENTIFIER:
		name := p.cur.Lexeme
		p.nextToken()
		return &ast.Identifier{Name: name, Position: pos}

	case lexer.LPAREN:
		p.nextToken()
		expr := p.parseExpression()
		p.expect(lexer.RPAREN, "after parenthesized expression")
		return expr

	default:
		p.errorAt(unexpectedKind(p.cur), p.cur, "unexpected token %s in expression", p.cur.Kind)
		p.nextToken()
		return &ast.NullLiteral{Position: pos}
	}
}
