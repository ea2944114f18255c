// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     parser
// Description: Statement productions
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package parser

import (
	"github.com/msto63/dal/internal/ast"
	"github.com/msto63/dal/internal/lexer"
)

// parseStatement dispatches on the leading token. A nil statement with a
// nil error is an empty statement.
func (p *Parser) parseStatement(topLevel bool) (ast.Statement, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	switch p.current.Type {
	case lexer.TokenSemicolon:
		p.advance()
		return nil, nil
	case lexer.TokenAt:
		return p.parseAttributedDeclaration(false)
	case lexer.TokenLeftBrace:
		return p.parseBlock()
	case lexer.TokenKeyword:
		switch p.current.Value {
		case "let":
			return p.parseLet()
		case "fn":
			return p.parseFunction(nil, false, false)
		case "async":
			return p.parseAsyncFunction(nil, false)
		case "export":
			if !topLevel {
				return nil, p.unexpected("statement")
			}
			return p.parseExport()
		case "import":
			return p.parseImport()
		case "if":
			return p.parseIf()
		case "while":
			return p.parseWhile()
		case "for":
			return p.parseForIn()
		case "loop":
			return p.parseLoop()
		case "try":
			return p.parseTry()
		case "return":
			return p.parseReturn()
		case "break":
			return p.parseBreak()
		case "continue":
			pos := p.position()
			p.advance()
			p.match(lexer.TokenSemicolon)
			return &ast.ContinueStatement{Pos: pos}, nil
		case "service":
			if p.peek(1).Type == lexer.TokenIdentifier {
				return p.parseService(nil, false)
			}
		case "agent":
			if p.peek(1).Type == lexer.TokenIdentifier && p.peek(2).Type == lexer.TokenColon {
				return p.parseAgent()
			}
		case "spawn":
			next := p.peek(2).Type
			if p.peek(1).Type == lexer.TokenIdentifier && (next == lexer.TokenColon || next == lexer.TokenLeftBrace) {
				return p.parseSpawn()
			}
		case "msg":
			if p.peek(1).Type == lexer.TokenIdentifier {
				return p.parseMsg()
			}
		case "event":
			if p.peek(1).Type == lexer.TokenIdentifier && p.peek(2).Type == lexer.TokenLeftBrace {
				return p.parseEvent()
			}
		}
	}

	return p.parseExpressionStatement()
}

func (p *Parser) parseExpressionStatement() (ast.Statement, error) {
	pos := p.position()
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	stmt := &ast.ExpressionStatement{Expr: expr, Pos: pos}
	switch {
	case p.match(lexer.TokenSemicolon):
		stmt.Terminated = true
	case p.check(lexer.TokenRightBrace), p.atEOF():
		// trailing expression: its value becomes the block value
	default:
		if _, isMatch := expr.(*ast.MatchExpression); !isMatch {
			return nil, p.unexpected("';'")
		}
		stmt.Terminated = true
	}
	return stmt, nil
}

// parseBlock parses { statements }
func (p *Parser) parseBlock() (*ast.BlockStatement, error) {
	start, err := p.expect(lexer.TokenLeftBrace, "'{'")
	if err != nil {
		return nil, err
	}
	block := &ast.BlockStatement{Pos: ast.Position{Line: start.Line, Column: start.Column}}
	for !p.check(lexer.TokenRightBrace) {
		if p.atEOF() {
			return nil, p.unexpected("'}'")
		}
		stmt, err := p.parseStatement(false)
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
	}
	p.advance()
	return block, nil
}

// parseLet parses let [mut] name [: type] [= expr];
func (p *Parser) parseLet() (ast.Statement, error) {
	pos := p.position()
	p.advance()

	stmt := &ast.LetStatement{Pos: pos}
	if p.checkKeyword("mut") {
		p.advance()
		stmt.Mutable = true
	}
	name, err := p.expectName("variable name")
	if err != nil {
		return nil, err
	}
	stmt.Name = name

	if p.match(lexer.TokenColon) {
		if stmt.Type, err = p.parseType(); err != nil {
			return nil, err
		}
	}
	if p.match(lexer.TokenAssign) {
		if stmt.Value, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.TokenSemicolon, "';'"); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseIf parses if (cond) { } [else if (cond) { }]* [else { }]
func (p *Parser) parseIf() (ast.Statement, error) {
	pos := p.position()
	p.advance()

	cond, err := p.parseParenCondition()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStatement{Condition: cond, Then: then, Pos: pos}

	if p.checkKeyword("else") {
		p.advance()
		if p.checkKeyword("if") {
			if stmt.Else, err = p.parseIf(); err != nil {
				return nil, err
			}
		} else {
			block, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			stmt.Else = block
		}
	}
	return stmt, nil
}

func (p *Parser) parseParenCondition() (ast.Expression, error) {
	if _, err := p.expect(lexer.TokenLeftParen, "'('"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenRightParen, "')'"); err != nil {
		return nil, err
	}
	return cond, nil
}

// parseWhile parses while (cond) { }
func (p *Parser) parseWhile() (ast.Statement, error) {
	pos := p.position()
	p.advance()

	cond, err := p.parseParenCondition()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStatement{Condition: cond, Body: body, Pos: pos}, nil
}

// parseForIn parses for ident in expr { }
func (p *Parser) parseForIn() (ast.Statement, error) {
	pos := p.position()
	p.advance()

	name, err := p.expectName("loop variable")
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("in"); err != nil {
		return nil, err
	}
	iterable, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ForInStatement{Variable: name, Iterable: iterable, Body: body, Pos: pos}, nil
}

func (p *Parser) parseLoop() (ast.Statement, error) {
	pos := p.position()
	p.advance()

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.LoopStatement{Body: body, Pos: pos}, nil
}

// parseTry parses try { } [catch [(Type var)] { }]* [finally { }]
func (p *Parser) parseTry() (ast.Statement, error) {
	pos := p.position()
	p.advance()

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &ast.TryStatement{Body: body, Pos: pos}

	for p.checkKeyword("catch") {
		clause := &ast.CatchClause{Pos: p.position()}
		p.advance()
		if p.match(lexer.TokenLeftParen) {
			first, err := p.expectName("error type or variable")
			if err != nil {
				return nil, err
			}
			if p.check(lexer.TokenIdentifier) {
				clause.Type = first
				clause.Variable = p.advance().Value
			} else {
				clause.Variable = first
			}
			if _, err := p.expect(lexer.TokenRightParen, "')'"); err != nil {
				return nil, err
			}
		}
		if clause.Body, err = p.parseBlock(); err != nil {
			return nil, err
		}
		stmt.Catches = append(stmt.Catches, clause)
	}

	if p.checkKeyword("finally") {
		p.advance()
		if stmt.Finally, err = p.parseBlock(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *Parser) parseReturn() (ast.Statement, error) {
	pos := p.position()
	p.advance()

	stmt := &ast.ReturnStatement{Pos: pos}
	if p.match(lexer.TokenSemicolon) || p.check(lexer.TokenRightBrace) {
		return stmt, nil
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	stmt.Value = value
	if !p.check(lexer.TokenRightBrace) {
		if _, err := p.expect(lexer.TokenSemicolon, "';'"); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *Parser) parseBreak() (ast.Statement, error) {
	pos := p.position()
	p.advance()

	stmt := &ast.BreakStatement{Pos: pos}
	if p.match(lexer.TokenSemicolon) || p.check(lexer.TokenRightBrace) || p.check(lexer.TokenComma) {
		return stmt, nil
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	stmt.Value = value
	p.match(lexer.TokenSemicolon)
	return stmt, nil
}

// parseImport parses import "path" [as alias]; or import a::b;
func (p *Parser) parseImport() (ast.Statement, error) {
	pos := p.position()
	p.advance()

	stmt := &ast.ImportStatement{Pos: pos}
	if p.check(lexer.TokenString) {
		stmt.Path = p.advance().Value
	} else {
		name, err := p.expectName("import path")
		if err != nil {
			return nil, err
		}
		stmt.Path = name
		for p.match(lexer.TokenDoubleColon) {
			part, err := p.expectAnyName("import path segment")
			if err != nil {
				return nil, err
			}
			stmt.Path += "::" + part
		}
	}
	if p.checkKeyword("as") {
		p.advance()
		alias, err := p.expectName("import alias")
		if err != nil {
			return nil, err
		}
		stmt.Alias = alias
	}
	if _, err := p.expect(lexer.TokenSemicolon, "';'"); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseMsg parses msg recipient [with] { k: v, ... };
func (p *Parser) parseMsg() (ast.Statement, error) {
	pos := p.position()
	p.advance()

	recipient := p.advance().Value
	if p.checkKeyword("with") {
		p.advance()
	}
	data, err := p.parseDataBlock()
	if err != nil {
		return nil, err
	}
	p.match(lexer.TokenSemicolon)
	return &ast.MsgStatement{Recipient: recipient, Data: data, Pos: pos}, nil
}

// parseEvent parses event name { k: v, ... };
func (p *Parser) parseEvent() (ast.Statement, error) {
	pos := p.position()
	p.advance()

	name := p.advance().Value
	data, err := p.parseDataBlock()
	if err != nil {
		return nil, err
	}
	p.match(lexer.TokenSemicolon)
	return &ast.EventStatement{Name: name, Data: data, Pos: pos}, nil
}

// parseDataBlock parses the strict msg/event payload: identifier keys,
// mandatory colons, commas between entries and no trailing comma.
func (p *Parser) parseDataBlock() (*ast.ObjectLiteral, error) {
	start, err := p.expect(lexer.TokenLeftBrace, "'{'")
	if err != nil {
		return nil, err
	}
	obj := &ast.ObjectLiteral{Pos: ast.Position{Line: start.Line, Column: start.Column}}
	if p.match(lexer.TokenRightBrace) {
		return obj, nil
	}
	for {
		key, err := p.expect(lexer.TokenIdentifier, "identifier key")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenColon, "':'"); err != nil {
			return nil, err
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		obj.Entries = append(obj.Entries, ast.ObjectEntry{Key: key.Value, Value: value})
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	if _, err := p.expect(lexer.TokenRightBrace, "',' or '}'"); err != nil {
		return nil, err
	}
	return obj, nil
}
