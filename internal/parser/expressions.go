// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     parser
// Description: Expression productions by operator precedence
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package parser

import (
	"strconv"

	"github.com/msto63/dal/internal/ast"
	"github.com/msto63/dal/internal/lexer"
)

// Precedence, lowest first:
//
//	assignment (right associative)
//	||
//	&&
//	== !=
//	< <= > >=
//	..
//	+ -
//	* / %
//	unary: - ! spawn await throw
//	postfix: call, index, field, method call
//	primary
func (p *Parser) parseExpression() (ast.Expression, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() (ast.Expression, error) {
	left, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.check(lexer.TokenAssign) {
		return left, nil
	}

	assign := p.advance()
	pos := ast.Position{Line: assign.Line, Column: assign.Column}
	value, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}

	switch target := left.(type) {
	case *ast.Identifier, *ast.FieldExpression:
		return &ast.AssignExpression{Target: target, Value: value, Pos: left.Position()}, nil
	case *ast.IndexExpression:
		return &ast.IndexAssignExpression{Object: target.Object, Index: target.Index, Value: value, Pos: left.Position()}, nil
	}
	return nil, &UnexpectedTokenError{
		File:     p.options.File,
		Found:    "'='",
		Expected: "assignable expression before '='",
		Line:     pos.Line,
		Column:   pos.Column,
	}
}

// binaryLevel parses a left associative level of binary operators
func (p *Parser) binaryLevel(next func() (ast.Expression, error), ops ...lexer.TokenType) (ast.Expression, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for p.isOneOf(ops) {
		op := p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpression{
			Left:     left,
			Operator: op.Value,
			Right:    right,
			Pos:      ast.Position{Line: op.Line, Column: op.Column},
		}
	}
	return left, nil
}

func (p *Parser) isOneOf(types []lexer.TokenType) bool {
	for _, tt := range types {
		if p.current.Type == tt {
			return true
		}
	}
	return false
}

func (p *Parser) parseOr() (ast.Expression, error) {
	return p.binaryLevel(p.parseAnd, lexer.TokenOr)
}

func (p *Parser) parseAnd() (ast.Expression, error) {
	return p.binaryLevel(p.parseEquality, lexer.TokenAnd)
}

func (p *Parser) parseEquality() (ast.Expression, error) {
	return p.binaryLevel(p.parseComparison, lexer.TokenEqual, lexer.TokenNotEqual)
}

func (p *Parser) parseComparison() (ast.Expression, error) {
	return p.binaryLevel(p.parseRange,
		lexer.TokenLess, lexer.TokenLessEqual, lexer.TokenGreater, lexer.TokenGreaterEqual)
}

func (p *Parser) parseRange() (ast.Expression, error) {
	start, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if !p.check(lexer.TokenDotDot) {
		return start, nil
	}
	p.advance()
	end, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return &ast.RangeExpression{Start: start, End: end, Pos: start.Position()}, nil
}

func (p *Parser) parseAdditive() (ast.Expression, error) {
	return p.binaryLevel(p.parseMultiplicative, lexer.TokenPlus, lexer.TokenMinus)
}

func (p *Parser) parseMultiplicative() (ast.Expression, error) {
	return p.binaryLevel(p.parseUnary, lexer.TokenStar, lexer.TokenSlash, lexer.TokenPercent)
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	pos := p.position()

	switch {
	case p.check(lexer.TokenMinus), p.check(lexer.TokenNot):
		op := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpression{Operator: op.Value, Operand: operand, Pos: pos}, nil
	case p.checkKeyword("spawn"):
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.SpawnExpression{Operand: operand, Pos: pos}, nil
	case p.checkKeyword("await"):
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.AwaitExpression{Operand: operand, Pos: pos}, nil
	case p.checkKeyword("throw"):
		p.advance()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.ThrowExpression{Value: value, Pos: pos}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Expression, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		switch p.current.Type {
		case lexer.TokenLeftBracket:
			pos := p.position()
			p.advance()
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.TokenRightBracket, "']'"); err != nil {
				return nil, err
			}
			expr = &ast.IndexExpression{Object: expr, Index: index, Pos: pos}
		case lexer.TokenDot:
			pos := p.position()
			p.advance()
			name, err := p.expectAnyName("field or method name")
			if err != nil {
				return nil, err
			}
			if p.check(lexer.TokenLeftParen) {
				args, err := p.parseArguments()
				if err != nil {
					return nil, err
				}
				expr = &ast.MethodCallExpression{Object: expr, Method: name, Args: args, Pos: pos}
			} else {
				expr = &ast.FieldExpression{Object: expr, Field: name, Pos: pos}
			}
		case lexer.TokenLeftParen:
			pos := expr.Position()
			args, err := p.parseArguments()
			if err != nil {
				return nil, err
			}
			expr = &ast.CallExpression{Callee: expr, Args: args, Pos: pos}
		default:
			return expr, nil
		}
	}
}

// parseArguments parses (args). A closure p => { ... } is only accepted
// as the last argument.
func (p *Parser) parseArguments() ([]ast.Expression, error) {
	if _, err := p.expect(lexer.TokenLeftParen, "'('"); err != nil {
		return nil, err
	}
	var args []ast.Expression
	for !p.check(lexer.TokenRightParen) {
		if p.check(lexer.TokenIdentifier) && p.peek(1).Type == lexer.TokenFatArrow {
			closure, err := p.parseClosure()
			if err != nil {
				return nil, err
			}
			args = append(args, closure)
			break
		}
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	if _, err := p.expect(lexer.TokenRightParen, "')'"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parseClosure() (*ast.ClosureExpression, error) {
	pos := p.position()
	param := p.advance().Value
	p.advance() // =>
	if !p.check(lexer.TokenLeftBrace) {
		return nil, p.unexpected("'{' (closures need a block body)")
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ClosureExpression{Param: param, Body: body, Pos: pos}, nil
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	pos := p.position()
	tok := p.current

	switch tok.Type {
	case lexer.TokenInt:
		p.advance()
		v, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, &UnexpectedTokenError{File: p.options.File, Found: tok.Describe(), Expected: "integer", Line: tok.Line, Column: tok.Column}
		}
		return &ast.IntegerLiteral{Value: v, Pos: pos}, nil
	case lexer.TokenFloat:
		p.advance()
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, &UnexpectedTokenError{File: p.options.File, Found: tok.Describe(), Expected: "number", Line: tok.Line, Column: tok.Column}
		}
		return &ast.FloatLiteral{Value: v, Pos: pos}, nil
	case lexer.TokenString:
		p.advance()
		return &ast.StringLiteral{Value: tok.Value, Pos: pos}, nil
	case lexer.TokenBool:
		p.advance()
		return &ast.BoolLiteral{Value: tok.Value == "true", Pos: pos}, nil
	case lexer.TokenNull:
		p.advance()
		return &ast.NullLiteral{Pos: pos}, nil
	case lexer.TokenLeftParen:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenRightParen, "')'"); err != nil {
			return nil, err
		}
		return expr, nil
	case lexer.TokenLeftBracket:
		return p.parseVectorLiteral()
	case lexer.TokenLeftBrace:
		return p.parseObjectLiteral()
	case lexer.TokenIdentifier:
		return p.parseIdentifierExpression()
	case lexer.TokenKeyword:
		if tok.Value == "match" {
			return p.parseMatch()
		}
		if softKeywords[tok.Value] {
			return p.parseIdentifierExpression()
		}
	}
	return nil, p.unexpected("expression")
}

func (p *Parser) parseIdentifierExpression() (ast.Expression, error) {
	pos := p.position()
	name := p.advance().Value

	if p.check(lexer.TokenNot) && p.peek(1).Type == lexer.TokenLeftParen {
		switch name {
		case "vec":
			p.advance()
			args, err := p.parseArguments()
			if err != nil {
				return nil, err
			}
			return &ast.VectorLiteral{Elements: args, Pos: pos}, nil
		case "map":
			p.advance()
			return p.parseMapMacro(pos)
		}
	}

	if !p.check(lexer.TokenDoubleColon) {
		return &ast.Identifier{Name: name, Pos: pos}, nil
	}

	namespace := name
	p.advance()
	function, err := p.expectAnyName("function name after '::'")
	if err != nil {
		return nil, err
	}
	for p.match(lexer.TokenDoubleColon) {
		namespace += "::" + function
		if function, err = p.expectAnyName("function name after '::'"); err != nil {
			return nil, err
		}
	}
	args, err := p.parseArguments()
	if err != nil {
		return nil, err
	}
	return &ast.NamespaceCallExpression{Namespace: namespace, Function: function, Args: args, Pos: pos}, nil
}

// parseMapMacro parses map!(k1, v1, k2, v2, ...)
func (p *Parser) parseMapMacro(pos ast.Position) (ast.Expression, error) {
	open := p.current
	args, err := p.parseArguments()
	if err != nil {
		return nil, err
	}
	if len(args)%2 != 0 {
		return nil, &UnexpectedTokenError{
			File:     p.options.File,
			Found:    "')'",
			Expected: "value for every key in map!",
			Line:     open.Line,
			Column:   open.Column,
		}
	}
	obj := &ast.ObjectLiteral{Pos: pos}
	for i := 0; i < len(args); i += 2 {
		entry := ast.ObjectEntry{Value: args[i+1]}
		if s, ok := args[i].(*ast.StringLiteral); ok {
			entry.Key = s.Value
		} else {
			entry.KeyExpr = args[i]
		}
		obj.Entries = append(obj.Entries, entry)
	}
	return obj, nil
}

func (p *Parser) parseVectorLiteral() (ast.Expression, error) {
	pos := p.position()
	p.advance()

	vec := &ast.VectorLiteral{Pos: pos}
	for !p.check(lexer.TokenRightBracket) {
		elem, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		vec.Elements = append(vec.Elements, elem)
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	if _, err := p.expect(lexer.TokenRightBracket, "']'"); err != nil {
		return nil, err
	}
	return vec, nil
}

// parseObjectLiteral parses { k: v, ... } with identifier or string keys,
// mandatory colons and an optional trailing comma
func (p *Parser) parseObjectLiteral() (*ast.ObjectLiteral, error) {
	start, err := p.expect(lexer.TokenLeftBrace, "'{'")
	if err != nil {
		return nil, err
	}
	obj := &ast.ObjectLiteral{Pos: ast.Position{Line: start.Line, Column: start.Column}}
	for !p.check(lexer.TokenRightBrace) {
		var key string
		switch p.current.Type {
		case lexer.TokenIdentifier, lexer.TokenKeyword, lexer.TokenString:
			key = p.advance().Value
		default:
			return nil, p.unexpected("object key")
		}
		if _, err := p.expect(lexer.TokenColon, "':'"); err != nil {
			return nil, err
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		obj.Entries = append(obj.Entries, ast.ObjectEntry{Key: key, Value: value})
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	if _, err := p.expect(lexer.TokenRightBrace, "',' or '}'"); err != nil {
		return nil, err
	}
	return obj, nil
}

// parseMatch parses match subject { pattern => body, default => body }
func (p *Parser) parseMatch() (ast.Expression, error) {
	pos := p.position()
	p.advance()

	subject, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenLeftBrace, "'{'"); err != nil {
		return nil, err
	}

	m := &ast.MatchExpression{Subject: subject, Pos: pos}
	for !p.match(lexer.TokenRightBrace) {
		if p.atEOF() {
			return nil, p.unexpected("'}'")
		}
		arm := &ast.MatchArm{Pos: p.position()}
		if arm.Pattern, err = p.parsePattern(); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenFatArrow, "'=>'"); err != nil {
			return nil, err
		}
		if arm.Body, err = p.parseArmBody(); err != nil {
			return nil, err
		}
		m.Arms = append(m.Arms, arm)
		p.match(lexer.TokenComma)
	}
	return m, nil
}

// parseArmBody parses a block, a break/continue, or a single expression
func (p *Parser) parseArmBody() (*ast.BlockStatement, error) {
	pos := p.position()
	switch {
	case p.check(lexer.TokenLeftBrace):
		return p.parseBlock()
	case p.checkKeyword("break"):
		stmt, err := p.parseBreak()
		if err != nil {
			return nil, err
		}
		return &ast.BlockStatement{Statements: []ast.Statement{stmt}, Pos: pos}, nil
	case p.checkKeyword("continue"):
		p.advance()
		return &ast.BlockStatement{Statements: []ast.Statement{&ast.ContinueStatement{Pos: pos}}, Pos: pos}, nil
	case p.checkKeyword("return"):
		stmt, err := p.parseReturn()
		if err != nil {
			return nil, err
		}
		return &ast.BlockStatement{Statements: []ast.Statement{stmt}, Pos: pos}, nil
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.BlockStatement{
		Statements: []ast.Statement{&ast.ExpressionStatement{Expr: expr, Pos: pos}},
		Pos:        pos,
	}, nil
}

func (p *Parser) parsePattern() (ast.Pattern, error) {
	pos := p.position()

	if p.checkKeyword("default") {
		p.advance()
		return &ast.WildcardPattern{Default: true, Pos: pos}, nil
	}
	if p.check(lexer.TokenIdentifier) {
		name := p.advance().Value
		if name == "_" {
			return &ast.WildcardPattern{Pos: pos}, nil
		}
		return &ast.BindingPattern{Name: name, Pos: pos}, nil
	}

	start, err := p.parsePatternLiteral()
	if err != nil {
		return nil, err
	}
	if !p.match(lexer.TokenDotDot) {
		return &ast.LiteralPattern{Value: start, Pos: pos}, nil
	}
	end, err := p.parsePatternLiteral()
	if err != nil {
		return nil, err
	}
	return &ast.RangePattern{Start: start, End: end, Pos: pos}, nil
}

func (p *Parser) parsePatternLiteral() (ast.Expression, error) {
	pos := p.position()
	if p.check(lexer.TokenMinus) {
		p.advance()
		if !p.check(lexer.TokenInt) && !p.check(lexer.TokenFloat) {
			return nil, p.unexpected("number")
		}
		lit, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpression{Operator: "-", Operand: lit, Pos: pos}, nil
	}
	switch p.current.Type {
	case lexer.TokenInt, lexer.TokenFloat, lexer.TokenString, lexer.TokenBool, lexer.TokenNull:
		return p.parsePrimary()
	}
	return nil, p.unexpected("pattern")
}
