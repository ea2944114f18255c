// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     parser
// Description: Declaration productions: attributes, functions, services,
//              agents and spawn
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package parser

import (
	"strings"

	"github.com/msto63/dal/internal/ast"
	"github.com/msto63/dal/internal/lexer"
)

// visibilityAttributes mark service fields rather than methods
var visibilityAttributes = map[string]bool{
	"public": true, "private": true, "internal": true,
}

// parseAttributes parses zero or more @name[(args)] annotations
func (p *Parser) parseAttributes() (ast.Attributes, error) {
	var attrs ast.Attributes
	for p.check(lexer.TokenAt) {
		at := p.advance()
		if !p.check(lexer.TokenIdentifier) && !p.check(lexer.TokenKeyword) {
			return nil, &InvalidAttributeError{
				File:   p.options.File,
				Name:   p.current.Value,
				Line:   at.Line,
				Reason: "expected attribute name after '@'",
			}
		}
		attr := &ast.Attribute{
			Name: p.advance().Value,
			Pos:  ast.Position{Line: at.Line, Column: at.Column},
		}
		if p.match(lexer.TokenLeftParen) {
			for !p.check(lexer.TokenRightParen) {
				arg, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				attr.Args = append(attr.Args, arg)
				if !p.match(lexer.TokenComma) {
					break
				}
			}
			if _, err := p.expect(lexer.TokenRightParen, "')'"); err != nil {
				return nil, err
			}
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

// parseAttributedDeclaration parses attributes followed by fn, async fn,
// export or service
func (p *Parser) parseAttributedDeclaration(exported bool) (ast.Statement, error) {
	attrs, err := p.parseAttributes()
	if err != nil {
		return nil, err
	}

	switch {
	case p.checkKeyword("fn"):
		return p.parseFunction(attrs, false, exported)
	case p.checkKeyword("async"):
		return p.parseAsyncFunction(attrs, exported)
	case p.checkKeyword("service"):
		return p.parseService(attrs, exported)
	case p.checkKeyword("export") && !exported:
		p.advance()
		return p.parseExportWith(attrs)
	}

	first := attrs[0]
	return nil, &InvalidAttributeError{
		File:   p.options.File,
		Name:   first.Name,
		Line:   first.Pos.Line,
		Reason: "attributes must precede a function or service declaration",
	}
}

func (p *Parser) parseExport() (ast.Statement, error) {
	p.advance()
	return p.parseExportWith(nil)
}

func (p *Parser) parseExportWith(attrs ast.Attributes) (ast.Statement, error) {
	more, err := p.parseAttributes()
	if err != nil {
		return nil, err
	}
	attrs = append(attrs, more...)

	switch {
	case p.checkKeyword("fn"):
		return p.parseFunction(attrs, false, true)
	case p.checkKeyword("async"):
		return p.parseAsyncFunction(attrs, true)
	case p.checkKeyword("service"):
		return p.parseService(attrs, true)
	}
	return nil, p.unexpected("function or service declaration")
}

func (p *Parser) parseAsyncFunction(attrs ast.Attributes, exported bool) (*ast.FunctionStatement, error) {
	p.advance()
	if !p.checkKeyword("fn") {
		return nil, p.unexpected("'fn'")
	}
	return p.parseFunction(attrs, true, exported)
}

// parseFunction parses fn name(params) [-> type] { body }
func (p *Parser) parseFunction(attrs ast.Attributes, async, exported bool) (*ast.FunctionStatement, error) {
	pos := p.position()
	if len(attrs) > 0 {
		pos = attrs[0].Pos
	}
	p.advance() // fn

	name, err := p.expectName("function name")
	if err != nil {
		return nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	fn := &ast.FunctionStatement{
		Name:       name,
		Params:     params,
		Attributes: attrs,
		IsAsync:    async,
		Exported:   exported,
		Pos:        pos,
	}
	if p.match(lexer.TokenArrow) {
		if fn.ReturnType, err = p.parseType(); err != nil {
			return nil, err
		}
	}
	if fn.Body, err = p.parseBlock(); err != nil {
		return nil, err
	}
	return fn, nil
}

// parseParams parses (name [: type], ...)
func (p *Parser) parseParams() ([]ast.Param, error) {
	if _, err := p.expect(lexer.TokenLeftParen, "'('"); err != nil {
		return nil, err
	}
	var params []ast.Param
	for !p.check(lexer.TokenRightParen) {
		name, err := p.expectName("parameter name")
		if err != nil {
			return nil, err
		}
		param := ast.Param{Name: name}
		if p.match(lexer.TokenColon) {
			if param.Type, err = p.parseType(); err != nil {
				return nil, err
			}
		}
		params = append(params, param)
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	if _, err := p.expect(lexer.TokenRightParen, "')'"); err != nil {
		return nil, err
	}
	return params, nil
}

// parseType parses a type reference such as int, map<string, int>,
// vec<Order> or [int], returned in normalized text form
func (p *Parser) parseType() (string, error) {
	if p.match(lexer.TokenLeftBracket) {
		inner, err := p.parseType()
		if err != nil {
			return "", err
		}
		if _, err := p.expect(lexer.TokenRightBracket, "']'"); err != nil {
			return "", err
		}
		return "[" + inner + "]", nil
	}
	if p.check(lexer.TokenNull) {
		return p.advance().Value, nil
	}

	name, err := p.expectAnyName("type name")
	if err != nil {
		return "", err
	}
	for p.match(lexer.TokenDoubleColon) {
		part, err := p.expectAnyName("type name")
		if err != nil {
			return "", err
		}
		name += "::" + part
	}
	if !p.match(lexer.TokenLess) {
		return name, nil
	}

	var args []string
	for {
		arg, err := p.parseType()
		if err != nil {
			return "", err
		}
		args = append(args, arg)
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	if _, err := p.expect(lexer.TokenGreater, "'>'"); err != nil {
		return "", err
	}
	return name + "<" + strings.Join(args, ", ") + ">", nil
}

// parseService parses service Name [@attrs] { fields, events, methods }
func (p *Parser) parseService(attrs ast.Attributes, exported bool) (*ast.ServiceStatement, error) {
	pos := p.position()
	if len(attrs) > 0 {
		pos = attrs[0].Pos
	}
	p.advance() // service

	name, err := p.expect(lexer.TokenIdentifier, "service name")
	if err != nil {
		return nil, err
	}
	svc := &ast.ServiceStatement{Name: name.Value, Attributes: attrs, Exported: exported, Pos: pos}

	trailing, err := p.parseAttributes()
	if err != nil {
		return nil, err
	}
	svc.Attributes = append(svc.Attributes, trailing...)

	if _, err := p.expect(lexer.TokenLeftBrace, "'{'"); err != nil {
		return nil, err
	}
	for !p.match(lexer.TokenRightBrace) {
		if p.atEOF() {
			return nil, p.unexpected("'}'")
		}
		if err := p.parseServiceItem(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

func (p *Parser) parseServiceItem(svc *ast.ServiceStatement) error {
	if p.match(lexer.TokenSemicolon) {
		return nil
	}

	attrs, err := p.parseAttributes()
	if err != nil {
		return err
	}

	visibility := ""
	if p.checkKeyword("private") || p.checkKeyword("pub") {
		visibility = p.advance().Value
		if visibility == "pub" {
			visibility = "public"
		}
	}

	switch {
	case p.checkKeyword("fn"):
		fn, err := p.parseFunction(attrs, false, false)
		if err != nil {
			return err
		}
		svc.Methods = append(svc.Methods, fn)
		return nil
	case p.checkKeyword("async"):
		fn, err := p.parseAsyncFunction(attrs, false)
		if err != nil {
			return err
		}
		svc.Methods = append(svc.Methods, fn)
		return nil
	case p.checkKeyword("event") && len(attrs) == 0:
		return p.parseEventDecl(svc)
	}

	// field: [@public|@private|@internal] name: type [= init];
	for _, a := range attrs {
		if !visibilityAttributes[a.Name] {
			return &InvalidAttributeError{
				File:   p.options.File,
				Name:   a.Name,
				Line:   a.Pos.Line,
				Reason: "only @public, @private or @internal may precede a field",
			}
		}
		visibility = a.Name
	}

	field := &ast.FieldDecl{Visibility: visibility, Pos: p.position()}
	if field.Name, err = p.expectName("field, method or event declaration"); err != nil {
		return err
	}
	if _, err := p.expect(lexer.TokenColon, "':'"); err != nil {
		return err
	}
	if field.Type, err = p.parseType(); err != nil {
		return err
	}
	if p.match(lexer.TokenAssign) {
		if field.Value, err = p.parseExpression(); err != nil {
			return err
		}
	}
	if !p.match(lexer.TokenSemicolon) && !p.match(lexer.TokenComma) && !p.check(lexer.TokenRightBrace) {
		return p.unexpected("';'")
	}
	svc.Fields = append(svc.Fields, field)
	return nil
}

// parseEventDecl parses event Name(p: T, ...);
func (p *Parser) parseEventDecl(svc *ast.ServiceStatement) error {
	pos := p.position()
	p.advance()

	name, err := p.expect(lexer.TokenIdentifier, "event name")
	if err != nil {
		return err
	}
	params, err := p.parseParams()
	if err != nil {
		return err
	}
	p.match(lexer.TokenSemicolon)
	svc.Events = append(svc.Events, &ast.EventDecl{Name: name.Value, Params: params, Pos: pos})
	return nil
}

// parseAgent parses agent name : type { config } [with [caps]] { body }
func (p *Parser) parseAgent() (ast.Statement, error) {
	pos := p.position()
	p.advance()

	name := p.advance().Value
	p.advance() // ':'
	agentType, err := p.expectAnyName("agent type")
	if err != nil {
		return nil, err
	}
	config, err := p.parseObjectLiteral()
	if err != nil {
		return nil, err
	}
	stmt := &ast.AgentStatement{Name: name, AgentType: agentType, Config: config, Pos: pos}

	if p.checkKeyword("with") {
		p.advance()
		if stmt.Capabilities, err = p.parseCapabilityList(); err != nil {
			return nil, err
		}
	}
	if stmt.Body, err = p.parseBlock(); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseCapabilityList parses ["cap", cap, ...]
func (p *Parser) parseCapabilityList() ([]string, error) {
	if _, err := p.expect(lexer.TokenLeftBracket, "'['"); err != nil {
		return nil, err
	}
	var caps []string
	for !p.check(lexer.TokenRightBracket) {
		if !p.check(lexer.TokenString) && !p.check(lexer.TokenIdentifier) {
			return nil, p.unexpected("capability name or ']'")
		}
		caps = append(caps, p.advance().Value)
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	if _, err := p.expect(lexer.TokenRightBracket, "']'"); err != nil {
		return nil, err
	}
	return caps, nil
}

// parseSpawn parses spawn name [: type] [{config}] { body }. A config
// literal is only recognized after a type and when a body block follows.
func (p *Parser) parseSpawn() (ast.Statement, error) {
	pos := p.position()
	p.advance()

	stmt := &ast.SpawnStatement{Name: p.advance().Value, Pos: pos}
	var err error
	if p.match(lexer.TokenColon) {
		if stmt.AgentType, err = p.expectAnyName("agent type"); err != nil {
			return nil, err
		}
		if p.check(lexer.TokenLeftBrace) {
			end := p.closingBrace(p.pos)
			if end > 0 && end+1 < len(p.tokens) && p.tokens[end+1].Type == lexer.TokenLeftBrace {
				if stmt.Config, err = p.parseObjectLiteral(); err != nil {
					return nil, err
				}
			}
		}
	}
	if stmt.Body, err = p.parseBlock(); err != nil {
		return nil, err
	}
	p.match(lexer.TokenSemicolon)
	return stmt, nil
}
