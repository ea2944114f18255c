// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     parser
// Description: Recursive descent parser turning DAL tokens into an AST
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

// Package parser implements the DAL recursive descent parser. Each
// statement kind is selected by exactly one leading token or keyword.
package parser

import (
	"fmt"

	mdwlog "github.com/msto63/dal/foundation/core/log"
	"github.com/msto63/dal/internal/ast"
	"github.com/msto63/dal/internal/lexer"
)

const (
	// DefaultMaxInputLength bounds source text accepted by ParseSource
	DefaultMaxInputLength = 1 << 20
	// DefaultMaxDepth bounds statement and expression nesting
	DefaultMaxDepth = 256
)

// Options configures parser behavior
type Options struct {
	Logger         *mdwlog.Logger
	MaxInputLength int
	MaxDepth       int
	File           string // used in error messages
}

// Parser implements recursive descent parsing for DAL
type Parser struct {
	tokens   []lexer.Token
	pos      int
	current  lexer.Token
	previous lexer.Token
	depth    int
	logger   *mdwlog.Logger
	options  Options
}

// New creates a new DAL parser with the given options
func New(opts Options) *Parser {
	if opts.Logger == nil {
		opts.Logger = mdwlog.GetDefault()
	}
	if opts.MaxInputLength == 0 {
		opts.MaxInputLength = DefaultMaxInputLength
	}
	if opts.MaxDepth == 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &Parser{
		logger:  opts.Logger.WithField("component", "dal-parser"),
		options: opts,
	}
}

// Parse parses a token stream with default options
func Parse(tokens []lexer.Token) (*ast.Program, error) {
	return New(Options{}).Parse(tokens)
}

// ParseSource tokenizes and parses source text with default options
func ParseSource(file, source string) (*ast.Program, error) {
	return New(Options{File: file}).ParseSource(source)
}

// ParseSource tokenizes and parses source text
func (p *Parser) ParseSource(source string) (*ast.Program, error) {
	if len(source) > p.options.MaxInputLength {
		return nil, fmt.Errorf("input exceeds maximum length: %d > %d",
			len(source), p.options.MaxInputLength)
	}
	tokens, err := lexer.Tokenize(source)
	if err != nil {
		p.logger.Warn("DAL tokenizing failed", mdwlog.Fields{
			"file":  p.options.File,
			"error": err.Error(),
		})
		return nil, err
	}
	return p.Parse(tokens)
}

// Parse parses a token stream into a program. The stream must end with EOF.
func (p *Parser) Parse(tokens []lexer.Token) (*ast.Program, error) {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != lexer.TokenEOF {
		tokens = append(tokens, lexer.Token{Type: lexer.TokenEOF})
	}
	p.tokens = tokens
	p.pos = 0
	p.depth = 0
	p.current = tokens[0]

	p.logger.Debug("Starting DAL parsing", mdwlog.Fields{
		"file":   p.options.File,
		"tokens": len(tokens),
	})

	program := &ast.Program{File: p.options.File}
	for !p.atEOF() {
		stmt, err := p.parseStatement(true)
		if err != nil {
			p.logger.Warn("DAL parsing failed", mdwlog.Fields{
				"file":  p.options.File,
				"error": err.Error(),
			})
			return nil, err
		}
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
	}

	p.logger.Debug("DAL parsing completed successfully", mdwlog.Fields{
		"file":       p.options.File,
		"statements": len(program.Statements),
	})
	return program, nil
}

// ---------------------------------------------------------------------------
// Token helpers
// ---------------------------------------------------------------------------

func (p *Parser) advance() lexer.Token {
	tok := p.current
	p.previous = tok
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	p.current = p.tokens[p.pos]
	return tok
}

func (p *Parser) peek(n int) lexer.Token {
	if p.pos+n < len(p.tokens) {
		return p.tokens[p.pos+n]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) atEOF() bool {
	return p.current.Type == lexer.TokenEOF
}

func (p *Parser) check(tt lexer.TokenType) bool {
	return p.current.Type == tt
}

func (p *Parser) checkKeyword(kw string) bool {
	return p.current.Is(kw)
}

func (p *Parser) match(tt lexer.TokenType) bool {
	if p.check(tt) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(tt lexer.TokenType, expected string) (lexer.Token, error) {
	if !p.check(tt) {
		return lexer.Token{}, p.unexpected(expected)
	}
	return p.advance(), nil
}

func (p *Parser) expectKeyword(kw string) error {
	if !p.checkKeyword(kw) {
		return p.unexpected("'" + kw + "'")
	}
	p.advance()
	return nil
}

// softKeywords may be used as plain names outside their statement position
var softKeywords = map[string]bool{
	"agent": true, "service": true, "event": true, "msg": true,
	"default": true, "private": true, "pub": true, "with": true,
	"as": true, "struct": true, "enum": true, "interface": true,
}

// expectName accepts an identifier or a soft keyword
func (p *Parser) expectName(expected string) (string, error) {
	if p.check(lexer.TokenIdentifier) || p.check(lexer.TokenKeyword) && softKeywords[p.current.Value] {
		return p.advance().Value, nil
	}
	return "", p.unexpected(expected)
}

// expectAnyName accepts an identifier or any keyword, as after '.' or '@'
func (p *Parser) expectAnyName(expected string) (string, error) {
	if p.check(lexer.TokenIdentifier) || p.check(lexer.TokenKeyword) {
		return p.advance().Value, nil
	}
	return "", p.unexpected(expected)
}

func (p *Parser) position() ast.Position {
	return ast.Position{Line: p.current.Line, Column: p.current.Column}
}

func (p *Parser) unexpected(expected string) error {
	if p.atEOF() {
		return &UnexpectedEOFError{
			File:     p.options.File,
			Expected: expected,
			Line:     p.current.Line,
			Column:   p.current.Column,
		}
	}
	return &UnexpectedTokenError{
		File:     p.options.File,
		Found:    p.current.Describe(),
		Expected: expected,
		Line:     p.current.Line,
		Column:   p.current.Column,
	}
}

func (p *Parser) enter() error {
	p.depth++
	if p.depth > p.options.MaxDepth {
		return p.unexpected(fmt.Sprintf("nesting depth at most %d", p.options.MaxDepth))
	}
	return nil
}

func (p *Parser) leave() {
	p.depth--
}

// closingBrace returns the token index of the '}' matching the '{' at start
func (p *Parser) closingBrace(start int) int {
	depth := 0
	for i := start; i < len(p.tokens); i++ {
		switch p.tokens[i].Type {
		case lexer.TokenLeftBrace:
			depth++
		case lexer.TokenRightBrace:
			depth--
			if depth == 0 {
				return i
			}
		case lexer.TokenEOF:
			return -1
		}
	}
	return -1
}
