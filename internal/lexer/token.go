// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     lexer
// Description: Token types and keyword table of the DAL language
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package lexer

import "fmt"

// TokenType represents the type of a lexical token
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota

	// Identifiers and literals
	TokenIdentifier // balance, TokenContract
	TokenKeyword    // fn, let, service, ...
	TokenInt        // 42
	TokenFloat      // 3.14
	TokenString     // "text"
	TokenBool       // true, false
	TokenNull       // null

	// Operators
	TokenPlus         // +
	TokenMinus        // -
	TokenStar         // *
	TokenSlash        // /
	TokenPercent      // %
	TokenAssign       // =
	TokenEqual        // ==
	TokenNotEqual     // !=
	TokenLess         // <
	TokenLessEqual    // <=
	TokenGreater      // >
	TokenGreaterEqual // >=
	TokenAnd          // &&
	TokenOr           // ||
	TokenNot          // !

	// Punctuation
	TokenLeftParen    // (
	TokenRightParen   // )
	TokenLeftBrace    // {
	TokenRightBrace   // }
	TokenLeftBracket  // [
	TokenRightBracket // ]
	TokenComma        // ,
	TokenSemicolon    // ;
	TokenColon        // :
	TokenDoubleColon  // ::
	TokenDot          // .
	TokenDotDot       // ..
	TokenArrow        // ->
	TokenFatArrow     // =>
	TokenAt           // @
	TokenQuestion     // ?
)

var tokenNames = map[TokenType]string{
	TokenEOF:          "EOF",
	TokenIdentifier:   "IDENTIFIER",
	TokenKeyword:      "KEYWORD",
	TokenInt:          "INT",
	TokenFloat:        "FLOAT",
	TokenString:       "STRING",
	TokenBool:         "BOOL",
	TokenNull:         "NULL",
	TokenPlus:         "PLUS",
	TokenMinus:        "MINUS",
	TokenStar:         "STAR",
	TokenSlash:        "SLASH",
	TokenPercent:      "PERCENT",
	TokenAssign:       "ASSIGN",
	TokenEqual:        "EQUAL",
	TokenNotEqual:     "NOT_EQUAL",
	TokenLess:         "LESS",
	TokenLessEqual:    "LESS_EQUAL",
	TokenGreater:      "GREATER",
	TokenGreaterEqual: "GREATER_EQUAL",
	TokenAnd:          "AND",
	TokenOr:           "OR",
	TokenNot:          "NOT",
	TokenLeftParen:    "LEFT_PAREN",
	TokenRightParen:   "RIGHT_PAREN",
	TokenLeftBrace:    "LEFT_BRACE",
	TokenRightBrace:   "RIGHT_BRACE",
	TokenLeftBracket:  "LEFT_BRACKET",
	TokenRightBracket: "RIGHT_BRACKET",
	TokenComma:        "COMMA",
	TokenSemicolon:    "SEMICOLON",
	TokenColon:        "COLON",
	TokenDoubleColon:  "DOUBLE_COLON",
	TokenDot:          "DOT",
	TokenDotDot:       "DOT_DOT",
	TokenArrow:        "ARROW",
	TokenFatArrow:     "FAT_ARROW",
	TokenAt:           "AT",
	TokenQuestion:     "QUESTION",
}

// String returns a string representation of the token type
func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return "UNKNOWN"
}

// Token represents a lexical token with position information
type Token struct {
	Type   TokenType // Token type
	Value  string    // Lexeme; decoded text for strings
	Offset int       // Byte offset in input
	Line   int       // Line number (1-based)
	Column int       // Column number (1-based, in runes)
}

// String returns a string representation of the token
func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenString:
		return fmt.Sprintf("%s(%q)", t.Type, t.Value)
	default:
		return fmt.Sprintf("%s(%s)", t.Type, t.Value)
	}
}

// Describe renders the token the way parse errors quote it
func (t Token) Describe() string {
	switch t.Type {
	case TokenEOF:
		return "end of input"
	case TokenString:
		return fmt.Sprintf("%q", t.Value)
	default:
		return "'" + t.Value + "'"
	}
}

// Is reports whether the token is the keyword kw
func (t Token) Is(kw string) bool {
	return t.Type == TokenKeyword && t.Value == kw
}

// keywords are reserved words of the language. Attribute names such as
// secure or trust are plain identifiers after '@'.
var keywords = map[string]bool{
	"fn":        true,
	"let":       true,
	"mut":       true,
	"if":        true,
	"else":      true,
	"match":     true,
	"default":   true,
	"for":       true,
	"in":        true,
	"while":     true,
	"loop":      true,
	"break":     true,
	"continue":  true,
	"return":    true,
	"import":    true,
	"export":    true,
	"as":        true,
	"pub":       true,
	"private":   true,
	"spawn":     true,
	"await":     true,
	"agent":     true,
	"msg":       true,
	"event":     true,
	"service":   true,
	"with":      true,
	"async":     true,
	"try":       true,
	"catch":     true,
	"throw":     true,
	"finally":   true,
	"struct":    true,
	"enum":      true,
	"interface": true,
}

// IsKeyword checks if a string is a DAL keyword
func IsKeyword(s string) bool {
	return keywords[s]
}
