// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     lexer
// Description: Tests for the DAL lexer
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package lexer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mdwerror "github.com/msto63/dal/foundation/core/error"
)

func types(tokens []Token) []TokenType {
	out := make([]TokenType, len(tokens))
	for i, t := range tokens {
		out[i] = t.Type
	}
	return out
}

// TestTokenize_Operators tests every operator and punctuation token
func TestTokenize_Operators(t *testing.T) {
	tokens, err := Tokenize("+ - -> * / % @ => == = != ! <= < >= > && || :: : .. . ? , ; [ ] { } ( )")
	require.NoError(t, err)

	want := []TokenType{
		TokenPlus, TokenMinus, TokenArrow, TokenStar, TokenSlash, TokenPercent, TokenAt,
		TokenFatArrow, TokenEqual, TokenAssign, TokenNotEqual, TokenNot, TokenLessEqual,
		TokenLess, TokenGreaterEqual, TokenGreater, TokenAnd, TokenOr, TokenDoubleColon,
		TokenColon, TokenDotDot, TokenDot, TokenQuestion, TokenComma, TokenSemicolon,
		TokenLeftBracket, TokenRightBracket, TokenLeftBrace, TokenRightBrace,
		TokenLeftParen, TokenRightParen, TokenEOF,
	}
	assert.Equal(t, want, types(tokens))
}

// TestTokenize_Positions tests line and column tracking
func TestTokenize_Positions(t *testing.T) {
	src := "let x = 1;\n  fn foo() {}\r\n@secure"
	tokens, err := Tokenize(src)
	require.NoError(t, err)

	assert.Equal(t, 1, tokens[0].Line)
	assert.Equal(t, 1, tokens[0].Column)
	assert.Equal(t, 5, tokens[1].Column) // x

	fnTok := tokens[5]
	assert.True(t, fnTok.Is("fn"))
	assert.Equal(t, 2, fnTok.Line)
	assert.Equal(t, 3, fnTok.Column)

	at := tokens[len(tokens)-3]
	assert.Equal(t, TokenAt, at.Type)
	assert.Equal(t, 3, at.Line)
	assert.Equal(t, 1, at.Column)
}

// TestTokenize_Literals tests numbers, strings, booleans and null
func TestTokenize_Literals(t *testing.T) {
	tokens, err := Tokenize(`42 3.14 "a\"b\n" true false null 1..5`)
	require.NoError(t, err)

	assert.Equal(t, []TokenType{
		TokenInt, TokenFloat, TokenString, TokenBool, TokenBool, TokenNull,
		TokenInt, TokenDotDot, TokenInt, TokenEOF,
	}, types(tokens))
	assert.Equal(t, "a\"b\n", tokens[2].Value)
	assert.Equal(t, "3.14", tokens[1].Value)
}

// TestTokenize_KeywordsAndNamespaces tests keyword classification
func TestTokenize_KeywordsAndNamespaces(t *testing.T) {
	tokens, err := Tokenize("service Token agent::spawn service::new(x) spawn")
	require.NoError(t, err)

	assert.Equal(t, TokenKeyword, tokens[0].Type)
	assert.Equal(t, TokenIdentifier, tokens[1].Type)
	assert.Equal(t, TokenIdentifier, tokens[2].Type, "agent before :: is a namespace")
	assert.Equal(t, TokenIdentifier, tokens[5].Type, "service before :: is a namespace")
	assert.Equal(t, TokenKeyword, tokens[len(tokens)-2].Type)
}

// TestTokenize_Comments tests line and block comment skipping
func TestTokenize_Comments(t *testing.T) {
	tokens, err := Tokenize("a // line comment\n/* block\n comment */ b")
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, "b", tokens[1].Value)
	assert.Equal(t, 3, tokens[1].Line)
}

// TestTokenize_Identifiers tests identifier character classes
func TestTokenize_Identifiers(t *testing.T) {
	tokens, err := Tokenize("_private $var name2 balance_of")
	require.NoError(t, err)
	for _, tok := range tokens[:4] {
		assert.Equal(t, TokenIdentifier, tok.Type, tok.Value)
	}
}

// TestTokenize_Errors tests error reporting
func TestTokenize_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code mdwerror.Code
	}{
		{"illegal byte", "let x = #;", mdwerror.CodeUnexpectedCharacter},
		{"single ampersand", "a & b", mdwerror.CodeUnexpectedCharacter},
		{"single pipe", "a | b", mdwerror.CodeUnexpectedCharacter},
		{"unterminated string", `"open`, mdwerror.CodeUnterminatedString},
		{"integer overflow", "99999999999999999999", mdwerror.CodeInvalidNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.src)
			require.Error(t, err)
			assert.True(t, mdwerror.HasCode(err, tt.code), "got %v", err)
		})
	}
}

// TestTokenize_UnexpectedCharacterPosition tests the error location
func TestTokenize_UnexpectedCharacterPosition(t *testing.T) {
	_, err := Tokenize("let a = 1;\nlet b = ~;")
	var uc *UnexpectedCharacterError
	require.True(t, errors.As(err, &uc))
	assert.Equal(t, '~', uc.Char)
	assert.Equal(t, 2, uc.Line)
	assert.Equal(t, 9, uc.Column)
}

// TestTokenize_MaxTokens tests the token limit
func TestTokenize_MaxTokens(t *testing.T) {
	_, err := NewLexer("a b c d").WithMaxTokens(3).Tokenize()
	var tm *TooManyTokensError
	require.True(t, errors.As(err, &tm))
	assert.Equal(t, 3, tm.Limit)

	tokens, err := NewLexer("a b c").WithMaxTokens(3).Tokenize()
	require.NoError(t, err)
	assert.Len(t, tokens, 4)
}

// TestToken_Describe tests the error rendering of tokens
func TestToken_Describe(t *testing.T) {
	assert.Equal(t, "end of input", Token{Type: TokenEOF}.Describe())
	assert.Equal(t, "'{'", Token{Type: TokenLeftBrace, Value: "{"}.Describe())
	assert.Equal(t, `"x"`, Token{Type: TokenString, Value: "x"}.Describe())
	assert.Equal(t, "DOUBLE_COLON(::)", Token{Type: TokenDoubleColon, Value: "::"}.String())
}
