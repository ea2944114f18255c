// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     lexer
// Description: Converts DAL source text into a token stream with line and
//              column information for every token
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	mdwerror "github.com/msto63/dal/foundation/core/error"
)

// DefaultMaxTokens bounds the token count of a single source text
const DefaultMaxTokens = 1_000_000

// UnexpectedCharacterError is returned for bytes outside the grammar
type UnexpectedCharacterError struct {
	Char   rune
	Line   int
	Column int
}

func (e *UnexpectedCharacterError) Error() string {
	return fmt.Sprintf("unexpected character %q at line %d, column %d", e.Char, e.Line, e.Column)
}

// Code implements mdwerror.Coder
func (e *UnexpectedCharacterError) Code() mdwerror.Code { return mdwerror.CodeUnexpectedCharacter }

// UnterminatedStringError is returned when input ends inside a string
type UnterminatedStringError struct {
	Line   int
	Column int
}

func (e *UnterminatedStringError) Error() string {
	return fmt.Sprintf("unterminated string starting at line %d, column %d", e.Line, e.Column)
}

// Code implements mdwerror.Coder
func (e *UnterminatedStringError) Code() mdwerror.Code { return mdwerror.CodeUnterminatedString }

// InvalidNumberError is returned for numeric literals that do not fit
type InvalidNumberError struct {
	Text   string
	Line   int
	Column int
}

func (e *InvalidNumberError) Error() string {
	return fmt.Sprintf("invalid number %q at line %d, column %d", e.Text, e.Line, e.Column)
}

// Code implements mdwerror.Coder
func (e *InvalidNumberError) Code() mdwerror.Code { return mdwerror.CodeInvalidNumber }

// TooManyTokensError is returned when the token limit is exceeded
type TooManyTokensError struct {
	Limit  int
	Line   int
	Column int
}

func (e *TooManyTokensError) Error() string {
	return fmt.Sprintf("token limit of %d exceeded at line %d, column %d", e.Limit, e.Line, e.Column)
}

// Code implements mdwerror.Coder
func (e *TooManyTokensError) Code() mdwerror.Code { return mdwerror.CodeTooManyTokens }

// Lexer performs lexical analysis of DAL source
type Lexer struct {
	input     string
	position  int  // byte offset of ch
	readPos   int  // byte offset after ch
	ch        rune // current rune, 0 at end of input
	line      int
	column    int
	maxTokens int
	err       error
}

// NewLexer creates a new lexer for the given input
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input:     input,
		line:      1,
		maxTokens: DefaultMaxTokens,
	}
	l.readChar()
	return l
}

// WithMaxTokens overrides the token limit; n <= 0 keeps the default
func (l *Lexer) WithMaxTokens(n int) *Lexer {
	if n > 0 {
		l.maxTokens = n
	}
	return l
}

// Tokenize is a convenience function returning all tokens of source,
// terminated by an EOF token
func Tokenize(source string) ([]Token, error) {
	return NewLexer(source).Tokenize()
}

// Tokenize returns all tokens from the input. The last token is EOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	tokens := make([]Token, 0, len(l.input)/4+1)
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type != TokenEOF && len(tokens) >= l.maxTokens {
			return nil, &TooManyTokensError{Limit: l.maxTokens, Line: tok.Line, Column: tok.Column}
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() (Token, error) {
	if l.err != nil {
		return Token{}, l.err
	}
	l.skipWhitespaceAndComments()

	pos, line, column := l.position, l.line, l.column
	single := func(tt TokenType) Token {
		tok := Token{Type: tt, Value: string(l.ch), Offset: pos, Line: line, Column: column}
		l.readChar()
		return tok
	}
	double := func(tt TokenType) Token {
		value := string(l.ch) + string(l.peekChar())
		l.readChar()
		l.readChar()
		return Token{Type: tt, Value: value, Offset: pos, Line: line, Column: column}
	}

	switch l.ch {
	case 0:
		if l.position >= len(l.input) {
			return Token{Type: TokenEOF, Offset: pos, Line: line, Column: column}, nil
		}
		return Token{}, l.fail(&UnexpectedCharacterError{Char: 0, Line: line, Column: column})
	case '+':
		return single(TokenPlus), nil
	case '*':
		return single(TokenStar), nil
	case '/':
		return single(TokenSlash), nil
	case '%':
		return single(TokenPercent), nil
	case '@':
		return single(TokenAt), nil
	case '?':
		return single(TokenQuestion), nil
	case ',':
		return single(TokenComma), nil
	case ';':
		return single(TokenSemicolon), nil
	case '(':
		return single(TokenLeftParen), nil
	case ')':
		return single(TokenRightParen), nil
	case '{':
		return single(TokenLeftBrace), nil
	case '}':
		return single(TokenRightBrace), nil
	case '[':
		return single(TokenLeftBracket), nil
	case ']':
		return single(TokenRightBracket), nil
	case '-':
		if l.peekChar() == '>' {
			return double(TokenArrow), nil
		}
		return single(TokenMinus), nil
	case '=':
		switch l.peekChar() {
		case '>':
			return double(TokenFatArrow), nil
		case '=':
			return double(TokenEqual), nil
		}
		return single(TokenAssign), nil
	case '!':
		if l.peekChar() == '=' {
			return double(TokenNotEqual), nil
		}
		return single(TokenNot), nil
	case '<':
		if l.peekChar() == '=' {
			return double(TokenLessEqual), nil
		}
		return single(TokenLess), nil
	case '>':
		if l.peekChar() == '=' {
			return double(TokenGreaterEqual), nil
		}
		return single(TokenGreater), nil
	case '&':
		if l.peekChar() == '&' {
			return double(TokenAnd), nil
		}
	case '|':
		if l.peekChar() == '|' {
			return double(TokenOr), nil
		}
	case ':':
		if l.peekChar() == ':' {
			return double(TokenDoubleColon), nil
		}
		return single(TokenColon), nil
	case '.':
		if l.peekChar() == '.' {
			return double(TokenDotDot), nil
		}
		return single(TokenDot), nil
	case '"':
		value, err := l.readString(line, column)
		if err != nil {
			return Token{}, l.fail(err)
		}
		return Token{Type: TokenString, Value: value, Offset: pos, Line: line, Column: column}, nil
	default:
		if isIdentStart(l.ch) {
			value := l.readIdentifier()
			return Token{Type: l.classify(value), Value: value, Offset: pos, Line: line, Column: column}, nil
		}
		if isDigit(l.ch) {
			value, isFloat := l.readNumber()
			if isFloat {
				if _, err := strconv.ParseFloat(value, 64); err != nil {
					return Token{}, l.fail(&InvalidNumberError{Text: value, Line: line, Column: column})
				}
				return Token{Type: TokenFloat, Value: value, Offset: pos, Line: line, Column: column}, nil
			}
			if _, err := strconv.ParseInt(value, 10, 64); err != nil {
				return Token{}, l.fail(&InvalidNumberError{Text: value, Line: line, Column: column})
			}
			return Token{Type: TokenInt, Value: value, Offset: pos, Line: line, Column: column}, nil
		}
	}

	return Token{}, l.fail(&UnexpectedCharacterError{Char: l.ch, Line: line, Column: column})
}

func (l *Lexer) fail(err error) error {
	l.err = err
	return err
}

// classify decides between keyword, literal and identifier. A word
// directly followed by "::" is always a namespace identifier.
func (l *Lexer) classify(word string) TokenType {
	switch word {
	case "true", "false":
		return TokenBool
	case "null":
		return TokenNull
	}
	if strings.HasPrefix(l.input[l.position:], "::") {
		return TokenIdentifier
	}
	if keywords[word] {
		return TokenKeyword
	}
	return TokenIdentifier
}

// readChar reads the next rune and advances position
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.position = len(l.input)
		l.readPos = len(l.input) + 1
		l.column++
		return
	}
	r, width := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.position = l.readPos
	l.readPos += width
	l.column++
}

// peekChar returns the next rune without advancing position
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.position < len(l.input) {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			l.readChar()
			l.readChar()
			for l.position < len(l.input) && !(l.ch == '*' && l.peekChar() == '/') {
				l.readChar()
			}
			if l.position < len(l.input) {
				l.readChar()
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isIdentStart(l.ch) || isDigit(l.ch) || unicode.IsDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readNumber reads an integer, or a float when '.' is followed by a digit
// (so 1..5 stays a range and x.0 access is left to the parser)
func (l *Lexer) readNumber() (string, bool) {
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	isFloat := false
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.position], isFloat
}

func (l *Lexer) readString(line, column int) (string, error) {
	var b strings.Builder
	l.readChar() // opening quote
	for {
		if l.position >= len(l.input) {
			return "", &UnterminatedStringError{Line: line, Column: column}
		}
		switch l.ch {
		case '"':
			l.readChar()
			return b.String(), nil
		case '\\':
			l.readChar()
			if l.position >= len(l.input) {
				return "", &UnterminatedStringError{Line: line, Column: column}
			}
			b.WriteRune(decodeEscape(l.ch))
			l.readChar()
		default:
			b.WriteRune(l.ch)
			l.readChar()
		}
	}
}

func decodeEscape(ch rune) rune {
	switch ch {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	default:
		return ch
	}
}

func isIdentStart(ch rune) bool {
	return ch == '_' || ch == '$' || 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch > 127 && unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}
