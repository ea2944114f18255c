// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     compiler
// Description: Tests for the cached front end
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	mdwlog "github.com/msto63/dal/foundation/core/log"
	"github.com/msto63/dal/internal/lexer"
)

func newCompiler(t *testing.T, opts Options) *Compiler {
	t.Helper()
	opts.Logger = mdwlog.Discard()
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

// TestCompile_Caches tests that identical input is compiled once
func TestCompile_Caches(t *testing.T) {
	c := newCompiler(t, Options{})
	src := `fn add(a: int, b: int) -> int { a + b } let x = add(1, 2);`

	first, err := c.Compile("a.dal", src)
	require.NoError(t, err)
	second, err := c.Compile("a.dal", src)
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := c.Compile("b.dal", src)
	require.NoError(t, err)
	assert.NotSame(t, first, other, "the file name is part of the key")
	assert.Equal(t, "b.dal", other.File)

	assert.Equal(t, Stats{Hits: 1, Misses: 2, Entries: 2}, c.Stats())

	c.Purge()
	assert.Equal(t, 0, c.Stats().Entries)
}

// TestCompile_Errors tests that each stage reports its own error
func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code mdwerror.Code
	}{
		{"lexer", `let s = "open`, mdwerror.CodeUnterminatedString},
		{"parser", `let = 5;`, mdwerror.CodeUnexpectedToken},
		{"validator", `@secure @public fn f() {}`, mdwerror.CodeSemantic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCompiler(t, Options{})
			_, err := c.Compile("bad.dal", tt.src)
			require.Error(t, err)
			assert.Equal(t, tt.code, mdwerror.GetCode(err))
			assert.Equal(t, 0, c.Stats().Entries, "failures are not cached")
		})
	}
}

// TestCompile_SkipValidation tests compiling without the validator
func TestCompile_SkipValidation(t *testing.T) {
	c := newCompiler(t, Options{SkipValidation: true})
	_, err := c.Compile("x.dal", `@secure @public fn f() {}`)
	assert.NoError(t, err)
}

// TestTokenize tests the lexer entry point and its token limit
func TestTokenize(t *testing.T) {
	c := newCompiler(t, Options{})
	tokens, err := c.Tokenize(`let x = 1;`)
	require.NoError(t, err)
	require.NotEmpty(t, tokens)
	assert.Equal(t, lexer.TokenEOF, tokens[len(tokens)-1].Type)

	limited := newCompiler(t, Options{MaxTokens: 2})
	_, err = limited.Tokenize(`let x = 1;`)
	assert.Equal(t, mdwerror.CodeTooManyTokens, mdwerror.GetCode(err))
}

// TestCompileFile tests reading sources from disk
func TestCompileFile(t *testing.T) {
	c := newCompiler(t, Options{})
	path := filepath.Join(t.TempDir(), "main.dal")
	require.NoError(t, os.WriteFile(path, []byte(`fn main() { log::info("hi"); }`), 0o644))

	program, err := c.CompileFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, program.File)
	assert.Len(t, program.Statements, 1)

	_, err = c.CompileFile(filepath.Join(t.TempDir(), "missing.dal"))
	assert.Equal(t, mdwerror.CodeNotFound, mdwerror.GetCode(err))
}
