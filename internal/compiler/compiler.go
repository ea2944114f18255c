// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     compiler
// Description: Cached front end: tokenize, parse and validate
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

// Package compiler runs the DAL front end (lexer, parser, attribute
// validator) and keeps recently compiled programs in an ARC cache keyed by
// the Keccak-256 of file name and source.
package compiler

import (
	"encoding/hex"
	"os"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	mdwlog "github.com/msto63/dal/foundation/core/log"
	"github.com/msto63/dal/internal/ast"
	"github.com/msto63/dal/internal/lexer"
	"github.com/msto63/dal/internal/parser"
	"github.com/msto63/dal/internal/security"
	"github.com/msto63/dal/internal/validator"
)

// DefaultCacheSize is the number of programs kept when Options leaves it 0
const DefaultCacheSize = 128

// Options configures a Compiler
type Options struct {
	Logger    *mdwlog.Logger
	CacheSize int
	MaxTokens int
	MaxDepth  int
	// SkipValidation compiles without the attribute validator
	SkipValidation bool
}

// Stats reports cache usage
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

// Compiler turns source into validated programs. Programs returned from
// the cache are shared and must be treated as read-only.
type Compiler struct {
	options Options
	logger  *mdwlog.Logger
	cache   *lru.ARCCache

	hits   uint64
	misses uint64
}

// New creates a compiler
func New(opts Options) (*Compiler, error) {
	if opts.Logger == nil {
		opts.Logger = mdwlog.GetDefault()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	cache, err := lru.NewARC(opts.CacheSize)
	if err != nil {
		return nil, mdwerror.Wrap(err, "failed to create program cache").WithCode(mdwerror.CodeInvalidConfig)
	}
	return &Compiler{
		options: opts,
		logger:  opts.Logger.WithField("component", "dal-compiler"),
		cache:   cache,
	}, nil
}

// Tokenize runs only the lexer
func (c *Compiler) Tokenize(source string) ([]lexer.Token, error) {
	lx := lexer.NewLexer(source)
	if c.options.MaxTokens > 0 {
		lx = lx.WithMaxTokens(c.options.MaxTokens)
	}
	return lx.Tokenize()
}

// Parse tokenizes and parses source without validating or caching
func (c *Compiler) Parse(file, source string) (*ast.Program, error) {
	tokens, err := c.Tokenize(source)
	if err != nil {
		return nil, err
	}
	return parser.New(parser.Options{
		Logger:   c.options.Logger,
		MaxDepth: c.options.MaxDepth,
		File:     file,
	}).Parse(tokens)
}

// Compile returns the validated program of source, from the cache when the
// same file and source were compiled before. Failures are not cached.
func (c *Compiler) Compile(file, source string) (*ast.Program, error) {
	key := cacheKey(file, source)
	if cached, ok := c.cache.Get(key); ok {
		atomic.AddUint64(&c.hits, 1)
		return cached.(*ast.Program), nil
	}
	atomic.AddUint64(&c.misses, 1)

	start := time.Now()
	program, err := c.Parse(file, source)
	if err != nil {
		return nil, err
	}
	if !c.options.SkipValidation {
		if err := validator.New(validator.Options{Logger: c.options.Logger, File: file}).Validate(program); err != nil {
			return nil, err
		}
	}
	c.cache.Add(key, program)

	c.logger.Timed(mdwlog.LevelDebug, "Program compiled", start, mdwlog.Fields{
		"file":       file,
		"statements": len(program.Statements),
	})
	return program, nil
}

// CompileFile reads and compiles path
func (c *Compiler) CompileFile(path string) (*ast.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, mdwerror.Wrap(err, "failed to read source file").
			WithCode(mdwerror.CodeNotFound).
			WithDetail("path", path)
	}
	return c.Compile(path, string(data))
}

// Stats returns cache counters
func (c *Compiler) Stats() Stats {
	return Stats{
		Hits:    atomic.LoadUint64(&c.hits),
		Misses:  atomic.LoadUint64(&c.misses),
		Entries: c.cache.Len(),
	}
}

// Purge empties the cache
func (c *Compiler) Purge() {
	c.cache.Purge()
}

func cacheKey(file, source string) string {
	return hex.EncodeToString(security.Keccak256([]byte(file), []byte{0}, []byte(source)))
}
