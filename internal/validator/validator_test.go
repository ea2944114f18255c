// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     validator
// Description: Tests for attribute validation
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	mdwlog "github.com/msto63/dal/foundation/core/log"
	"github.com/msto63/dal/internal/parser"
)

func validate(t *testing.T, src string) error {
	t.Helper()
	program, err := parser.New(parser.Options{Logger: mdwlog.Discard(), File: "contract.dal"}).ParseSource(src)
	require.NoError(t, err)
	return New(Options{Logger: mdwlog.Discard()}).Validate(program)
}

func requireSemantic(t *testing.T, err error, attribute string) *SemanticError {
	t.Helper()
	var se *SemanticError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, attribute, se.Attribute)
	assert.Equal(t, "contract.dal", se.File)
	assert.True(t, mdwerror.HasCode(err, mdwerror.CodeSemantic))
	return se
}

// TestValidate_TrustRequiresChain tests the @trust -> @chain dependency
// for every trust model
func TestValidate_TrustRequiresChain(t *testing.T) {
	for _, model := range TrustModels {
		t.Run(model, func(t *testing.T) {
			err := validate(t, `@trust("`+model+`") service S { fn f() {} }`)
			se := requireSemantic(t, err, "trust")
			assert.Contains(t, se.Message, "requires @chain")

			assert.NoError(t, validate(t, `@trust("`+model+`") @chain("ethereum") service S { fn f() {} }`))
		})
	}
	requireSemantic(t, validate(t, `@trust("bogus") service S {}`), "trust")
}

// TestValidate_MethodTrustInheritsServiceChain tests chain inheritance
func TestValidate_MethodTrustInheritsServiceChain(t *testing.T) {
	assert.NoError(t, validate(t, `@chain("polygon") service S { @trust("hybrid") fn f() {} }`))
	requireSemantic(t, validate(t, `service S { @trust("hybrid") fn f() {} }`), "trust")
}

// TestValidate_Chain tests the closed chain set
func TestValidate_Chain(t *testing.T) {
	assert.NoError(t, validate(t, `@chain("Ethereum", "BASE") service S {}`))
	assert.NoError(t, validate(t, `@chain(eth) fn f() {}`))
	requireSemantic(t, validate(t, `@chain("dogechain") service S {}`), "chain")
	requireSemantic(t, validate(t, `@chain service S {}`), "chain")
}

// TestValidate_SecurePublicExclusive tests mutual exclusion on one function
func TestValidate_SecurePublicExclusive(t *testing.T) {
	requireSemantic(t, validate(t, `@secure @public fn f() {}`), "public")
	requireSemantic(t, validate(t, `service S { @secure @public fn f() {} }`), "public")
	requireSemantic(t, validate(t, `@secure @public service S {}`), "public")

	// function @public inside a @secure service is an override, not a conflict
	assert.NoError(t, validate(t, `@secure service S { @public fn f() {} }`))
}

// TestValidate_CompileTarget tests required attributes and forbidden namespaces
func TestValidate_CompileTarget(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name: "blockchain ok",
			src:  `@compile_target("blockchain") @secure @trust("trustless") @chain("ethereum") service S { fn f() { chain::get_balance("eth", "a"); } }`,
		},
		{
			name:    "blockchain missing attrs",
			src:     `@compile_target("blockchain") @secure service S { fn f() {} }`,
			wantErr: "requires @trust",
		},
		{
			name:    "blockchain forbids web",
			src:     `@compile_target("blockchain") @secure @trust("hybrid") @chain("eth") service S { fn f() { let r = web::get("x"); } }`,
			wantErr: "method f uses namespace(s) web",
		},
		{
			name: "wasm alias",
			src:  `@compile_target("wasm") @web service S { fn f() { log::info("x"); } }`,
		},
		{
			name:    "wasm forbids chain in nested code",
			src:     `@compile_target("wasm") @web service S { fn f() { if (true) { for x in [1] { chain::deploy(x); } } } }`,
			wantErr: "forbidden for target webassembly",
		},
		{
			name:    "unknown target",
			src:     `@compile_target("fpga") service S {}`,
			wantErr: "unknown target",
		},
		{
			name:    "edge forbids desktop",
			src:     `@compile_target("edge") @edge service S { fn f() { desktop::notify("x"); } }`,
			wantErr: "desktop",
		},
		{
			name: "function level target",
			src:  `@compile_target("native") @native fn main() { log::info("x"); }`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(t, tt.src)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			se := requireSemantic(t, err, "compile_target")
			assert.Contains(t, se.Message, tt.wantErr)
		})
	}
}

// TestLookupTarget tests the constraint table
func TestLookupTarget(t *testing.T) {
	wasm, ok := LookupTarget("WASM")
	require.True(t, ok)
	assert.Equal(t, "webassembly", wasm.Name)
	assert.Equal(t, []string{"chain", "desktop", "iot", "mobile"}, wasm.ForbiddenNamespaces())

	bc, _ := LookupTarget("blockchain")
	assert.Equal(t, []string{"secure", "trust"}, bc.RequiredAttributes)

	_, ok = LookupTarget("fpga")
	assert.False(t, ok)
	assert.Equal(t, []string{"blockchain", "edge", "mobile", "native", "webassembly"}, TargetNames())
}
