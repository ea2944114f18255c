// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     stdlib
// Description: crypto:: namespace (hashing and commitments)
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package stdlib

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"strings"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	"github.com/msto63/dal/internal/runtime"
	"github.com/msto63/dal/internal/security"
)

// hashHex hashes data with algo and returns lowercase hex without prefix
func hashHex(data []byte, algo string) (string, error) {
	switch strings.ToLower(algo) {
	case "", "sha256":
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:]), nil
	case "sha512":
		sum := sha512.Sum512(data)
		return hex.EncodeToString(sum[:]), nil
	case "keccak256", "keccak":
		return hex.EncodeToString(security.Keccak256(data)), nil
	}
	return "", runtime.NewError(mdwerror.CodeInvalidInput, "unsupported hash algorithm %q", algo)
}

func (l *Library) cryptoFuncs() runtime.FuncTable {
	return runtime.FuncTable{
		// hash(data[, algorithm]) with sha256 (default), sha512 or keccak256
		"hash": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("crypto::hash", args)
			if err := a.Want(1); err != nil {
				return runtime.Null, err
			}
			algo, err := a.StringOr(1, "sha256")
			if err != nil {
				return runtime.Null, err
			}
			h, err := hashHex([]byte(a.Get(0).String()), algo)
			if err != nil {
				return runtime.Null, err
			}
			return runtime.String(h), nil
		},

		"keccak256": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("crypto::keccak256", args)
			if err := a.Exactly(1); err != nil {
				return runtime.Null, err
			}
			return runtime.String("0x" + hex.EncodeToString(security.Keccak256([]byte(a.Get(0).String())))), nil
		},

		"random_hash": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("crypto::random_hash", args)
			algo, err := a.StringOr(0, "sha256")
			if err != nil {
				return runtime.Null, err
			}
			seed := make([]byte, 32)
			if _, err := rand.Read(seed); err != nil {
				return runtime.Null, mdwerror.Wrap(err, "failed to read random bytes").WithCode(mdwerror.CodeInternal)
			}
			h, err := hashHex(seed, algo)
			if err != nil {
				return runtime.Null, err
			}
			return runtime.String(h), nil
		},

		// commit(data, nonce) is the commit-reveal commitment of data
		"commit": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("crypto::commit", args)
			if err := a.Exactly(2); err != nil {
				return runtime.Null, err
			}
			nonce, err := a.Int(1)
			if err != nil {
				return runtime.Null, err
			}
			return runtime.String(security.Commitment([]byte(a.Get(0).String()), uint64(nonce))), nil
		},

		"verify_commit": func(_ context.Context, args []runtime.Value) (runtime.Value, error) {
			a := runtime.NewArgs("crypto::verify_commit", args)
			if err := a.Exactly(3); err != nil {
				return runtime.Null, err
			}
			commitment, err := a.String(0)
			if err != nil {
				return runtime.Null, err
			}
			nonce, err := a.Int(2)
			if err != nil {
				return runtime.Null, err
			}
			ok := strings.EqualFold(commitment, security.Commitment([]byte(a.Get(1).String()), uint64(nonce)))
			return runtime.Bool(ok), nil
		},
	}
}
