// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     mold
// Description: Error definitions for the mold loader
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package mold

import (
	"errors"
	"fmt"

	mdwerror "github.com/msto63/dal/foundation/core/error"
)

var (
	// Validation errors
	ErrMissingName = errors.New("mold name is required")
	ErrEmpty       = errors.New("mold file is empty")

	// Loading errors
	ErrNotFound    = errors.New("mold not found")
	ErrInvalidYAML = errors.New("invalid mold syntax")
)

// InvalidTypeError is returned for a mold naming an unknown agent type
type InvalidTypeError struct {
	Mold string
	Type string
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("mold %s: unknown agent type %q", e.Mold, e.Type)
}

// Code implements mdwerror.Coder
func (e *InvalidTypeError) Code() mdwerror.Code { return mdwerror.CodeInvalidInput }
