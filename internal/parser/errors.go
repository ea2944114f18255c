// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     parser
// Description: Parse error types with source location
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package parser

import (
	"fmt"

	mdwerror "github.com/msto63/dal/foundation/core/error"
)

func filePrefix(file string) string {
	if file == "" {
		return ""
	}
	return file + ":"
}

// UnexpectedTokenError reports a token the grammar does not allow here
type UnexpectedTokenError struct {
	File     string
	Found    string
	Expected string
	Line     int
	Column   int
}

func (e *UnexpectedTokenError) Error() string {
	return fmt.Sprintf("%s%d:%d: unexpected token %s, expected %s",
		filePrefix(e.File), e.Line, e.Column, e.Found, e.Expected)
}

// Code implements mdwerror.Coder
func (e *UnexpectedTokenError) Code() mdwerror.Code { return mdwerror.CodeUnexpectedToken }

// UnexpectedEOFError reports input that ended while a construct was open
type UnexpectedEOFError struct {
	File     string
	Expected string
	Line     int
	Column   int
}

func (e *UnexpectedEOFError) Error() string {
	return fmt.Sprintf("%s%d:%d: unexpected end of input, expected %s",
		filePrefix(e.File), e.Line, e.Column, e.Expected)
}

// Code implements mdwerror.Coder
func (e *UnexpectedEOFError) Code() mdwerror.Code { return mdwerror.CodeUnexpectedEOF }

// InvalidAttributeError reports a malformed or misplaced attribute
type InvalidAttributeError struct {
	File   string
	Name   string
	Line   int
	Reason string
}

func (e *InvalidAttributeError) Error() string {
	msg := fmt.Sprintf("%s%d: invalid attribute '@%s'", filePrefix(e.File), e.Line, e.Name)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Code implements mdwerror.Coder
func (e *InvalidAttributeError) Code() mdwerror.Code { return mdwerror.CodeInvalidAttribute }
