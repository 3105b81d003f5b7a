// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("invalid request")

	// ErrUnknownOperation matches every *UnknownOperationError.
	ErrUnknownOperation = errors.New("unknown operation")
)

// ValidationError reports a request argument that failed validation.
// Err carries the underlying cause, such as a time-expression error.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() []error { return []error{ErrValidation, e.Err} }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Err: fmt.Errorf(format, args...)}
}

// UnknownOperationError reports a request for an operation that does
// not exist.
type UnknownOperationError struct {
	Name string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation: %s", e.Name)
}

func (e *UnknownOperationError) Unwrap() error { return ErrUnknownOperation }
