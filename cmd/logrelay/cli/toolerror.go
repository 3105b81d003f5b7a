// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"

	"github.com/bureau-foundation/logrelay/lib/query"
	"github.com/bureau-foundation/logrelay/lib/service"
)

// ErrorCategory classifies an error so that an MCP client can decide
// whether to fix its input, retry, or report the failure.
type ErrorCategory string

const (
	// CategoryValidation means the caller supplied bad input.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound means a named operation or resource does not
	// exist.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryTransient means the failure may clear on retry, such as
	// a collector that is not running yet.
	CategoryTransient ErrorCategory = "transient"

	// CategoryInternal means an unexpected failure.
	CategoryInternal ErrorCategory = "internal"
)

// ToolError is an error with a category. Error returns only the
// wrapped message; the category travels separately.
type ToolError struct {
	Category ErrorCategory
	Err      error
}

func (e *ToolError) Error() string { return e.Err.Error() }

func (e *ToolError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the same call might succeed.
func (e *ToolError) Retryable() bool { return e.Category == CategoryTransient }

// Validation creates a validation error.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Transient creates a transient error.
func Transient(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryTransient, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// Categorize returns the category of err: the category of a wrapped
// ToolError, else one derived from query engine errors, query socket
// responses, and connection failures. Anything else is internal.
func Categorize(err error) ErrorCategory {
	var toolError *ToolError
	if errors.As(err, &toolError) {
		return toolError.Category
	}

	var serviceError *service.ServiceError
	if errors.As(err, &serviceError) {
		switch serviceError.Kind {
		case service.KindInvalid:
			return CategoryValidation
		case service.KindNotFound:
			return CategoryNotFound
		default:
			return CategoryInternal
		}
	}

	switch {
	case errors.Is(err, query.ErrValidation):
		return CategoryValidation
	case errors.Is(err, query.ErrUnknownOperation):
		return CategoryNotFound
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, os.ErrNotExist):
		return CategoryTransient
	}

	var networkError net.Error
	if errors.As(err, &networkError) && networkError.Timeout() {
		return CategoryTransient
	}
	return CategoryInternal
}
