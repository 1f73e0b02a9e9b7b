// SPDX-License-Identifier: MPL-2.0

// Package issue carries user-facing error context for the CLI layer:
// what operation failed, on which resource, and what the operator can do
// about it. Provisioning errors from internal/provision get wrapped here
// before they reach the terminal.
package issue

import (
	"errors"
	"fmt"
	"strings"
)

// Error is an error enriched with remediation context. Construct through New
// or Wrap.
type Error struct {
	// Operation is a verb phrase, e.g. "load capability" or "apply plan".
	Operation string

	// Resource names the file, capability, or service involved (optional).
	Resource string

	// Suggestions are remediation hints shown under the message (optional).
	Suggestions []string

	// Cause is the underlying error (optional).
	Cause error
}

// New returns an Error for the given operation.
func New(operation string) *Error {
	return &Error{Operation: operation}
}

// Wrap attaches operation and resource context to err. Returns nil when err
// is nil so call sites can wrap unconditionally.
func Wrap(err error, operation, resource string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Operation: operation, Resource: resource, Cause: err}
}

// With adds remediation suggestions and returns the error for chaining.
func (e *Error) With(suggestions ...string) *Error {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// Error implements the error interface with the concise one-line form.
func (e *Error) Error() string {
	var msg strings.Builder
	msg.WriteString("failed to ")
	msg.WriteString(e.Operation)
	if e.Resource != "" {
		msg.WriteString(": ")
		msg.WriteString(e.Resource)
	}
	if e.Cause != nil {
		msg.WriteString(": ")
		msg.WriteString(e.Cause.Error())
	}
	return msg.String()
}

// Unwrap exposes the cause to errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Cause }

// Format renders the error for terminal output. Suggestions are listed as
// bullets; verbose additionally prints the unwrapped cause chain.
func (e *Error) Format(verbose bool) string {
	var msg strings.Builder
	msg.WriteString(e.Error())

	if len(e.Suggestions) > 0 {
		msg.WriteString("\n")
		for _, s := range e.Suggestions {
			msg.WriteString("\n  • ")
			msg.WriteString(s)
		}
	}

	if verbose && e.Cause != nil {
		msg.WriteString("\n\nError chain:")
		depth := 1
		for err := e.Cause; err != nil; err = errors.Unwrap(err) {
			fmt.Fprintf(&msg, "\n  %d. %s", depth, err.Error())
			depth++
		}
	}

	return msg.String()
}
