package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidLiteral   = errors.New("literal rejected by injection check")
	ErrToolUnavailable  = errors.New("external tool could not be started")
	ErrLLMNotConfigured = errors.New("llm not configured")
)

// MissingRequiredFieldError reports a pattern variable that neither the user
// nor auto-detection supplied. It is never defaulted.
type MissingRequiredFieldError struct {
	Pattern string
	Field   string
}

func (e *MissingRequiredFieldError) Error() string {
	if e.Pattern == "" {
		return fmt.Sprintf("missing required field %q", e.Field)
	}
	return fmt.Sprintf("missing required field %q for pattern %s", e.Field, e.Pattern)
}

// UnknownPatternError is a programming-contract violation: the resolver was
// asked for a pattern outside the closed set.
type UnknownPatternError struct {
	Pattern string
}

func (e *UnknownPatternError) Error() string {
	return fmt.Sprintf("unknown pattern: %q", e.Pattern)
}

// SchemaLookupKind distinguishes why a schema lookup failed so callers can
// choose between retrying, prompting for manual entry, or surfacing an auth problem.
type SchemaLookupKind string

const (
	SchemaLookupNotFound          SchemaLookupKind = "not_found"
	SchemaLookupPermissionDenied  SchemaLookupKind = "permission_denied"
	SchemaLookupInvalidIdentifier SchemaLookupKind = "invalid_identifier"
	SchemaLookupTransient         SchemaLookupKind = "transient"
)

// SchemaLookupError is returned by the schema introspector. It is recoverable.
type SchemaLookupError struct {
	Kind    SchemaLookupKind
	Dataset string
	Table   string
	Cause   error
}

func (e *SchemaLookupError) Error() string {
	target := e.Dataset
	if e.Table != "" {
		target = e.Dataset + "." + e.Table
	}
	if e.Cause != nil {
		return fmt.Sprintf("schema lookup %s for %s: %v", e.Kind, target, e.Cause)
	}
	return fmt.Sprintf("schema lookup %s for %s", e.Kind, target)
}

func (e *SchemaLookupError) Unwrap() error {
	return e.Cause
}

// IsSchemaLookupKind reports whether err is a SchemaLookupError of the given kind.
func IsSchemaLookupKind(err error, kind SchemaLookupKind) bool {
	var lookupErr *SchemaLookupError
	if errors.As(err, &lookupErr) {
		return lookupErr.Kind == kind
	}
	return false
}

// CompilationFailedError carries the templating tool's diagnostic output unchanged.
type CompilationFailedError struct {
	Pattern  string
	ExitCode int
	Stderr   string
}

func (e *CompilationFailedError) Error() string {
	return fmt.Sprintf("compilation of %s failed (exit %d): %s", e.Pattern, e.ExitCode, e.Stderr)
}
