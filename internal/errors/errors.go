// Package errors provides the structured error type (BuildError) used for
// classification and reporting across the site generation pipeline.
package errors

import (
	"errors"
	"fmt"
)

// Category classifies a BuildError by the subsystem that produced it.
type Category string

const (
	CategoryConfig   Category = "config"
	CategoryContent  Category = "content"
	CategoryTemplate Category = "template"
	CategoryGraph    Category = "graph"
	CategoryOutput   Category = "output"
	CategoryInternal Category = "internal"
)

// Kind identifies a specific failure condition in the build taxonomy.
type Kind string

const (
	KindMalformedFrontMatter  Kind = "malformed_front_matter"
	KindInvalidDateInFilename Kind = "invalid_date_in_filename"
	KindMissingPartial        Kind = "missing_partial"
	KindCyclicLayout          Kind = "cyclic_layout"
	KindCyclicDependency      Kind = "cyclic_dependency"
	KindDuplicatePermalink    Kind = "duplicate_permalink"
	KindWriteFailure          Kind = "write_failure"
	KindUnresolvedVariable    Kind = "unresolved_variable"
)

// Severity indicates how a BuildError affects the build.
type Severity string

const (
	SeverityFatal   Severity = "fatal"   // Aborts the build
	SeverityWarning Severity = "warning" // Recorded, build continues
)

// ContextFields carries structured context for a BuildError.
type ContextFields map[string]any

// BuildError is a structured error with category, kind, and context. Fatal
// errors always carry the offending source path in their context so the
// failure can be traced back to a file.
type BuildError struct {
	Category Category      `json:"category"`
	Kind     Kind          `json:"kind,omitempty"`
	Severity Severity      `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	msg := e.Message
	if path, ok := e.Context["path"]; ok {
		msg = fmt.Sprintf("%s: %v", msg, path)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, msg, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, msg)
}

// Unwrap supports errors.Is/As chains.
func (e *BuildError) Unwrap() error {
	return e.Cause
}

// WithContext adds a context field and returns the error for chaining.
func (e *BuildError) WithContext(key string, value any) *BuildError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a BuildError.
func New(category Category, severity Severity, message string) *BuildError {
	return &BuildError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a BuildError wrapping an underlying cause.
func Wrap(err error, category Category, severity Severity, message string) *BuildError {
	return &BuildError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// IsKind reports whether err (or anything it wraps) is a BuildError of the
// given kind.
func IsKind(err error, kind Kind) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Kind == kind
	}
	return false
}

// GetKind extracts the kind from an error, or "" if it is not a BuildError.
func GetKind(err error) Kind {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

// IsFatal reports whether err is a fatal BuildError. Errors that are not
// BuildErrors are treated as fatal: an unclassified failure must never be
// silently downgraded.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var be *BuildError
	if errors.As(err, &be) {
		return be.Severity == SeverityFatal
	}
	return true
}
