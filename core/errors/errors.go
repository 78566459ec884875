// Package errors defines the error types the liaison reports: missing
// blobs and state entries, bad settings and selectors, failed reads and
// writes, and persisted state whose checksum no longer matches.
//
// Every type unwraps to one of the sentinels below unless it carries an
// underlying cause, so callers test with Is.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: a blob, state entry, file or named command is missing.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput: a setting, selector, region or persisted form is malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupported: a direction, command or backend the liaison does not know.
	ErrUnsupported = errors.New("unsupported")
	// ErrCorrupt: a persisted blob failed its checksum.
	ErrCorrupt = errors.New("corrupt")
)

// NotFoundError names what was looked up and under which key.
type NotFoundError struct {
	Resource string // "blob", "state entry", "file", "command"
	ID       string // blob name, document identity, path or command name
	Err      error
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// ValidationError rejects a setting, region or argument.
type ValidationError struct {
	Field   string // setting key or argument name; may be empty
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// IOError wraps a failed filesystem or database operation on a document,
// blob or state location.
type IOError struct {
	Operation string // "read", "write", "flush", "open", ...
	Path      string
	Err       error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError reports malformed settings, project files, selectors or
// persisted state.
type ParseError struct {
	Format  string // "settings", "project", "selector", "state"
	Path    string // source file; empty for in-memory input
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
	}
	return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// UnsupportedError reports a direction, command or backend with no
// implementation.
type UnsupportedError struct {
	Feature string
	Reason  string // may be empty
	Err     error
}

func (e *UnsupportedError) Error() string {
	if e.Reason == "" {
		return "unsupported " + e.Feature
	}
	return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
}

func (e *UnsupportedError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnsupported
}

// IntegrityError reports a blob whose payload no longer matches the
// BLAKE3 checksum stored with it.
type IntegrityError struct {
	Name     string
	Expected string // stored checksum
	Actual   string // checksum of the payload as read
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed for %s: expected %s, got %s", e.Name, e.Expected, e.Actual)
}

func (e *IntegrityError) Unwrap() error {
	return ErrCorrupt
}

func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func NewIO(operation, path string, err error) *IOError {
	return &IOError{Operation: operation, Path: path, Err: err}
}

func NewParse(format, path, message string) *ParseError {
	return &ParseError{Format: format, Path: path, Message: message}
}

func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{Feature: feature, Reason: reason}
}

// Wrap prefixes err with message. A nil err stays nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// Is is errors.Is, so callers that import this package need not also
// import the standard one.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
