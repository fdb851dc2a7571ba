// Package report defines the pipeline error taxonomy and the per-batch
// report that accumulates every non-fatal error next to the canonical graph.
//
// Only FormatError halts a batch. All other kinds are recorded in a Report
// and processing continues with the next record.
package report

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline errors for handling purposes.
type Kind string

const (
	// KindFormat marks input whose syntax cannot be parsed. Fatal for the batch.
	KindFormat Kind = "FormatError"
	// KindSchema marks a record whose required identifier cannot be resolved
	// or synthesized. The record is skipped.
	KindSchema Kind = "SchemaError"
	// KindReference marks a link that points at a missing entity. The link
	// is pruned silently.
	KindReference Kind = "ReferenceError"
	// KindRecognizer marks a recognizer that failed to normalize a value.
	// The value passes through unchanged.
	KindRecognizer Kind = "RecognizerError"
	// KindExternalService marks a failed external call such as geocoding.
	// The affected value is retained as-is.
	KindExternalService Kind = "ExternalServiceError"
)

// Sentinels usable with errors.Is to test an error's kind.
var (
	ErrFormat          = errors.New("format error")
	ErrSchema          = errors.New("schema error")
	ErrReference       = errors.New("reference error")
	ErrRecognizer      = errors.New("recognizer error")
	ErrExternalService = errors.New("external service error")
)

// Error is a classified pipeline error. Record names the affected entity,
// link, row or value when known.
type Error struct {
	Kind    Kind
	Record  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Record != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Record)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels so callers can write
// errors.Is(err, report.ErrFormat).
func (e *Error) Is(target error) bool {
	switch target {
	case ErrFormat:
		return e.Kind == KindFormat
	case ErrSchema:
		return e.Kind == KindSchema
	case ErrReference:
		return e.Kind == KindReference
	case ErrRecognizer:
		return e.Kind == KindRecognizer
	case ErrExternalService:
		return e.Kind == KindExternalService
	}
	return false
}

// Fatal reports whether the error halts a batch.
func (e *Error) Fatal() bool {
	return e.Kind == KindFormat
}

// NewFormatError wraps a parse failure of the given input.
func NewFormatError(record string, err error) *Error {
	return &Error{Kind: KindFormat, Record: record, Message: errMessage(err), Err: err}
}

// FormatErrorf builds a FormatError from a format string.
func FormatErrorf(record string, format string, args ...any) *Error {
	return &Error{Kind: KindFormat, Record: record, Message: fmt.Sprintf(format, args...)}
}

// NewSchemaError records an unresolvable identifier.
func NewSchemaError(record string, message string) *Error {
	return &Error{Kind: KindSchema, Record: record, Message: message}
}

// NewReferenceError records a link pointing at a missing entity.
func NewReferenceError(record string, missing string) *Error {
	return &Error{Kind: KindReference, Record: record, Message: "missing entity " + missing}
}

// NewRecognizerError records a failed normalization.
func NewRecognizerError(record string, err error) *Error {
	return &Error{Kind: KindRecognizer, Record: record, Message: errMessage(err), Err: err}
}

// NewExternalServiceError records a failed external call.
func NewExternalServiceError(record string, err error) *Error {
	return &Error{Kind: KindExternalService, Record: record, Message: errMessage(err), Err: err}
}

// KindOf returns the kind of a classified error, or "" when err is not one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
