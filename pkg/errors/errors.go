// Package errors provides structured error handling for parquetry with
// error categorization, contextual details, and stack traces.
//
// Every fatal failure in a conversion job carries one of a small, closed
// set of error types so the job boundary can report the failing stage and
// a human-readable cause:
//
//	// Wrap a transport failure
//	if err := sink.Put(ctx, bucket, key, data); err != nil {
//	    return errors.Wrap(err, errors.ErrorTypeUpload, "put object failed").
//	        WithDetail("bucket", bucket).
//	        WithDetail("key", key)
//	}
//
// Per-row parse failures use ErrorTypeParse and never propagate past the
// row decoder; they are counted and the row is skipped.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType categorizes an error for reporting and handling strategies.
type ErrorType string

const (
	// ErrorTypeIO represents source or sink transport failures (S3 reads,
	// invalid UTF-8 in the byte stream). Fatal to the job.
	ErrorTypeIO ErrorType = "io"
	// ErrorTypeSchema represents unusable input structure: an empty file
	// with no header line, or an invalid declared schema. Fatal.
	ErrorTypeSchema ErrorType = "schema"
	// ErrorTypeParse represents a single structurally malformed row
	// (unterminated quote). Recoverable: the row is skipped and counted.
	ErrorTypeParse ErrorType = "parse"
	// ErrorTypeFormat represents columnar encoding failures. Fatal; a
	// partially written output buffer must be discarded.
	ErrorTypeFormat ErrorType = "format"
	// ErrorTypeUpload represents failures delivering the finished buffer
	// to object storage. Fatal.
	ErrorTypeUpload ErrorType = "upload"
	// ErrorTypeConfig represents invalid configuration.
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeInternal represents unexpected internal failures.
	ErrorTypeInternal ErrorType = "internal"
)

// Error is a structured error with a category, contextual details, and
// the call stack captured at creation.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame is a single frame of the call stack at error creation.
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a key-value detail for diagnosis. Chainable.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates an error of the given type, capturing the call stack.
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates an error with a formatted message.
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error, preserving it as the cause. If err is
// already a structured Error its original stack is kept. Returns nil for
// a nil input.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	var existing *Error
	if errors.As(err, &existing) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existing.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType reports whether err (or any error in its chain) is a structured
// Error of the given type.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// TypeOf returns the error type of err, or ErrorTypeInternal when err is
// not a structured Error.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeInternal
}

// IsFatal reports whether an error type aborts the whole job. Only parse
// errors are recoverable.
func IsFatal(err error) bool {
	return TypeOf(err) != ErrorTypeParse
}

func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
