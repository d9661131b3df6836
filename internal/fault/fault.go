// Package fault provides the structured error type used across the runtime
// and the fatal-error channel. The runtime has no recoverable errors beyond
// end-of-stream, which is surfaced as a boolean; everything here terminates
// the calling program by panicking with a tagged *Error.
package fault

import (
	"errors"
	"fmt"

	"github.com/ehrlich-b/go-eyot/internal/logging"
)

// Code represents the high-level failure categories of the runtime
type Code string

const (
	// CodeAllocationFailure means the host allocator could not provide memory
	CodeAllocationFailure Code = "allocation failure"

	// CodeInvariant means the generated program violated a runtime contract
	CodeInvariant Code = "invariant violated"

	// CodeGPUInit means GPU platform, device or program setup failed
	CodeGPUInit Code = "gpu initialisation failed"

	// CodeGPURuntime means a GPU call failed after the driver existed
	CodeGPURuntime Code = "gpu runtime failure"

	// CodeNotFound means a forget operation named an unknown root
	CodeNotFound Code = "not found"
)

// Error is a structured runtime error tagged with the unit that raised it
type Error struct {
	Unit  string // Runtime unit that failed (e.g. "gc", "pipe.send")
	Code  Code   // High-level failure category
	Msg   string // Human-readable message
	Inner error  // Wrapped error, if any
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Unit != "" {
		return fmt.Sprintf("eyot: %s: %s", e.Unit, msg)
	}
	return fmt.Sprintf("eyot: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is matches two structured errors by code
func (e *Error) Is(target error) bool {
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// New creates a structured error without raising it
func New(unit string, code Code, msg string) *Error {
	return &Error{
		Unit: unit,
		Code: code,
		Msg:  msg,
	}
}

// Wrap attaches unit and code context to an existing error
func Wrap(unit string, code Code, inner error) *Error {
	if inner == nil {
		return nil
	}
	return &Error{
		Unit:  unit,
		Code:  code,
		Msg:   inner.Error(),
		Inner: inner,
	}
}

// IsCode checks whether an error carries a specific code
func IsCode(err error, code Code) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// Panic logs and raises a fatal runtime error. It does not return.
func Panic(unit string, code Code, msg string) {
	e := New(unit, code, msg)
	logging.Error(e.Error())
	panic(e)
}

// Panicf is Panic with a formatted message
func Panicf(unit string, code Code, format string, args ...any) {
	Panic(unit, code, fmt.Sprintf(format, args...))
}
