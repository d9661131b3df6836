package eyot

import (
	"github.com/ehrlich-b/go-eyot/internal/fault"
)

// Error is the structured runtime error. Fatal conditions panic with a
// tagged *Error; recover at the entry point if a process exit is not
// wanted.
type Error = fault.Error

// ErrorCode represents the high-level failure categories
type ErrorCode = fault.Code

const (
	// ErrCodeAllocationFailure means the host allocator returned nothing
	ErrCodeAllocationFailure = fault.CodeAllocationFailure

	// ErrCodeInvariant means the generated program violated a runtime
	// contract: a negative index, a type-mismatched append, a send on a
	// closed pipe, a receive from a worker that owes nothing
	ErrCodeInvariant = fault.CodeInvariant

	// ErrCodeGPUInit means GPU platform, device or program setup failed
	ErrCodeGPUInit = fault.CodeGPUInit

	// ErrCodeGPURuntime means a GPU call failed after the driver existed
	ErrCodeGPURuntime = fault.CodeGPURuntime

	// ErrCodeNotFound means a forget operation named an unknown root
	ErrCodeNotFound = fault.CodeNotFound
)

// IsCode checks whether an error carries a specific code
func IsCode(err error, code ErrorCode) bool {
	return fault.IsCode(err, code)
}

// NewError creates a structured error without raising it
func NewError(unit string, code ErrorCode, msg string) *Error {
	return fault.New(unit, code, msg)
}
