package eyot

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessageFormat(t *testing.T) {
	err := NewError("pipe.send", ErrCodeInvariant, "sending on a closed pipe")
	assert.Equal(t, "eyot: pipe.send: sending on a closed pipe", err.Error())

	bare := NewError("", ErrCodeNotFound, "")
	assert.Equal(t, "eyot: not found", bare.Error())
}

func TestIsCode(t *testing.T) {
	err := NewError("gc.forget", ErrCodeNotFound, "unknown pointer")

	assert.True(t, IsCode(err, ErrCodeNotFound))
	assert.False(t, IsCode(err, ErrCodeInvariant))
	assert.False(t, IsCode(errors.New("plain"), ErrCodeNotFound))
}

func TestIsCodeThroughWrapping(t *testing.T) {
	inner := NewError("gpu.send", ErrCodeGPURuntime, "failed to dispatch kernel")
	wrapped := fmt.Errorf("batch 3: %w", inner)

	assert.True(t, IsCode(wrapped, ErrCodeGPURuntime))
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	a := NewError("unit-a", ErrCodeInvariant, "first")
	b := NewError("unit-b", ErrCodeInvariant, "second")

	assert.True(t, errors.Is(a, b), "structured errors match by code")
}

func TestFatalPanicsCarryTheError(t *testing.T) {
	program := NewMockProgram()
	program.Entry = func(ctx *ExecutionContext) {
		v := ctx.Runtime().NewVector(8)
		v.Access(0) // empty vector, fatal
	}

	defer func() {
		r := recover()
		err, ok := r.(*Error)
		if assert.True(t, ok, "fatal conditions panic with *Error") {
			assert.True(t, IsCode(err, ErrCodeInvariant))
		}
	}()

	Run(program, nil, nil)
}
