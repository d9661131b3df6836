//go:build !opencl
// +build !opencl

package gpu

import (
	"github.com/ehrlich-b/go-eyot/internal/fault"
	"github.com/ehrlich-b/go-eyot/internal/gc"
	"github.com/ehrlich-b/go-eyot/internal/interfaces"
	"github.com/ehrlich-b/go-eyot/internal/printio"
	"github.com/ehrlich-b/go-eyot/internal/vector"
)

// Config carries the optional collaborators of a GPU worker
type Config struct {
	Sink     printio.Sink
	Observer interfaces.Observer
}

// Worker is unavailable without the opencl build tag
type Worker struct{}

// Init is a no-op without the opencl build tag
func Init(src string) {}

// Available reports false: no driver can exist in this build
func Available() bool {
	return false
}

// NewWorker is available when built with -tags opencl
func NewWorker(r *gc.Region, kernelName string, inputSize, outputSize int, clos []byte, config Config) *Worker {
	fault.Panic("gpu.worker", fault.CodeGPUInit, "opencl not enabled; build with -tags opencl")
	return nil
}

func (w *Worker) Handle() uintptr           { return 0 }
func (w *Worker) OutputSize() int           { return 0 }
func (w *Worker) Send(values vector.Vector) {}
func (w *Worker) Receive(out []byte)        {}
func (w *Worker) Drain() vector.Vector      { return vector.Vector{} }
