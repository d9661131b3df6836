// Package worker provides the runtime's computation units: long-lived
// consumers of batches that emit one result per input. The CPU variant
// hosts a per-item function on a background goroutine; Pipeline chains two
// workers in series. The GPU variant lives in the gpu package and
// satisfies the same interface.
package worker

import (
	"github.com/ehrlich-b/go-eyot/internal/vector"
)

// Worker is a computation unit. Send feeds a batch of input elements,
// Receive blocks for a single result, Drain collects everything still
// underway into a vector in send order.
type Worker interface {
	Send(values vector.Vector)
	Receive(out []byte)
	Drain() vector.Vector
	OutputSize() int
}

// Fn is the per-item function hosted by a CPU worker. in and out are the
// staging buffers for one element; userCtx is the worker's private copy of
// the construction-time context, nil when none was given.
type Fn func(ctx any, in, out []byte, userCtx []byte)
