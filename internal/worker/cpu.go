package worker

import (
	"sync"

	"github.com/ehrlich-b/go-eyot/internal/alloc"
	"github.com/ehrlich-b/go-eyot/internal/fault"
	"github.com/ehrlich-b/go-eyot/internal/gc"
	"github.com/ehrlich-b/go-eyot/internal/interfaces"
	"github.com/ehrlich-b/go-eyot/internal/pipe"
	"github.com/ehrlich-b/go-eyot/internal/vector"
)

// CPU is a worker computing on a background goroutine. Input elements flow
// through the input pipe, one result per element comes back through the
// output pipe. A zero output size means the function is void; the output
// pipe then carries a single sentinel byte per processed element so
// accounting still works.
type CPU struct {
	r  *gc.Region
	fn Fn

	input, output *pipe.Pipe

	inputSize, outputSize int

	// private copy of the user context, pinned while the goroutine runs
	ctxPtr  uintptr
	ctxSize int

	// handle is a region page whose finaliser closes the input pipe, so an
	// unreachable worker winds down its goroutine
	handle uintptr

	mu       sync.Mutex
	underway int

	ctx any
	obs interfaces.Observer
}

// Config carries the optional collaborators of a worker
type Config struct {
	Ctx      any
	Observer interfaces.Observer
}

// NewCPU creates a worker hosting fn. The user context is copied into
// collector memory so the caller may pass stack-local state; the copy is
// pinned until the worker goroutine exits.
func NewCPU(r *gc.Region, fn Fn, inputSize, outputSize int, userCtx []byte, config Config) *CPU {
	if inputSize <= 0 {
		fault.Panicf("worker.create", fault.CodeInvariant, "bad input size %d", inputSize)
	}
	if outputSize < 0 {
		fault.Panicf("worker.create", fault.CodeInvariant, "bad output size %d", outputSize)
	}

	w := &CPU{
		r:          r,
		fn:         fn,
		inputSize:  inputSize,
		outputSize: outputSize,
		input:      pipe.New(r, inputSize),
		ctx:        config.Ctx,
		obs:        config.Observer,
	}
	w.input.SetObserver(config.Observer)

	if userCtx != nil {
		w.ctxSize = len(userCtx)
		w.ctxPtr = r.Alloc(w.ctxSize, nil)
		copy(r.Bytes(w.ctxPtr), userCtx)
		r.RememberRootObject(w.ctxPtr)
	}

	if outputSize > 0 {
		w.output = pipe.New(r, outputSize)
	} else {
		// the void output case still needs per-element accounting
		w.output = pipe.New(r, 1)
	}

	input := w.input
	w.handle = r.Alloc(8, func(uintptr) {
		input.Close()
	})

	go w.loop()

	return w
}

// Handle returns the worker's lifetime page. Collecting it closes the
// input pipe; pin it for as long as the worker is in use.
func (w *CPU) Handle() uintptr {
	return w.handle
}

// OutputSize returns the declared result element size, zero for void
func (w *CPU) OutputSize() int {
	return w.outputSize
}

// loop is the goroutine body: receive, apply, forward, until end of
// stream. Scratch staging buffers come from the manual allocator and are
// returned on exit.
func (w *CPU) loop() {
	in := alloc.Alloc(w.inputSize)
	inBuf := alloc.Bytes(in, w.inputSize)

	var out uintptr
	var outBuf []byte
	if w.outputSize > 0 {
		out = alloc.Alloc(w.outputSize)
		outBuf = alloc.Bytes(out, w.outputSize)
	}

	var userCtx []byte
	if w.ctxPtr != 0 {
		userCtx = w.r.Bytes(w.ctxPtr)
	}

	sentinel := []byte{0}

	for w.input.Receive(inBuf) {
		w.fn(w.ctx, inBuf, outBuf, userCtx)
		if w.outputSize > 0 {
			w.output.Send(outBuf)
		} else {
			w.output.Send(sentinel)
		}
	}
	w.output.Close()

	if w.ctxPtr != 0 {
		w.r.ForgetRootObject(w.ctxPtr)
	}

	alloc.Free(in)
	alloc.Free(out)
}

// Send feeds every element of values into the worker
func (w *CPU) Send(values vector.Vector) {
	l := values.Len()

	w.mu.Lock()
	w.underway += l
	w.mu.Unlock()

	for i := 0; i < l; i++ {
		w.input.Send(values.Access(i))
	}

	if w.obs != nil {
		w.obs.ObserveWorkerItems(uint64(l))
	}
}

// Receive blocks for one result. The worker owes a reply per sent
// element; receiving when the output stream has ended is fatal.
func (w *CPU) Receive(out []byte) {
	if out == nil {
		out = make([]byte, 1)
	}

	if !w.output.Receive(out) {
		fault.Panic("worker.receive", fault.CodeInvariant, "failed to receive")
	}

	w.mu.Lock()
	w.underway--
	w.mu.Unlock()
}

// Drain receives every result still underway into a vector, in order. A
// void worker drains to the nil vector.
func (w *CPU) Drain() vector.Vector {
	w.mu.Lock()
	required := w.underway
	w.mu.Unlock()

	var results vector.Vector
	if w.outputSize > 0 {
		results = vector.New(w.r, w.outputSize)
		results.Resize(required)
	}

	for i := 0; i < required; i++ {
		if w.outputSize > 0 {
			w.Receive(results.Access(i))
		} else {
			w.Receive(nil)
		}
	}

	return results
}

// Close shuts the input pipe down directly, without waiting for the
// collector to finalise the handle page
func (w *CPU) Close() {
	w.input.Close()
}
