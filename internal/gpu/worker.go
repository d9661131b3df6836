//go:build opencl
// +build opencl

package gpu

import (
	"sync"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"

	"github.com/ehrlich-b/go-eyot/internal/alloc"
	"github.com/ehrlich-b/go-eyot/internal/constants"
	"github.com/ehrlich-b/go-eyot/internal/fault"
	"github.com/ehrlich-b/go-eyot/internal/gc"
	"github.com/ehrlich-b/go-eyot/internal/interfaces"
	"github.com/ehrlich-b/go-eyot/internal/printio"
	"github.com/ehrlich-b/go-eyot/internal/vector"
)

// batch is one in-flight kernel enqueue. Results are read back into the
// results vector; done completes once the log mirror has also been read.
type batch struct {
	input, output *cl.MemObject
	results       vector.Vector
	done          *cl.Event

	count int

	// negative until reading starts, then the next unread slot
	readIndex int
}

// Worker is a kernel-backed batch worker. The fixed kernel ABI is
//
//	0 input    read-only, inputSize × count bytes
//	1 output   write-only, outputSize × count bytes
//	2 count    uint32
//	3 shared   read-write per-lane log blocks
//	4 closure  write-only, present iff a closure was provided
type Worker struct {
	mu sync.Mutex

	r      *gc.Region
	d      *driver
	queue  *cl.CommandQueue
	kernel *cl.Kernel

	batches []*batch

	inputSize, outputSize int

	closure    []byte
	closureBuf *cl.MemObject

	localWorkgroupSize int

	// device operations chain on this event; see clearLogs
	ready *cl.Event

	logs      *LogState
	sharedGPU *cl.MemObject

	// results sent and not yet received; log clearing waits for idle
	activity int

	handle uintptr
	sink   printio.Sink
	obs    interfaces.Observer
}

// Config carries the optional collaborators of a GPU worker
type Config struct {
	Sink     printio.Sink
	Observer interfaces.Observer
}

// NewWorker creates a worker around one kernel of the compiled program.
// clos, when non-nil, is a closure blob seeded into device memory once at
// construction.
func NewWorker(r *gc.Region, kernelName string, inputSize, outputSize int, clos []byte, config Config) *Worker {
	d := current()
	if d == nil {
		fault.Panic("gpu.worker", fault.CodeGPUInit, "CL has not been initialised")
	}

	w := &Worker{
		r:                  r,
		d:                  d,
		inputSize:          inputSize,
		outputSize:         outputSize,
		closure:            clos,
		localWorkgroupSize: constants.LocalWorkgroupSize,
		logs:               NewLogState(constants.LocalWorkgroupSize),
		sink:               config.Sink,
		obs:                config.Observer,
		batches:            make([]*batch, 0, constants.InitialBatchCapacity),
	}

	var err error
	w.queue, err = d.context.CreateCommandQueue(d.device, 0)
	if err != nil {
		fault.Panicf("gpu.worker", fault.CodeGPUInit, "failed to create command queue: %v", err)
	}

	w.kernel, err = d.program.CreateKernel(kernelName)
	if err != nil {
		fault.Panicf("gpu.worker", fault.CodeGPUInit, "failed to create compute kernel %q: %v", kernelName, err)
	}

	w.sharedGPU, err = d.context.CreateEmptyBuffer(cl.MemReadWrite, w.logs.Size())
	if err != nil {
		fault.Panicf("gpu.worker", fault.CodeGPUInit, "failed to allocate shared buffers: %v", err)
	}

	w.clearLogs(false)

	if clos != nil {
		w.closureBuf, err = d.context.CreateEmptyBuffer(cl.MemWriteOnly, len(clos))
		if err != nil {
			fault.Panicf("gpu.worker", fault.CodeGPUInit, "failed to allocate closure buffer: %v", err)
		}

		w.ready, err = w.queue.EnqueueWriteBuffer(w.closureBuf, true, 0, len(clos),
			unsafe.Pointer(&clos[0]), []*cl.Event{w.ready})
		if err != nil {
			fault.Panicf("gpu.worker", fault.CodeGPURuntime, "failed to write closure memory: %v", err)
		}
	}

	queue, kernel := w.queue, w.kernel
	w.handle = r.Alloc(8, func(uintptr) {
		queue.Release()
		kernel.Release()
	})
	r.RememberRootObject(w.handle)

	return w
}

// Handle returns the worker's lifetime page
func (w *Worker) Handle() uintptr {
	return w.handle
}

// OutputSize returns the declared result element size
func (w *Worker) OutputSize() int {
	return w.outputSize
}

// Send enqueues one batch: write input, dispatch the kernel over a global
// size rounded up to the workgroup size, read results and the log mirror
// back. The batch completion event is the mirror read.
func (w *Worker) Send(values vector.Vector) {
	w.mu.Lock()
	defer w.mu.Unlock()

	count := values.Len()

	b := &batch{
		readIndex: -1,
		count:     count,
		results:   vector.New(w.r, w.outputSize),
	}
	b.results.Resize(count)

	w.activity += count

	var err error
	b.input, err = w.d.context.CreateEmptyBuffer(cl.MemReadOnly, w.inputSize*count)
	if err != nil {
		fault.Panicf("gpu.send", fault.CodeGPURuntime, "failed to allocate input memory: %v", err)
	}
	b.output, err = w.d.context.CreateEmptyBuffer(cl.MemWriteOnly, w.outputSize*count)
	if err != nil {
		fault.Panicf("gpu.send", fault.CodeGPURuntime, "failed to allocate output memory: %v", err)
	}

	written, err := w.queue.EnqueueWriteBuffer(b.input, true, 0, w.inputSize*count,
		alloc.Pointer(values.Ptr()), []*cl.Event{w.ready})
	if err != nil {
		fault.Panicf("gpu.send", fault.CodeGPURuntime, "failed to write input memory: %v", err)
	}

	if w.closureBuf != nil {
		err = w.kernel.SetArgs(b.input, b.output, uint32(count), w.sharedGPU, w.closureBuf)
	} else {
		err = w.kernel.SetArgs(b.input, b.output, uint32(count), w.sharedGPU)
	}
	if err != nil {
		fault.Panicf("gpu.send", fault.CodeGPURuntime, "failed to set kernel args: %v", err)
	}

	// the global size must be a workgroup multiple; the kernel guards on
	// the count argument
	global := roundUp(count, w.localWorkgroupSize)
	computed, err := w.queue.EnqueueNDRangeKernel(w.kernel, nil,
		[]int{global}, []int{w.localWorkgroupSize}, []*cl.Event{written})
	if err != nil {
		fault.Panicf("gpu.send", fault.CodeGPURuntime, "failed to dispatch kernel: %v", err)
	}

	read, err := w.queue.EnqueueReadBuffer(b.output, true, 0, w.outputSize*count,
		alloc.Pointer(b.results.Ptr()), []*cl.Event{computed})
	if err != nil {
		fault.Panicf("gpu.send", fault.CodeGPURuntime, "failed to read output buffer: %v", err)
	}

	b.done, err = w.queue.EnqueueReadBuffer(w.sharedGPU, true, 0, w.logs.Size(),
		unsafe.Pointer(&w.logs.Host()[0]), []*cl.Event{read})
	if err != nil {
		fault.Panicf("gpu.send", fault.CodeGPURuntime, "failed to read log buffer: %v", err)
	}

	w.batches = append(w.batches, b)
	if w.obs != nil {
		w.obs.ObserveBatch(uint64(count))
	}
}

// Receive copies the next result slot into out, in batch FIFO order and
// positional order within a batch
func (w *Worker) Receive(out []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.batches) == 0 {
		fault.Panic("gpu.receive", fault.CodeInvariant, "no batch found")
	}

	b := w.batches[0]
	if b.readIndex < 0 {
		if err := cl.WaitForEvents([]*cl.Event{b.done}); err != nil {
			fault.Panicf("gpu.receive", fault.CodeGPURuntime, "failed waiting for batch: %v", err)
		}
		w.pumpLogs()
		b.readIndex = 0

		w.activity -= b.count
		w.activityReduced()
	}

	copy(out, b.results.Access(b.readIndex))
	b.readIndex++

	if b.readIndex == b.count {
		w.popBatch()
	}
}

// popBatch releases the head batch's device buffers. Called locked.
func (w *Worker) popBatch() {
	b := w.batches[0]
	b.input.Release()
	b.output.Release()
	w.batches = w.batches[1:]
}

// Drain flushes every pending batch, concatenating result vectors in FIFO
// order, and retires the worker's pin
func (w *Worker) Drain() vector.Vector {
	w.mu.Lock()

	if len(w.batches) > 0 {
		last := w.batches[len(w.batches)-1]
		if last.readIndex < 0 {
			if err := cl.WaitForEvents([]*cl.Event{last.done}); err != nil {
				fault.Panicf("gpu.drain", fault.CodeGPURuntime, "failed waiting for batch: %v", err)
			}
			w.pumpLogs()
		}
	}

	vec := vector.New(w.r, w.outputSize)
	for _, b := range w.batches {
		if b.readIndex < 0 {
			// batches already being read were subtracted by Receive
			w.activity -= b.count
			vec.AppendVector(b.results)
		} else {
			for ; b.readIndex < b.count; b.readIndex++ {
				vec.Append(b.results.Access(b.readIndex))
			}
		}
		b.input.Release()
		b.output.Release()
	}
	w.batches = w.batches[:0]

	if w.closureBuf != nil {
		w.closureBuf.Release()
		w.closureBuf = nil
	}

	w.activityReduced()
	w.mu.Unlock()

	w.r.ForgetRootObject(w.handle)

	return vec
}

// pumpLogs pushes newly completed log lines to the sink. Called locked.
func (w *Worker) pumpLogs() {
	if w.sink != nil {
		w.logs.Pump(w.sink)
	}
}

// activityReduced clears the log buffers once the worker is idle and a
// lane has emitted. Called locked.
func (w *Worker) activityReduced() {
	if w.activity > 0 {
		return
	}
	if w.logs.AnyEmitted() {
		w.clearLogs(true)
	}
}

// clearLogs zeroes the mirror and pushes it to the device. The write
// chains on the previous ready event and its completion becomes the new
// one, so later operations order behind the clear. The wait list must be
// absent when there is nothing to wait on.
func (w *Worker) clearLogs(waitOnReady bool) {
	w.logs.Reset()

	var waitList []*cl.Event
	if waitOnReady {
		waitList = []*cl.Event{w.ready}
	}

	ready, err := w.queue.EnqueueWriteBuffer(w.sharedGPU, true, 0, w.logs.Size(),
		unsafe.Pointer(&w.logs.Host()[0]), waitList)
	if err != nil {
		fault.Panicf("gpu.clear_logs", fault.CodeGPURuntime, "failed to write shared buffers: %v", err)
	}
	w.ready = ready
}
