// Package eyot provides the execution substrate for compiled Eyot
// programs: a conservatively scanned garbage collector, closures, pipes,
// CPU and GPU workers, and the container types generated code flows values
// through.
//
// A generated program implements Program and hands it to Run:
//
//	func main() {
//		eyot.Run(&generatedProgram{}, os.Args, nil)
//	}
//
// Run owns the entry-point protocol: it creates the global collector
// region, brings the GPU driver up when kernel source is present, pins the
// argument vector and invokes the program's entry function.
package eyot

import (
	"io"
	"os"
	"sync"
	"unsafe"

	"github.com/ehrlich-b/go-eyot/internal/closure"
	"github.com/ehrlich-b/go-eyot/internal/fault"
	"github.com/ehrlich-b/go-eyot/internal/gc"
	"github.com/ehrlich-b/go-eyot/internal/gpu"
	"github.com/ehrlich-b/go-eyot/internal/interfaces"
	"github.com/ehrlich-b/go-eyot/internal/logging"
	"github.com/ehrlich-b/go-eyot/internal/pipe"
	"github.com/ehrlich-b/go-eyot/internal/printio"
	"github.com/ehrlich-b/go-eyot/internal/text"
	"github.com/ehrlich-b/go-eyot/internal/vector"
	"github.com/ehrlich-b/go-eyot/internal/worker"
)

// Program is the set of oracles a generated program provides to the
// runtime. Layout questions are answered per function id; slot sizes
// arrive unpadded and the runtime applies its own strides.
type Program interface {
	// ArgCount returns the number of arguments of a function id
	ArgCount(fid int) int

	// SlotSize returns the unpadded byte size of one argument slot
	SlotSize(fid, arg int) int

	// CallFunction dispatches to a generated function. result may be nil
	// for void functions; args holds one resolved pointer per argument.
	CallFunction(ctx *ExecutionContext, fid int, result []byte, args [][]byte)

	// StringLiteral returns entry index of the program's literal pool
	StringLiteral(index int) string

	// CLSource returns the kernel source blob, empty when the program has
	// no GPU code
	CLSource() string

	// Main is the program entry point
	Main(ctx *ExecutionContext)
}

// Worker is a computation unit; see the worker package for the contract
type Worker = worker.Worker

// WorkerFn is the per-item function hosted by a CPU worker
type WorkerFn = worker.Fn

// Closure is a partially-applied callable
type Closure = closure.Closure

// String is the runtime's Unicode string handle
type String = text.String

// Vector is the runtime's dynamic buffer handle
type Vector = vector.Vector

// Pipe is the runtime's bounded thread-safe FIFO
type Pipe = pipe.Pipe

// Options contains additional collaborators for a runtime
type Options struct {
	// Output receives everything the program prints (default os.Stdout)
	Output io.Writer

	// Logger is stored on the runtime (default the process logger). The
	// runtime's internal diagnostics are written through the process
	// default logger, not through this one.
	Logger *logging.Logger

	// Observer for metrics collection (default records into Metrics())
	Observer interfaces.Observer
}

// Runtime binds a program to a collector region and the worker machinery
type Runtime struct {
	program Program
	region  *gc.Region
	out     io.Writer
	logger  *logging.Logger

	metrics  *Metrics
	observer interfaces.Observer

	args vector.Vector

	poolMu sync.Mutex
	pool   map[int]text.String
}

// ExecutionContext is the per-program handle threaded through generated
// code. It is the runtime's byte sink: all printing drills down to
// PrintByte.
type ExecutionContext struct {
	rt *Runtime
}

// NewRuntime creates a runtime for a program. The region exists from this
// point; the entry-point protocol itself runs in Run.
func NewRuntime(program Program, options *Options) *Runtime {
	if options == nil {
		options = &Options{}
	}

	rt := &Runtime{
		program: program,
		region:  gc.New(),
		out:     options.Output,
		logger:  options.Logger,
		metrics: NewMetrics(),
		pool:    make(map[int]text.String),
	}
	if rt.out == nil {
		rt.out = os.Stdout
	}
	if rt.logger == nil {
		rt.logger = logging.Default()
	}

	rt.observer = options.Observer
	if rt.observer == nil {
		rt.observer = NewMetricsObserver(rt.metrics)
	}
	rt.region.SetObserver(rt.observer)

	return rt
}

// Run executes the entry-point protocol: bring up the GPU driver if the
// program carries kernel source, build and pin the argument vector, call
// the program, unpin and free the region. The finished runtime is
// returned so hosts can inspect metrics.
func Run(program Program, args []string, options *Options) *Runtime {
	rt := NewRuntime(program, options)

	if src := program.CLSource(); src != "" {
		gpu.Init(src)
	}

	ctx := &ExecutionContext{rt: rt}

	rt.args = vector.New(rt.region, 8)
	for _, arg := range args {
		s := text.CreateLiteralString(rt.region, arg)
		rt.appendHandle(rt.args, s.Handle())
	}
	rt.region.RememberRootObject(rt.args.Handle())

	program.Main(ctx)

	rt.region.ForgetRootObject(rt.args.Handle())
	rt.metrics.Stop()
	rt.region.Free()

	return rt
}

// appendHandle appends a page address as an 8-byte word, so the
// conservative scan can trace the vector's elements
func (rt *Runtime) appendHandle(v vector.Vector, h uintptr) {
	word := h
	v.Append(unsafe.Slice((*byte)(unsafe.Pointer(&word)), 8))
}

// Region exposes the runtime's collector region
func (rt *Runtime) Region() *gc.Region {
	return rt.region
}

// Metrics returns the runtime's counters
func (rt *Runtime) Metrics() *Metrics {
	return rt.metrics
}

// Args returns the pinned argument vector of string handles
func (rt *Runtime) Args() vector.Vector {
	return rt.args
}

// Collect runs a full mark and sweep on the runtime's region
func (rt *Runtime) Collect() {
	rt.region.Collect()
}

// AllocatedBytes reports the region's live byte count
func (rt *Runtime) AllocatedBytes() int {
	return rt.region.Stats().BytesAllocated
}

// StringGet interns entry index of the program's literal pool as a
// static-lifetime string. Repeated calls return the same handle.
func (rt *Runtime) StringGet(index int) text.String {
	rt.poolMu.Lock()
	defer rt.poolMu.Unlock()

	if s, ok := rt.pool[index]; ok {
		return s
	}
	s := text.CreateStatic(rt.region, rt.program.StringLiteral(index))
	rt.pool[index] = s
	return s
}

// Range builds the integer enumerable [start, end) with the given stride
func (rt *Runtime) Range(start, end, step int64) vector.Vector {
	return vector.Range(rt.region, start, end, step)
}

// ContinueIterating is the loop guard used by expanded for loops
func ContinueIterating(step, lhs, rhs int64) bool {
	return vector.ContinueIterating(step, lhs, rhs)
}

// NewClosure packs a function id with captured argument slots. A nil args
// entry defers that slot to invocation time.
func (rt *Runtime) NewClosure(fid int, args [][]byte) Closure {
	return closure.New(rt.region, rt.oracle(), fid, args)
}

// CallClosure invokes a closure, merging the captured slots with the
// supplied values and dispatching through the program's function caller
func (rt *Runtime) CallClosure(ctx *ExecutionContext, c Closure, result []byte, supplied [][]byte) {
	c.Call(ctx, result, supplied, func(callCtx any, fid int, res []byte, resolved [][]byte) {
		ec, _ := callCtx.(*ExecutionContext)
		rt.program.CallFunction(ec, fid, res, resolved)
	})
}

// NewPipe creates a bounded FIFO of fixed-size elements
func (rt *Runtime) NewPipe(elemSize int) *Pipe {
	p := pipe.New(rt.region, elemSize)
	p.SetObserver(rt.observer)
	return p
}

// NewVector creates an empty vector of fixed-size elements
func (rt *Runtime) NewVector(elemSize int) vector.Vector {
	return vector.New(rt.region, elemSize)
}

// NewCPUWorker creates a worker hosting fn on a background thread. The
// user context is copied into collector memory, so stack-local state is
// safe to pass. A zero output size declares a void worker.
func (rt *Runtime) NewCPUWorker(ctx *ExecutionContext, fn WorkerFn, inputSize, outputSize int, userCtx []byte) *worker.CPU {
	return worker.NewCPU(rt.region, fn, inputSize, outputSize, userCtx, worker.Config{
		Ctx:      ctx,
		Observer: rt.observer,
	})
}

// NewPipeline composes two workers in series; output flows lhs then rhs
func (rt *Runtime) NewPipeline(lhs, rhs Worker) *worker.Pipeline {
	return worker.NewPipeline(rt.region, lhs, rhs)
}

// NewGPUWorker creates a kernel-backed batch worker. The closure, when
// not nil, is seeded into device memory once. Fatal when no driver is up.
func (rt *Runtime) NewGPUWorker(ctx *ExecutionContext, kernelName string, inputSize, outputSize int, c Closure) *gpu.Worker {
	var clos []byte
	if !c.IsNil() {
		clos = c.Bytes()
	}
	return gpu.NewWorker(rt.region, kernelName, inputSize, outputSize, clos, gpu.Config{
		Sink:     ctx,
		Observer: rt.observer,
	})
}

// CheckCL reports whether a usable GPU driver exists
func CheckCL() bool {
	return gpu.Available()
}

// InitOpenCL brings the GPU driver up from kernel source. Run does this
// automatically; it is exposed for hosts managing their own lifecycle. An
// empty source disables GPU support.
func InitOpenCL(src string) {
	gpu.Init(src)
}

// oracle adapts the program to the internal layout oracle
func (rt *Runtime) oracle() interfaces.Oracle {
	return programOracle{program: rt.program}
}

type programOracle struct {
	program Program
}

func (o programOracle) ArgCount(fid int) int {
	return o.program.ArgCount(fid)
}

func (o programOracle) SlotSize(fid, arg int) int {
	return o.program.SlotSize(fid, arg)
}

// Runtime returns the owning runtime
func (ctx *ExecutionContext) Runtime() *Runtime {
	return ctx.rt
}

// Region returns the runtime's collector region
func (ctx *ExecutionContext) Region() *gc.Region {
	return ctx.rt.region
}

// PrintByte writes one byte of program output. All runtime printing
// drills down here.
func (ctx *ExecutionContext) PrintByte(c byte) {
	if _, err := ctx.rt.out.Write([]byte{c}); err != nil {
		fault.Panicf("print", fault.CodeInvariant, "output write failed: %v", err)
	}
}

// PrintInt prints a runtime integer in base 10
func (ctx *ExecutionContext) PrintInt(val int64) {
	printio.Int(ctx, val)
}

// PrintFloat64 prints a 64-bit float as sign, integral part and a
// six-digit truncated fraction
func (ctx *ExecutionContext) PrintFloat64(val float64) {
	printio.Float64(ctx, val)
}

// PrintFloat32 prints a 32-bit float
func (ctx *ExecutionContext) PrintFloat32(val float32) {
	printio.Float32(ctx, val)
}

// PrintBool prints "true" or "false"
func (ctx *ExecutionContext) PrintBool(val bool) {
	printio.Bool(ctx, val)
}

// PrintCharacter prints one Unicode scalar as UTF-8
func (ctx *ExecutionContext) PrintCharacter(code uint32) {
	printio.Character(ctx, code)
}

// PrintString prints a runtime string scalar by scalar
func (ctx *ExecutionContext) PrintString(s text.String) {
	printio.String(ctx, s)
}

// PrintNewline prints byte 10
func (ctx *ExecutionContext) PrintNewline() {
	printio.Newline(ctx)
}
