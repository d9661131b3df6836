// Package interfaces provides internal interface definitions for go-eyot.
// These are separate from the public interfaces to avoid circular imports
// between the main package and internal packages.
package interfaces

// Oracle resolves the layout of generated functions. It is implemented by
// the generated program and consulted whenever a closure is built or called.
type Oracle interface {
	// ArgCount returns the number of arguments of a function id
	ArgCount(fid int) int

	// SlotSize returns the unpadded byte size of one argument slot
	SlotSize(fid, arg int) int
}

// FunctionCaller dispatches a call to a generated function by id. The
// resolved argument list mixes closure-captured slots and caller-supplied
// values; result may be nil for void functions.
type FunctionCaller func(ctx any, fid int, result []byte, args [][]byte)

// Logger interface for optional logging.
type Logger interface {
	Printf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// Observer interface for metrics collection.
// Implementations must be thread-safe as methods are called from worker
// goroutines and under the region lock.
type Observer interface {
	ObserveAlloc(bytes uint64)
	ObserveFree(bytes uint64)
	ObserveCollect(freedPages uint64, latencyNs uint64)
	ObserveSend()
	ObserveReceive()
	ObserveWorkerItems(n uint64)
	ObserveBatch(count uint64)
}
