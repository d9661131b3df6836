package constants

// Allocation and collection constants
const (
	// PointerAlignment is the alignment of every page payload. The
	// collector scans payloads one word of this size at a time.
	PointerAlignment = 8

	// InitialStackRootCapacity is the initial size of a region's
	// stack-pointer root table
	InitialStackRootCapacity = 10
)

// Pipe constants
const (
	// InitialPipeCapacity is the element capacity of a freshly created pipe
	InitialPipeCapacity = 3
)

// GPU worker constants
const (
	// LocalWorkgroupSize is the local workgroup size for kernel dispatch.
	// The global size is always rounded up to a multiple of this.
	LocalWorkgroupSize = 64

	// InitialBatchCapacity is the initial in-flight batch table size
	InitialBatchCapacity = 10

	// SharedBufferSize is the byte capacity of a single lane's log buffer
	SharedBufferSize = 1020

	// SharedStride is the device-side stride of one lane's shared block:
	// a 4-byte used counter followed by the log buffer
	SharedStride = 4 + SharedBufferSize
)

// Environment variables understood by the runtime. Each is considered
// enabled when set to "y".
const (
	// EnvDebug enables page list consistency auditing on every
	// allocation and free
	EnvDebug = "EyotDebug"

	// EnvVerbose prints the GPU source and platform list, and raises the
	// default log level to debug
	EnvVerbose = "EyotVerbose"

	// EnvDisableCl refuses to initialise any GPU driver
	EnvDisableCl = "EyotDisableCl"
)
